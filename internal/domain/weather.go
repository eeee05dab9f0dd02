package domain

import (
	"context"
	"math"
	"time"
)

// KnotsPerMeterPerSecond converts provider wind speeds to knots.
const KnotsPerMeterPerSecond = 1.94384

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// WeatherData is a current-conditions reading in display units.
type WeatherData struct {
	Temperature          int       `json:"temperature"` // °C
	Description          string    `json:"description"`
	WindSpeed            int       `json:"windSpeed"`     // knots
	WindDirection        string    `json:"windDirection"` // 16-point compass
	WindDirectionDegrees int       `json:"windDirectionDegrees"`
	Humidity             int       `json:"humidity"`   // %
	Visibility           int       `json:"visibility"` // km
	FeelsLike            int       `json:"feelsLike"`  // °C
	Pressure             int       `json:"pressure"`   // hPa
	Icon                 string    `json:"icon"`
	Location             string    `json:"location"`
	LastUpdated          time.Time `json:"lastUpdated"`
}

// CacheEntry is the persisted form of one cached reading. Timestamps are
// epoch milliseconds so entries written by the browser client stay readable.
type CacheEntry struct {
	Data      WeatherData `json:"data"`
	Timestamp int64       `json:"timestamp"`
	ExpiresAt int64       `json:"expiresAt"`
}

// NewCacheEntry wraps data stored at now and valid for ttl.
func NewCacheEntry(data WeatherData, now time.Time, ttl time.Duration) CacheEntry {
	return CacheEntry{
		Data:      data,
		Timestamp: now.UnixMilli(),
		ExpiresAt: now.Add(ttl).UnixMilli(),
	}
}

// Expired reports whether the entry is no longer fresh at now. An entry whose
// expiry equals now is expired.
func (e CacheEntry) Expired(now time.Time) bool {
	return e.ExpiresAt-now.UnixMilli() <= 0
}

// Complete reports whether the entry carries both timestamps. Values that
// decode but lack them, such as null or {}, hold no reading.
func (e CacheEntry) Complete() bool {
	return e.Timestamp > 0 && e.ExpiresAt > 0
}

// WeatherQuery selects a reading either by coordinates or by place name.
// A non-empty Location takes precedence.
type WeatherQuery struct {
	Lat      float64
	Lon      float64
	Location string
}

// WeatherProvider fetches current conditions from a third-party service.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, q WeatherQuery) (WeatherData, error)
}

// CompassDirection maps degrees to one of 16 compass points using
// round(deg / 22.5) mod 16.
func CompassDirection(degrees float64) string {
	idx := int(math.Round(degrees/22.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// KnotsFromMetersPerSecond converts and rounds to whole knots.
func KnotsFromMetersPerSecond(ms float64) int {
	return int(math.Round(ms * KnotsPerMeterPerSecond))
}

// KilometersFromMeters converts and rounds to whole kilometres.
func KilometersFromMeters(m float64) int {
	return int(math.Round(m / 1000))
}
