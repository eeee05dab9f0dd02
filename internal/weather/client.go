// Package weather serves current conditions through a namespaced key/value
// cache with a fixed 12-hour expiry.
//
// Every lookup runs the same policy:
//
//  1. Snapshot the entry for the requested key, then sweep every expired or
//     unreadable entry under KeyNamespace.
//  2. Unless forced, return the snapshot when it has not expired.
//  3. Without an API key, cache and return MockWeatherData.
//  4. Fetch from the provider, cache with expiresAt = now + CacheDuration.
//  5. If the fetch fails, return the snapshot even when expired, otherwise
//     an error wrapping ErrUnavailable.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/kvstore"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/observability"
)

// CacheDuration is how long a fetched reading stays fresh.
const CacheDuration = 12 * time.Hour

// ErrUnavailable is returned when the provider failed and no cached reading
// exists for the key.
var ErrUnavailable = errors.New("weather unavailable")

// Cache lookup results, used as metric labels.
const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultStale = "stale"
	resultMock  = "mock"
)

// Options configures a Client.
type Options struct {
	// APIKeyConfigured selects the provider path. When false every miss is
	// answered with mock data.
	APIKeyConfigured bool

	// Home location used when callers pass no coordinates or place name.
	DefaultLat      float64
	DefaultLon      float64
	DefaultLocation string

	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

// Client is the cached weather client. It is safe for concurrent use; two
// concurrent misses for the same key both reach the provider and the later
// write wins.
type Client struct {
	provider domain.WeatherProvider
	store    kvstore.Store
	opts     Options
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewClient creates a cached weather client.
func NewClient(provider domain.WeatherProvider, store kvstore.Store, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.APIKeyConfigured {
		metrics.WeatherAPIEnabled.Set(1)
	} else {
		metrics.WeatherAPIEnabled.Set(0)
	}
	return &Client{
		provider: provider,
		store:    store,
		opts:     opts,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

// GetCurrentWeather returns conditions at the given coordinates. A nil
// coordinate is replaced by the configured home location.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon *float64, forceRefresh bool) (domain.WeatherData, error) {
	q := domain.WeatherQuery{Lat: c.opts.DefaultLat, Lon: c.opts.DefaultLon}
	if lat != nil {
		q.Lat = *lat
	}
	if lon != nil {
		q.Lon = *lon
	}
	res, err := c.fetch(ctx, CoordsKey(q.Lat, q.Lon), q, forceRefresh)
	return res.data, err
}

// GetWeatherByLocation returns conditions for a place name with whitespace
// collapsed. A blank name is replaced by the configured home location name.
func (c *Client) GetWeatherByLocation(ctx context.Context, location string, forceRefresh bool) (domain.WeatherData, error) {
	location = strings.Join(strings.Fields(location), " ")
	if location == "" {
		location = c.opts.DefaultLocation
	}
	q := domain.WeatherQuery{Location: location}
	res, err := c.fetch(ctx, LocationKey(location), q, forceRefresh)
	return res.data, err
}

// refreshHome force-refreshes the home coordinates. A failed fetch that fell
// back to a cached reading is reported through fetchErr.
func (c *Client) refreshHome(ctx context.Context) (fetchResult, error) {
	q := domain.WeatherQuery{Lat: c.opts.DefaultLat, Lon: c.opts.DefaultLon}
	return c.fetch(ctx, CoordsKey(q.Lat, q.Lon), q, true)
}

// MockWeatherData returns the fixed reading used without an API key and as
// a last-resort fallback. LastUpdated is the current time.
func (c *Client) MockWeatherData() domain.WeatherData {
	return domain.WeatherData{
		Temperature:          15,
		Description:          "Partly cloudy",
		WindSpeed:            12,
		WindDirection:        "SW",
		WindDirectionDegrees: 225,
		Humidity:             72,
		Visibility:           10,
		FeelsLike:            13,
		Pressure:             1013,
		Icon:                 "02d",
		Location:             "Strangford Lough",
		LastUpdated:          c.clock.Now(),
	}
}

// ClearWeatherCache removes every entry under KeyNamespace and reports how
// many were removed. Keys outside the namespace are left alone.
func (c *Client) ClearWeatherCache() (int, error) {
	keys, err := c.store.Keys()
	if err != nil {
		return 0, fmt.Errorf("list cache keys: %w", err)
	}
	removed := 0
	for _, key := range keys {
		if !ownedKey(key) {
			continue
		}
		if err := c.store.Remove(key); err != nil {
			return removed, fmt.Errorf("remove cache key %s: %w", key, err)
		}
		removed++
	}
	c.logger.Info("weather cache cleared", "removed", removed)
	return removed, nil
}

// fetchResult is one lookup outcome. fetchErr is set when the provider
// failed and a cached reading was served instead.
type fetchResult struct {
	data     domain.WeatherData
	result   string
	fetchErr error
}

func (c *Client) fetch(ctx context.Context, key string, q domain.WeatherQuery, force bool) (fetchResult, error) {
	now := c.clock.Now()

	snapshot, cached := c.load(key)
	c.sweep(now)

	if !force && cached && !snapshot.Expired(now) {
		c.metrics.WeatherCache.WithLabelValues(resultHit).Inc()
		return fetchResult{data: snapshot.Data, result: resultHit}, nil
	}

	if !c.opts.APIKeyConfigured {
		c.metrics.WeatherCache.WithLabelValues(resultMock).Inc()
		data := c.MockWeatherData()
		c.save(key, data, now)
		return fetchResult{data: data, result: resultMock}, nil
	}

	c.metrics.WeatherCache.WithLabelValues(resultMiss).Inc()
	data, err := c.provider.CurrentWeather(ctx, q)
	if err != nil {
		if cached {
			c.metrics.WeatherCache.WithLabelValues(resultStale).Inc()
			c.logger.Warn("weather fetch failed, serving cached reading",
				"key", key, "expired", snapshot.Expired(now), "error", err)
			return fetchResult{data: snapshot.Data, result: resultStale, fetchErr: err}, nil
		}
		c.logger.Error("weather fetch failed", "key", key, "error", err)
		return fetchResult{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.save(key, data, c.clock.Now())
	return fetchResult{data: data, result: resultMiss}, nil
}

// load reads and decodes one entry. Unreadable or incomplete entries are
// removed and reported as absent.
func (c *Client) load(key string) (domain.CacheEntry, bool) {
	raw, ok, err := c.store.Get(key)
	if err != nil {
		c.logger.Warn("weather cache read failed", "key", key, "error", err)
		return domain.CacheEntry{}, false
	}
	if !ok {
		return domain.CacheEntry{}, false
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		c.logger.Warn("discarding corrupt weather cache entry", "key", key, "error", err)
		c.remove(key)
		return domain.CacheEntry{}, false
	}
	return entry, true
}

var errIncompleteEntry = errors.New("entry has no timestamps")

func decodeEntry(raw string) (domain.CacheEntry, error) {
	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return domain.CacheEntry{}, err
	}
	if !entry.Complete() {
		return domain.CacheEntry{}, errIncompleteEntry
	}
	return entry, nil
}

func (c *Client) save(key string, data domain.WeatherData, now time.Time) {
	raw, err := json.Marshal(domain.NewCacheEntry(data, now, CacheDuration))
	if err != nil {
		c.logger.Warn("encode weather cache entry", "key", key, "error", err)
		return
	}
	if err := c.store.Set(key, string(raw)); err != nil {
		c.logger.Warn("weather cache write failed", "key", key, "error", err)
	}
}

func (c *Client) remove(key string) {
	if err := c.store.Remove(key); err != nil {
		c.logger.Warn("weather cache remove failed", "key", key, "error", err)
	}
}

// sweep deletes expired and unreadable entries under the namespace.
func (c *Client) sweep(now time.Time) {
	keys, err := c.store.Keys()
	if err != nil {
		c.logger.Warn("weather cache sweep failed", "error", err)
		return
	}
	for _, key := range keys {
		if !ownedKey(key) {
			continue
		}
		raw, ok, err := c.store.Get(key)
		if err != nil || !ok {
			continue
		}
		if entry, err := decodeEntry(raw); err != nil || entry.Expired(now) {
			c.remove(key)
		}
	}
}
