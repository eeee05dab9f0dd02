package weather

import (
	"fmt"
	"strings"
)

// KeyNamespace prefixes every cache key owned by the weather client.
// ClearWeatherCache and the expiry sweep only touch keys under it.
const KeyNamespace = "edyc_weather_"

// CoordsKey returns the cache key for coordinates rounded to two decimal
// places, roughly a 1 km cell.
func CoordsKey(lat, lon float64) string {
	return fmt.Sprintf("%scoords_%.2f_%.2f", KeyNamespace, lat, lon)
}

// LocationKey returns the cache key for a place name, lowercased with runs
// of whitespace collapsed to one underscore.
func LocationKey(location string) string {
	return KeyNamespace + "location_" + strings.Join(strings.Fields(strings.ToLower(location)), "_")
}

func ownedKey(key string) bool {
	return strings.HasPrefix(key, KeyNamespace)
}
