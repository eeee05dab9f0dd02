// Package domain models the club calendar and weather data served by the
// site backend.
//
// # Events and Occurrences
//
// The club backend publishes events as loosely typed JSON. Field names mix
// snake_case and camelCase between endpoints ("start_date" vs "startDate"),
// and older records use "name", "venue" or "date". [DecodeEventRecord]
// resolves every alias once into an [EventRecord]; nothing downstream reads
// raw backend keys.
//
// An [EventRecord] with an end date strictly after its start date is a weekly
// series. The [Expander] emits one [Occurrence] per week from the start date
// through the end date inclusive:
//
//	start 2024-04-03, end 2024-04-17  →  Apr 3, Apr 10, Apr 17
//	start 2024-04-03, end 2024-04-16  →  Apr 3, Apr 10
//	start 2024-04-03, no end          →  Apr 3
//
// Date-only strings are calendar dates in the display zone, never instants.
// Start times are rendered in the display zone as "6:30 PM", or [TimeTBD]
// when absent or unparseable. Occurrence IDs are "<eventId>-<yyyy-mm-dd>"
// and EventID keeps the source record's ID for detail links.
//
// # Month Grid
//
// [RenderMonth] lays out a Sunday-first month: one blank per weekday before
// the 1st, then one cell per day. A day is marked when any occurrence starts
// on it, compared by year, month and day only.
//
// # Weather
//
// [WeatherData] is already in display units: whole °C, knots, km and a
// 16-point [CompassDirection]. [CacheEntry] keeps epoch-millisecond
// timestamps so cached JSON written by the browser client decodes unchanged.
package domain
