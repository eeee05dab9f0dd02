package domain

import (
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/teambition/rrule-go"
)

const (
	defaultEventType   = "general"
	defaultTitle       = "Untitled Event"
	defaultDescription = "No description available."
	defaultLocation    = "Location TBD"

	// TimeTBD is shown when an event has no parseable start time.
	TimeTBD = "Time TBD"

	defaultMaxOccurrencesPerEvent = 520

	isoDateLayout     = "2006-01-02"
	displayDateLayout = "January 2, 2006"
	displayTimeLayout = "3:04 PM"
)

var eventImages = map[string]string{
	"racing":   "/images/events/racing.jpg",
	"training": "/images/events/training.jpg",
	"social":   "/images/events/social.jpg",
	"cruising": "/images/events/cruising.jpg",
}

const defaultEventImage = "/images/events/default.jpg"

var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

var timeOfDayLayouts = []string{"15:04:05", "15:04"}

// Expander turns EventRecords into calendar Occurrences.
type Expander struct {
	// Location is the zone dates and times are displayed in. Nil means UTC.
	Location *time.Location

	// MaxOccurrencesPerEvent caps weekly expansion of a single record.
	// Zero means defaultMaxOccurrencesPerEvent.
	MaxOccurrencesPerEvent int

	logger *slog.Logger
}

// NewExpander creates an Expander displaying in loc.
func NewExpander(loc *time.Location, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{Location: loc, logger: logger}
}

// ExpandAll expands every record and concatenates the results in input order.
func (e *Expander) ExpandAll(records []EventRecord) []Occurrence {
	out := make([]Occurrence, 0, len(records))
	for _, rec := range records {
		out = append(out, e.Expand(rec)...)
	}
	return out
}

// Expand produces one occurrence per week from the start date through the
// end date inclusive. Records without an end date after the start date
// produce exactly one occurrence. Ranges longer than MaxOccurrencesPerEvent
// weeks (520 by default) are truncated at the cap with a warning, so the
// last occurrence may fall before the end date. Malformed fields degrade to defaults;
// Expand never fails and always returns at least one occurrence.
func (e *Expander) Expand(rec EventRecord) []Occurrence {
	loc := e.location()

	start, ok := parseDate(rec.StartDate, loc)
	if !ok {
		start = startOfDay(clock.Now().In(loc))
		if rec.StartDate != "" {
			e.log().Debug("unparseable start date, using today",
				"event_id", rec.ID, "start_date", rec.StartDate)
		}
	}

	base := baseOccurrence(rec, loc)

	// Ranges that end on or before the start collapse to a single occurrence.
	end, hasEnd := parseDate(rec.EndDate, loc)
	if !hasEnd || !end.After(start) {
		return []Occurrence{base.on(start)}
	}

	dates, truncated := e.weeklyDates(start, end)
	if truncated {
		e.log().Warn("weekly expansion truncated",
			"event_id", rec.ID, "cap", e.maxOccurrences(),
			"start_date", rec.StartDate, "end_date", rec.EndDate)
	}

	out := make([]Occurrence, 0, len(dates))
	for _, d := range dates {
		out = append(out, base.on(d))
	}
	return out
}

// weeklyDates steps from start to end inclusive in 7-day increments. The
// rule keeps wall-clock midnight across DST transitions.
func (e *Expander) weeklyDates(start, end time.Time) ([]time.Time, bool) {
	limit := e.maxOccurrences()
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    rrule.WEEKLY,
		Dtstart: start,
		Until:   end,
		Count:   limit + 1,
	})
	if err != nil {
		e.log().Warn("weekly rule rejected, using single occurrence", "error", err)
		return []time.Time{start}, false
	}

	dates := r.All()
	if len(dates) == 0 {
		return []time.Time{start}, false
	}
	if len(dates) > limit {
		return dates[:limit], true
	}
	return dates, false
}

func (e *Expander) location() *time.Location {
	if e == nil || e.Location == nil {
		return time.UTC
	}
	return e.Location
}

func (e *Expander) maxOccurrences() int {
	if e.MaxOccurrencesPerEvent <= 0 {
		return defaultMaxOccurrencesPerEvent
	}
	return e.MaxOccurrencesPerEvent
}

func (e *Expander) log() *slog.Logger {
	if e.logger == nil {
		return slog.Default()
	}
	return e.logger
}

// baseOccurrence fills every field that does not depend on the date.
func baseOccurrence(rec EventRecord, loc *time.Location) Occurrence {
	eventType := orDefault(rec.EventType, defaultEventType)
	return Occurrence{
		EventID:     rec.ID,
		Title:       orDefault(rec.Title, defaultTitle),
		Description: orDefault(rec.Description, defaultDescription),
		EventType:   eventType,
		Time:        formatStartTime(rec.StartTime, loc),
		Location:    orDefault(rec.Location, defaultLocation),
		Category:    capitalize(eventType),
		Image:       eventImage(eventType),
		HasResults:  rec.HasResults,
	}
}

func (o Occurrence) on(date time.Time) Occurrence {
	o.ID = o.EventID + "-" + date.Format(isoDateLayout)
	o.Date = date.Format(displayDateLayout)
	o.StartDate = date
	o.EndDate = date
	return o
}

// parseDate reads a calendar date, either date-only or a full timestamp, and
// returns midnight of that day in loc.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(isoDateLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return startOfDay(t.In(loc)), true
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return startOfDay(t), true
		}
	}
	return time.Time{}, false
}

// formatStartTime renders a start time as "6:30 PM", or TimeTBD.
func formatStartTime(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimeTBD
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Format(displayTimeLayout)
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.Format(displayTimeLayout)
		}
	}
	for _, layout := range timeOfDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(displayTimeLayout)
		}
	}
	return TimeTBD
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func eventImage(eventType string) string {
	if img, ok := eventImages[strings.ToLower(eventType)]; ok {
		return img
	}
	return defaultEventImage
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
