package domain

import (
	"fmt"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following month, rolling over the year after December.
func (m Month) Next() Month {
	return MonthOf(m.first(time.UTC).AddDate(0, 1, 0))
}

// Prev returns the preceding month, rolling back the year before January.
func (m Month) Prev() Month {
	return MonthOf(m.first(time.UTC).AddDate(0, -1, 0))
}

// DaysIn returns the number of days in the month.
func (m Month) DaysIn() int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(m.Year, m.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday of day 1 (Sunday = 0).
func (m Month) FirstWeekday() time.Weekday {
	return m.first(time.UTC).Weekday()
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) first(loc *time.Location) time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
}

// Cell is one square of a month grid. Leading blanks have Day == 0.
type Cell struct {
	Day      int  `json:"day"`
	HasEvent bool `json:"hasEvent"`
	IsToday  bool `json:"isToday"`
}

// Blank reports whether the cell is a leading placeholder.
func (c Cell) Blank() bool {
	return c.Day == 0
}

// Grid is a rendered month: LeadingBlanks placeholder cells followed by one
// cell per day of the month.
type Grid struct {
	Month         Month  `json:"month"`
	LeadingBlanks int    `json:"leadingBlanks"`
	DaysInMonth   int    `json:"daysInMonth"`
	Cells         []Cell `json:"cells"`
}

// RenderMonth builds the grid for m, marking days that have at least one
// occurrence and the day matching today. Times of day are ignored.
func RenderMonth(m Month, occurrences []Occurrence, today time.Time) Grid {
	blanks := int(m.FirstWeekday())
	days := m.DaysIn()

	eventDays := make(map[string]struct{}, len(occurrences))
	for _, occ := range occurrences {
		eventDays[dayKey(occ.StartDate)] = struct{}{}
	}

	todayKey := dayKey(today)

	cells := make([]Cell, 0, blanks+days)
	for i := 0; i < blanks; i++ {
		cells = append(cells, Cell{})
	}
	for d := 1; d <= days; d++ {
		key := fmt.Sprintf("%d-%d-%d", m.Year, int(m.Month), d)
		_, has := eventDays[key]
		cells = append(cells, Cell{
			Day:      d,
			HasEvent: has,
			IsToday:  key == todayKey,
		})
	}

	return Grid{
		Month:         m,
		LeadingBlanks: blanks,
		DaysInMonth:   days,
		Cells:         cells,
	}
}

// OccurrencesOn returns the occurrences whose start date falls on the same
// calendar day as date, in input order.
func OccurrencesOn(occurrences []Occurrence, date time.Time) []Occurrence {
	key := dayKey(date)
	var out []Occurrence
	for _, occ := range occurrences {
		if dayKey(occ.StartDate) == key {
			out = append(out, occ)
		}
	}
	return out
}

// SelectDay returns the first occurrence on date. The boolean is false when
// nothing falls on that day, which callers treat as a no-op.
func SelectDay(occurrences []Occurrence, date time.Time) (Occurrence, bool) {
	key := dayKey(date)
	for _, occ := range occurrences {
		if dayKey(occ.StartDate) == key {
			return occ, true
		}
	}
	return Occurrence{}, false
}

func dayKey(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}
