// Package ics renders calendar occurrences as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

// DefaultEventDuration is used for occurrences with a start time, since
// event records carry no end time.
const DefaultEventDuration = 2 * time.Hour

const occurrenceTimeLayout = "3:04 PM"

// Feed describes the calendar being published.
type Feed struct {
	Name      string
	ProductID string
	UIDDomain string
	// EventURL, when set, is formatted with the source event ID to link
	// each entry back to its detail page.
	EventURL string
	Location *time.Location
}

// Encode writes occurrences as a VCALENDAR. Occurrences with a display time
// become timed events lasting DefaultEventDuration; "Time TBD" occurrences
// become all-day events.
func (f Feed) Encode(w io.Writer, occurrences []domain.Occurrence, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(f.ProductID)
	if f.Name != "" {
		cal.SetXWRCalName(f.Name)
	}

	loc := f.Location
	if loc == nil {
		loc = time.UTC
	}

	for _, occ := range occurrences {
		ev := cal.AddEvent(f.uid(occ))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(occ.Title)
		ev.SetDescription(occ.Description)
		ev.SetLocation(occ.Location)
		if occ.Category != "" {
			ev.AddProperty(ical.ComponentPropertyCategories, occ.Category)
		}
		if f.EventURL != "" && occ.EventID != "" {
			ev.SetURL(fmt.Sprintf(f.EventURL, occ.EventID))
		}

		if start, ok := startTime(occ, loc); ok {
			ev.SetStartAt(start)
			ev.SetEndAt(start.Add(DefaultEventDuration))
			continue
		}
		day := time.Date(occ.StartDate.Year(), occ.StartDate.Month(), occ.StartDate.Day(), 0, 0, 0, 0, time.UTC)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write ics feed: %w", err)
	}
	return nil
}

func (f Feed) uid(occ domain.Occurrence) string {
	domainPart := f.UIDDomain
	if domainPart == "" {
		domainPart = "localhost"
	}
	return occ.ID + "@" + domainPart
}

// startTime combines the occurrence date with its display time in loc.
func startTime(occ domain.Occurrence, loc *time.Location) (time.Time, bool) {
	if occ.Time == "" || strings.EqualFold(occ.Time, domain.TimeTBD) {
		return time.Time{}, false
	}
	tod, err := time.Parse(occurrenceTimeLayout, occ.Time)
	if err != nil {
		return time.Time{}, false
	}
	d := occ.StartDate.In(loc)
	return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, loc), true
}
