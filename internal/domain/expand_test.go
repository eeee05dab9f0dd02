package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wednesdayRacing() EventRecord {
	return EventRecord{
		ID:          testEventID,
		Title:       "Wednesday Racing",
		Description: "Evening club series",
		EventType:   "racing",
		StartDate:   "2024-04-03",
		EndDate:     "2024-04-17",
		StartTime:   "2024-04-03T18:30:00Z",
		Location:    "Clubhouse",
		HasResults:  true,
	}
}

func occurrenceDates(occ []Occurrence) []string {
	out := make([]string, 0, len(occ))
	for _, o := range occ {
		out = append(out, o.StartDate.Format(isoDateLayout))
	}
	return out
}

func TestExpand_WeeklySeries(t *testing.T) {
	e := NewExpander(time.UTC, nil)
	got := e.Expand(wednesdayRacing())

	require.Len(t, got, 3)
	assert.Equal(t, []string{"2024-04-03", "2024-04-10", "2024-04-17"}, occurrenceDates(got))

	want := Occurrence{
		ID:          "evt-123-2024-04-10",
		EventID:     testEventID,
		Title:       "Wednesday Racing",
		Description: "Evening club series",
		EventType:   "racing",
		Date:        "April 10, 2024",
		StartDate:   time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC),
		Time:        "6:30 PM",
		Location:    "Clubhouse",
		Category:    "Racing",
		Image:       "/images/events/racing.jpg",
		HasResults:  true,
	}
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Errorf("second occurrence mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand_RangeBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  []string
	}{
		{"end one day short of third week", "2024-04-03", "2024-04-16", []string{"2024-04-03", "2024-04-10"}},
		{"end within first week", "2024-04-03", "2024-04-05", []string{"2024-04-03"}},
		{"no end date", "2024-04-03", "", []string{"2024-04-03"}},
		{"end equals start", "2024-04-03", "2024-04-03", []string{"2024-04-03"}},
		{"end before start", "2024-04-03", "2024-03-01", []string{"2024-04-03"}},
		{"unparseable end", "2024-04-03", "soon", []string{"2024-04-03"}},
		{"timestamp dates", "2024-04-03T09:00:00Z", "2024-04-10T09:00:00Z", []string{"2024-04-03", "2024-04-10"}},
		{"crosses year end", "2024-12-25", "2025-01-08", []string{"2024-12-25", "2025-01-01", "2025-01-08"}},
	}

	e := NewExpander(time.UTC, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Expand(EventRecord{ID: "s", StartDate: tt.start, EndDate: tt.end})
			assert.Equal(t, tt.want, occurrenceDates(got))
		})
	}
}

func TestExpand_UniqueIDs(t *testing.T) {
	e := NewExpander(time.UTC, nil)
	got := e.Expand(EventRecord{ID: "series", StartDate: "2024-01-03", EndDate: "2024-12-25"})

	seen := make(map[string]bool, len(got))
	for _, o := range got {
		assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
		assert.Equal(t, "series", o.EventID)
		assert.Equal(t, o.StartDate, o.EndDate)
	}
	assert.Len(t, got, 52)
}

func TestExpand_KeepsWallClockAcrossDST(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	e := NewExpander(london, nil)
	got := e.Expand(EventRecord{ID: "dst", StartDate: "2024-03-20", EndDate: "2024-04-03"})

	require.Len(t, got, 3)
	for _, o := range got {
		assert.Equal(t, 0, o.StartDate.Hour())
		assert.Equal(t, time.Wednesday, o.StartDate.Weekday())
	}
	assert.Equal(t, []string{"2024-03-20", "2024-03-27", "2024-04-03"}, occurrenceDates(got))
}

func TestExpand_Cap(t *testing.T) {
	e := NewExpander(time.UTC, nil)
	e.MaxOccurrencesPerEvent = 3

	got := e.Expand(EventRecord{ID: "long", StartDate: "2024-01-03", EndDate: "2024-12-25"})
	assert.Equal(t, []string{"2024-01-03", "2024-01-10", "2024-01-17"}, occurrenceDates(got))
}

func TestExpand_Defaults(t *testing.T) {
	fixed := time.Date(2024, 5, 14, 16, 45, 0, 0, time.UTC)
	SetClock(clockwork.NewFakeClockAt(fixed))
	defer SetClock(nil)

	e := NewExpander(time.UTC, nil)
	got := e.Expand(EventRecord{ID: "bare"})

	require.Len(t, got, 1)
	o := got[0]
	assert.Equal(t, "Untitled Event", o.Title)
	assert.Equal(t, "No description available.", o.Description)
	assert.Equal(t, "general", o.EventType)
	assert.Equal(t, "General", o.Category)
	assert.Equal(t, "Location TBD", o.Location)
	assert.Equal(t, TimeTBD, o.Time)
	assert.Equal(t, "/images/events/default.jpg", o.Image)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), o.StartDate)
	assert.Equal(t, "bare-2024-05-14", o.ID)
	assert.Equal(t, "May 14, 2024", o.Date)
}

func TestExpand_UnparseableStartUsesToday(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)))
	defer SetClock(nil)

	e := NewExpander(time.UTC, nil)
	got := e.Expand(EventRecord{ID: "bad", StartDate: "next tuesday"})

	require.Len(t, got, 1)
	assert.Equal(t, "2024-07-01", got[0].StartDate.Format(isoDateLayout))
}

func TestExpandAll_PreservesOrder(t *testing.T) {
	e := NewExpander(time.UTC, nil)
	got := e.ExpandAll([]EventRecord{
		{ID: "b", StartDate: "2024-05-01"},
		wednesdayRacing(),
		{ID: "a", StartDate: "2024-01-01"},
	})

	ids := make([]string, 0, len(got))
	for _, o := range got {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{
		"b-2024-05-01",
		"evt-123-2024-04-03", "evt-123-2024-04-10", "evt-123-2024-04-17",
		"a-2024-01-01",
	}, ids)
}

func TestFormatStartTime(t *testing.T) {
	belfast, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input string
		loc   *time.Location
		want  string
	}{
		{"RFC3339 UTC", "2024-04-03T18:30:00Z", time.UTC, "6:30 PM"},
		{"RFC3339 shown in summer time", "2024-04-03T18:30:00Z", belfast, "7:30 PM"},
		{"local datetime", "2024-04-03T10:05:00", time.UTC, "10:05 AM"},
		{"time of day", "14:00", time.UTC, "2:00 PM"},
		{"time of day with seconds", "09:15:00", time.UTC, "9:15 AM"},
		{"midnight", "00:00", time.UTC, "12:00 AM"},
		{"empty", "", time.UTC, TimeTBD},
		{"garbage", "evening", time.UTC, TimeTBD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatStartTime(tt.input, tt.loc))
		})
	}
}

func TestEventImage(t *testing.T) {
	tests := []struct {
		eventType string
		want      string
	}{
		{"racing", "/images/events/racing.jpg"},
		{"Training", "/images/events/training.jpg"},
		{"social", "/images/events/social.jpg"},
		{"cruising", "/images/events/cruising.jpg"},
		{"agm", "/images/events/default.jpg"},
		{"", "/images/events/default.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, eventImage(tt.eventType))
		})
	}
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Racing", capitalize("racing"))
	assert.Equal(t, "ÉvÉnement", capitalize("évÉnement"))
	assert.Equal(t, "", capitalize(""))
}
