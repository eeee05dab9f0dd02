package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth(t *testing.T) {
	tests := []struct {
		name      string
		month     Month
		days      int
		weekday   time.Weekday
		next      Month
		prev      Month
		formatted string
	}{
		{"April 2024", Month{2024, time.April}, 30, time.Monday, Month{2024, time.May}, Month{2024, time.March}, "2024-04"},
		{"leap February", Month{2024, time.February}, 29, time.Thursday, Month{2024, time.March}, Month{2024, time.January}, "2024-02"},
		{"plain February", Month{2023, time.February}, 28, time.Wednesday, Month{2023, time.March}, Month{2023, time.January}, "2023-02"},
		{"December rolls over", Month{2024, time.December}, 31, time.Sunday, Month{2025, time.January}, Month{2024, time.November}, "2024-12"},
		{"January rolls back", Month{2025, time.January}, 31, time.Wednesday, Month{2025, time.February}, Month{2024, time.December}, "2025-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.days, tt.month.DaysIn())
			assert.Equal(t, tt.weekday, tt.month.FirstWeekday())
			assert.Equal(t, tt.next, tt.month.Next())
			assert.Equal(t, tt.prev, tt.month.Prev())
			assert.Equal(t, tt.formatted, tt.month.String())
		})
	}
}

func TestRenderMonth(t *testing.T) {
	e := NewExpander(time.UTC, nil)
	occ := e.Expand(wednesdayRacing())
	today := time.Date(2024, 4, 10, 15, 0, 0, 0, time.UTC)

	grid := RenderMonth(Month{2024, time.April}, occ, today)

	assert.Equal(t, 1, grid.LeadingBlanks)
	assert.Equal(t, 30, grid.DaysInMonth)
	require.Len(t, grid.Cells, 31)
	assert.True(t, grid.Cells[0].Blank())

	var marked []int
	var todays []int
	for _, c := range grid.Cells[1:] {
		if c.HasEvent {
			marked = append(marked, c.Day)
		}
		if c.IsToday {
			todays = append(todays, c.Day)
		}
	}
	assert.Equal(t, []int{3, 10, 17}, marked)
	assert.Equal(t, []int{10}, todays)
}

func TestRenderMonth_OtherMonthsUnmarked(t *testing.T) {
	e := NewExpander(time.UTC, nil)
	occ := e.Expand(wednesdayRacing())

	grid := RenderMonth(Month{2024, time.May}, occ, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 3, grid.LeadingBlanks)
	for _, c := range grid.Cells {
		assert.False(t, c.HasEvent)
		assert.False(t, c.IsToday)
	}
}

func TestRenderMonth_IgnoresTimeOfDay(t *testing.T) {
	occ := []Occurrence{{StartDate: time.Date(2024, 4, 5, 23, 59, 0, 0, time.UTC)}}

	grid := RenderMonth(Month{2024, time.April}, occ, time.Time{})

	assert.True(t, grid.Cells[grid.LeadingBlanks+4].HasEvent)
}

func TestSelectDay(t *testing.T) {
	occ := []Occurrence{
		{ID: "a", StartDate: time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC)},
		{ID: "b", StartDate: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "c", StartDate: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)},
	}

	t.Run("first match wins", func(t *testing.T) {
		got, ok := SelectDay(occ, time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC))
		require.True(t, ok)
		assert.Equal(t, "b", got.ID)
	})

	t.Run("no match", func(t *testing.T) {
		_, ok := SelectDay(occ, time.Date(2024, 4, 11, 0, 0, 0, 0, time.UTC))
		assert.False(t, ok)
	})

	t.Run("all on day", func(t *testing.T) {
		got := OccurrencesOn(occ, time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC))
		require.Len(t, got, 2)
		assert.Equal(t, "c", got[1].ID)
	})
}
