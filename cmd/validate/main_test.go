package main

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

func expandRacing(t *testing.T, loc *time.Location) []domain.Occurrence {
	t.Helper()
	occ := domain.NewExpander(loc, nil).Expand(domain.EventRecord{
		ID: "5", Title: "Wednesday Racing", EventType: "racing",
		StartDate: "2024-03-20", EndDate: "2024-04-10",
	})
	require.Len(t, occ, 4)
	return occ
}

// roundTrip mimics reading a fixture from disk.
func roundTrip(t *testing.T, occ []domain.Occurrence) []domain.Occurrence {
	t.Helper()
	data, err := json.Marshal(occ)
	require.NoError(t, err)
	var out []domain.Occurrence
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPhases_PassAcrossDST(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	want := expandRacing(t, london)
	got := roundTrip(t, want)

	for _, p := range []*phase{
		validateParity(got, want),
		validateIntegrity(got, london),
		validateCadence(got, london),
	} {
		assert.True(t, p.passed(), "%s: %v", p.name, p.errors)
	}
}

func TestValidateParity_Differences(t *testing.T) {
	want := expandRacing(t, time.UTC)
	got := roundTrip(t, want)
	got[1].Title = "Thursday Racing"
	got = got[:3]
	got = append(got, domain.Occurrence{ID: "6-2024-04-10", EventID: "6"})

	p := validateParity(got, want)
	require.Len(t, p.errors, 3)
	assert.Contains(t, p.errors[0], "5-2024-03-27 differs")
	assert.Contains(t, p.errors[1], "missing occurrence 5-2024-04-10")
	assert.Contains(t, p.errors[2], "unexpected occurrence 6-2024-04-10")
}

func TestValidateIntegrity_Errors(t *testing.T) {
	occ := expandRacing(t, time.UTC)
	occ[1].ID = occ[0].ID
	occ[2].Date = "3 April 2024"
	occ[3].Time = "evening"

	p := validateIntegrity(occ, time.UTC)
	assert.Len(t, p.errors, 4, "%v", p.errors) // duplicate, mismatched id, date, time
}

func TestValidateCadence_Gap(t *testing.T) {
	occ := expandRacing(t, time.UTC)
	occ = append(occ[:1], occ[2:]...)

	p := validateCadence(occ, time.UTC)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "2024-04-03 follows 2024-03-20")
}
