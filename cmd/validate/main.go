// Command validate checks an occurrences JSON fixture (from cmd/expand or the
// /api/events/occurrences endpoint) against the event listing it came from.
// It re-expands the listing, then verifies IDs, display fields and weekly
// cadence.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -events testdata/events.json \
//	  -occurrences testdata/occurrences.json \
//	  -tz Europe/London -today 2024-04-10
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	eventsPath := flag.String("events", "", "event listing JSON")
	occPath := flag.String("occurrences", "", "occurrences JSON to validate")
	tz := flag.String("tz", "UTC", "display timezone the occurrences were produced in")
	today := flag.String("today", "", "YYYY-MM-DD the occurrences were produced on")
	flag.Parse()

	if *eventsPath == "" || *occPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*eventsPath, *occPath, *tz, *today); code != 0 {
		os.Exit(code)
	}
}

func run(eventsPath, occPath, tz, today string) int {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: timezone %q: %v\n", tz, err)
		return 1
	}
	if today != "" {
		day, err := time.ParseInLocation(time.DateOnly, today, loc)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: -today: %v\n", err)
			return 1
		}
		domain.SetClock(clockwork.NewFakeClockAt(day))
		defer domain.SetClock(nil)
	}

	fmt.Println("=== Occurrence Validation ===")
	fmt.Println()

	data, err := os.ReadFile(eventsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load events: %v\n", err)
		return 1
	}
	records, _, err := domain.DecodeEventRecords(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: decode events: %v\n", err)
		return 1
	}

	occurrences, err := loadJSON[domain.Occurrence](occPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load occurrences: %v\n", err)
		return 1
	}

	expected := domain.NewExpander(loc, nil).ExpandAll(records)

	phases := []*phase{
		validateParity(occurrences, expected),
		validateIntegrity(occurrences, loc),
		validateCadence(occurrences, loc),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d events, %d occurrences (expected %d)\n",
		len(records), len(occurrences), len(expected))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ── Phase 1: Parity ──
// The fixture must match a fresh expansion of the listing.

func validateParity(got, want []domain.Occurrence) *phase {
	p := &phase{name: "Phase 1: Expansion Parity"}

	byID := make(map[string]domain.Occurrence, len(got))
	for _, o := range got {
		byID[o.ID] = o
	}
	// Instants lose their zone name through JSON; compare them with Equal.
	opt := cmpopts.EquateApproxTime(0)
	for _, w := range want {
		g, ok := byID[w.ID]
		if !ok {
			p.errorf("missing occurrence %s", w.ID)
			continue
		}
		if diff := cmp.Diff(w, g, opt); diff != "" {
			p.errorf("%s differs (-want +got):\n%s", w.ID, diff)
		}
		delete(byID, w.ID)
	}
	extra := make([]string, 0, len(byID))
	for id := range byID {
		extra = append(extra, id)
	}
	sort.Strings(extra)
	for _, id := range extra {
		p.errorf("unexpected occurrence %s", id)
	}
	return p
}

// ── Phase 2: Integrity ──
// IDs are unique and derived from the event ID and date; display fields
// agree with StartDate.

func validateIntegrity(occurrences []domain.Occurrence, loc *time.Location) *phase {
	p := &phase{name: "Phase 2: Occurrence Integrity"}

	seen := make(map[string]bool, len(occurrences))
	for i := range occurrences {
		o := &occurrences[i]
		if seen[o.ID] {
			p.errorf("duplicate id %s", o.ID)
		}
		seen[o.ID] = true

		day := o.StartDate.In(loc)
		if want := o.EventID + "-" + day.Format(time.DateOnly); o.ID != want {
			p.errorf("%s: id should be %s", o.ID, want)
		}
		if want := day.Format("January 2, 2006"); o.Date != want {
			p.errorf("%s: date %q, want %q", o.ID, o.Date, want)
		}
		if o.Time != domain.TimeTBD {
			if _, err := time.Parse("3:04 PM", o.Time); err != nil {
				p.errorf("%s: time %q is neither a clock time nor %q", o.ID, o.Time, domain.TimeTBD)
			}
		}
		if strings.TrimSpace(o.Title) == "" {
			p.errorf("%s: empty title", o.ID)
		}
	}
	return p
}

// ── Phase 3: Cadence ──
// Occurrences of one event fall on consecutive weeks.

func validateCadence(occurrences []domain.Occurrence, loc *time.Location) *phase {
	p := &phase{name: "Phase 3: Weekly Cadence"}

	byEvent := map[string][]time.Time{}
	for _, o := range occurrences {
		byEvent[o.EventID] = append(byEvent[o.EventID], o.StartDate.In(loc))
	}

	ids := make([]string, 0, len(byEvent))
	for id := range byEvent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		dates := byEvent[id]
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		for i := 1; i < len(dates); i++ {
			prev := dates[i-1]
			if next := prev.AddDate(0, 0, 7); !next.Equal(dates[i]) {
				p.errorf("event %s: %s follows %s, want %s", id,
					dates[i].Format(time.DateOnly), prev.Format(time.DateOnly), next.Format(time.DateOnly))
			}
		}
	}
	return p
}
