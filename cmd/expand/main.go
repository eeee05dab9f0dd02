// Command expand reads a backend event listing and writes the occurrences the
// site would show, as JSON and optionally as an iCalendar feed. It uses the
// same domain package as the server so fixtures match real behavior.
//
// Usage:
//
//	go run ./cmd/expand \
//	  -in testdata/events.json \
//	  -out testdata/occurrences.json \
//	  -ics testdata/calendar.ics \
//	  -tz Europe/London -today 2024-04-10
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Niall1001/EastDownYachtClub-sub000/internal/adapter/ics"
	"github.com/Niall1001/EastDownYachtClub-sub000/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "event listing JSON (bare array or events/data envelope)")
	out := flag.String("out", "", "output path for occurrences JSON")
	icsOut := flag.String("ics", "", "optional output path for the iCalendar feed")
	tz := flag.String("tz", "UTC", "display timezone")
	today := flag.String("today", "", "fixed YYYY-MM-DD for undated records (default: real date)")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -in, -out")
	}

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		return fmt.Errorf("timezone %q: %w", *tz, err)
	}

	stamp := time.Now()
	if *today != "" {
		day, err := time.ParseInLocation(time.DateOnly, *today, loc)
		if err != nil {
			return fmt.Errorf("-today must be YYYY-MM-DD: %w", err)
		}
		// Fixed clock for reproducible fallback dates and DTSTAMPs.
		domain.SetClock(clockwork.NewFakeClockAt(day))
		defer domain.SetClock(nil)
		stamp = day
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		return fmt.Errorf("read %s: %w", *in, err)
	}
	records, skipped, err := domain.DecodeEventRecords(data)
	if err != nil {
		return fmt.Errorf("decode %s: %w", *in, err)
	}
	log.Printf("%d records (%d skipped)", len(records), skipped)

	occurrences := domain.NewExpander(loc, nil).ExpandAll(records)

	if err := writeJSON(*out, occurrences); err != nil {
		return fmt.Errorf("writing occurrences: %w", err)
	}
	log.Printf("wrote %d occurrences: %s", len(occurrences), *out)

	if *icsOut != "" {
		var buf bytes.Buffer
		feed := ics.Feed{Name: "Club Calendar", ProductID: "-//clubsite//expand//EN", UIDDomain: "clubsite.local", Location: loc}
		if err := feed.Encode(&buf, occurrences, stamp); err != nil {
			return fmt.Errorf("encode feed: %w", err)
		}
		if err := writeFile(*icsOut, buf.Bytes()); err != nil {
			return fmt.Errorf("writing feed: %w", err)
		}
		log.Printf("wrote feed: %s", *icsOut)
	}

	printStats(occurrences)
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, append(data, '\n'))
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

type count struct {
	key string
	n   int
}

func sortedCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, n := range m {
		out = append(out, count{k, n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].n != out[j].n {
			return out[i].n > out[j].n
		}
		return out[i].key < out[j].key
	})
	return out
}

func printStats(occurrences []domain.Occurrence) {
	byCategory := map[string]int{}
	byMonth := map[string]int{}
	tbd := 0
	for i := range occurrences {
		o := &occurrences[i]
		byCategory[o.Category]++
		byMonth[o.StartDate.Format("2006-01")]++
		if o.Time == domain.TimeTBD {
			tbd++
		}
	}

	fmt.Println("\n=== Occurrence stats ===")
	fmt.Printf("Total: %d (time TBD: %d)\n", len(occurrences), tbd)
	fmt.Print("By category:")
	for _, c := range sortedCounts(byCategory) {
		fmt.Printf(" %s=%d", c.key, c.n)
	}
	fmt.Println()

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	fmt.Print("By month:")
	for _, m := range months {
		fmt.Printf(" %s=%d", m, byMonth[m])
	}
	fmt.Println()
}
