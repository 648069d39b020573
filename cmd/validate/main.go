// Command validate performs data integrity checks between a raw USGS GeoJSON
// feed and the normalized record fixture produced by cmd/normalize. It
// verifies counts, ordering, field mapping, and record invariants.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -feed internal/domain/testdata/significant_month.geojson \
//	  -records data/mock/significant_month_records.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
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
	feedPath := flag.String("feed", "", "path to a raw GeoJSON feed")
	recordsPath := flag.String("records", "", "path to the normalized records fixture")
	flag.Parse()

	if *feedPath == "" || *recordsPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*feedPath, *recordsPath))
}

func run(feedPath, recordsPath string) int {
	fmt.Println("=== Seismic Feed Integrity Validation ===")
	fmt.Println()

	var doc domain.FeedDocument
	if err := loadJSON(feedPath, &doc); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load feed: %v\n", err)
		return 1
	}

	var records []domain.SeismicRecord
	if err := loadJSON(recordsPath, &records); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load records: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCounts(doc, records),
		validateMapping(doc, records),
		validateInvariants(records),
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
	fmt.Printf("Records: %d feed features, %d normalized\n", len(doc.Features), len(records))

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

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ── Phase 1: counts ──

func validateCounts(doc domain.FeedDocument, records []domain.SeismicRecord) *phase {
	p := &phase{name: "Phase 1: Feed/Fixture Count Parity"}
	if len(doc.Features) != len(records) {
		p.errorf("feature count %d != record count %d", len(doc.Features), len(records))
	}
	if n := doc.Metadata.Count; n != 0 && n != len(doc.Features) {
		p.errorf("metadata.count %d != feature count %d", n, len(doc.Features))
	}
	return p
}

// ── Phase 2: field mapping ──

// validateMapping re-normalizes the feed and compares it field by field
// against the fixture, in feed order.
func validateMapping(doc domain.FeedDocument, records []domain.SeismicRecord) *phase {
	p := &phase{name: "Phase 2: Normalizer Field Mapping"}

	want, err := domain.Normalize(doc)
	if err != nil {
		p.errorf("normalize feed: %v", err)
		return p
	}

	n := min(len(want), len(records))
	for i := 0; i < n; i++ {
		compareRecords(p, i, &want[i], &records[i])
	}
	return p
}

func compareRecords(p *phase, i int, want, got *domain.SeismicRecord) {
	pf := func(format string, args ...any) {
		p.errorf("[%d] %s: "+format, append([]any{i, want.ID}, args...)...)
	}
	if want.ID != got.ID {
		pf("id order mismatch, fixture has %q", got.ID)
		return
	}
	if want.Place != got.Place {
		pf("place %q != %q", got.Place, want.Place)
	}
	if want.OccurredAt != got.OccurredAt {
		pf("occurredAt %d != %d", got.OccurredAt, want.OccurredAt)
	}
	if !floatEq(want.Magnitude, got.Magnitude) {
		pf("magnitude %v != %v", got.Magnitude, want.Magnitude)
	}
	if !floatEq(want.Coordinates[0], got.Coordinates[0]) || !floatEq(want.Coordinates[1], got.Coordinates[1]) {
		pf("coordinates %v != %v", got.Coordinates, want.Coordinates)
	}
	if !floatEq(want.Depth, got.Depth) {
		pf("depth %v != %v", got.Depth, want.Depth)
	}
	if want.TsunamiFlag != got.TsunamiFlag {
		pf("tsunamiFlag %d != %d", got.TsunamiFlag, want.TsunamiFlag)
	}
	if !ptrStrEq(want.DetailURL, got.DetailURL) {
		pf("detailUrl %s != %s", ptrStr(got.DetailURL), ptrStr(want.DetailURL))
	}
}

// ── Phase 3: record invariants ──

func validateInvariants(records []domain.SeismicRecord) *phase {
	p := &phase{name: "Phase 3: Record Invariants"}
	seen := make(map[string]int, len(records))
	for i := range records {
		r := &records[i]
		if r.ID == "" {
			p.errorf("[%d] empty id", i)
			continue
		}
		if prev, ok := seen[r.ID]; ok {
			p.errorf("[%d] duplicate id %q (first at %d)", i, r.ID, prev)
		}
		seen[r.ID] = i

		if lat := r.Latitude(); lat < -90 || lat > 90 {
			p.errorf("[%d] %s: latitude %v out of range", i, r.ID, lat)
		}
		if lon := r.Longitude(); lon < -180 || lon > 180 {
			p.errorf("[%d] %s: longitude %v out of range", i, r.ID, lon)
		}
		if r.TsunamiFlag != 0 && r.TsunamiFlag != 1 {
			p.errorf("[%d] %s: tsunamiFlag %d not 0 or 1", i, r.ID, r.TsunamiFlag)
		}
		if r.OccurredAt <= 0 {
			p.errorf("[%d] %s: occurredAt %d not positive", i, r.ID, r.OccurredAt)
		}
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ptrStrEq(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func ptrStr(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
