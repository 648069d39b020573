// Command normalize turns a USGS GeoJSON summary feed into the normalized
// record fixture used by the store and HTTP test suites. It runs the real
// domain normalizer so the fixture matches what the service holds.
//
// Usage:
//
//	go run ./cmd/normalize \
//	  -in internal/domain/testdata/significant_month.geojson \
//	  -out data/mock/significant_month_records.json
//
// Without -in the feed is fetched live for -period and -severity.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "path to a saved GeoJSON feed (fetches live when empty)")
	out := flag.String("out", "", "output path for the normalized records fixture")
	period := flag.String("period", string(domain.PeriodMonth), "feed period for live fetches")
	severity := flag.String("severity", string(domain.SeveritySignificant), "feed severity for live fetches")
	baseURL := flag.String("base-url", usgs.DefaultBaseURL, "feed base URL for live fetches")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	var (
		doc domain.FeedDocument
		err error
	)
	if *in != "" {
		doc, err = readFeed(*in)
	} else {
		doc, err = fetchFeed(*baseURL, *period, *severity)
	}
	if err != nil {
		return err
	}

	records, err := domain.Normalize(doc)
	if err != nil {
		return fmt.Errorf("normalizing feed: %w", err)
	}
	log.Printf("normalized %d of %d features", len(records), len(doc.Features))

	if err := writeJSON(*out, records); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(records)
	return nil
}

func readFeed(path string) (domain.FeedDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.FeedDocument{}, fmt.Errorf("open feed: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.FeedDocument{}, fmt.Errorf("read feed: %w", err)
	}
	var doc domain.FeedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.FeedDocument{}, fmt.Errorf("decode feed: %w", err)
	}
	return doc, nil
}

func fetchFeed(baseURL, period, severity string) (domain.FeedDocument, error) {
	p, err := domain.ParsePeriod(period)
	if err != nil {
		return domain.FeedDocument{}, err
	}
	s, err := domain.ParseSeverity(severity)
	if err != nil {
		return domain.FeedDocument{}, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	client := usgs.NewClient(baseURL, 30*time.Second, observability.NewMetricsForTesting(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return client.FetchFeed(ctx, p, s)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated counts for printStats reporting.
type statsResult struct {
	magBuckets map[int]int
	tsunami    int
	noDetail   int
	minDepth   float64
	maxDepth   float64
}

func collectStats(records []domain.SeismicRecord) statsResult {
	s := statsResult{magBuckets: map[int]int{}}
	for i := range records {
		r := &records[i]
		s.magBuckets[int(r.Magnitude)]++
		if r.TsunamiFlag != 0 {
			s.tsunami++
		}
		if r.DetailURL == nil {
			s.noDetail++
		}
		if i == 0 || r.Depth < s.minDepth {
			s.minDepth = r.Depth
		}
		if i == 0 || r.Depth > s.maxDepth {
			s.maxDepth = r.Depth
		}
	}
	return s
}

func printStats(records []domain.SeismicRecord) {
	stats := collectStats(records)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(records))
	fmt.Printf("Tsunami flagged: %d\n", stats.tsunami)
	fmt.Printf("Without detail URL: %d\n", stats.noDetail)
	fmt.Printf("Depth range: %.2f .. %.2f km\n", stats.minDepth, stats.maxDepth)

	buckets := make([]int, 0, len(stats.magBuckets))
	for b := range stats.magBuckets {
		buckets = append(buckets, b)
	}
	sort.Ints(buckets)
	fmt.Print("By magnitude: ")
	for _, b := range buckets {
		fmt.Printf("M%d=%d ", b, stats.magBuckets[b])
	}
	fmt.Println()

	if len(records) > 0 {
		first := records[0]
		fmt.Printf("First: %s %s at %s\n", first.ID,
			domain.FormatCoordinates(first.Coordinates), domain.FormatOccurredAt(first.OccurredAt))
	}
}
