package store_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-feed-service/internal/adapter/session"
	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/store"
)

const testTTL = 5 * time.Minute

var testNow = time.Date(2024, time.April, 26, 15, 0, 0, 0, time.UTC)

// --- mocks ---

type mockFeed struct {
	calls atomic.Int64
	doc   domain.FeedDocument
	err   error
	gate  chan struct{} // when non-nil, FetchFeed blocks until closed
}

func (m *mockFeed) FetchFeed(_ context.Context, _ domain.Period, _ domain.Severity) (domain.FeedDocument, error) {
	m.calls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return domain.FeedDocument{}, m.err
	}
	return m.doc, nil
}

type mockCache struct {
	mu     sync.Mutex
	entry  *domain.CacheEntry
	writes int
}

func (m *mockCache) Read() (domain.CacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entry == nil {
		return domain.CacheEntry{}, false
	}
	return *m.entry, true
}

func (m *mockCache) Write(entry domain.CacheEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entry = &entry
	m.writes++
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func feature(id string, ts int64, coords ...float64) domain.Feature {
	return domain.Feature{
		ID:         id,
		Properties: domain.FeatureProperties{Time: &ts},
		Geometry:   &domain.Geometry{Coordinates: coords},
	}
}

func validDoc() domain.FeedDocument {
	return domain.FeedDocument{Features: []domain.Feature{
		feature("us1", 1000, -120.5, 35.2, 10),
		feature("us2", 2000, 140.1, 38.3, 35),
	}}
}

func newStore(feed store.FeedClient, cache store.Cache) (*store.Store, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	clock := clockwork.NewFakeClockAt(testNow)
	return store.New(feed, cache, clock, testTTL, discardLogger(), metrics), metrics
}

func ids(records []domain.SeismicRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

// --- tests ---

func TestStore_InitialState(t *testing.T) {
	s, _ := newStore(&mockFeed{}, &mockCache{})

	assert.Equal(t, domain.StateIdle, s.State())
	assert.True(t, s.NeedsInitialLoad())
	assert.Empty(t, s.Records())
	assert.Error(t, s.CheckReadiness(context.Background()))
}

func TestStore_RequestLoad_NetworkPath(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	cache := &mockCache{}
	s, metrics := newStore(feed, cache)

	ran := s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	require.True(t, ran)

	assert.Equal(t, domain.StateLoaded, s.State())
	assert.False(t, s.NeedsInitialLoad())
	assert.Equal(t, []string{"us1", "us2"}, ids(s.Records()))
	assert.Equal(t, int64(1), feed.calls.Load())
	assert.NoError(t, s.CheckReadiness(context.Background()))

	require.NotNil(t, cache.entry)
	assert.Equal(t, testNow.UnixMilli(), cache.entry.FetchedAt)
	assert.Equal(t, domain.PeriodMonth, cache.entry.Period)
	assert.Equal(t, domain.SeveritySignificant, cache.entry.Severity)
	assert.Len(t, cache.entry.Records, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoadCycles.WithLabelValues("loaded", "network")))
	assert.Equal(t, float64(domain.StateLoaded), testutil.ToFloat64(metrics.LoadState))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RecordsHeld))
}

func TestStore_RequestLoad_FreshCacheSkipsNetwork(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	cache := &mockCache{entry: &domain.CacheEntry{
		Records:   []domain.SeismicRecord{{ID: "cached"}},
		FetchedAt: testNow.UnixMilli(),
		Period:    domain.PeriodDay,
		Severity:  domain.SeverityAll,
	}}
	s, metrics := newStore(feed, cache)

	s.RequestLoad(context.Background(), domain.PeriodDay, domain.SeverityAll)

	assert.Equal(t, domain.StateLoaded, s.State())
	assert.Equal(t, []string{"cached"}, ids(s.Records()))
	assert.Zero(t, feed.calls.Load(), "fresh entry must not hit the network")
	assert.Zero(t, cache.writes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("hit")))
}

func TestStore_RequestLoad_StaleCacheFetches(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	cache := &mockCache{entry: &domain.CacheEntry{
		Records:   []domain.SeismicRecord{{ID: "cached"}},
		FetchedAt: testNow.UnixMilli() - testTTL.Milliseconds() - 1,
		Period:    domain.PeriodDay,
		Severity:  domain.SeverityAll,
	}}
	s, metrics := newStore(feed, cache)

	s.RequestLoad(context.Background(), domain.PeriodDay, domain.SeverityAll)

	assert.Equal(t, int64(1), feed.calls.Load())
	assert.Equal(t, []string{"us1", "us2"}, ids(s.Records()))
	assert.Equal(t, 1, cache.writes)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("stale")))
}

func TestStore_RequestLoad_OtherSelectorIsMiss(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	cache := &mockCache{entry: &domain.CacheEntry{
		Records:   []domain.SeismicRecord{{ID: "cached"}},
		FetchedAt: testNow.UnixMilli(),
		Period:    domain.PeriodDay,
		Severity:  domain.SeverityAll,
	}}
	s, _ := newStore(feed, cache)

	s.RequestLoad(context.Background(), domain.PeriodWeek, domain.SeverityAll)

	assert.Equal(t, int64(1), feed.calls.Load())
	assert.Equal(t, domain.PeriodWeek, cache.entry.Period)
}

func TestStore_RequestLoad_SingleFlight(t *testing.T) {
	feed := &mockFeed{doc: validDoc(), gate: make(chan struct{})}
	s, _ := newStore(feed, &mockCache{})

	done := make(chan bool)
	go func() {
		done <- s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	}()

	require.Eventually(t, func() bool { return feed.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, domain.StateLoading, s.State())
	assert.False(t, s.NeedsInitialLoad())

	ran := s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	assert.False(t, ran, "second request while loading is a no-op")

	close(feed.gate)
	assert.True(t, <-done)
	assert.Equal(t, int64(1), feed.calls.Load())
	assert.Equal(t, domain.StateLoaded, s.State())
}

func TestStore_RequestLoad_IgnoresCallerCancellation(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	s, _ := newStore(feed, &mockCache{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.RequestLoad(ctx, domain.PeriodMonth, domain.SeveritySignificant)
	assert.Equal(t, domain.StateLoaded, s.State())
}

func TestStore_RequestLoad_NetworkFailureKeepsRecords(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	s, metrics := newStore(feed, &mockCache{})

	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	require.Equal(t, domain.StateLoaded, s.State())

	feed.err = &domain.NetworkError{URL: "http://feed", StatusCode: 500, Err: errors.New("boom")}
	// Second load on another selector so the cache cannot serve it.
	s.RequestLoad(context.Background(), domain.PeriodDay, domain.SeverityAll)

	assert.Equal(t, domain.StateFailed, s.State())
	assert.Equal(t, []string{"us1", "us2"}, ids(s.Records()), "previous records stay visible")
	assert.NoError(t, s.CheckReadiness(context.Background()), "still ready with stale data")

	snap := s.Snapshot()
	assert.Contains(t, snap.LastError, "status 500")
	assert.Equal(t, domain.PeriodMonth, snap.Period, "selector of the records actually held")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LoadCycles.WithLabelValues("failed", "network")))
}

func TestStore_RequestLoad_MalformedDocumentFails(t *testing.T) {
	feed := &mockFeed{doc: domain.FeedDocument{Features: []domain.Feature{
		feature("us1", 1000, -120.5, 35.2),
		{ID: "bad"},
	}}}
	cache := &mockCache{}
	s, metrics := newStore(feed, cache)

	var got store.LoadResult
	s.OnComplete(func(r store.LoadResult) { got = r })
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)

	assert.Equal(t, domain.StateFailed, s.State())
	assert.Empty(t, s.Records())
	assert.Nil(t, cache.entry, "nothing cached on failure")
	assert.False(t, got.OK)
	assert.ErrorIs(t, got.Err, domain.ErrMalformedRecord)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NormalizeError))
	assert.Error(t, s.CheckReadiness(context.Background()))
}

func TestStore_FailedThenReload(t *testing.T) {
	feed := &mockFeed{err: errors.New("down")}
	s, _ := newStore(feed, &mockCache{})

	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	require.Equal(t, domain.StateFailed, s.State())
	assert.False(t, s.NeedsInitialLoad())

	feed.err = nil
	feed.doc = validDoc()
	require.True(t, s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant))
	assert.Equal(t, domain.StateLoaded, s.State())
	assert.Empty(t, s.Snapshot().LastError)
}

func TestStore_ListenersAreOneShot(t *testing.T) {
	feed := &mockFeed{doc: validDoc()}
	s, _ := newStore(feed, &mockCache{})

	var first, second []store.LoadResult
	s.OnComplete(func(r store.LoadResult) { first = append(first, r) })
	s.OnComplete(func(r store.LoadResult) { second = append(second, r) })

	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, first[0].OK)
	assert.Equal(t, store.SourceNetwork, first[0].Source)
	assert.Len(t, first[0].Records, 2)

	// The next cycle hits the cache; earlier listeners were cleared.
	var third []store.LoadResult
	s.OnComplete(func(r store.LoadResult) { third = append(third, r) })
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	require.Len(t, third, 1)
	assert.Equal(t, store.SourceCache, third[0].Source)
}

func TestStore_ListenerRegisteredAfterCompletionNotCalled(t *testing.T) {
	s, _ := newStore(&mockFeed{doc: validDoc()}, &mockCache{})
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)

	called := false
	s.OnComplete(func(store.LoadResult) { called = true })
	assert.False(t, called)
}

func TestStore_ListenerMayCallBackIntoStore(t *testing.T) {
	s, _ := newStore(&mockFeed{doc: validDoc()}, &mockCache{})

	var state domain.LoadState
	s.OnComplete(func(store.LoadResult) { state = s.State() })
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)

	assert.Equal(t, domain.StateLoaded, state)
}

func TestStore_SelectRecordIsPermissive(t *testing.T) {
	s, _ := newStore(&mockFeed{doc: validDoc()}, &mockCache{})

	s.SelectRecord("nope")
	assert.Equal(t, "nope", s.Selected())
	_, ok := s.SelectedRecord()
	assert.False(t, ok)

	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	s.SelectRecord("us2")
	r, ok := s.SelectedRecord()
	require.True(t, ok)
	assert.Equal(t, 140.1, r.Longitude())
	assert.Equal(t, 38.3, r.Latitude())
}

func TestStore_RecordsReturnsCopy(t *testing.T) {
	s, _ := newStore(&mockFeed{doc: validDoc()}, &mockCache{})
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)

	records := s.Records()
	records[0].ID = "mutated"
	assert.Equal(t, "us1", s.Records()[0].ID)
}

func TestStore_WithSessionCache(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	cache := session.NewCache(session.NewMemoryStorage(1<<20), metrics, discardLogger())
	clock := clockwork.NewFakeClockAt(testNow)
	feed := &mockFeed{doc: validDoc()}
	s := store.New(feed, cache, clock, testTTL, discardLogger(), metrics)

	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	assert.Equal(t, int64(1), feed.calls.Load(), "second load served from the session cache")

	clock.Advance(testTTL)
	s.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	assert.Equal(t, int64(2), feed.calls.Load(), "entry expires after the TTL")

	// A second store over the same slot shares the cached batch.
	other := store.New(feed, cache, clock, testTTL, discardLogger(), metrics)
	other.RequestLoad(context.Background(), domain.PeriodMonth, domain.SeveritySignificant)
	assert.Equal(t, int64(2), feed.calls.Load())
	assert.Equal(t, s.Records(), other.Records())
}
