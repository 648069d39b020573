// Package store holds the seismic data store: a load state machine over a
// feed client, the record normalizer, and a session cache.
//
// A store starts Idle. RequestLoad moves it to Loading, consults the cache,
// falls back to the feed on a miss, and settles in Loaded or Failed. A failed
// load keeps the records from the previous successful one. Completion
// listeners are one-shot: each is called once, for the first load cycle that
// completes after it was registered, and then dropped.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// FeedClient performs one feed request per call.
type FeedClient interface {
	FetchFeed(ctx context.Context, period domain.Period, severity domain.Severity) (domain.FeedDocument, error)
}

// Cache holds the last normalized batch. Implementations must fail soft.
type Cache interface {
	Read() (domain.CacheEntry, bool)
	Write(entry domain.CacheEntry)
}

// Source says where a load cycle got its records.
type Source string

const (
	SourceCache   Source = "cache"
	SourceNetwork Source = "network"
)

// LoadResult is delivered to completion listeners.
type LoadResult struct {
	OK        bool
	Source    Source
	Period    domain.Period
	Severity  domain.Severity
	Records   []domain.SeismicRecord // nil on failure; read-only
	FetchedAt int64
	Err       error
}

// Listener receives the outcome of one load cycle.
type Listener func(LoadResult)

// Snapshot is a consistent view of the store.
type Snapshot struct {
	State     domain.LoadState
	Records   []domain.SeismicRecord
	Selected  string
	FetchedAt int64
	Period    domain.Period
	Severity  domain.Severity
	LastError string
}

// Store is the load state machine. All methods are safe for concurrent use.
type Store struct {
	feed    FeedClient
	cache   Cache
	clock   clockwork.Clock
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	state     domain.LoadState
	records   []domain.SeismicRecord
	fetchedAt int64
	period    domain.Period
	severity  domain.Severity
	selected  string
	lastErr   error
	loaded    bool
	listeners []Listener
}

// New creates an Idle store. A non-positive ttl selects domain.DefaultCacheTTL.
func New(feed FeedClient, cache Cache, clock clockwork.Clock, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	return &Store{
		feed:    feed,
		cache:   cache,
		clock:   clock,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
		state:   domain.StateIdle,
	}
}

// RequestLoad runs one load cycle for the selector and reports whether it
// ran. It is a no-op returning false while another cycle is in flight.
// The cycle ignores ctx cancellation: once started it always completes.
func (s *Store) RequestLoad(ctx context.Context, period domain.Period, severity domain.Severity) bool {
	s.mu.Lock()
	if s.state == domain.StateLoading {
		s.mu.Unlock()
		s.logger.Debug("load already in flight, ignoring request", "period", period, "severity", severity)
		return false
	}
	s.setState(domain.StateLoading)
	s.mu.Unlock()

	start := s.clock.Now()
	result := s.load(context.WithoutCancel(ctx), period, severity)

	s.mu.Lock()
	if result.OK {
		s.records = result.Records
		s.fetchedAt = result.FetchedAt
		s.period = period
		s.severity = severity
		s.lastErr = nil
		s.loaded = true
		s.setState(domain.StateLoaded)
	} else {
		s.lastErr = result.Err
		s.setState(domain.StateFailed)
	}
	held := len(s.records)
	listeners := s.listeners
	s.listeners = nil
	s.mu.Unlock()

	s.metrics.RecordsHeld.Set(float64(held))
	if result.OK {
		s.metrics.LoadCycles.WithLabelValues("loaded", string(result.Source)).Inc()
		s.logger.Info("load complete",
			"period", period,
			"severity", severity,
			"source", result.Source,
			"records", len(result.Records),
			"duration", s.clock.Since(start),
		)
	} else {
		s.metrics.LoadCycles.WithLabelValues("failed", string(result.Source)).Inc()
		s.logger.Error("load failed, keeping previous records",
			"period", period,
			"severity", severity,
			"records_kept", held,
			"error", result.Err,
		)
	}

	for _, l := range listeners {
		l(result)
	}
	return true
}

// load resolves records from a fresh cache entry or the feed.
func (s *Store) load(ctx context.Context, period domain.Period, severity domain.Severity) LoadResult {
	result := LoadResult{Period: period, Severity: severity, Source: SourceCache}

	if entry, ok := s.cache.Read(); ok && entry.Matches(period, severity) {
		if entry.IsFresh(s.clock.Now(), s.ttl) {
			s.metrics.CacheLookups.WithLabelValues("hit").Inc()
			result.OK = true
			result.Records = entry.Records
			result.FetchedAt = entry.FetchedAt
			return result
		}
		s.metrics.CacheLookups.WithLabelValues("stale").Inc()
	} else {
		s.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	result.Source = SourceNetwork
	doc, err := s.feed.FetchFeed(ctx, period, severity)
	if err != nil {
		result.Err = fmt.Errorf("fetch %s: %w", domain.FeedName(period, severity), err)
		return result
	}

	records, err := domain.Normalize(doc)
	if err != nil {
		s.metrics.NormalizeError.Inc()
		result.Err = fmt.Errorf("normalize %s: %w", domain.FeedName(period, severity), err)
		return result
	}

	fetchedAt := s.clock.Now().UnixMilli()
	s.cache.Write(domain.CacheEntry{
		Records:   records,
		FetchedAt: fetchedAt,
		Period:    period,
		Severity:  severity,
	})

	result.OK = true
	result.Records = records
	result.FetchedAt = fetchedAt
	return result
}

// setState must be called with mu held.
func (s *Store) setState(state domain.LoadState) {
	s.state = state
	s.metrics.LoadState.Set(float64(state))
}

// OnComplete registers a one-shot listener for the next completed load cycle.
// Listeners registered after a cycle completes are not called for it.
func (s *Store) OnComplete(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// SelectRecord sets the selected record id. The id is not checked against
// the current records.
func (s *Store) SelectRecord(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
}

// Selected returns the selected id, which may not be in Records.
func (s *Store) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// SelectedRecord looks the selected id up in the current records.
func (s *Store) SelectedRecord() (domain.SeismicRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == "" {
		return domain.SeismicRecord{}, false
	}
	for _, r := range s.records {
		if r.ID == s.selected {
			return r, true
		}
	}
	return domain.SeismicRecord{}, false
}

// State returns the current load state.
func (s *Store) State() domain.LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// NeedsInitialLoad reports whether the store has never started a load.
func (s *Store) NeedsInitialLoad() bool {
	return s.State() == domain.StateIdle
}

// Records returns a copy of the current records.
func (s *Store) Records() []domain.SeismicRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SeismicRecord(nil), s.records...)
}

// Snapshot returns state, records, and selection under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		State:     s.state,
		Records:   append([]domain.SeismicRecord(nil), s.records...),
		Selected:  s.selected,
		FetchedAt: s.fetchedAt,
		Period:    s.period,
		Severity:  s.severity,
	}
	if s.lastErr != nil {
		snap.LastError = s.lastErr.Error()
	}
	return snap
}

// CheckReadiness returns nil once at least one load has succeeded.
func (s *Store) CheckReadiness(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		if s.lastErr != nil {
			return fmt.Errorf("no records loaded yet: %w", s.lastErr)
		}
		return errors.New("no records loaded yet")
	}
	return nil
}
