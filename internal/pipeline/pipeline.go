package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/store"
)

// Loader is the part of the store the pipeline drives.
type Loader interface {
	RequestLoad(ctx context.Context, period domain.Period, severity domain.Severity) bool
	NeedsInitialLoad() bool
	OnComplete(l store.Listener)
}

// Publisher forwards freshly fetched batches downstream.
type Publisher interface {
	Publish(ctx context.Context, batch domain.Batch) error
}

// Pipeline triggers the first load, reloads on an interval, and publishes
// every batch that came from the network.
type Pipeline struct {
	loader    Loader
	publisher Publisher
	clock     clockwork.Clock
	interval  time.Duration
	period    domain.Period
	severity  domain.Severity
	logger    *slog.Logger
	metrics   *observability.Metrics

	results chan store.LoadResult
	pending atomic.Bool
}

// New creates a Pipeline. A nil publisher disables publishing; a zero
// interval disables periodic reloads.
func New(loader Loader, publisher Publisher, clock clockwork.Clock, period domain.Period, severity domain.Severity, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		loader:    loader,
		publisher: publisher,
		clock:     clock,
		interval:  interval,
		period:    period,
		severity:  severity,
		logger:    logger,
		metrics:   metrics,
		results:   make(chan store.LoadResult, 1),
	}
}

// Run drives loads until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		"period", p.period,
		"severity", p.severity,
		"interval", p.interval,
		"publishing", p.publisher != nil,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	if p.loader.NeedsInitialLoad() {
		p.cycle(ctx)
	}

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := p.clock.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-tick:
			p.cycle(ctx)
		case result := <-p.results:
			p.publish(ctx, result)
		}
	}
}

// cycle requests one load. At most one publish listener is pending at a time,
// so a request that lands on an in-flight load does not publish twice.
func (p *Pipeline) cycle(ctx context.Context) {
	if p.publisher != nil && p.pending.CompareAndSwap(false, true) {
		p.loader.OnComplete(p.onComplete)
	}
	if !p.loader.RequestLoad(ctx, p.period, p.severity) {
		p.logger.Debug("load already in flight, skipping tick")
	}
}

func (p *Pipeline) onComplete(result store.LoadResult) {
	p.pending.Store(false)
	if !result.OK || result.Source != store.SourceNetwork {
		return
	}
	select {
	case p.results <- result:
	default:
		p.logger.Warn("publish queue full, dropping batch", "records", len(result.Records))
		p.metrics.PublishErrors.Inc()
	}
}

func (p *Pipeline) publish(ctx context.Context, result store.LoadResult) {
	batch := domain.Batch{
		Period:    result.Period,
		Severity:  result.Severity,
		FetchedAt: result.FetchedAt,
		Records:   result.Records,
	}
	if err := p.publisher.Publish(ctx, batch); err != nil {
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish batch failed", "error", err, "records", len(batch.Records))
		return
	}
	p.metrics.RecordsPublished.Add(float64(len(batch.Records)))
	p.logger.Info("batch published", "records", len(batch.Records), "feed", domain.FeedName(batch.Period, batch.Severity))
}
