package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/quake-feed-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/quake-feed-service/internal/adapter/kafka"
	"github.com/couchcryptid/quake-feed-service/internal/adapter/session"
	"github.com/couchcryptid/quake-feed-service/internal/adapter/usgs"
	"github.com/couchcryptid/quake-feed-service/internal/config"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
	"github.com/couchcryptid/quake-feed-service/internal/pipeline"
	"github.com/couchcryptid/quake-feed-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	client := usgs.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, metrics, logger)
	cache := session.NewCache(session.NewMemoryStorage(cfg.SessionCacheMaxBytes), metrics, logger)
	st := store.New(client, cache, clock, cfg.CacheTTL, logger, metrics)

	// Publishing is feature-flagged via KAFKA_ENABLED.
	var (
		publisher pipeline.Publisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	p := pipeline.New(st, publisher, clock, cfg.FeedPeriod, cfg.FeedSeverity, cfg.RefreshInterval, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, st, cfg.FeedPeriod, cfg.FeedSeverity, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return p.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("service error", "error", err)
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
