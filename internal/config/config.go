package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Feed selection and transport.
	FeedBaseURL  string
	FeedPeriod   domain.Period
	FeedSeverity domain.Severity
	FeedTimeout  time.Duration

	// Caching and refresh.
	CacheTTL             time.Duration
	RefreshInterval      time.Duration
	SessionCacheMaxBytes int

	// Record publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	period, err := domain.ParsePeriod(sharedcfg.EnvOrDefault("FEED_PERIOD", string(domain.PeriodMonth)))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_PERIOD: %w", err)
	}
	severity, err := domain.ParseSeverity(sharedcfg.EnvOrDefault("FEED_SEVERITY", string(domain.SeveritySignificant)))
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_SEVERITY: %w", err)
	}

	feedTimeout, err := parsePositiveDuration("FEED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("CACHE_TTL", domain.DefaultCacheTTL.String())
	if err != nil {
		return nil, err
	}

	refreshInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFRESH_INTERVAL", "5m"))
	if err != nil || refreshInterval < 0 {
		return nil, errors.New("invalid REFRESH_INTERVAL")
	}

	maxBytes, err := strconv.Atoi(sharedcfg.EnvOrDefault("SESSION_CACHE_MAX_BYTES", "5242880"))
	if err != nil || maxBytes <= 0 {
		return nil, errors.New("invalid SESSION_CACHE_MAX_BYTES")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FeedBaseURL:  sharedcfg.EnvOrDefault("FEED_BASE_URL", "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"),
		FeedPeriod:   period,
		FeedSeverity: severity,
		FeedTimeout:  feedTimeout,

		CacheTTL:             cacheTTL,
		RefreshInterval:      refreshInterval,
		SessionCacheMaxBytes: maxBytes,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "seismic-records"),
	}

	if cfg.FeedBaseURL == "" {
		return nil, errors.New("FEED_BASE_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
