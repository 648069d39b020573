package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/quake-feed-service/internal/domain"
	"github.com/couchcryptid/quake-feed-service/internal/observability"
)

// Key is the fixed storage slot for the cached feed batch.
const Key = "earthquake"

var (
	// ErrCacheRead wraps failures decoding the stored entry.
	ErrCacheRead = errors.New("session cache read")
	// ErrCacheWrite wraps failures encoding or storing an entry.
	ErrCacheWrite = errors.New("session cache write")
)

// Cache keeps the last normalized batch in a Storage slot. Both operations
// fail soft: errors are logged and counted, never returned.
// It implements store.Cache.
type Cache struct {
	storage Storage
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCache creates a session cache over storage.
func NewCache(storage Storage, metrics *observability.Metrics, logger *slog.Logger) *Cache {
	return &Cache{
		storage: storage,
		metrics: metrics,
		logger:  logger,
	}
}

// Read returns the stored entry, or false when the slot is empty or unreadable.
// An unreadable entry is removed so later reads do not keep failing.
func (c *Cache) Read() (domain.CacheEntry, bool) {
	data, ok := c.storage.GetItem(Key)
	if !ok {
		return domain.CacheEntry{}, false
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.metrics.CacheErrors.WithLabelValues("read").Inc()
		c.logger.Warn("discarding unreadable cache entry",
			"key", Key,
			"error", fmt.Errorf("%w: %w", ErrCacheRead, err),
		)
		c.storage.RemoveItem(Key)
		return domain.CacheEntry{}, false
	}
	return entry, true
}

// Write replaces the stored entry. Failures leave the previous entry in place.
func (c *Cache) Write(entry domain.CacheEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		c.writeFailed(err, len(entry.Records))
		return
	}
	if err := c.storage.SetItem(Key, data); err != nil {
		c.writeFailed(err, len(entry.Records))
		return
	}
	c.logger.Debug("cache entry written", "key", Key, "records", len(entry.Records), "bytes", len(data))
}

func (c *Cache) writeFailed(err error, records int) {
	c.metrics.CacheErrors.WithLabelValues("write").Inc()
	c.logger.Warn("cache write skipped",
		"key", Key,
		"records", records,
		"error", fmt.Errorf("%w: %w", ErrCacheWrite, err),
	)
}
