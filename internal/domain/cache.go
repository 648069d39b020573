package domain

import "time"

// DefaultCacheTTL is how long a cached batch stays fresh.
const DefaultCacheTTL = 5 * time.Minute

// CacheEntry is a normalized batch plus the moment it was fetched.
type CacheEntry struct {
	Records   []SeismicRecord `json:"records"`
	FetchedAt int64           `json:"fetchedAt"` // ms since epoch
	Period    Period          `json:"period,omitempty"`
	Severity  Severity        `json:"severity,omitempty"`
}

// IsFresh reports whether now - FetchedAt < ttl.
func (e CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-e.FetchedAt < ttl.Milliseconds()
}

// Matches reports whether the entry was fetched for the given selector.
func (e CacheEntry) Matches(period Period, severity Severity) bool {
	return e.Period == period && e.Severity == severity
}
