package cache

import (
	"encoding/json"
	"time"
)

// Entry represents a cached operation result.
type Entry struct {
	// Value is the JSON-encoded cached value.
	Value json.RawMessage `json:"value"`

	// Expires is when the entry stops being served. Past this moment the
	// entry behaves as absent.
	Expires time.Time `json:"expires"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
