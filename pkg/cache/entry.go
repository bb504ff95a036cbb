package cache

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Entry is one cached API response.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag,omitempty"`

	// LastModified for conditional requests (If-Modified-Since).
	LastModified time.Time `json:"last_modified,omitempty"`

	// Expires is when the entry stops being fresh.
	Expires time.Time `json:"expires"`

	// StatusCode of the cached response.
	StatusCode int `json:"status_code"`

	// Headers of the cached response.
	Headers http.Header `json:"headers,omitempty"`

	// CachedAt is when the entry was stored.
	CachedAt time.Time `json:"cached_at"`
}

// IsFresh reports whether the entry can be served without revalidation.
func (e *Entry) IsFresh() bool {
	return time.Now().Before(e.Expires)
}

// TTL returns the remaining freshness lifetime, 0 once stale.
func (e *Entry) TTL() time.Duration {
	if ttl := time.Until(e.Expires); ttl > 0 {
		return ttl
	}
	return 0
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CachedAt)
}

// Decode unmarshals the cached JSON body into a response document.
func (e *Entry) Decode() (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(e.Data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return doc, nil
}
