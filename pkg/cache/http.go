package cache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the fallback freshness when the response carries neither
	// Cache-Control max-age nor Expires.
	DefaultTTL = 5 * time.Minute
)

// ResponseToEntry converts an HTTP response to an Entry. The body is read
// and restored for the caller. It reports false when the response must not
// be stored (Cache-Control no-store, or a non-200 status).
func ResponseToEntry(resp *http.Response, defaultTTL time.Duration) (*Entry, bool, error) {
	if resp == nil {
		return nil, false, fmt.Errorf("response cannot be nil")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response body: %w", err)
	}
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := time.Now()
	entry := &Entry{
		Data:       body,
		ETag:       resp.Header.Get("ETag"),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		CachedAt:   now,
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		if t, err := http.ParseTime(lastMod); err == nil {
			entry.LastModified = t
		}
	}

	expires, storable := Freshness(resp.Header, now, defaultTTL)
	entry.Expires = expires
	return entry, storable && resp.StatusCode == http.StatusOK, nil
}

// Freshness computes when a response stops being fresh. Cache-Control
// max-age wins over Expires; no-cache yields an already stale entry that is
// still stored for revalidation. It reports false for no-store.
func Freshness(h http.Header, now time.Time, defaultTTL time.Duration) (time.Time, bool) {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}

	for _, directive := range strings.Split(h.Get("Cache-Control"), ",") {
		name, value, _ := strings.Cut(strings.TrimSpace(strings.ToLower(directive)), "=")
		switch name {
		case "no-store":
			return now, false
		case "no-cache":
			return now, true
		case "max-age":
			if secs, err := strconv.Atoi(strings.Trim(value, `"`)); err == nil && secs >= 0 {
				return now.Add(time.Duration(secs) * time.Second), true
			}
		}
	}

	if raw := h.Get("Expires"); raw != "" {
		expires, err := http.ParseTime(raw)
		if err != nil {
			// Unparseable Expires means already expired.
			return now, true
		}
		if expires.Before(now) {
			return now, true
		}
		return expires, true
	}

	return now.Add(defaultTTL), true
}

// CanRevalidate reports whether a stale entry carries a validator.
func CanRevalidate(entry *Entry) bool {
	if entry == nil {
		return false
	}
	return entry.ETag != "" || !entry.LastModified.IsZero()
}

// AddConditionalHeaders adds If-None-Match (ETag) or If-Modified-Since to req.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if entry == nil || req == nil {
		return
	}

	// ETag is the stronger validator.
	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.UTC().Format(http.TimeFormat))
	}
	ConditionalRequests.Inc()
}
