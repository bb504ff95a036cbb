// Package ratelimit tracks the rate limit an API reports in its response
// headers and gates requests before the limit is exhausted. State is kept in
// Redis so every client instance talking to the same API shares it.
package ratelimit

import (
	"time"
)

// Default header names. Most APIs use this X-RateLimit-* family; Reset is
// read as seconds until the window resets.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderReset     = "X-RateLimit-Reset"
)

// Redis hash fields of the rate limit state.
const (
	fieldRemaining  = "remaining"
	fieldLimit      = "limit"
	fieldResetAt    = "reset_at"
	fieldLastUpdate = "last_update"
)

// State is the last rate limit reported by the API.
type State struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// Limit is the window size, 0 when the API does not report it.
	Limit int `json:"limit"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`

	// Known is false until the API has reported a limit.
	Known bool `json:"known"`
}

// IsStale returns true if the state is older than maxAge.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// TimeUntilReset returns the duration until the window resets, 0 if it has
// already passed.
func (s *State) TimeUntilReset() time.Duration {
	if d := time.Until(s.ResetAt); d > 0 {
		return d
	}
	return 0
}

// Decision is what the tracker does with the next request.
type Decision int

const (
	// Allow sends the request immediately.
	Allow Decision = iota
	// Throttle delays the request.
	Throttle
	// Block refuses the request until the window resets.
	Block
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Throttle:
		return "throttle"
	case Block:
		return "block"
	default:
		return "unknown"
	}
}

// Decide classifies the state against the thresholds. Unknown or reset
// windows always allow.
func (s *State) Decide(cfg Config) Decision {
	if !s.Known || s.TimeUntilReset() == 0 {
		return Allow
	}
	switch {
	case s.Remaining < cfg.CriticalRemaining:
		return Block
	case s.Remaining < cfg.WarningRemaining:
		return Throttle
	default:
		return Allow
	}
}
