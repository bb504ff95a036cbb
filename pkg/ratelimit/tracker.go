package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	remainingGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "api_rate_limit_remaining",
		Help: "Requests remaining in the current API rate limit window",
	}, []string{"scope"})

	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the rate limit was nearly exhausted",
	}, []string{"scope"})

	throttlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "api_rate_limit_throttles_total",
		Help: "Total number of requests delayed because the rate limit was low",
	}, []string{"scope"})
)

// ErrRateLimited is returned by Wait when a request is blocked.
var ErrRateLimited = errors.New("rate limit nearly exhausted")

// BlockedError reports a blocked request and when it may be retried.
type BlockedError struct {
	Scope      string
	Remaining  int
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("rate limit for %s: %d remaining, retry after %s", e.Scope, e.Remaining, e.RetryAfter)
}

// Is matches ErrRateLimited.
func (e *BlockedError) Is(target error) bool {
	return target == ErrRateLimited
}

// Config holds tracker configuration.
type Config struct {
	// Scope separates the state of different APIs sharing one Redis.
	Scope string

	// CriticalRemaining blocks requests when fewer remain.
	CriticalRemaining int

	// WarningRemaining throttles requests when fewer remain.
	WarningRemaining int

	// ThrottleDelay is how long a throttled request waits.
	ThrottleDelay time.Duration

	// Header names; empty fields use the X-RateLimit-* defaults.
	RemainingHeader string
	LimitHeader     string
	ResetHeader     string
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		Scope:             "default",
		CriticalRemaining: 5,
		WarningRemaining:  20,
		ThrottleDelay:     time.Second,
		RemainingHeader:   HeaderRemaining,
		LimitHeader:       HeaderLimit,
		ResetHeader:       HeaderReset,
	}
}

// Tracker records rate limit headers and gates requests.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, config Config, logger zerolog.Logger) *Tracker {
	defaults := DefaultConfig()
	if config.Scope == "" {
		config.Scope = defaults.Scope
	}
	if config.RemainingHeader == "" {
		config.RemainingHeader = defaults.RemainingHeader
	}
	if config.LimitHeader == "" {
		config.LimitHeader = defaults.LimitHeader
	}
	if config.ResetHeader == "" {
		config.ResetHeader = defaults.ResetHeader
	}
	return &Tracker{
		redis:  redisClient,
		config: config,
		logger: logger.With().Str("scope", config.Scope).Logger(),
	}
}

// RedisKey returns the hash the state of this tracker is stored under.
func (t *Tracker) RedisKey() string {
	return "api:rate_limit:" + t.config.Scope
}

// GetState retrieves the current state from Redis. An unknown state is
// returned when nothing has been recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	fields, err := t.redis.HGetAll(ctx, t.RedisKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get rate limit state: %w", err)
	}
	if len(fields) == 0 {
		return &State{}, nil
	}

	state := &State{Known: true}
	if state.Remaining, err = strconv.Atoi(fields[fieldRemaining]); err != nil {
		return nil, fmt.Errorf("parse remaining: %w", err)
	}
	if raw := fields[fieldLimit]; raw != "" {
		if state.Limit, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("parse limit: %w", err)
		}
	}
	resetAt, err := strconv.ParseInt(fields[fieldResetAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse reset timestamp: %w", err)
	}
	state.ResetAt = time.Unix(resetAt, 0)
	if raw := fields[fieldLastUpdate]; raw != "" {
		if state.LastUpdate, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}
	return state, nil
}

// UpdateFromHeaders records the rate limit reported by a response. Responses
// without the remaining header are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get(t.config.RemainingHeader)
	if remainStr == "" {
		return nil
	}
	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.config.RemainingHeader, err)
	}

	resetStr := headers.Get(t.config.ResetHeader)
	if resetStr == "" {
		return fmt.Errorf("%s header missing", t.config.ResetHeader)
	}
	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse %s header: %w", t.config.ResetHeader, err)
	}

	limit := 0
	if raw := headers.Get(t.config.LimitHeader); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return fmt.Errorf("parse %s header: %w", t.config.LimitHeader, err)
		}
	}

	now := time.Now()
	resetAt := now.Add(time.Duration(resetSeconds) * time.Second)

	pipe := t.redis.TxPipeline()
	pipe.HSet(ctx, t.RedisKey(),
		fieldRemaining, remain,
		fieldLimit, limit,
		fieldResetAt, resetAt.Unix(),
		fieldLastUpdate, now.Format(time.RFC3339Nano),
	)
	// State outlives its window only briefly.
	pipe.Expire(ctx, t.RedisKey(), time.Duration(resetSeconds)*time.Second+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	remainingGauge.WithLabelValues(t.config.Scope).Set(float64(remain))

	state := &State{Remaining: remain, Limit: limit, ResetAt: resetAt, LastUpdate: now, Known: true}
	switch state.Decide(t.config) {
	case Block:
		t.logger.Error().Int("remaining", remain).Time("reset_at", resetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case Throttle:
		t.logger.Warn().Int("remaining", remain).Time("reset_at", resetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().Int("remaining", remain).Int("limit", limit).Time("reset_at", resetAt).
			Msg("Rate limit state updated")
	}
	return nil
}

// Wait gates one request. It returns a *BlockedError when the limit is
// nearly exhausted, and sleeps ThrottleDelay (or until ctx is done) when it
// is low.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return err
	}

	switch state.Decide(t.config) {
	case Block:
		retryAfter := state.TimeUntilReset()
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("retry_after", retryAfter).
			Msg("Rate limit critical - blocking request")
		blocksTotal.WithLabelValues(t.config.Scope).Inc()
		return &BlockedError{Scope: t.config.Scope, Remaining: state.Remaining, RetryAfter: retryAfter}

	case Throttle:
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.config.ThrottleDelay).
			Msg("Rate limit warning - throttling request")
		throttlesTotal.WithLabelValues(t.config.Scope).Inc()

		timer := time.NewTimer(t.config.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}
