package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// InitialBackoff is the initial backoff duration.
	InitialBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// RetryConfigForErrorClass scales base for an error class: rate limiting
// backs off longer, server errors shorter.
func RetryConfigForErrorClass(base RetryConfig, errorClass ErrorClass) RetryConfig {
	cfg := base
	switch errorClass {
	case ErrorClassServer:
		cfg.MaxBackoff = min(cfg.MaxBackoff, 10*cfg.InitialBackoff)
	case ErrorClassRateLimit:
		cfg.InitialBackoff *= 5
		cfg.MaxBackoff *= 2
	case ErrorClassNetwork:
		cfg.InitialBackoff *= 2
	}
	return cfg
}

func (rc RetryConfig) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialBackoff
	b.MaxInterval = rc.MaxBackoff
	b.Multiplier = rc.BackoffMultiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// classifiedBackOff picks the backoff schedule from the class of the last
// failure, so one request can mix schedules across attempts.
type classifiedBackOff struct {
	base      RetryConfig
	lastClass *ErrorClass
	schedules map[ErrorClass]*backoff.ExponentialBackOff
}

func (c *classifiedBackOff) NextBackOff() time.Duration {
	class := *c.lastClass
	b, ok := c.schedules[class]
	if !ok {
		b = RetryConfigForErrorClass(c.base, class).backOff()
		c.schedules[class] = b
	}
	d := b.NextBackOff()
	retryBackoffSeconds.WithLabelValues(string(class)).Observe(d.Seconds())
	return d
}

func (c *classifiedBackOff) Reset() {
	c.schedules = make(map[ErrorClass]*backoff.ExponentialBackOff)
}

// retryWithBackoff runs fn until it succeeds, returns a non-retryable
// *APIError, or MaxAttempts is reached.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastClass ErrorClass
	attempt := 0
	operation := func() error {
		attempt++
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().
					Str("error_class", string(lastClass)).
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			lastClass = apiErr.ErrorClass
			if !apiErr.Retryable() {
				return backoff.Permanent(err)
			}
		} else {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		retriesTotal.WithLabelValues(string(lastClass)).Inc()
		logger.Warn().
			Err(err).
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying request after backoff")
	}

	schedule := &classifiedBackOff{base: cfg, lastClass: &lastClass}
	schedule.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(schedule, uint64(cfg.MaxAttempts-1)), ctx)

	err := backoff.RetryNotify(operation, policy, notify)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		logger.Warn().
			Str("error_class", string(lastClass)).
			Int("attempt", attempt).
			Msg("Context cancelled during retry")
		return fmt.Errorf("%w: %w", ErrContextCancelled, ctxErr)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Retryable() {
		retryExhaustedTotal.WithLabelValues(string(lastClass)).Inc()
		logger.Warn().
			Str("error_class", string(lastClass)).
			Int("max_attempts", cfg.MaxAttempts).
			Msg("Retry attempts exhausted")
		return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
	}
	return err
}
