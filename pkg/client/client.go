// Package client provides an HTTP operation caller for paginated JSON APIs,
// with client-side rate limiting, shared rate-limit tracking, response
// caching, and retries.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Sternrassler/api-paginator/pkg/cache"
	"github.com/Sternrassler/api-paginator/pkg/pagination"
	"github.com/Sternrassler/api-paginator/pkg/ratelimit"
)

// RequestIDHeader carries the id of one call, the same across its retries.
const RequestIDHeader = "X-Request-Id"

// maxErrorBody bounds how much of an error response ends up in an APIError.
const maxErrorBody = 512

// Config holds the client configuration.
type Config struct {
	// Service names the API; it scopes cache keys and rate-limit state.
	Service string

	// BaseURL is prefixed to every operation path.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Operations binds operation names to endpoints.
	Operations []Operation

	// Model resolves pagination configs. Optional; without it no operation
	// can be paginated.
	Model pagination.ConfigSource

	// Redis enables the response cache and shared rate-limit tracking. Optional.
	Redis *redis.Client

	// RateLimit caps requests per second on this client, 0 for no cap.
	RateLimit float64
	// Burst is the token bucket size for RateLimit.
	Burst int

	// RateLimitTracker configures header-based gating (requires Redis).
	RateLimitTracker ratelimit.Config

	// Cache configures the response cache (requires Redis).
	Cache cache.Config

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	// Retry configures retries of server, network and rate-limit failures.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(service, baseURL string) Config {
	tracker := ratelimit.DefaultConfig()
	tracker.Scope = service
	cacheCfg := cache.DefaultConfig()
	return Config{
		Service:          service,
		BaseURL:          baseURL,
		UserAgent:        "api-paginator/1.0",
		RateLimit:        10,
		Burst:            5,
		RateLimitTracker: tracker,
		Cache:            cacheCfg,
		Timeout:          30 * time.Second,
		Retry:            DefaultRetryConfig(),
	}
}

// Client calls the operations of one API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	tracker    *ratelimit.Tracker
	cache      *cache.Manager
	operations map[string]Operation
	config     Config
	logger     zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.RateLimit < 0 {
		return nil, fmt.Errorf("rate_limit must be >= 0 (got %v)", cfg.RateLimit)
	}

	ops := make(map[string]Operation, len(cfg.Operations))
	for _, op := range cfg.Operations {
		if op.Name == "" {
			return nil, fmt.Errorf("operation without a name (path %q)", op.Path)
		}
		if _, dup := ops[op.Name]; dup {
			return nil, fmt.Errorf("duplicate operation %q", op.Name)
		}
		ops[op.Name] = op
	}

	logger := log.With().Str("component", "client").Str("service", cfg.Service).Logger()

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		operations: ops,
		config:     cfg,
		logger:     logger,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.Redis != nil {
		trackerCfg := cfg.RateLimitTracker
		if trackerCfg.Scope == "" {
			trackerCfg.Scope = cfg.Service
		}
		c.tracker = ratelimit.NewTracker(cfg.Redis, trackerCfg, logger)
		c.cache = cache.NewManager(cfg.Redis, cfg.Cache)
	}
	return c, nil
}

// Operations returns the bound operations.
func (c *Client) Operations() []Operation {
	return slices.Clone(c.config.Operations)
}

// CanPaginate reports whether operation is bound and has a pagination config.
func (c *Client) CanPaginate(operation string) bool {
	if _, ok := c.operations[operation]; !ok || c.config.Model == nil {
		return false
	}
	_, err := c.config.Model.Config(operation)
	return err == nil
}

// Paginator returns a paginator over operation. It fails immediately with a
// *pagination.NotPageableError when the operation has no usable config.
func (c *Client) Paginator(operation string, opts ...pagination.Option) (*pagination.Paginator, error) {
	if _, ok := c.operations[operation]; !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOperation, operation)
	}
	if c.config.Model == nil {
		return nil, &pagination.NotPageableError{Operation: operation, Err: pagination.ErrNotFound}
	}
	cfg, err := c.config.Model.Config(operation)
	if err != nil {
		if errors.Is(err, pagination.ErrNotPageable) {
			return nil, &pagination.NotPageableError{Operation: operation, Err: err}
		}
		return nil, err
	}

	call := func(ctx context.Context, params map[string]any) (map[string]any, error) {
		return c.Call(ctx, operation, params)
	}
	return pagination.NewPaginator(operation, call, cfg, opts...), nil
}

// Call invokes operation once and decodes its JSON response.
func (c *Client) Call(ctx context.Context, operation string, params map[string]any) (map[string]any, error) {
	op, ok := c.operations[operation]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownOperation, operation)
	}

	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	requestID := uuid.NewString()
	logger := c.logger.With().
		Str("operation", operation).
		Str("endpoint", op.Path).
		Str("request_id", requestID).
		Logger()

	// Step 1: client-side rate limit
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	// Step 2: shared rate-limit state
	if c.tracker != nil {
		if err := c.tracker.Wait(ctx); err != nil {
			requestsTotal.WithLabelValues(operation, "rate_limited").Inc()
			logger.Warn().Err(err).Msg("Request blocked by rate limiter")
			return nil, err
		}
	}

	// Step 3: cache lookup for safe methods
	var (
		cacheKey cache.Key
		stale    *cache.Entry
	)
	cacheable := c.cache != nil && !op.sendsBody()
	if cacheable {
		cacheKey = cache.Key{Service: c.config.Service, Operation: operation, Params: params}
		entry, err := c.cache.GetStale(ctx, cacheKey)
		switch {
		case err == nil && entry.IsFresh():
			cache.CacheHits.WithLabelValues("redis").Inc()
			logger.Debug().Dur("ttl", entry.TTL()).Msg("Cache hit")
			requestsTotal.WithLabelValues(operation, "cached").Inc()
			return entry.Decode()
		case err == nil:
			cache.CacheMisses.Inc()
			if cache.CanRevalidate(entry) {
				stale = entry
			}
		case !errors.Is(err, cache.ErrCacheMiss):
			logger.Warn().Err(err).Msg("Cache get error - falling back to direct request")
		}
	}

	// Step 4: execute with retries
	var resp *http.Response
	err := retryWithBackoff(ctx, c.config.Retry, logger, func() error {
		req, err := op.newRequest(ctx, c.config.BaseURL, params)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set(RequestIDHeader, requestID)
		if stale != nil {
			cache.AddConditionalHeaders(req, stale)
		}

		logger.Debug().Str("method", req.Method).Msg("Executing request")

		r, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(operation, "network_error").Inc()
			return &APIError{Operation: operation, ErrorClass: ErrorClassNetwork, RequestID: requestID, Err: err}
		}

		if c.tracker != nil {
			if err := c.tracker.UpdateFromHeaders(ctx, r.Header); err != nil {
				logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		requestsTotal.WithLabelValues(operation, strconv.Itoa(r.StatusCode)).Inc()
		class := classifyStatus(r.StatusCode)
		if class == "" {
			resp = r
			return nil
		}

		errorsTotal.WithLabelValues(string(class)).Inc()
		msg, _ := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
		r.Body.Close()
		logger.Warn().
			Int("status_code", r.StatusCode).
			Str("error_class", string(class)).
			Msg("API request error")
		return &APIError{
			Operation:  operation,
			StatusCode: r.StatusCode,
			ErrorClass: class,
			Message:    string(bytes.TrimSpace(msg)),
			RequestID:  requestID,
		}
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// Step 5: 304 Not Modified serves the revalidated entry
	if resp.StatusCode == http.StatusNotModified && stale != nil {
		cache.NotModified.Inc()
		expires, _ := cache.Freshness(resp.Header, time.Now(), c.cache.DefaultTTL())
		if _, err := c.cache.Refresh(ctx, cacheKey, expires); err != nil {
			logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		logger.Debug().Msg("304 Not Modified - using cache")
		return stale.Decode()
	}

	// Step 6: store and decode
	if cacheable {
		entry, storable, err := cache.ResponseToEntry(resp, c.cache.DefaultTTL())
		if err != nil {
			return nil, &APIError{Operation: operation, StatusCode: resp.StatusCode, ErrorClass: ErrorClassNetwork, RequestID: requestID, Err: err}
		}
		if storable {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				logger.Debug().Dur("ttl", entry.TTL()).Msg("Cached response")
			}
		}
	}

	return decodeBody(operation, requestID, resp)
}

func decodeBody(operation, requestID string, resp *http.Response) (map[string]any, error) {
	if resp.StatusCode == http.StatusNoContent {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, &APIError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassServer,
			Message:    "response is not a JSON object",
			RequestID:  requestID,
			Err:        err,
		}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the response cache, nil without Redis.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}
