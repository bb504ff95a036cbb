package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/Sternrassler/api-paginator/pkg/client"
	"github.com/Sternrassler/api-paginator/pkg/logging"
	"github.com/Sternrassler/api-paginator/pkg/model"
	"github.com/Sternrassler/api-paginator/pkg/pagination"
	"github.com/Sternrassler/api-paginator/pkg/pathexpr"
	"github.com/Sternrassler/api-paginator/pkg/ratelimit"
)

// app wires the model registry, the optional Redis and one client per
// configured service.
type app struct {
	cfg      *appConfig
	registry *model.Registry
	redis    *redis.Client
	clients  map[string]*client.Client
	logger   zerolog.Logger
}

func newApp(ctx context.Context, cfg *appConfig) (*app, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.Config{Level: level, Pretty: cfg.LogPretty})
	logger := logging.NewLogger("pager")

	registry, err := model.NewRegistry(cfg.ModelDir)
	if err != nil {
		return nil, fmt.Errorf("load models: %w", err)
	}

	a := &app{
		cfg:      cfg,
		registry: registry,
		clients:  make(map[string]*client.Client, len(cfg.Services)),
		logger:   logger,
	}

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.redis.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	for _, name := range cfg.serviceNames() {
		ccfg, err := cfg.clientConfig(name)
		if err != nil {
			a.close()
			return nil, err
		}
		ccfg.Model = registry.Source(name)
		ccfg.Redis = a.redis
		c, err := client.New(ccfg)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("service %q: %w", name, err)
		}
		a.clients[name] = c
	}

	logger.Info().
		Strs("services", cfg.serviceNames()).
		Strs("models", registry.Services()).
		Msg("Pager initialized")
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

func (a *app) client(service string) (*client.Client, error) {
	c, ok := a.clients[service]
	if !ok {
		return nil, fmt.Errorf("%w %q", model.ErrUnknownService, service)
	}
	return c, nil
}

// paginationRequest is one pagination run as requested on the command line
// or over HTTP.
type paginationRequest struct {
	Service   string         `json:"service"`
	Operation string         `json:"operation"`
	Params    map[string]any `json:"params,omitempty"`
	Options   pagination.Options
	// Query is a path expression applied to every page; the matches are
	// returned instead of the full result.
	Query string `json:"query,omitempty"`
}

// run performs req and returns the document to print.
func (a *app) run(ctx context.Context, req paginationRequest) (map[string]any, error) {
	p, err := a.paginator(req)
	if err != nil {
		return nil, err
	}
	it := p.Paginate(req.Params, req.Options)

	if req.Query == "" {
		return it.BuildFullResult(ctx)
	}

	results := []any{}
	for item, err := range it.Search(ctx, req.Query) {
		if err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	out := map[string]any{"Results": results}
	if token := it.ResumeToken(); token != "" {
		out[pagination.NextTokenKey] = token
	}
	return out, nil
}

func (a *app) paginator(req paginationRequest) (*pagination.Paginator, error) {
	c, err := a.client(req.Service)
	if err != nil {
		return nil, err
	}
	return c.Paginator(req.Operation,
		pagination.WithLogger(a.logger.With().Str("service", req.Service).Logger()))
}

// parseParams turns key=value pairs into request parameters. Values are
// read as YAML scalars or flow collections, so "10" is a number and
// "[a, b]" a list.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, want key=value", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		params[key] = value
	}
	return params, nil
}

// statusFor maps a pagination failure to an HTTP status.
func statusFor(err error) int {
	var (
		apiErr    *client.APIError
		syntaxErr *pathexpr.SyntaxError
	)
	switch {
	case errors.Is(err, model.ErrUnknownService), errors.Is(err, client.ErrUnknownOperation):
		return http.StatusNotFound
	case errors.Is(err, pagination.ErrNotPageable),
		errors.Is(err, pagination.ErrInvalidStartingToken),
		errors.Is(err, pagination.ErrInvalidOption),
		errors.Is(err, pagination.ErrInvalidJob),
		errors.As(err, &syntaxErr):
		return http.StatusBadRequest
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr), errors.Is(err, pagination.ErrPaginationStuck):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
