package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/api-paginator/pkg/logging"
	"github.com/Sternrassler/api-paginator/pkg/pagination"
)

// DefaultDebounce is the reload delay Watch uses when none is given.
const DefaultDebounce = 200 * time.Millisecond

// Registry holds the models of every service found in a directory.
// It is safe for concurrent use.
type Registry struct {
	dir    string
	logger zerolog.Logger

	mu     sync.RWMutex
	models map[string]*pagination.Model
}

// NewRegistry loads every model file in dir.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{
		dir:    dir,
		logger: logging.NewLogger("model").With().Str("dir", dir).Logger(),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the directory. On failure the previously loaded models stay
// in place.
func (r *Registry) Reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read model dir: %w", err)
	}

	models := make(map[string]*pagination.Model)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		service, ok := ServiceName(entry.Name())
		if !ok {
			continue
		}
		if _, dup := models[service]; dup {
			return fmt.Errorf("%w: service %s has more than one model file", pagination.ErrInvalidConfig, service)
		}
		m, err := Load(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return err
		}
		models[service] = m
	}

	r.mu.Lock()
	r.models = models
	r.mu.Unlock()

	r.logger.Info().Int("services", len(models)).Msg("Pagination models loaded")
	return nil
}

// Model returns the model of service.
func (r *Registry) Model(service string) (*pagination.Model, error) {
	r.mu.RLock()
	m, ok := r.models[service]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownService, service)
	}
	return m, nil
}

// Config returns the pagination config of operation in service. An unknown
// service matches both ErrUnknownService and pagination.ErrNotFound.
func (r *Registry) Config(service, operation string) (*pagination.Config, error) {
	m, err := r.Model(service)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, pagination.ErrNotFound)
	}
	return m.Config(operation)
}

// Services returns the loaded service names in sorted order.
func (r *Registry) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	services := make([]string, 0, len(r.models))
	for s := range r.models {
		services = append(services, s)
	}
	sort.Strings(services)
	return services
}

// Source returns a ConfigSource for one service. Lookups go through the
// registry each time, so reloads are picked up.
func (r *Registry) Source(service string) pagination.ConfigSource {
	return serviceSource{registry: r, service: service}
}

type serviceSource struct {
	registry *Registry
	service  string
}

func (s serviceSource) Config(operation string) (*pagination.Config, error) {
	return s.registry.Config(s.service, operation)
}

// Watch reloads the registry whenever a model file in the directory changes.
// It blocks until ctx is done. Events arriving within debounce of each other
// trigger a single reload.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	if err := w.Add(r.dir); err != nil {
		return fmt.Errorf("watch %s: %w", r.dir, err)
	}
	r.logger.Debug().Msg("Watching pagination models")

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if _, isModel := ServiceName(ev.Name); !isModel {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			r.logger.Debug().Str("file", ev.Name).Str("op", ev.Op.String()).Msg("Model file changed")
			timer.Reset(debounce)
		case <-timer.C:
			if err := r.Reload(); err != nil {
				r.logger.Warn().Err(err).Msg("Model reload failed - keeping previous models")
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn().Err(err).Msg("Model watcher error")
		}
	}
}
