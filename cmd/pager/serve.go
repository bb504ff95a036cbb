package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/api-paginator/pkg/metrics"
	"github.com/Sternrassler/api-paginator/pkg/pagination"
)

// Query parameters of /paginate that control the run instead of being
// passed to the operation.
const (
	queryMaxItems      = "max_items"
	queryPageSize      = "page_size"
	queryStartingToken = "starting_token"
	queryExpression    = "query"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pagination results over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root.v)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.close()

			if watch {
				go func() {
					if err := a.registry.Watch(ctx, 0); err != nil {
						a.logger.Error().Err(err).Msg("Model watcher stopped")
					}
				}()
			}
			return a.serve(ctx)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload model files when they change")
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		return root.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	}
	return cmd
}

// serve runs the HTTP server until ctx is done.
func (a *app) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", server.Addr).Msg("Starting pager server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down pager server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", a.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /services", a.servicesHandler)
	mux.HandleFunc("GET /paginate/{service}/{operation}", a.paginateHandler)
	mux.HandleFunc("POST /batch", a.batchHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (a *app) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.redis != nil {
		if err := a.redis.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "READY")
}

type operationInfo struct {
	Name     string `json:"name"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	Pageable bool   `json:"pageable"`
}

func (a *app) servicesHandler(w http.ResponseWriter, _ *http.Request) {
	out := make(map[string][]operationInfo, len(a.clients))
	for name, c := range a.clients {
		ops := []operationInfo{}
		for _, op := range c.Operations() {
			ops = append(ops, operationInfo{
				Name:     op.Name,
				Method:   methodOf(op.Method),
				Path:     op.Path,
				Pageable: c.CanPaginate(op.Name),
			})
		}
		out[name] = ops
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *app) paginateHandler(w http.ResponseWriter, r *http.Request) {
	req := paginationRequest{
		Service:   r.PathValue("service"),
		Operation: r.PathValue("operation"),
		Params:    map[string]any{},
	}

	query := r.URL.Query()
	for key, values := range query {
		switch key {
		case queryMaxItems, queryPageSize:
			n, err := cast.ToIntE(values[0])
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("%s: %w", key, err))
				return
			}
			if key == queryMaxItems {
				req.Options.MaxItems = n
			} else {
				req.Options.PageSize = n
			}
		case queryStartingToken:
			req.Options.StartingToken = values[0]
		case queryExpression:
			req.Query = values[0]
		default:
			if len(values) == 1 {
				req.Params[key] = values[0]
			} else {
				list := make([]any, len(values))
				for i, v := range values {
					list[i] = v
				}
				req.Params[key] = list
			}
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.cfg.Server.RequestTimeout)
	defer cancel()

	out, err := a.run(ctx, req)
	if err != nil {
		a.logger.Warn().Err(err).
			Str("service", req.Service).
			Str("operation", req.Operation).
			Msg("Pagination failed")
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// batchJob is one entry of a /batch request.
type batchJob struct {
	ID            string         `json:"id"`
	Service       string         `json:"service"`
	Operation     string         `json:"operation"`
	Params        map[string]any `json:"params"`
	MaxItems      int            `json:"max_items"`
	PageSize      int            `json:"page_size"`
	StartingToken string         `json:"starting_token"`
}

type batchResult struct {
	Result     map[string]any `json:"result,omitempty"`
	Pages      int            `json:"pages"`
	DurationMS int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

func (a *app) batchHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Jobs []batchJob `json:"jobs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode batch: %w", err))
		return
	}

	jobs := make([]pagination.Job, 0, len(body.Jobs))
	seen := make(map[string]bool, len(body.Jobs))
	for i, j := range body.Jobs {
		if j.ID == "" {
			j.ID = fmt.Sprintf("%d", i)
		}
		if seen[j.ID] {
			writeError(w, http.StatusBadRequest, fmt.Errorf("duplicate job id %q", j.ID))
			return
		}
		seen[j.ID] = true

		p, err := a.paginator(paginationRequest{Service: j.Service, Operation: j.Operation})
		if err != nil {
			writeError(w, statusFor(err), fmt.Errorf("job %s: %w", j.ID, err))
			return
		}
		jobs = append(jobs, pagination.Job{
			ID:        j.ID,
			Paginator: p,
			Params:    j.Params,
			Options: pagination.Options{
				MaxItems:      j.MaxItems,
				PageSize:      j.PageSize,
				StartingToken: j.StartingToken,
			},
		})
	}

	fetcher := pagination.NewBatchFetcher(pagination.BatchConfig{
		MaxConcurrency: a.cfg.Server.MaxConcurrency,
		Timeout:        a.cfg.Server.RequestTimeout,
	})
	results, err := fetcher.FetchAll(r.Context(), jobs)
	if err != nil && len(results) == 0 {
		writeError(w, statusFor(err), err)
		return
	}

	out := make(map[string]batchResult, len(results))
	for id, res := range results {
		br := batchResult{
			Result:     res.Result,
			Pages:      res.Pages,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Error != nil {
			br.Error = res.Error.Error()
		}
		out[id] = br
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
