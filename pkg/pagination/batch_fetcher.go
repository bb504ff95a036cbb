package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// BatchConfig holds batch fetcher configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of paginations running at once.
	MaxConcurrency int
	// Timeout bounds each pagination run, all of its pages included.
	Timeout time.Duration
	// ProgressInterval logs progress every N completed jobs.
	ProgressInterval int
}

// DefaultBatchConfig returns a conservative batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency:   10,
		Timeout:          2 * time.Minute,
		ProgressInterval: 50,
	}
}

// Job is one independent pagination run.
type Job struct {
	ID        string
	Paginator *Paginator
	Params    map[string]any
	Options   Options
}

// JobResult is the outcome of one Job.
type JobResult struct {
	ID       string
	Result   map[string]any
	Pages    int
	Duration time.Duration
	Error    error
}

// BatchFetcher runs independent paginations concurrently. Jobs never share
// iterator state; the operation callers must be safe for concurrent use.
type BatchFetcher struct {
	config BatchConfig
}

// NewBatchFetcher creates a new batch fetcher.
func NewBatchFetcher(config BatchConfig) *BatchFetcher {
	defaults := DefaultBatchConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ProgressInterval <= 0 {
		config.ProgressInterval = defaults.ProgressInterval
	}
	return &BatchFetcher{config: config}
}

// FetchAll builds the full result of every job. Results of successful jobs
// are returned even when others fail; the returned error joins all failures.
// Every job needs a unique, non-empty ID; otherwise nothing runs and an
// ErrInvalidJob error is returned.
func (bf *BatchFetcher) FetchAll(ctx context.Context, jobs []Job) (map[string]*JobResult, error) {
	if err := validateJobs(jobs); err != nil {
		return nil, err
	}
	start := time.Now()

	log.Info().
		Int("jobs", len(jobs)).
		Int("max_concurrency", bf.config.MaxConcurrency).
		Msg("Starting batch pagination")

	results := make(map[string]*JobResult, len(jobs))
	var (
		mu         sync.Mutex
		failures   []error
		completed  int
		jobsFailed int
	)

	var g errgroup.Group
	g.SetLimit(bf.config.MaxConcurrency)
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := bf.run(ctx, job)

			mu.Lock()
			defer mu.Unlock()
			results[job.ID] = res
			completed++
			if res.Error != nil {
				jobsFailed++
				failures = append(failures, fmt.Errorf("job %s: %w", job.ID, res.Error))
				log.Warn().
					Err(res.Error).
					Str("job", job.ID).
					Int("pages", res.Pages).
					Msg("Pagination job failed")
			}
			if completed%bf.config.ProgressInterval == 0 {
				log.Info().
					Int("completed", completed).
					Int("total", len(jobs)).
					Float64("progress_pct", float64(completed)/float64(len(jobs))*100).
					Msg("Batch progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		failures = append(failures, err)
	}

	if len(failures) > 0 {
		log.Warn().
			Int("failed", jobsFailed).
			Int("succeeded", len(results)-jobsFailed).
			Int("not_started", len(jobs)-len(results)).
			Dur("duration", time.Since(start)).
			Msg("Batch pagination finished with errors - returning partial results")
		return results, errors.Join(failures...)
	}

	log.Info().
		Int("jobs", len(jobs)).
		Dur("duration", time.Since(start)).
		Msg("Batch pagination complete")

	return results, nil
}

func validateJobs(jobs []Job) error {
	seen := make(map[string]int, len(jobs))
	for i, job := range jobs {
		if job.ID == "" {
			return fmt.Errorf("%w: job %d has no id", ErrInvalidJob, i)
		}
		if first, dup := seen[job.ID]; dup {
			return fmt.Errorf("%w: jobs %d and %d share id %q", ErrInvalidJob, first, i, job.ID)
		}
		seen[job.ID] = i
	}
	return nil
}

func (bf *BatchFetcher) run(ctx context.Context, job Job) *JobResult {
	jobCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()

	start := time.Now()
	it := job.Paginator.Paginate(job.Params, job.Options)
	result, err := it.BuildFullResult(jobCtx)
	return &JobResult{
		ID:       job.ID,
		Result:   result,
		Pages:    it.pages,
		Duration: time.Since(start),
		Error:    err,
	}
}
