package pagination

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"maps"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/api-paginator/pkg/cursor"
	"github.com/Sternrassler/api-paginator/pkg/pathexpr"
)

// State is the lifecycle state of a PageIterator.
type State int

const (
	// StateNotStarted means no call has been made yet.
	StateNotStarted State = iota
	// StateFetching means a call is in flight.
	StateFetching
	// StateEmitting means a page was returned and more may follow.
	StateEmitting
	// StateExhausted means the last page was returned.
	StateExhausted
	// StateStuck means the operation repeated its markers.
	StateStuck
	// StateFailed means the operation call or the options failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateFetching:
		return "fetching"
	case StateEmitting:
		return "emitting"
	case StateExhausted:
		return "exhausted"
	case StateStuck:
		return "stuck"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// PageIterator walks the pages of one pagination run. It owns all mutable
// state of the run and must not be used from more than one goroutine at a
// time; independent iterators may run concurrently.
type PageIterator struct {
	operation string
	call      OperationFunc
	config    *Config
	codec     cursor.Codec
	logger    zerolog.Logger

	params map[string]any
	opts   Options
	optErr error

	// pageSize is sent under the limit key, nil when unset.
	pageSize any

	state State
	err   error

	// markers are sent with the next call; previous holds the markers
	// extracted from the last response.
	markers  []any
	previous []any
	hasSkip  bool
	skip     int

	pages        int
	emitted      int
	resumeToken  string
	nonAggregate map[string]any
}

// State returns the current lifecycle state.
func (it *PageIterator) State() State { return it.state }

// Err returns the terminal error of a stuck or failed iterator.
func (it *PageIterator) Err() error { return it.err }

// HasMorePages reports whether NextPage may return another page.
func (it *PageIterator) HasMorePages() bool {
	return it.state == StateNotStarted || it.state == StateEmitting
}

// ResultKeys returns the configured result key expressions.
func (it *PageIterator) ResultKeys() []*pathexpr.Expression {
	return append([]*pathexpr.Expression(nil), it.config.ResultKey...)
}

// ResumeToken returns the token to continue from when the run stopped on its
// MaxItems budget with more data available, or "".
func (it *PageIterator) ResumeToken() string { return it.resumeToken }

// NonAggregatePart returns the non-aggregate key values taken from the first
// page, nested the way they appear in the response.
func (it *PageIterator) NonAggregatePart() map[string]any {
	return it.nonAggregate
}

// Pages returns a range iterator over the remaining pages. It stops after the
// first error.
func (it *PageIterator) Pages(ctx context.Context) iter.Seq2[map[string]any, error] {
	return func(yield func(map[string]any, error) bool) {
		for {
			page, err := it.NextPage(ctx)
			if errors.Is(err, ErrNoMorePages) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) {
				return
			}
		}
	}
}

// NextPage fetches and returns the next page. It returns ErrNoMorePages once
// the run is exhausted; a stuck or failed iterator keeps returning its error.
func (it *PageIterator) NextPage(ctx context.Context) (map[string]any, error) {
	switch it.state {
	case StateExhausted:
		return nil, ErrNoMorePages
	case StateStuck, StateFailed:
		return nil, it.err
	case StateNotStarted:
		if err := it.start(); err != nil {
			return nil, it.fail(err)
		}
	}

	it.state = StateFetching
	params := it.requestParams()

	start := time.Now()
	page, err := it.call(ctx, params)
	PageDuration.WithLabelValues(it.operation).Observe(time.Since(start).Seconds())
	if err != nil {
		it.logger.Debug().Err(err).Int("page", it.pages+1).Msg("Page fetch failed")
		return nil, it.fail(err)
	}
	if page == nil {
		page = make(map[string]any)
	}
	it.pages++
	PagesFetched.WithLabelValues(it.operation).Inc()

	skip := 0
	if it.pages == 1 {
		if it.hasSkip {
			skip = it.skip
			if err := it.trimResumedPage(page, skip); err != nil {
				return nil, it.fail(err)
			}
		}
		if err := it.recordNonAggregate(page); err != nil {
			return nil, it.fail(err)
		}
	}

	return it.advance(page, skip)
}

// advance applies budget, termination and loop detection to a fetched page.
func (it *PageIterator) advance(page map[string]any, skip int) (map[string]any, error) {
	primary := it.config.PrimaryResultKey()
	items := primary.Search(page)
	count := countItems(items)

	if it.opts.MaxItems > 0 && it.emitted+count > it.opts.MaxItems {
		keep := it.opts.MaxItems - it.emitted
		if err := primary.Set(page, truncateItems(items, keep)); err != nil {
			return nil, it.fail(err)
		}
		token, err := it.codec.Encode(cursor.Cursor{Markers: it.markers, Skip: keep + skip, HasSkip: true})
		if err != nil {
			return nil, it.fail(err)
		}
		it.resumeToken = token
		it.emit(keep)
		it.state = StateExhausted
		Truncations.WithLabelValues(it.operation).Inc()
		it.logger.Debug().
			Int("page", it.pages).
			Int("kept", keep).
			Int("available", count).
			Str("resume_token", token).
			Msg("Page truncated to MaxItems")
		return page, nil
	}
	it.emit(count)

	next := it.extractMarkers(page)
	it.logger.Debug().
		Int("page", it.pages).
		Int("items", count).
		Interface("markers", next).
		Msg("Page fetched")

	if allAbsent(next) {
		it.state = StateExhausted
		return page, nil
	}

	if it.previous != nil && allPresent(next) && reflect.DeepEqual(next, it.previous) {
		StuckPaginations.WithLabelValues(it.operation).Inc()
		it.logger.Warn().
			Int("page", it.pages).
			Interface("markers", next).
			Msg("Pagination stuck on repeated markers")
		it.state = StateStuck
		it.err = &StuckError{Operation: it.operation, Markers: next}
		return nil, it.err
	}

	if it.opts.MaxItems > 0 && it.emitted == it.opts.MaxItems {
		token, err := it.codec.Encode(cursor.Cursor{Markers: next})
		if err != nil {
			return nil, it.fail(err)
		}
		it.resumeToken = token
		it.state = StateExhausted
		it.logger.Debug().Int("page", it.pages).Str("resume_token", token).Msg("MaxItems reached on page boundary")
		return page, nil
	}

	it.previous = next
	it.markers = next
	it.state = StateEmitting
	return page, nil
}

func (it *PageIterator) emit(n int) {
	it.emitted += n
	ItemsEmitted.WithLabelValues(it.operation).Add(float64(n))
}

func (it *PageIterator) fail(err error) error {
	it.state = StateFailed
	it.err = err
	return err
}

// start validates options and decodes the starting token.
func (it *PageIterator) start() error {
	if it.optErr != nil {
		return it.optErr
	}
	if it.opts.MaxItems < 0 {
		return &InvalidOptionError{Option: "MaxItems", Value: it.opts.MaxItems}
	}
	if it.opts.PageSize < 0 {
		return &InvalidOptionError{Option: "PageSize", Value: it.opts.PageSize}
	}
	if it.opts.PageSize > 0 {
		it.pageSize = it.opts.PageSize
	}
	if it.pageSize != nil && it.config.LimitKey == "" {
		it.logger.Debug().Interface("page_size", it.pageSize).Msg("Operation has no limit key, ignoring PageSize")
	}

	it.markers = make([]any, len(it.config.InputToken))
	if it.opts.StartingToken == "" {
		return nil
	}
	c, err := it.codec.Decode(it.opts.StartingToken, len(it.config.InputToken))
	if err != nil {
		return &InvalidStartingTokenError{Token: it.opts.StartingToken, Err: err}
	}
	it.markers = c.Markers
	it.skip, it.hasSkip = c.Skip, c.HasSkip
	return nil
}

// requestParams builds a fresh parameter map for the next call.
func (it *PageIterator) requestParams() map[string]any {
	params := maps.Clone(it.params)
	for i, name := range it.config.InputToken {
		if isAbsentMarker(it.markers[i]) {
			continue
		}
		params[name] = it.markers[i]
	}
	if it.pageSize != nil && it.config.LimitKey != "" {
		params[it.config.LimitKey] = it.pageSize
	}
	return params
}

// trimResumedPage drops the items a previous run already delivered from the
// primary key and empties every secondary key.
func (it *PageIterator) trimResumedPage(page map[string]any, skip int) error {
	primary := it.config.PrimaryResultKey()
	var trimmed any
	switch v := primary.Search(page).(type) {
	case []any:
		trimmed = v[min(skip, len(v)):]
	case string:
		r := []rune(v)
		trimmed = string(r[min(skip, len(r)):])
	}
	if err := primary.Set(page, trimmed); err != nil {
		return err
	}
	for _, key := range it.config.ResultKey[1:] {
		if err := key.Set(page, emptyLike(key.Search(page))); err != nil {
			return err
		}
	}
	return nil
}

func (it *PageIterator) recordNonAggregate(page map[string]any) error {
	part := make(map[string]any)
	for _, key := range it.config.NonAggregateKeys {
		v := key.Search(page)
		if v == nil {
			continue
		}
		if err := key.Set(part, v); err != nil {
			return err
		}
	}
	it.nonAggregate = part
	return nil
}

// extractMarkers evaluates every output token against page. Empty strings
// count as absent, and a false more_results flag clears all markers.
func (it *PageIterator) extractMarkers(page map[string]any) []any {
	markers := make([]any, len(it.config.OutputToken))
	if more := it.config.MoreResults; more != nil {
		if v := more.Search(page); v != nil && pathexpr.IsFalsy(v) {
			return markers
		}
	}
	for i, expr := range it.config.OutputToken {
		v := expr.Search(page)
		if s, ok := v.(string); ok && s == "" {
			v = nil
		}
		markers[i] = v
	}
	return markers
}

func isAbsentMarker(m any) bool {
	if m == nil {
		return true
	}
	s, ok := m.(string)
	return ok && s == "None"
}

func allAbsent(markers []any) bool {
	for _, m := range markers {
		if m != nil {
			return false
		}
	}
	return true
}

func allPresent(markers []any) bool {
	for _, m := range markers {
		if m == nil {
			return false
		}
	}
	return true
}

// countItems is the number of primary result items a value contributes.
func countItems(v any) int {
	switch t := v.(type) {
	case []any:
		return len(t)
	case string:
		return len([]rune(t))
	default:
		return 0
	}
}

func truncateItems(v any, keep int) any {
	switch t := v.(type) {
	case []any:
		return t[:keep]
	case string:
		return string([]rune(t)[:keep])
	default:
		return v
	}
}

// emptyLike returns the empty value of v's type, or nil for unknown types.
func emptyLike(v any) any {
	switch v.(type) {
	case []any:
		return []any{}
	case string:
		return ""
	case map[string]any:
		return map[string]any{}
	case int:
		return 0
	case int64:
		return int64(0)
	case float64:
		return float64(0)
	case float32:
		return float32(0)
	default:
		if isNumber(v) {
			return 0
		}
		return nil
	}
}
