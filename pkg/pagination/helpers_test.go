package pagination

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/goleak"
)

var errUnexpectedCall = errors.New("unexpected call")

// leakOptions ignores goroutines alive before the test and the compiled
// expression cache's maintenance loop, which lives for the whole process.
func leakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreCurrent(),
		goleak.IgnoreAnyFunction("github.com/Yiling-J/theine-go/internal.(*Store[...]).maintenance"),
		goleak.IgnoreAnyFunction("github.com/Yiling-J/theine-go/internal.(*Store[...]).maintenance.func1"),
	}
}

// fakeOperation replays canned responses and records the params of each call.
type fakeOperation struct {
	mu        sync.Mutex
	responses []map[string]any
	// repeat returns the last response for every call past the end.
	repeat bool
	err    error
	errAt  int
	calls  []map[string]any
}

func newFake(responses ...map[string]any) *fakeOperation {
	return &fakeOperation{responses: responses, errAt: -1}
}

func (f *fakeOperation) Call(_ context.Context, params map[string]any) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(f.calls)
	f.calls = append(f.calls, params)
	if f.err != nil && (f.errAt < 0 || f.errAt == n) {
		return nil, f.err
	}
	if n >= len(f.responses) {
		if !f.repeat || len(f.responses) == 0 {
			return nil, errUnexpectedCall
		}
		n = len(f.responses) - 1
	}
	return deepCopy(f.responses[n]).(map[string]any), nil
}

func (f *fakeOperation) Calls() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.calls...)
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

func list(items ...any) []any {
	if items == nil {
		return []any{}
	}
	return items
}

func markerConfig(resultKeys ...string) *Config {
	return MustConfig(Definition{
		InputToken:  StringList{"Marker"},
		OutputToken: StringList{"Marker"},
		ResultKey:   resultKeys,
	})
}

func newTestPaginator(op *fakeOperation, cfg *Config, opts ...Option) *Paginator {
	return NewPaginator("TestOperation", op.Call, cfg, opts...)
}

func collectPages(ctx context.Context, it *PageIterator) ([]map[string]any, error) {
	var pages []map[string]any
	for page, err := range it.Pages(ctx) {
		if err != nil {
			return pages, err
		}
		pages = append(pages, page)
	}
	return pages, nil
}
