package pagination

import (
	"context"
	"errors"
	"iter"

	"github.com/Sternrassler/api-paginator/pkg/pathexpr"
)

// keyFeed fans the pages of one iterator out to per-key queues, so every
// page is fetched once no matter how many streams read it.
type keyFeed struct {
	it     *PageIterator
	queues [][]any
	done   bool
	err    error
}

func (f *keyFeed) pull(ctx context.Context) bool {
	if f.done {
		return false
	}
	page, err := f.it.NextPage(ctx)
	if err != nil {
		f.done = true
		if !errors.Is(err, ErrNoMorePages) {
			f.err = err
		}
		return false
	}
	for i, key := range f.it.config.ResultKey {
		f.queues[i] = append(f.queues[i], itemsOf(key.Search(page))...)
	}
	return true
}

// itemsOf flattens a result key value into stream items. Any value that is
// not a list, a string or an object included, is one item.
func itemsOf(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// ResultKeyIterator streams the items of one result key across all pages.
type ResultKeyIterator struct {
	feed  *keyFeed
	index int
	key   *pathexpr.Expression
}

// ResultKeyIters returns one stream per result key. The streams share the
// iterator: reading from any of them fetches the next page for all of them.
// Each call returns fresh streams that continue from the iterator's current
// position.
//
// List values are flattened into their elements. A value of any other type
// is yielded whole as a single item per page: a string is not split into
// characters and an object is not split into its keys.
func (it *PageIterator) ResultKeyIters() []*ResultKeyIterator {
	feed := &keyFeed{it: it, queues: make([][]any, len(it.config.ResultKey))}
	iters := make([]*ResultKeyIterator, len(it.config.ResultKey))
	for i, key := range it.config.ResultKey {
		iters[i] = &ResultKeyIterator{feed: feed, index: i, key: key}
	}
	return iters
}

// Key returns the result key this stream reads.
func (r *ResultKeyIterator) Key() *pathexpr.Expression { return r.key }

// Next returns the next item. ok is false once the pages are exhausted or an
// error occurred.
func (r *ResultKeyIterator) Next(ctx context.Context) (item any, ok bool, err error) {
	for len(r.feed.queues[r.index]) == 0 {
		if !r.feed.pull(ctx) {
			return nil, false, r.feed.err
		}
	}
	item = r.feed.queues[r.index][0]
	r.feed.queues[r.index] = r.feed.queues[r.index][1:]
	return item, true, nil
}

// All returns a range iterator over the remaining items.
func (r *ResultKeyIterator) All(ctx context.Context) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			item, ok, err := r.Next(ctx)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok || !yield(item, nil) {
				return
			}
		}
	}
}
