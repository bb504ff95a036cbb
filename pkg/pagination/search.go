package pagination

import (
	"context"
	"iter"

	"github.com/Sternrassler/api-paginator/pkg/pathexpr"
)

// Search evaluates expression against each remaining page in turn. List
// results are flattened into individual values, other values are yielded
// as-is, and pages without a match contribute nothing. A compile error is
// yielded before any page is fetched.
func (it *PageIterator) Search(ctx context.Context, expression string) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		compiled, err := pathexpr.Compile(expression)
		if err != nil {
			yield(nil, err)
			return
		}
		for page, err := range it.Pages(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}
			switch v := compiled.Search(page).(type) {
			case nil:
			case []any:
				for _, item := range v {
					if !yield(item, nil) {
						return
					}
				}
			default:
				if !yield(v, nil) {
					return
				}
			}
		}
	}
}
