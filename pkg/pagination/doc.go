// Package pagination turns repeated calls of a paginated operation into a
// single lazy, resumable, aggregable stream of pages.
//
// Each operation is described by data, not code: a Config names the request
// parameters markers are sent under, the response paths markers are read
// from, and the result keys holding the paged collections. One generic
// PageIterator handles every operation.
//
// Example usage:
//
//	cfg := pagination.MustConfig(pagination.Definition{
//		InputToken:  pagination.StringList{"Marker"},
//		OutputToken: pagination.StringList{"NextMarker"},
//		ResultKey:   pagination.StringList{"Users"},
//		LimitKey:    "MaxItems",
//	})
//	p := pagination.NewPaginator("ListUsers", call, cfg)
//	it := p.Paginate(params, pagination.Options{MaxItems: 100})
//	for page, err := range it.Pages(ctx) {
//		...
//	}
//
// The iterator:
//   - Sends the current markers under the input token names
//   - Stops when no marker is returned or a more_results flag is false
//   - Truncates the last page to MaxItems and records a resume token
//   - Fails with ErrPaginationStuck when markers stop advancing
//
// BuildFullResult, ResultKeyIters and Search are read models over the same
// iterator. BatchFetcher runs independent paginations concurrently.
package pagination
