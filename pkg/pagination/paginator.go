package pagination

import (
	"context"
	"maps"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"

	"github.com/Sternrassler/api-paginator/pkg/cursor"
	"github.com/Sternrassler/api-paginator/pkg/logging"
	"github.com/Sternrassler/api-paginator/pkg/pathexpr"
)

// ControlKey is the request parameter holding pagination options. It is
// stripped before the operation is called.
const ControlKey = "PaginationConfig"

// OperationFunc performs one call of a paginated operation. Errors are
// returned to the caller of the iterator unchanged.
type OperationFunc func(ctx context.Context, params map[string]any) (map[string]any, error)

// Options controls one pagination run. Zero values mean "not set": a
// MaxItems of 0 is unlimited.
type Options struct {
	MaxItems      int
	PageSize      int
	StartingToken string
}

// Option configures a Paginator.
type Option func(*Paginator)

// WithCodec replaces the cursor codec used for starting and resume tokens.
func WithCodec(codec cursor.Codec) Option {
	return func(p *Paginator) {
		p.codec = codec
	}
}

// WithLogger replaces the paginator's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Paginator) {
		p.logger = logger
	}
}

// Paginator binds an operation caller to its pagination config.
type Paginator struct {
	operation string
	call      OperationFunc
	config    *Config
	codec     cursor.Codec
	logger    zerolog.Logger
}

// NewPaginator creates a paginator for operation.
func NewPaginator(operation string, call OperationFunc, config *Config, opts ...Option) *Paginator {
	p := &Paginator{
		operation: operation,
		call:      call,
		config:    config,
		codec:     cursor.Default,
		logger:    logging.NewLogger("pagination"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With().Str("operation", operation).Logger()
	return p
}

// Operation returns the operation name.
func (p *Paginator) Operation() string { return p.operation }

// Config returns the pagination config.
func (p *Paginator) Config() *Config { return p.config }

// ResultKeys returns the configured result key expressions.
func (p *Paginator) ResultKeys() []*pathexpr.Expression {
	return append([]*pathexpr.Expression(nil), p.config.ResultKey...)
}

// Paginate returns a lazy iterator over the pages of the operation. No call
// is made until the first advance; invalid options and starting tokens are
// reported there too.
//
// A ControlKey entry in params ({"MaxItems": "10", "PageSize": 5,
// "StartingToken": "..."}) is removed and fills any zero field of opts.
// MaxItems is coerced to an integer; PageSize is forwarded as given.
func (p *Paginator) Paginate(params map[string]any, opts Options) *PageIterator {
	base := maps.Clone(params)
	if base == nil {
		base = make(map[string]any)
	}
	control, hasControl := base[ControlKey]
	delete(base, ControlKey)

	it := &PageIterator{
		operation: p.operation,
		call:      p.call,
		config:    p.config,
		codec:     p.codec,
		logger:    p.logger,
		params:    base,
		opts:      opts,
	}
	if hasControl {
		it.pageSize, it.optErr = mergeControl(&it.opts, control)
	}
	return it
}

// mergeControl fills the zero fields of opts from a ControlKey entry. A
// PageSize found there is returned as given, to be sent unchanged under the
// limit key.
func mergeControl(opts *Options, control any) (any, error) {
	values, err := cast.ToStringMapE(control)
	if err != nil {
		return nil, &InvalidOptionError{Option: ControlKey, Value: control, Err: err}
	}
	if v, ok := values["MaxItems"]; ok && opts.MaxItems == 0 {
		n, err := cast.ToIntE(v)
		if err != nil {
			return nil, &InvalidOptionError{Option: "MaxItems", Value: v, Err: err}
		}
		opts.MaxItems = n
	}
	if v, ok := values["StartingToken"]; ok && opts.StartingToken == "" && v != nil {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, &InvalidOptionError{Option: "StartingToken", Value: v, Err: err}
		}
		opts.StartingToken = s
	}

	pageSize, ok := values["PageSize"]
	if !ok || pageSize == nil || opts.PageSize != 0 {
		return nil, nil
	}
	if n, err := cast.ToIntE(pageSize); err == nil && n == 0 {
		return nil, nil
	}
	return pageSize, nil
}
