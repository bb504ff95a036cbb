// Package cursor encodes and decodes the resume tokens handed out by a
// paginator when it stops on a MaxItems budget.
//
// A token carries one marker per input token of the operation plus an
// optional skip offset into the first page of the resumed run.
package cursor

import (
	"errors"
	"fmt"
)

// Public facing errors
const (
	errEncodeError = "error encoding cursor: %w"
	errDecodeError = "error decoding cursor: %w"
)

// ErrMalformedCursor is the base error for tokens that cannot be decoded.
var ErrMalformedCursor = errors.New("malformed cursor")

// Cursor is the decoded form of a resume token.
type Cursor struct {
	// Markers holds one entry per input token; nil marks an absent marker.
	Markers []any
	// Skip is the number of primary result items to drop from the first page.
	Skip int
	// HasSkip is set when the token carried an explicit offset.
	HasSkip bool
}

// Codec converts cursors to and from their string form.
type Codec interface {
	Encode(c Cursor) (string, error)
	// Decode parses token, which must carry exactly markerCount markers.
	Decode(token string, markerCount int) (Cursor, error)
}

// Default is the codec used when none is configured.
var Default Codec = Legacy{}

func malformed(format string, args ...any) error {
	return fmt.Errorf(errDecodeError, fmt.Errorf("%w: "+format, append([]any{ErrMalformedCursor}, args...)...))
}
