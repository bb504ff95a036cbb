package pagination

import (
	"errors"
	"fmt"
)

// Common errors returned by the pagination engine.
var (
	// ErrNotPageable is returned when an operation has no usable pagination config.
	ErrNotPageable = errors.New("operation cannot be paginated")

	// ErrNotFound is returned when a model has no entry at all for an operation.
	ErrNotFound = fmt.Errorf("no pagination entry: %w", ErrNotPageable)

	// ErrInvalidConfig is returned when a pagination definition fails validation.
	ErrInvalidConfig = errors.New("invalid pagination config")

	// ErrPaginationStuck is returned when an operation returns the same markers twice in a row.
	ErrPaginationStuck = errors.New("pagination stuck")

	// ErrInvalidStartingToken is returned when a starting token cannot be decoded.
	ErrInvalidStartingToken = errors.New("invalid starting token")

	// ErrInvalidOption is returned for unusable MaxItems/PageSize values.
	ErrInvalidOption = errors.New("invalid pagination option")

	// ErrNoMorePages is returned by NextPage once the iterator is exhausted.
	ErrNoMorePages = errors.New("no more pages")

	// ErrInvalidJob is returned by FetchAll for batches with missing or repeated job IDs.
	ErrInvalidJob = errors.New("invalid batch job")
)

// NotPageableError is returned when a paginator is requested for an operation
// that cannot be paginated.
type NotPageableError struct {
	Operation string
	Err       error
}

// Error implements the error interface.
func (e *NotPageableError) Error() string {
	return fmt.Sprintf("operation %q cannot be paginated", e.Operation)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NotPageableError) Unwrap() error {
	return e.Err
}

// Is matches ErrNotPageable regardless of the wrapped cause.
func (e *NotPageableError) Is(target error) bool {
	return target == ErrNotPageable
}

// StuckError reports markers that did not advance between two pages.
type StuckError struct {
	Operation string
	Markers   []any
}

// Error implements the error interface.
func (e *StuckError) Error() string {
	return fmt.Sprintf("pagination stuck for %s: the same next token was received twice: %v", e.Operation, e.Markers)
}

// Is matches ErrPaginationStuck.
func (e *StuckError) Is(target error) bool {
	return target == ErrPaginationStuck
}

// InvalidStartingTokenError wraps a cursor decode failure.
type InvalidStartingTokenError struct {
	Token string
	Err   error
}

// Error implements the error interface.
func (e *InvalidStartingTokenError) Error() string {
	return fmt.Sprintf("bad starting token %q: %v", e.Token, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvalidStartingTokenError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidStartingToken.
func (e *InvalidStartingTokenError) Is(target error) bool {
	return target == ErrInvalidStartingToken
}

// InvalidOptionError reports a MaxItems or PageSize value that cannot be used.
type InvalidOptionError struct {
	Option string
	Value  any
	Err    error
}

// Error implements the error interface.
func (e *InvalidOptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %v: %v", e.Option, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %v", e.Option, e.Value)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *InvalidOptionError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidOption.
func (e *InvalidOptionError) Is(target error) bool {
	return target == ErrInvalidOption
}
