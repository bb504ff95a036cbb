package pathexpr

import (
	"errors"
	"fmt"
)

// ErrNotSettable is returned by Set for expressions that are not plain dotted paths.
var ErrNotSettable = errors.New("expression is not a settable dotted path")

// SyntaxError reports an expression that could not be compiled.
type SyntaxError struct {
	Expression string
	Offset     int
	Msg        string
}

func newSyntaxError(expr string, offset int, msg string) *SyntaxError {
	return &SyntaxError{Expression: expr, Offset: offset, Msg: msg}
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid expression %q at offset %d: %s", e.Expression, e.Offset, e.Msg)
}
