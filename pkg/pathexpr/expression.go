package pathexpr

import (
	"fmt"

	"github.com/Yiling-J/theine-go"
	"github.com/rs/zerolog/log"
)

// compiledCacheSize bounds the number of distinct expressions kept compiled.
const compiledCacheSize = 4096

var compiled *theine.Cache[string, *Expression]

func init() {
	c, err := theine.NewBuilder[string, *Expression](compiledCacheSize).Build()
	if err != nil {
		log.Warn().Err(err).Msg("Expression cache disabled")
		return
	}
	compiled = c
}

// Expression is a compiled, immutable path expression. It is safe for
// concurrent use.
type Expression struct {
	text string
	root *Node
	path []string
}

// Compile parses expr, returning a cached result when the same text was
// compiled before.
func Compile(expr string) (*Expression, error) {
	if compiled != nil {
		if e, ok := compiled.Get(expr); ok {
			return e, nil
		}
	}
	root, err := parse(expr)
	if err != nil {
		return nil, err
	}
	e := &Expression{text: expr, root: root}
	if path, ok := root.fieldPath(); ok {
		e.path = path
	}
	if compiled != nil {
		compiled.Set(expr, e, 1)
	}
	return e, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(expr string) *Expression {
	e, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return e
}

// Search compiles expr and evaluates it against doc.
func Search(expr string, doc any) (any, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return e.Search(doc), nil
}

// Search evaluates the expression against doc. Unresolvable paths yield nil.
func (e *Expression) Search(doc any) any {
	return eval(e.root, doc)
}

// String returns the source text.
func (e *Expression) String() string { return e.text }

// AST returns the root node. Callers must not modify it.
func (e *Expression) AST() *Node { return e.root }

// IsSettable reports whether the expression is a plain dotted path.
func (e *Expression) IsSettable() bool { return len(e.path) > 0 }

// Path returns the field names of a settable expression, or nil.
func (e *Expression) Path() []string {
	return append([]string(nil), e.path...)
}

// Set stores value at the expression's dotted path inside doc, creating
// intermediate objects as needed.
func (e *Expression) Set(doc map[string]any, value any) error {
	if !e.IsSettable() {
		return fmt.Errorf("%q: %w", e.text, ErrNotSettable)
	}
	current := doc
	for i, key := range e.path[:len(e.path)-1] {
		next, exists := current[key]
		if !exists || next == nil {
			child := make(map[string]any)
			current[key] = child
			current = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("%q: segment %d (%s) holds %T, not an object", e.text, i, key, next)
		}
		current = child
	}
	current[e.path[len(e.path)-1]] = value
	return nil
}
