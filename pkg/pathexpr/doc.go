// Package pathexpr evaluates a small JMESPath-compatible query language against
// decoded JSON documents (map[string]any, []any and scalars).
//
// The supported subset is what pagination descriptions and page searches use:
//
//	Foo.Bar              field access
//	Contents[-1].Key     list index, negative indices count from the end
//	Foo[].Bar            flatten projection
//	Foo[*].Bar           list projection
//	Foo.*                object value projection
//	NextToken || Marker  alternation: first operand that is present and non-null
//	"odd-name".value     quoted identifiers
//
// Missing keys, type mismatches and out-of-range indices evaluate to nil rather
// than failing. Expressions are compiled once into a tagged AST and cached
// process-wide, so Compile may be called freely on hot paths.
//
// Dotted expressions (fields only) are also settable:
//
//	expr := pathexpr.MustCompile("EngineDefaults.Parameters")
//	_ = expr.Set(doc, []any{"One"})
package pathexpr
