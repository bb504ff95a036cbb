package pathexpr

import (
	"fmt"
	"strings"
)

// Kind tags an AST node.
type Kind int

const (
	// KindIdentity evaluates to the current value.
	KindIdentity Kind = iota
	// KindField looks up Name in an object.
	KindField
	// KindIndex selects Index from a list.
	KindIndex
	// KindSubexpression evaluates Children[1] against the result of Children[0].
	KindSubexpression
	// KindFlatten flattens one level of nested lists.
	KindFlatten
	// KindProjection applies Children[1] to every element of the list produced by Children[0].
	KindProjection
	// KindValueProjection applies Children[1] to every value of the object produced by Children[0].
	KindValueProjection
	// KindOr returns the first of Children[0], Children[1] that is non-null.
	KindOr
)

var kindNames = [...]string{
	KindIdentity:        "Identity",
	KindField:           "Field",
	KindIndex:           "Index",
	KindSubexpression:   "Subexpression",
	KindFlatten:         "Flatten",
	KindProjection:      "Projection",
	KindValueProjection: "ValueProjection",
	KindOr:              "Or",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Node is one node of a compiled expression.
type Node struct {
	Kind     Kind
	Name     string
	Index    int
	Children []*Node
}

func identity() *Node { return &Node{Kind: KindIdentity} }

func field(name string) *Node { return &Node{Kind: KindField, Name: name} }

func binary(kind Kind, left, right *Node) *Node {
	return &Node{Kind: kind, Children: []*Node{left, right}}
}

// String renders the node as an s-expression, mostly for tests and debugging.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	b.WriteString(n.Kind.String())
	switch n.Kind {
	case KindField:
		fmt.Fprintf(b, "(%q)", n.Name)
		return
	case KindIndex:
		fmt.Fprintf(b, "(%d)", n.Index)
		return
	case KindIdentity:
		return
	}
	b.WriteByte('(')
	for i, child := range n.Children {
		if i > 0 {
			b.WriteString(", ")
		}
		child.write(b)
	}
	b.WriteByte(')')
}

// fieldPath returns the field names of a pure dotted path, or false when the
// node contains anything other than field access.
func (n *Node) fieldPath() ([]string, bool) {
	switch n.Kind {
	case KindField:
		return []string{n.Name}, true
	case KindSubexpression:
		var path []string
		for _, child := range n.Children {
			sub, ok := child.fieldPath()
			if !ok {
				return nil, false
			}
			path = append(path, sub...)
		}
		return path, true
	default:
		return nil, false
	}
}
