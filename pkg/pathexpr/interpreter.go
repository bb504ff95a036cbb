package pathexpr

import (
	"sort"
)

// eval walks the AST against value. It never fails: anything that does not
// resolve yields nil.
func eval(n *Node, value any) any {
	switch n.Kind {
	case KindIdentity:
		return value
	case KindField:
		obj, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		return obj[n.Name]
	case KindIndex:
		list, ok := value.([]any)
		if !ok {
			return nil
		}
		i := n.Index
		if i < 0 {
			i += len(list)
		}
		if i < 0 || i >= len(list) {
			return nil
		}
		return list[i]
	case KindSubexpression:
		left := eval(n.Children[0], value)
		if left == nil {
			return nil
		}
		return eval(n.Children[1], left)
	case KindFlatten:
		list, ok := eval(n.Children[0], value).([]any)
		if !ok {
			return nil
		}
		flat := make([]any, 0, len(list))
		for _, elem := range list {
			if inner, ok := elem.([]any); ok {
				flat = append(flat, inner...)
				continue
			}
			flat = append(flat, elem)
		}
		return flat
	case KindProjection:
		list, ok := eval(n.Children[0], value).([]any)
		if !ok {
			return nil
		}
		return project(n.Children[1], list)
	case KindValueProjection:
		obj, ok := eval(n.Children[0], value).(map[string]any)
		if !ok {
			return nil
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make([]any, 0, len(keys))
		for _, k := range keys {
			values = append(values, obj[k])
		}
		return project(n.Children[1], values)
	case KindOr:
		left := eval(n.Children[0], value)
		if !IsFalsy(left) {
			return left
		}
		return eval(n.Children[1], value)
	}
	return nil
}

func project(rhs *Node, elems []any) []any {
	out := make([]any, 0, len(elems))
	for _, elem := range elems {
		if v := eval(rhs, elem); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// IsFalsy reports whether v is false in the JMESPath sense: nil, false, or an
// empty string, list or object.
func IsFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}
