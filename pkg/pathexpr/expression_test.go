package pathexpr

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func testDocument() map[string]any {
	return map[string]any{
		"Foo": []any{
			map[string]any{"a": 1, "b": 2},
			map[string]any{"a": 3, "b": 4},
			map[string]any{"a": 5},
		},
		"NextMarker": "",
		"ListBucketResult": map[string]any{
			"Contents": []any{
				map[string]any{"Key": "first"},
				map[string]any{"Key": "last"},
			},
		},
		"Nested": []any{[]any{1, 2}, []any{3}, 4},
		"odd-name": map[string]any{"value": "quoted"},
		"Truncated": false,
	}
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want any
	}{
		{"field", "NextMarker", ""},
		{"missing field", "Missing", nil},
		{"nested field", "ListBucketResult.Contents", testDocument()["ListBucketResult"].(map[string]any)["Contents"]},
		{"index", "Foo[0].a", 1},
		{"negative index", "ListBucketResult.Contents[-1].Key", "last"},
		{"index out of range", "Foo[10]", nil},
		{"negative index out of range", "Foo[-10]", nil},
		{"index on object", "ListBucketResult[0]", nil},
		{"field on list", "Foo.a", nil},
		{"flatten projection", "Foo[].a", []any{1, 3, 5}},
		{"flatten drops missing", "Foo[].b", []any{2, 4}},
		{"flatten all missing", "Foo[].qux", []any{}},
		{"list projection", "Foo[*].b", []any{2, 4}},
		{"flatten nested lists", "Nested[]", []any{1, 2, 3, 4}},
		{"value projection", "Foo[0].*", []any{1, 2}},
		{"flatten value projection", "Foo[].*[]", []any{1, 2, 3, 4, 5}},
		{"alternation falls through empty string", "NextMarker || ListBucketResult.Contents[-1].Key", "last"},
		{"alternation first present", "Foo[0].a || Missing", 1},
		{"alternation falls through false", "Truncated || Foo[1].b", 4},
		{"alternation both missing", "Missing || Other", nil},
		{"quoted identifier", `"odd-name".value`, "quoted"},
		{"projection on scalar", "Truncated[*]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(tt.expr, testDocument())
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search(%q) mismatch (-want +got):\n%s", tt.expr, diff)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		expr   string
		offset int
	}{
		{"", 0},
		{"Foo.", 4},
		{"Foo[", 4},
		{"Foo[abc]", 4},
		{"Foo[1", 5},
		{"Foo | Bar", 4},
		{"Foo || ", 7},
		{`"unterminated`, 0},
		{"Foo$", 3},
		{"Foo Bar", 4},
		{"Foo[-]", 4},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Compile(tt.expr)
			require.Error(t, err)

			var syntaxErr *SyntaxError
			require.ErrorAs(t, err, &syntaxErr)
			require.Equal(t, tt.expr, syntaxErr.Expression)
			require.Equal(t, tt.offset, syntaxErr.Offset)
		})
	}
}

func TestMustCompilePanics(t *testing.T) {
	require.Panics(t, func() { MustCompile("Foo[") })
	require.NotPanics(t, func() { MustCompile("Foo") })
}

func TestCompileIsCached(t *testing.T) {
	first, err := Compile("Cached.Path[0]")
	require.NoError(t, err)
	second, err := Compile("Cached.Path[0]")
	require.NoError(t, err)
	require.Equal(t, first.String(), second.String())
	require.Equal(t, first.AST().String(), second.AST().String())
}

func TestAST(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"Foo", `Field("Foo")`},
		{"Foo.Bar", `Subexpression(Field("Foo"), Field("Bar"))`},
		{"Foo[0]", `Subexpression(Field("Foo"), Index(0))`},
		{"Foo[].Bar", `Projection(Flatten(Field("Foo")), Field("Bar"))`},
		{"Foo[*]", `Projection(Field("Foo"), Identity)`},
		{"Foo.*", `ValueProjection(Field("Foo"), Identity)`},
		{"A || B.C", `Or(Field("A"), Subexpression(Field("B"), Field("C")))`},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			require.Equal(t, tt.want, MustCompile(tt.expr).AST().String())
		})
	}
}

func TestIsSettable(t *testing.T) {
	tests := []struct {
		expr string
		path []string
	}{
		{"Foo", []string{"Foo"}},
		{"EngineDefaults.Parameters", []string{"EngineDefaults", "Parameters"}},
		{"a.b.c.d", []string{"a", "b", "c", "d"}},
		{`"odd-name".value`, []string{"odd-name", "value"}},
		{"Foo[0]", nil},
		{"Foo[]", nil},
		{"Foo.*", nil},
		{"A || B", nil},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			e := MustCompile(tt.expr)
			require.Equal(t, tt.path != nil, e.IsSettable())
			if tt.path != nil {
				require.Equal(t, tt.path, e.Path())
			}
		})
	}
}

func TestSet(t *testing.T) {
	t.Run("top level", func(t *testing.T) {
		doc := map[string]any{"Users": []any{"a", "b"}}
		require.NoError(t, MustCompile("Users").Set(doc, []any{"b"}))
		require.Equal(t, map[string]any{"Users": []any{"b"}}, doc)
	})

	t.Run("creates intermediate objects", func(t *testing.T) {
		doc := map[string]any{}
		require.NoError(t, MustCompile("Result.Inner").Set(doc, "v1"))
		require.Equal(t, map[string]any{"Result": map[string]any{"Inner": "v1"}}, doc)
	})

	t.Run("keeps siblings", func(t *testing.T) {
		doc := map[string]any{"Result": map[string]any{"Other": 1}}
		require.NoError(t, MustCompile("Result.Inner").Set(doc, "v1"))
		require.Equal(t, map[string]any{"Result": map[string]any{"Other": 1, "Inner": "v1"}}, doc)
	})

	t.Run("replaces nil intermediate", func(t *testing.T) {
		doc := map[string]any{"Result": nil}
		require.NoError(t, MustCompile("Result.Inner").Set(doc, 2))
		require.Equal(t, map[string]any{"Result": map[string]any{"Inner": 2}}, doc)
	})

	t.Run("intermediate is not an object", func(t *testing.T) {
		doc := map[string]any{"Result": "scalar"}
		require.Error(t, MustCompile("Result.Inner").Set(doc, 2))
	})

	t.Run("not settable", func(t *testing.T) {
		for _, expr := range []string{"Foo[0]", "Foo[].a", "Foo.*", "A || B"} {
			err := MustCompile(expr).Set(map[string]any{}, 1)
			require.True(t, errors.Is(err, ErrNotSettable), "expected ErrNotSettable for %q, got %v", expr, err)
		}
	})
}

func TestIsFalsy(t *testing.T) {
	for _, v := range []any{nil, false, "", []any{}, map[string]any{}} {
		require.True(t, IsFalsy(v), "%#v", v)
	}
	for _, v := range []any{true, "x", 0, 1.5, []any{nil}, map[string]any{"a": nil}} {
		require.False(t, IsFalsy(v), "%#v", v)
	}
}
