package cursor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLegacyEncode(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
		want   string
	}{
		{"single marker", Cursor{Markers: []any{"m2"}}, "m2"},
		{"single marker with skip", Cursor{Markers: []any{"m1"}, Skip: 1, HasSkip: true}, "m1___1"},
		{"absent marker with skip", Cursor{Markers: []any{nil}, Skip: 1, HasSkip: true}, "None___1"},
		{"two markers", Cursor{Markers: []any{"m3", "m4"}}, "m3___m4"},
		{"two markers with skip", Cursor{Markers: []any{"m1", "m2"}, Skip: 1, HasSkip: true}, "m1___m2___1"},
		{"zero skip is kept", Cursor{Markers: []any{"m1"}, HasSkip: true}, "m1___0"},
		{"numeric marker", Cursor{Markers: []any{float64(40)}}, "40"},
		{"bool marker", Cursor{Markers: []any{true}}, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Legacy{}.Encode(tt.cursor)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLegacyDecode(t *testing.T) {
	tests := []struct {
		token string
		count int
		want  Cursor
	}{
		{"m2", 1, Cursor{Markers: []any{"m2"}}},
		{"m1___1", 1, Cursor{Markers: []any{"m1"}, Skip: 1, HasSkip: true}},
		{"None___1", 1, Cursor{Markers: []any{nil}, Skip: 1, HasSkip: true}},
		{"m3___m4", 2, Cursor{Markers: []any{"m3", "m4"}}},
		{"m1___None___12", 2, Cursor{Markers: []any{"m1", nil}, Skip: 12, HasSkip: true}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := Legacy{}.Decode(tt.token, tt.count)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decode(%q) mismatch (-want +got):\n%s", tt.token, diff)
			}
		})
	}
}

func TestLegacyDecodeErrors(t *testing.T) {
	tests := []struct {
		token string
		count int
	}{
		{"bad___notanint", 1},
		{"m1___-3", 1},
		{"a___b___c___d", 2},
		{"a___b___c", 1},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			_, err := Legacy{}.Decode(tt.token, tt.count)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrMalformedCursor), "got %v", err)
		})
	}
}

func TestLegacyRoundTrip(t *testing.T) {
	for _, c := range []Cursor{
		{Markers: []any{"a"}},
		{Markers: []any{"a", nil}, Skip: 3, HasSkip: true},
		{Markers: []any{nil, "b", "c"}},
	} {
		token, err := Legacy{}.Encode(c)
		require.NoError(t, err)
		decoded, err := Legacy{}.Decode(token, len(c.Markers))
		require.NoError(t, err)
		require.Equal(t, c, decoded)
	}
}

func TestOpaqueRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
	}{
		{"string marker", Cursor{Markers: []any{"m1"}}},
		{"skip", Cursor{Markers: []any{"m1", nil}, Skip: 4, HasSkip: true}},
		{"structured marker", Cursor{Markers: []any{map[string]any{"pk": "user#1", "sk": float64(7)}}}},
		{"zero skip", Cursor{Markers: []any{"x"}, HasSkip: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Opaque{}.Encode(tt.cursor)
			require.NoError(t, err)
			require.NotContains(t, token, "=")

			decoded, err := Opaque{}.Decode(token, len(tt.cursor.Markers))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.cursor, decoded); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpaqueDecodeErrors(t *testing.T) {
	valid, err := Opaque{}.Encode(Cursor{Markers: []any{"a"}})
	require.NoError(t, err)

	negative, err := Opaque{}.Encode(Cursor{Markers: []any{"a"}, Skip: -1, HasSkip: true})
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		count int
	}{
		{"not base64", "!!!", 1},
		{"not json", "bm90LWpzb24", 1},
		{"wrong marker count", valid, 2},
		{"negative skip", negative, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Opaque{}.Decode(tt.token, tt.count)
			require.ErrorIs(t, err, ErrMalformedCursor)
		})
	}
}

func TestDefaultIsLegacy(t *testing.T) {
	require.IsType(t, Legacy{}, Default)
}
