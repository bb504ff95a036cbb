package cursor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	legacySeparator = "___"
	legacyAbsent    = "None"
)

// Legacy is the plain-text token format: markers joined by "___", absent
// markers written as "None", and the skip offset as a trailing segment.
//
//	"m1___1"       one marker, skip 1
//	"None___1"     absent marker, skip 1
//	"m3___m4"      two markers, no skip
//
// Decoded markers are always strings.
type Legacy struct{}

func (Legacy) Encode(c Cursor) (string, error) {
	segments := make([]string, 0, len(c.Markers)+1)
	for _, m := range c.Markers {
		s, err := legacySegment(m)
		if err != nil {
			return "", fmt.Errorf(errEncodeError, err)
		}
		segments = append(segments, s)
	}
	if c.HasSkip {
		segments = append(segments, strconv.Itoa(c.Skip))
	}
	return strings.Join(segments, legacySeparator), nil
}

func legacySegment(m any) (string, error) {
	switch v := m.(type) {
	case nil:
		return legacyAbsent, nil
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func (Legacy) Decode(token string, markerCount int) (Cursor, error) {
	parts := strings.Split(token, legacySeparator)
	var c Cursor
	switch len(parts) {
	case markerCount:
	case markerCount + 1:
		last := parts[len(parts)-1]
		skip, err := strconv.Atoi(last)
		if err != nil || skip < 0 {
			return Cursor{}, malformed("%q: offset %q is not a non-negative integer", token, last)
		}
		c.Skip, c.HasSkip = skip, true
		parts = parts[:len(parts)-1]
	default:
		return Cursor{}, malformed("%q: expected %d markers, found %d segments", token, markerCount, len(parts))
	}
	c.Markers = make([]any, len(parts))
	for i, p := range parts {
		if p != legacyAbsent {
			c.Markers[i] = p
		}
	}
	return c, nil
}
