package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Opaque encodes cursors as base64url JSON. Unlike Legacy it keeps marker
// types intact, so structured markers (objects, numbers) survive a round trip.
type Opaque struct{}

type opaqueToken struct {
	Markers []any `json:"markers"`
	Skip    *int  `json:"skip,omitempty"`
}

func (Opaque) Encode(c Cursor) (string, error) {
	tok := opaqueToken{Markers: c.Markers}
	if tok.Markers == nil {
		tok.Markers = []any{}
	}
	if c.HasSkip {
		skip := c.Skip
		tok.Skip = &skip
	}
	b, err := json.Marshal(tok)
	if err != nil {
		return "", fmt.Errorf(errEncodeError, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (Opaque) Decode(token string, markerCount int) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, malformed("invalid base64: %v", err)
	}
	var tok opaqueToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Cursor{}, malformed("invalid payload: %v", err)
	}
	if len(tok.Markers) != markerCount {
		return Cursor{}, malformed("expected %d markers, found %d", markerCount, len(tok.Markers))
	}
	c := Cursor{Markers: tok.Markers}
	if tok.Skip != nil {
		if *tok.Skip < 0 {
			return Cursor{}, malformed("negative offset %d", *tok.Skip)
		}
		c.Skip, c.HasSkip = *tok.Skip, true
	}
	return c, nil
}
