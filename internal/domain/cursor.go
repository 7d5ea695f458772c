package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidCursor is returned for page tokens that were not produced by Encode.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor marks the last post of a feed page. The next page starts strictly
// after (CreatedAt, ID) in (created_at DESC, id DESC) order.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

type cursorWire struct {
	T string `json:"t"`
	I string `json:"i"`
}

// CursorAfter returns the cursor positioned at p.
func CursorAfter(p *Post) *Cursor {
	return &Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
}

// Encode returns the opaque, URL-safe page token for c.
func (c *Cursor) Encode() string {
	raw, _ := json.Marshal(cursorWire{
		T: c.CreatedAt.UTC().Format(time.RFC3339Nano),
		I: c.ID,
	})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a page token. An empty token yields a nil cursor,
// meaning the first page.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil || w.I == "" {
		return nil, ErrInvalidCursor
	}

	t, err := time.Parse(time.RFC3339Nano, w.T)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{CreatedAt: t.UTC(), ID: w.I}, nil
}
