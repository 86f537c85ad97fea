// internal/model/cursor.go
package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Cursor is a position in a paginated GraphQL connection.
//
// Commit-history cursors on GitHub have the shape "<head oid> <offset>", where offset is the
// number of commits below the head that come before the cursor. Such cursors are kept as
// Head/Remaining so a resumed page can size its request from Remaining. Any other cursor is
// carried verbatim in Opaque.
type Cursor struct {
	Opaque    string `json:"opaque,omitempty"`
	Head      string `json:"head,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
}

// HistoryCursor returns a cursor positioned remaining commits below head.
func HistoryCursor(head string, remaining int) Cursor {
	return Cursor{Head: head, Remaining: remaining}
}

// ParseCursor converts a server-issued cursor into a Cursor.
func ParseCursor(s string) Cursor {
	head, offset, ok := strings.Cut(s, " ")
	if !ok || head == "" || strings.Contains(offset, " ") {
		return Cursor{Opaque: s}
	}
	n, err := strconv.Atoi(offset)
	if err != nil || n < 0 {
		return Cursor{Opaque: s}
	}
	return Cursor{Head: head, Remaining: n}
}

// String renders the cursor in its wire form.
func (c Cursor) String() string {
	if c.Opaque != "" {
		return c.Opaque
	}
	return fmt.Sprintf("%s %d", c.Head, c.Remaining)
}

// IsZero reports whether the cursor points nowhere.
func (c Cursor) IsZero() bool {
	return c.Opaque == "" && c.Head == ""
}

// HasMore reports whether there may be commits before the cursor.
func (c Cursor) HasMore() bool {
	if c.Opaque != "" {
		return true
	}
	return c.Head != "" && c.Remaining > 0
}
