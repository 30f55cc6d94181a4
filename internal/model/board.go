// Package model holds the identifiers and errors shared across the board server.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// MaxNameLength bounds caller-supplied board names.
const MaxNameLength = 128

// BoardID identifies one board session. The server treats it as an opaque key.
type BoardID string

// NewBoardID returns a fresh opaque board id.
func NewBoardID() BoardID {
	return BoardID(uuid.New().String())
}

// ClientID identifies one connection within a board session.
type ClientID uint64

// Position is a cursor location on a board.
type Position struct {
	X float32 `json:"x" cbor:"x"`
	Y float32 `json:"y" cbor:"y"`
}

// ValidateName checks a caller-supplied board name.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > MaxNameLength || strings.ContainsAny(name, "/?#") {
		return ErrInvalidName
	}
	return nil
}
