package model

import "errors"

var (
	// ErrBoardNotFound is returned when no live session exists for a board id.
	ErrBoardNotFound = errors.New("board not found")

	// ErrNameRequired is returned when a board name is missing.
	ErrNameRequired = errors.New("board name is required")

	// ErrInvalidName is returned when a board name is too long or contains a slash.
	ErrInvalidName = errors.New("invalid board name")

	// ErrClientGone is returned when sending to a connection that has already closed.
	ErrClientGone = errors.New("client gone")

	// ErrOutboxFull is returned when a connection's outbound queue overflows.
	// The connection is closed as a result.
	ErrOutboxFull = errors.New("client outbox full")
)
