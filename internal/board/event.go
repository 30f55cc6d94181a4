package board

import (
	"github.com/shared-board/backend/internal/model"
	"github.com/shared-board/backend/internal/wire"
)

// Handle delivers server events to one attached connection.
// Send must not block; a failed send means the peer is gone.
type Handle interface {
	Send(msg wire.ToClient) error
}

// Event is an input to a session. Connection actors submit Connect, Move and
// Disconnect; the session's own timer produces ticks.
type Event interface {
	event()
}

// Connect attaches a connection to the session.
type Connect struct {
	ID     model.ClientID
	Handle Handle
}

// Move records a client's cursor position.
type Move struct {
	ID model.ClientID
	X  float32
	Y  float32
}

// Disconnect detaches a connection. Repeats for the same id are ignored.
type Disconnect struct {
	ID model.ClientID
}

// Stats is a point-in-time summary of a session.
type Stats struct {
	ID        model.BoardID `json:"id"`
	Clients   int           `json:"clients"`
	Positions int           `json:"positions"`
}

type statsQuery struct {
	reply chan Stats
}

func (Connect) event()    {}
func (Move) event()       {}
func (Disconnect) event() {}
func (statsQuery) event() {}
