package ws

import (
	"sync"

	"github.com/shared-board/backend/internal/model"
	"github.com/shared-board/backend/internal/wire"
)

// DefaultOutboxSize is the number of server events a connection may have queued.
const DefaultOutboxSize = 256

// Outbox is a connection's bounded queue of outbound events. It is the Handle a
// session uses to reach the connection. When the queue is full the outbox
// closes itself and the connection shuts down.
type Outbox struct {
	mu         sync.Mutex
	ch         chan wire.ToClient
	closed     bool
	overflowed bool
}

// NewOutbox creates an outbox holding up to size events.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return &Outbox{ch: make(chan wire.ToClient, size)}
}

// Send queues an event without blocking.
func (o *Outbox) Send(msg wire.ToClient) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return model.ErrClientGone
	}

	select {
	case o.ch <- msg:
		return nil
	default:
		o.overflowed = true
		o.closeLocked()
		return model.ErrOutboxFull
	}
}

// Close stops the outbox. Queued events remain readable.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *Outbox) closeLocked() {
	if o.closed {
		return
	}
	o.closed = true
	close(o.ch)
}

// C returns the channel the connection drains.
func (o *Outbox) C() <-chan wire.ToClient {
	return o.ch
}

// Overflowed reports whether the outbox was closed because it filled up.
func (o *Outbox) Overflowed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.overflowed
}
