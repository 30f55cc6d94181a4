package board

import (
	"sync"

	"github.com/eapache/queue"
)

// Mailbox is the session's inbound event queue. Any number of goroutines may
// Push; a single consumer drains it. Pushes never block on the consumer and
// events leave in the order they were pushed.
type Mailbox struct {
	mu     sync.Mutex
	events *queue.Queue
	ready  chan struct{}
	closed bool
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		events: queue.New(),
		ready:  make(chan struct{}, 1),
	}
}

// Push enqueues an event. It reports false once the mailbox is closed.
func (m *Mailbox) Push(ev Event) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.events.Add(ev)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready fires when events may be waiting.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Drain appends every queued event to buf and returns it.
func (m *Mailbox) Drain(buf []Event) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.events.Length() > 0 {
		buf = append(buf, m.events.Remove().(Event))
	}
	return buf
}

// Len returns the number of queued events.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.events.Length()
}

// Close rejects further pushes and discards anything still queued.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for m.events.Length() > 0 {
		m.events.Remove()
	}
}
