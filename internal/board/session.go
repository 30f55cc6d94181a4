// Package board implements the per-board session actor.
//
// A Session owns the connected clients and cursor positions of one board.
// Every mutation arrives as an Event on the session's mailbox and is applied
// by a single goroutine (Run), so session state needs no locks. Results are
// broadcast to every attached connection through its Handle.
//
// When a periodic tick finds the session empty, the session reports itself on
// its eviction channel exactly once; the owner then retires it and fires its
// Canceller, which forces any remaining connections to close.
package board

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shared-board/backend/internal/model"
	"github.com/shared-board/backend/internal/wire"
)

// DefaultTickInterval is how often an idle session checks whether it is empty.
const DefaultTickInterval = 5 * time.Second

// Config holds settings for a session.
type Config struct {
	TickInterval time.Duration

	// Evictions receives the session when it first observes that it has no
	// clients. A nil channel disables eviction.
	Evictions chan<- *Session
}

// Session is the actor that owns one board's state.
type Session struct {
	id      model.BoardID
	mailbox *Mailbox
	cancel  *Canceller
	config  Config
	logger  zerolog.Logger

	nextClient atomic.Uint64
	retired    atomic.Bool
	done       chan struct{}

	// Owned by the Run goroutine.
	clients   map[model.ClientID]Handle
	positions map[model.ClientID]model.Position
	evicting  bool
}

// NewSession creates an empty session. Call Run to start processing events.
func NewSession(id model.BoardID, config Config) *Session {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	return &Session{
		id:        id,
		mailbox:   NewMailbox(),
		cancel:    NewCanceller(),
		config:    config,
		logger:    log.With().Str("board", string(id)).Logger(),
		done:      make(chan struct{}),
		clients:   make(map[model.ClientID]Handle),
		positions: make(map[model.ClientID]model.Position),
	}
}

// ID returns the board id.
func (s *Session) ID() model.BoardID {
	return s.id
}

// NewClientID mints an id that is unique for the lifetime of this session.
func (s *Session) NewClientID() model.ClientID {
	return model.ClientID(s.nextClient.Add(1))
}

// Submit queues an event for the session. It fails with model.ErrBoardNotFound
// once the session has been retired or stopped.
func (s *Session) Submit(ev Event) error {
	if s.retired.Load() {
		return fmt.Errorf("submit to board %s: %w", s.id, model.ErrBoardNotFound)
	}
	if !s.mailbox.Push(ev) {
		return fmt.Errorf("submit to board %s: %w", s.id, model.ErrBoardNotFound)
	}
	return nil
}

// Subscribe registers for the session's kill signal.
func (s *Session) Subscribe() (<-chan struct{}, func()) {
	return s.cancel.Subscribe()
}

// Canceller returns the session's kill signal.
func (s *Session) Canceller() *Canceller {
	return s.cancel
}

// Retire marks the session as no longer reachable. Later submits fail.
func (s *Session) Retire() {
	s.retired.Store(true)
}

// Retired reports whether the session has been retired.
func (s *Session) Retired() bool {
	return s.retired.Load()
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stats asks the session for a summary. It goes through the mailbox like any
// other event, so the answer reflects every event submitted before it.
func (s *Session) Stats(ctx context.Context) (Stats, error) {
	q := statsQuery{reply: make(chan Stats, 1)}
	if err := s.Submit(q); err != nil {
		return Stats{}, err
	}
	select {
	case st := <-q.reply:
		return st, nil
	case <-s.done:
		return Stats{}, fmt.Errorf("stats for board %s: %w", s.id, model.ErrBoardNotFound)
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Run processes events until ctx is cancelled.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.config.TickInterval)
	defer func() {
		ticker.Stop()
		s.mailbox.Close()
		close(s.done)
	}()

	s.logger.Info().Msg("board loaded")

	var batch []Event
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("board unloaded")
			return
		case <-s.mailbox.Ready():
			batch = s.mailbox.Drain(batch[:0])
			for i, ev := range batch {
				s.handle(ev)
				batch[i] = nil
			}
		case <-ticker.C:
			if !s.tick() {
				continue
			}
			select {
			case s.config.Evictions <- s:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Session) handle(ev Event) {
	switch e := ev.(type) {
	case Connect:
		s.onConnect(e)
	case Move:
		s.onMove(e)
	case Disconnect:
		s.onDisconnect(e)
	case statsQuery:
		e.reply <- Stats{ID: s.id, Clients: len(s.clients), Positions: len(s.positions)}
	}
}

func (s *Session) onConnect(e Connect) {
	entries := make([]wire.ClientEntry, 0, len(s.positions))
	for id, pos := range s.positions {
		entries = append(entries, wire.ClientEntry{ID: id, Position: pos})
	}
	if err := e.Handle.Send(wire.ClientList{Clients: entries}); err != nil {
		s.logger.Debug().Uint64("client", uint64(e.ID)).Err(err).Msg("snapshot not delivered")
	}

	s.clients[e.ID] = e.Handle
	s.logger.Info().Uint64("client", uint64(e.ID)).Int("clients", len(s.clients)).Msg("client connected")
	s.broadcast(wire.NewClient{ID: e.ID})
}

func (s *Session) onMove(e Move) {
	// Positions exist only for attached clients.
	if _, ok := s.clients[e.ID]; !ok {
		return
	}
	s.positions[e.ID] = model.Position{X: e.X, Y: e.Y}
	s.broadcast(wire.ClientMoved{ID: e.ID, X: e.X, Y: e.Y})
}

func (s *Session) onDisconnect(e Disconnect) {
	if _, ok := s.clients[e.ID]; !ok {
		return
	}
	delete(s.clients, e.ID)
	delete(s.positions, e.ID)
	s.logger.Info().Uint64("client", uint64(e.ID)).Int("clients", len(s.clients)).Msg("client disconnected")
	s.broadcast(wire.ClientDisconnected{ID: e.ID})
}

// tick reports whether the session has just become eligible for eviction.
func (s *Session) tick() bool {
	if s.evicting || len(s.clients) > 0 || s.config.Evictions == nil {
		return false
	}
	s.evicting = true
	s.logger.Info().Msg("board empty, requesting eviction")
	return true
}

func (s *Session) broadcast(msg wire.ToClient) {
	for id, h := range s.clients {
		if err := h.Send(msg); err != nil {
			s.logger.Debug().Uint64("client", uint64(id)).Err(err).Msg("broadcast not delivered")
		}
	}
}
