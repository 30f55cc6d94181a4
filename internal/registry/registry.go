// Package registry maps board ids to live sessions and tears sessions down
// once they empty out.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shared-board/backend/internal/board"
	"github.com/shared-board/backend/internal/model"
)

// DefaultDeregisterTimeout bounds each call to the naming layer during teardown.
const DefaultDeregisterTimeout = 5 * time.Second

// maxTeardowns caps how many teardowns may wait on the naming layer at once.
const maxTeardowns = 64

// Deregisterer releases a board id in the external naming layer.
type Deregisterer interface {
	Deregister(ctx context.Context, id model.BoardID) error
}

// Config holds settings for the registry and the sessions it creates.
type Config struct {
	TickInterval      time.Duration
	DeregisterTimeout time.Duration
}

type entry struct {
	session *board.Session
	stop    context.CancelFunc
}

// Registry owns every live board session.
type Registry struct {
	mu       sync.Mutex
	sessions map[model.BoardID]*entry

	naming    Deregisterer
	config    Config
	evictions chan *board.Session
}

// New creates a registry. Run must be running for empty sessions to be torn down.
func New(naming Deregisterer, config Config) *Registry {
	if config.TickInterval <= 0 {
		config.TickInterval = board.DefaultTickInterval
	}
	if config.DeregisterTimeout <= 0 {
		config.DeregisterTimeout = DefaultDeregisterTimeout
	}
	return &Registry{
		sessions:  make(map[model.BoardID]*entry),
		naming:    naming,
		config:    config,
		evictions: make(chan *board.Session, 16),
	}
}

// ResolveOrCreate returns the live session for id, starting a new empty one
// if none exists.
func (r *Registry) ResolveOrCreate(id model.BoardID) *board.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.sessions[id]; ok {
		return e.session
	}

	sess := board.NewSession(id, board.Config{
		TickInterval: r.config.TickInterval,
		Evictions:    r.evictions,
	})
	ctx, stop := context.WithCancel(context.Background())
	r.sessions[id] = &entry{session: sess, stop: stop}
	go sess.Run(ctx)

	return sess
}

// Lookup returns the live session for id. It never creates one.
func (r *Registry) Lookup(id model.BoardID) (*board.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok || e.session.Retired() {
		return nil, fmt.Errorf("lookup board %s: %w", id, model.ErrBoardNotFound)
	}
	return e.session, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// IDs returns the ids of all live sessions, sorted.
func (r *Registry) IDs() []model.BoardID {
	r.mu.Lock()
	ids := make([]model.BoardID, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// Run tears down sessions as they report themselves empty, until ctx ends.
// Up to maxTeardowns teardowns run at once. Run waits for in-flight
// teardowns before returning.
func (r *Registry) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(maxTeardowns)

	for {
		select {
		case <-ctx.Done():
			return g.Wait()
		case sess := <-r.evictions:
			g.Go(func() error {
				r.teardown(ctx, sess)
				return nil
			})
		}
	}
}

// teardown releases the board name, drops the registry entry, then kills the
// session and any connection still attached to it.
func (r *Registry) teardown(ctx context.Context, sess *board.Session) {
	id := sess.ID()
	logger := log.With().Str("board", string(id)).Logger()

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.DeregisterTimeout)
	if err := r.naming.Deregister(dctx, id); err != nil {
		logger.Warn().Err(err).Msg("deregister failed, removing board anyway")
	}
	cancel()

	r.mu.Lock()
	e, ok := r.sessions[id]
	if !ok || e.session != sess {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, id)
	sess.Retire()
	r.mu.Unlock()

	kill(e)
	logger.Info().Msg("board evicted")
}

// Close kills every live session and releases its name.
func (r *Registry) Close(ctx context.Context) {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.sessions))
	for id, e := range r.sessions {
		e.session.Retire()
		entries = append(entries, e)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, e := range entries {
		kill(e)
		if err := r.naming.Deregister(ctx, e.session.ID()); err != nil {
			log.Warn().Str("board", string(e.session.ID())).Err(err).Msg("deregister on shutdown failed")
		}
	}
}

func kill(e *entry) {
	e.session.Canceller().Fire()
	e.stop()
}
