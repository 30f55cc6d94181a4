package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shared-board/backend/internal/model"
	"github.com/shared-board/backend/internal/wire"
)

// recorder is a Handle that keeps everything it is sent.
type recorder struct {
	mu       sync.Mutex
	received []wire.ToClient
	sendErr  error
}

func (r *recorder) Send(msg wire.ToClient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return r.sendErr
	}
	r.received = append(r.received, msg)
	return nil
}

func (r *recorder) messages() []wire.ToClient {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.ToClient, len(r.received))
	copy(out, r.received)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = nil
}

func newTestSession() *Session {
	return NewSession("test-board", Config{TickInterval: time.Hour})
}

func TestSession_ConnectSendsSnapshotThenAnnounces(t *testing.T) {
	s := newTestSession()
	a, b := &recorder{}, &recorder{}

	s.handle(Connect{ID: 1, Handle: a})
	require.Equal(t, []wire.ToClient{
		wire.ClientList{Clients: []wire.ClientEntry{}},
		wire.NewClient{ID: 1},
	}, a.messages())

	s.handle(Connect{ID: 2, Handle: b})
	assert.Equal(t, []wire.ToClient{
		wire.ClientList{Clients: []wire.ClientEntry{}},
		wire.NewClient{ID: 2},
	}, b.messages())
	assert.Equal(t, wire.NewClient{ID: 2}, a.messages()[2])
}

func TestSession_SnapshotOnlyListsMovedClients(t *testing.T) {
	s := newTestSession()
	a, b, c := &recorder{}, &recorder{}, &recorder{}

	s.handle(Connect{ID: 1, Handle: a})
	s.handle(Connect{ID: 2, Handle: b})
	s.handle(Move{ID: 1, X: 3, Y: 4})
	s.handle(Connect{ID: 3, Handle: c})

	msgs := c.messages()
	require.NotEmpty(t, msgs)
	assert.Equal(t, wire.ClientList{Clients: []wire.ClientEntry{
		{ID: 1, Position: model.Position{X: 3, Y: 4}},
	}}, msgs[0])
}

func TestSession_SnapshotExcludesDisconnectedClients(t *testing.T) {
	s := newTestSession()
	a, b, c := &recorder{}, &recorder{}, &recorder{}

	s.handle(Connect{ID: 1, Handle: a})
	s.handle(Connect{ID: 2, Handle: b})
	s.handle(Move{ID: 1, X: 1, Y: 1})
	s.handle(Move{ID: 2, X: 2, Y: 2})
	s.handle(Disconnect{ID: 1})
	s.handle(Connect{ID: 3, Handle: c})

	assert.Equal(t, wire.ClientList{Clients: []wire.ClientEntry{
		{ID: 2, Position: model.Position{X: 2, Y: 2}},
	}}, c.messages()[0])
}

func TestSession_MoveBroadcastsToEveryone(t *testing.T) {
	s := newTestSession()
	a, b := &recorder{}, &recorder{}
	s.handle(Connect{ID: 1, Handle: a})
	s.handle(Connect{ID: 2, Handle: b})
	a.reset()
	b.reset()

	s.handle(Move{ID: 1, X: 1, Y: 2})
	s.handle(Move{ID: 1, X: 5, Y: 6})

	want := []wire.ToClient{
		wire.ClientMoved{ID: 1, X: 1, Y: 2},
		wire.ClientMoved{ID: 1, X: 5, Y: 6},
	}
	assert.Equal(t, want, a.messages())
	assert.Equal(t, want, b.messages())
	assert.Equal(t, model.Position{X: 5, Y: 6}, s.positions[1])
}

func TestSession_MoveFromUnknownClientIgnored(t *testing.T) {
	s := newTestSession()
	a := &recorder{}
	s.handle(Connect{ID: 1, Handle: a})
	a.reset()

	s.handle(Move{ID: 42, X: 1, Y: 1})

	assert.Empty(t, a.messages())
	assert.NotContains(t, s.positions, model.ClientID(42))
}

func TestSession_DisconnectIsIdempotent(t *testing.T) {
	s := newTestSession()
	a, b := &recorder{}, &recorder{}
	s.handle(Connect{ID: 1, Handle: a})
	s.handle(Connect{ID: 2, Handle: b})
	s.handle(Move{ID: 2, X: 9, Y: 9})
	a.reset()

	s.handle(Disconnect{ID: 2})
	s.handle(Disconnect{ID: 2})

	assert.Equal(t, []wire.ToClient{wire.ClientDisconnected{ID: 2}}, a.messages())
	assert.NotContains(t, s.clients, model.ClientID(2))
	assert.NotContains(t, s.positions, model.ClientID(2))
}

func TestSession_BroadcastSurvivesDeadPeer(t *testing.T) {
	s := newTestSession()
	dead := &recorder{}
	alive := &recorder{}
	s.handle(Connect{ID: 1, Handle: dead})
	s.handle(Connect{ID: 2, Handle: alive})
	dead.sendErr = model.ErrClientGone
	alive.reset()

	s.handle(Move{ID: 2, X: 1, Y: 1})

	assert.Equal(t, []wire.ToClient{wire.ClientMoved{ID: 2, X: 1, Y: 1}}, alive.messages())
}

func TestSession_TickEvictsOnlyOnceWhenEmpty(t *testing.T) {
	evictions := make(chan *Session, 4)
	s := NewSession("b", Config{TickInterval: time.Hour, Evictions: evictions})
	a := &recorder{}

	s.handle(Connect{ID: 1, Handle: a})
	assert.False(t, s.tick(), "non-empty session must not evict")

	s.handle(Disconnect{ID: 1})
	assert.True(t, s.tick())
	assert.False(t, s.tick())
	assert.False(t, s.tick())
}

func TestSession_RunReportsEviction(t *testing.T) {
	evictions := make(chan *Session, 4)
	s := NewSession("b", Config{TickInterval: 10 * time.Millisecond, Evictions: evictions})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	select {
	case got := <-evictions:
		assert.Same(t, s, got)
	case <-time.After(time.Second):
		t.Fatal("empty session never reported eviction")
	}

	select {
	case <-evictions:
		t.Fatal("session reported eviction twice")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not stop")
	}
}

func TestSession_SubmitAfterRetireFails(t *testing.T) {
	s := newTestSession()
	s.Retire()

	err := s.Submit(Disconnect{ID: 1})
	assert.True(t, errors.Is(err, model.ErrBoardNotFound))
}

func TestSession_SubmitAfterStopFails(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	cancel()
	<-s.Done()

	assert.ErrorIs(t, s.Submit(Disconnect{ID: 1}), model.ErrBoardNotFound)
}

func TestSession_StatsThroughMailbox(t *testing.T) {
	s := newTestSession()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	a, b := &recorder{}, &recorder{}
	require.NoError(t, s.Submit(Connect{ID: s.NewClientID(), Handle: a}))
	require.NoError(t, s.Submit(Connect{ID: s.NewClientID(), Handle: b}))
	require.NoError(t, s.Submit(Move{ID: 1, X: 1, Y: 1}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{ID: "test-board", Clients: 2, Positions: 1}, st)
}

func TestSession_ClientIDsAreNotReused(t *testing.T) {
	s := newTestSession()
	seen := make(map[model.ClientID]bool)
	for i := 0; i < 1000; i++ {
		id := s.NewClientID()
		require.False(t, seen[id], "id %d minted twice", id)
		seen[id] = true
	}
}

// Walks the end-to-end scenario at the actor level.
func TestSession_TwoClientScenario(t *testing.T) {
	evictions := make(chan *Session, 1)
	s := NewSession("scenario", Config{TickInterval: time.Hour, Evictions: evictions})
	a, b := &recorder{}, &recorder{}

	s.handle(Connect{ID: 1, Handle: a})
	s.handle(Connect{ID: 2, Handle: b})
	s.handle(Move{ID: 1, X: 1, Y: 2})
	s.handle(Disconnect{ID: 2})

	empty := wire.ClientList{Clients: []wire.ClientEntry{}}
	assert.Equal(t, []wire.ToClient{
		empty,
		wire.NewClient{ID: 1},
		wire.NewClient{ID: 2},
		wire.ClientMoved{ID: 1, X: 1, Y: 2},
		wire.ClientDisconnected{ID: 2},
	}, a.messages())
	assert.Equal(t, []wire.ToClient{
		empty,
		wire.NewClient{ID: 2},
		wire.ClientMoved{ID: 1, X: 1, Y: 2},
	}, b.messages())

	assert.False(t, s.tick())
	s.handle(Disconnect{ID: 1})
	assert.True(t, s.tick())
	assert.False(t, s.tick())
}
