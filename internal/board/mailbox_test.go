package board

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shared-board/backend/internal/model"
)

func TestMailbox_FIFO(t *testing.T) {
	m := NewMailbox()
	for i := 1; i <= 3; i++ {
		require.True(t, m.Push(Disconnect{ID: model.ClientID(i)}))
	}

	<-m.Ready()
	got := m.Drain(nil)
	assert.Equal(t, []Event{Disconnect{ID: 1}, Disconnect{ID: 2}, Disconnect{ID: 3}}, got)
	assert.Zero(t, m.Len())
}

func TestMailbox_PerProducerOrder(t *testing.T) {
	m := NewMailbox()
	const producers, perProducer = 8, 200

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				m.Push(Move{ID: model.ClientID(p), X: float32(i)})
			}
		}(p)
	}
	wg.Wait()

	events := m.Drain(nil)
	require.Len(t, events, producers*perProducer)

	last := make(map[model.ClientID]float32)
	for _, ev := range events {
		mv := ev.(Move)
		if prev, ok := last[mv.ID]; ok {
			require.Greater(t, mv.X, prev, "producer %d reordered", mv.ID)
		}
		last[mv.ID] = mv.X
	}
}

func TestMailbox_ClosedRejectsPush(t *testing.T) {
	m := NewMailbox()
	m.Push(Disconnect{ID: 1})
	m.Close()

	assert.False(t, m.Push(Disconnect{ID: 2}))
	assert.Empty(t, m.Drain(nil))
}
