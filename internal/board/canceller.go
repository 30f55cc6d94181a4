package board

import "sync"

// Canceller is a one-shot kill signal with one channel per subscriber.
// Fire closes every subscribed channel exactly once; subscribing after Fire
// yields a channel that is already closed.
type Canceller struct {
	mu    sync.Mutex
	subs  map[uint64]chan struct{}
	next  uint64
	fired bool
}

// NewCanceller creates an unfired canceller.
func NewCanceller() *Canceller {
	return &Canceller{subs: make(map[uint64]chan struct{})}
}

// Subscribe registers a new subscriber. The returned func drops the
// subscription and is safe to call more than once.
func (c *Canceller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired {
		close(ch)
		return ch, func() {}
	}

	key := c.next
	c.next++
	c.subs[key] = ch
	return ch, func() {
		c.mu.Lock()
		delete(c.subs, key)
		c.mu.Unlock()
	}
}

// Fire signals every current subscriber. Later calls do nothing.
func (c *Canceller) Fire() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fired {
		return
	}
	c.fired = true
	for key, ch := range c.subs {
		close(ch)
		delete(c.subs, key)
	}
}

// Fired reports whether Fire has been called.
func (c *Canceller) Fired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fired
}

// Subscribers returns the number of live subscriptions.
func (c *Canceller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
