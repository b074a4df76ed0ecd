package pingpong

import (
	"sync"
)

// waitQueue is a broadcast wake-up primitive, shared by the engine and the
// consumer. Waiters must take the channel before evaluating their condition,
// so a wake between the check and the receive is never lost.
type waitQueue struct {
	mu sync.Mutex
	ch chan struct{}
}

func newWaitQueue() *waitQueue {
	return &waitQueue{ch: make(chan struct{})}
}

// wait returns a channel that is closed by the next call to wake.
func (q *waitQueue) wait() <-chan struct{} {
	q.mu.Lock()
	ch := q.ch
	q.mu.Unlock()
	return ch
}

// wake releases all current waiters.
func (q *waitQueue) wake() {
	q.mu.Lock()
	close(q.ch)
	q.ch = make(chan struct{})
	q.mu.Unlock()
}
