/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"container/list"
	"sync"

	"go.uber.org/atomic"
)

// targetQueue is an unbounded FIFO queue with many producers and a single consumer (the running Process).
// It increments the pending counter under the same lock, so the counter never lags behind the queue.
type targetQueue struct {
	mu      sync.Mutex
	items   *list.List
	pending *atomic.Int64
	wakeup  chan struct{}
}

func newTargetQueue(pending *atomic.Int64) *targetQueue {
	return &targetQueue{items: list.New(), pending: pending, wakeup: make(chan struct{}, 1)}
}

// push never blocks.
func (q *targetQueue) push(targets ...Target) {
	if len(targets) == 0 {
		return
	}
	q.mu.Lock()
	for _, t := range targets {
		q.items.PushBack(t)
	}
	q.pending.Add(int64(len(targets)))
	q.mu.Unlock()

	select {
	case q.wakeup <- struct{}{}:
	default:
	}
}

func (q *targetQueue) pop() (Target, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	front := q.items.Front()
	if front == nil {
		return Target{}, false
	}
	return q.items.Remove(front).(Target), true
}

func (q *targetQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// pushed returns a channel that receives a value after new targets are pushed.
func (q *targetQueue) pushed() <-chan struct{} {
	return q.wakeup
}
