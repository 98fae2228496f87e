package stream

import "sync"

// eventQueue is a mutex-guarded FIFO buffer decoupling event producers from
// the delivery scheduler. Producers enqueue from any goroutine; the scheduler
// drains in bounded batches. No deduplication, reordering, or priority.
//
// A limit of 0 means unbounded (the original design); a positive limit applies
// the configured overflow policy instead of letting memory grow without bound.
type eventQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	limit  int
	policy OverflowPolicy

	dropped uint64
}

func newEventQueue[T any](limit int, policy OverflowPolicy) *eventQueue[T] {
	return &eventQueue[T]{limit: limit, policy: policy}
}

// Enqueue appends an event. It never blocks and never applies backpressure
// to the producer. The return value reports whether the event was accepted;
// a full reject-new queue refuses it, a full drop-oldest queue accepts it at
// the cost of the oldest queued event.
func (q *eventQueue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.limit > 0 && len(q.items) >= q.limit {
		q.dropped++
		if q.policy == OverflowRejectNew {
			return false
		}
		q.items = q.items[1:]
	}
	q.items = append(q.items, item)
	return true
}

// DrainUpTo removes and returns at most max events in FIFO order.
func (q *eventQueue[T]) DrainUpTo(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 || max <= 0 {
		return nil
	}
	n := max
	if n > len(q.items) {
		n = len(q.items)
	}
	batch := make([]T, n)
	copy(batch, q.items[:n])
	q.items = q.items[n:]
	return batch
}

// Len returns the current queue depth.
func (q *eventQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the number of events lost to the overflow policy.
func (q *eventQueue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
