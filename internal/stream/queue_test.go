package stream

import (
	"testing"
)

func TestEventQueueFIFO(t *testing.T) {
	q := newEventQueue[int](0, OverflowDropOldest)

	for i := 1; i <= 5; i++ {
		if !q.Enqueue(i) {
			t.Fatalf("Enqueue(%d) rejected on unbounded queue", i)
		}
	}
	if q.Len() != 5 {
		t.Errorf("Expected depth 5, got %d", q.Len())
	}

	batch := q.DrainUpTo(3)
	if len(batch) != 3 {
		t.Fatalf("Expected batch of 3, got %d", len(batch))
	}
	for i, v := range batch {
		if v != i+1 {
			t.Errorf("Expected item %d at position %d, got %d", i+1, i, v)
		}
	}

	rest := q.DrainUpTo(10)
	if len(rest) != 2 || rest[0] != 4 || rest[1] != 5 {
		t.Errorf("Expected remaining [4 5], got %v", rest)
	}
	if q.Len() != 0 {
		t.Errorf("Expected empty queue, got depth %d", q.Len())
	}
}

func TestEventQueueDrainEmpty(t *testing.T) {
	q := newEventQueue[string](0, OverflowDropOldest)

	if batch := q.DrainUpTo(10); batch != nil {
		t.Errorf("Expected nil batch from empty queue, got %v", batch)
	}
	if batch := q.DrainUpTo(0); batch != nil {
		t.Errorf("Expected nil batch for max 0, got %v", batch)
	}
}

func TestEventQueueDropOldest(t *testing.T) {
	q := newEventQueue[int](3, OverflowDropOldest)

	for i := 1; i <= 3; i++ {
		q.Enqueue(i)
	}
	if !q.Enqueue(4) {
		t.Error("Expected drop-oldest queue to accept the new event")
	}

	if q.Len() != 3 {
		t.Errorf("Expected depth to stay at limit 3, got %d", q.Len())
	}
	if q.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", q.Dropped())
	}

	batch := q.DrainUpTo(3)
	if len(batch) != 3 || batch[0] != 2 || batch[1] != 3 || batch[2] != 4 {
		t.Errorf("Expected [2 3 4] after dropping the oldest, got %v", batch)
	}
}

func TestEventQueueRejectNew(t *testing.T) {
	q := newEventQueue[int](2, OverflowRejectNew)

	q.Enqueue(1)
	q.Enqueue(2)
	if q.Enqueue(3) {
		t.Error("Expected reject-new queue to refuse the event")
	}

	if q.Len() != 2 {
		t.Errorf("Expected depth 2, got %d", q.Len())
	}
	if q.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", q.Dropped())
	}

	batch := q.DrainUpTo(2)
	if len(batch) != 2 || batch[0] != 1 || batch[1] != 2 {
		t.Errorf("Expected queued events [1 2] untouched, got %v", batch)
	}
}
