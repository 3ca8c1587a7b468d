package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/attunehq/attune/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	event1 := model.Event{EventID: "event1", Kind: model.AnswerSubmitted, TeamID: "Team1"}
	if !q.Enqueue(ctx, event1) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	eventChan := q.Dequeue(ctx)
	event := <-eventChan
	if event.EventID != "event1" {
		t.Errorf("expected event1, got %v", event.EventID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, model.Event{EventID: "event1", TeamID: "Team1"}) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, model.Event{EventID: "event2", TeamID: "Team2"}) {
		t.Error("expected enqueue to succeed")
	}

	// Queue is full now.
	if q.Enqueue(ctx, model.Event{EventID: "event3", TeamID: "Team3"}) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if q.IsClosed() {
		t.Error("expected new queue to be open")
	}
	if err := q.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected double close to be a no-op, got %v", err)
	}
	if q.Enqueue(ctx, model.Event{EventID: "late"}) {
		t.Error("expected enqueue after close to fail")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2000))
	ctx := context.Background()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				e := model.Event{
					EventID: fmt.Sprintf("event-%d-%d", id, j),
					Kind:    model.AnswerSubmitted,
					TeamID:  fmt.Sprintf("team-%d", id),
				}
				if !q.Enqueue(ctx, e) {
					t.Errorf("enqueue failed for %s", e.EventID)
				}
			}
		}(i)
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Errorf("expected %d queued events, got %d", producers*perProducer, l)
	}

	received := 0
	eventChan := q.Dequeue(ctx)
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	for range eventChan {
		received++
	}
	if received != producers*perProducer {
		t.Errorf("expected %d dequeued events, got %d", producers*perProducer, received)
	}
}
