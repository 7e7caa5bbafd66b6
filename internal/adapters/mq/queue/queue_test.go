package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/statline/internal/domain/attribute"
	"github.com/okian/statline/internal/domain/engine"
	"github.com/okian/statline/internal/domain/model"
)

func moveEvent(session string, pos int) model.Event {
	return model.Event{
		SessionID: session,
		Change: engine.Change{
			Kind:     engine.KindMoved,
			Position: pos,
			Slot:     attribute.STR,
			Value:    engine.Some(15),
			Outcome:  engine.Applied,
			Epoch:    1,
		},
		At: time.Now(),
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, moveEvent("s1", 0)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	event := <-q.Dequeue(ctx)
	if event.SessionID != "s1" {
		t.Errorf("expected s1, got %v", event.SessionID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, moveEvent("s1", 0)) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, moveEvent("s1", 1)) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, moveEvent("s1", 2)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, moveEvent("s1", 0)) {
		t.Error("expected enqueue to fail with a cancelled context")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, moveEvent("s1", 0))
	q.Enqueue(ctx, moveEvent("s1", 1))

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, moveEvent("s1", 2)) {
		t.Error("expected enqueue to fail after close")
	}

	// queued events remain readable, then the channel closes
	var drained int
	for range q.Dequeue(ctx) {
		drained++
	}
	if drained != 2 {
		t.Errorf("expected 2 drained events, got %d", drained)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	numProducers := 10
	numEvents := 100

	var producers sync.WaitGroup
	for i := 0; i < numProducers; i++ {
		producers.Add(1)
		go func(id int) {
			defer producers.Done()
			for j := 0; j < numEvents; j++ {
				for !q.Enqueue(ctx, moveEvent(fmt.Sprintf("s%d", id), j%7)) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	received := make(chan int)
	go func() {
		n := 0
		for range q.Dequeue(ctx) {
			n++
		}
		received <- n
	}()

	producers.Wait()
	_ = q.Close()

	select {
	case n := <-received:
		if n != numProducers*numEvents {
			t.Errorf("expected %d events, got %d", numProducers*numEvents, n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumer")
	}
}
