package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/sweeney/fire-panel/internal/logic"
)

func TestQueuePublishesInOrder(t *testing.T) {
	pub := NewFakePublisher()
	q := NewQueue(pub, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	types := []logic.EventType{logic.EventPreAlarm, logic.EventGeneralAlarm, logic.EventAcknowledged}
	for _, typ := range types {
		if !q.Enqueue(logic.Event{Type: typ}) {
			t.Fatalf("enqueue of %s failed", typ)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(pub.Published()) < len(types) && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	got := pub.Published()
	if len(got) != len(types) {
		t.Fatalf("expected %d events, got %d", len(types), len(got))
	}
	for i, typ := range types {
		if got[i].Type != typ {
			t.Errorf("event %d: got %s, want %s", i, got[i].Type, typ)
		}
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(NewFakePublisher(), 2)

	if !q.Enqueue(logic.Event{}) || !q.Enqueue(logic.Event{}) {
		t.Fatal("expected first two enqueues to succeed")
	}
	if q.Enqueue(logic.Event{}) {
		t.Error("expected enqueue on a full queue to fail")
	}
	if q.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", q.Dropped())
	}
}

func TestQueueFlushesOnCancel(t *testing.T) {
	pub := NewFakePublisher()
	q := NewQueue(pub, 4)
	q.Enqueue(logic.Event{Type: logic.EventSilenced})
	q.Enqueue(logic.Event{Type: logic.EventUnsilenced})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(pub.Published()) != 2 {
		t.Errorf("expected queued events flushed on shutdown, got %d", len(pub.Published()))
	}
}
