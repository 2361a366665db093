package mqtt

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/sweeney/fire-panel/internal/logic"
)

// Queue decouples event producers from broker latency. Enqueue never
// blocks; a single Run goroutine publishes in order.
type Queue struct {
	pub     Publisher
	ch      chan logic.Event
	dropped atomic.Uint64
}

// NewQueue creates a queue holding up to size pending events.
func NewQueue(pub Publisher, size int) *Queue {
	return &Queue{
		pub: pub,
		ch:  make(chan logic.Event, size),
	}
}

// Enqueue adds e without blocking. It reports false if the queue was full
// and the event was dropped.
func (q *Queue) Enqueue(e logic.Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of events dropped because the queue was full.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Run publishes queued events until ctx is cancelled, then flushes what is
// already queued.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case e := <-q.ch:
			q.publish(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-q.ch:
					q.publish(e)
				default:
					return nil
				}
			}
		}
	}
}

func (q *Queue) publish(e logic.Event) {
	if err := q.pub.Publish(e); err != nil {
		log.Printf("mqtt publish error: %v", err)
	}
}
