package mqtt

import (
	"sync"

	"github.com/sweeney/fire-panel/internal/logic"
)

// FakePublisher records what would have gone over the wire. Read the
// exported fields only after publishing has stopped; while a Queue is
// running use Published and PublishedSystem.
type FakePublisher struct {
	mu sync.Mutex

	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Alarms counts published events that would be evicted last from the
	// offline buffer.
	Alarms int

	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns an empty, disconnected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish encodes the event like the real publisher and records it.
func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, msg.payload)
	if msg.alarm {
		f.Alarms++
	}
	return nil
}

// PublishSystem encodes the lifecycle event and records it.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	msg, err := systemMessage(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, msg.payload)
	return nil
}

// Published returns a copy of the recorded panel events.
func (f *FakePublisher) Published() []logic.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Event(nil), f.Events...)
}

// PublishedSystem returns a copy of the recorded lifecycle events.
func (f *FakePublisher) PublishedSystem() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.SystemEvents...)
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset returns the fake to its initial state.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events, f.Payloads = nil, nil
	f.SystemEvents, f.SystemPayloads = nil, nil
	f.Alarms = 0
	f.PublishError, f.PublishSystemError = nil, nil
	f.Closed, f.Connected = false, false
}
