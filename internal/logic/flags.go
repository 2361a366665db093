package logic

import (
	"sync"
	"sync/atomic"
)

// Flags is a word of single-bit flags shared by two execution contexts.
// Each bit has exactly one producer, which only sets it, and one consumer,
// which only takes (reads and clears) it.
type Flags struct {
	v atomic.Uint32
}

// Set raises the given bits. Producer side.
func (f *Flags) Set(bits uint32) {
	f.v.Or(bits)
}

// Take clears the given bits and returns those of them that were set.
// Consumer side.
func (f *Flags) Take(bits uint32) uint32 {
	return f.v.And(^bits) & bits
}

// Peek returns the current bits without consuming them.
func (f *Flags) Peek() uint32 {
	return f.v.Load()
}

// EdgeLatch accumulates rise/fall masks posted by the scan context until
// the main loop takes them. The pair is updated inside a short critical
// section so the consumer never observes a torn update.
type EdgeLatch struct {
	mu      sync.Mutex
	pending Edges
}

// Post merges e into the pending edges. A new rise cancels a pending fall
// of the same member; a pending rise is never cancelled.
func (l *EdgeLatch) Post(e Edges) {
	if e.Empty() {
		return
	}
	l.mu.Lock()
	l.pending.Fall &^= e.Rise
	l.pending.Rise |= e.Rise
	l.pending.Fall |= e.Fall
	l.mu.Unlock()
}

// Take returns and clears the pending edges.
func (l *EdgeLatch) Take() Edges {
	l.mu.Lock()
	e := l.pending
	l.pending = Edges{}
	l.mu.Unlock()
	return e
}

// LevelTracker detects pass-to-pass edges on a set of digital levels,
// comparing this pass's raw levels against the previous pass.
type LevelTracker struct {
	last Mask
}

// Update records the new levels and returns what changed.
func (t *LevelTracker) Update(level Mask) Edges {
	e := Edges{
		Rise: level &^ t.last,
		Fall: t.last &^ level,
	}
	t.last = level
	return e
}
