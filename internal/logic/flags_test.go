package logic

import (
	"sync"
	"testing"
)

func TestFlagsSetTake(t *testing.T) {
	var f Flags
	f.Set(0b101)

	if got := f.Take(0b001); got != 0b001 {
		t.Errorf("Take(001) = %03b, want 001", got)
	}
	if got := f.Peek(); got != 0b100 {
		t.Errorf("Peek after take = %03b, want 100", got)
	}
	if got := f.Take(0b011); got != 0 {
		t.Errorf("Take of cleared bits = %03b, want 0", got)
	}
	if got := f.Take(0b100); got != 0b100 {
		t.Errorf("Take(100) = %03b, want 100", got)
	}
}

func TestFlagsConcurrentProducers(t *testing.T) {
	var f Flags
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(bit uint32) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				f.Set(bit)
			}
		}(1 << i)
	}
	wg.Wait()

	if got := f.Take(0xFF); got != 0xFF {
		t.Errorf("expected all producer bits set, got %08b", got)
	}
}

func TestEdgeLatchAccumulates(t *testing.T) {
	var l EdgeLatch
	l.Post(Edges{Rise: Bit(0)})
	l.Post(Edges{Rise: Bit(3), Fall: Bit(5)})

	got := l.Take()
	if got.Rise != Bit(0)|Bit(3) || got.Fall != Bit(5) {
		t.Errorf("unexpected edges %+v", got)
	}
	if e := l.Take(); !e.Empty() {
		t.Errorf("expected latch empty after take, got %+v", e)
	}
}

func TestEdgeLatchRiseCancelsPendingFall(t *testing.T) {
	var l EdgeLatch
	l.Post(Edges{Fall: Bit(2)})
	l.Post(Edges{Rise: Bit(2)})

	got := l.Take()
	if got.Rise != Bit(2) || got.Fall != 0 {
		t.Errorf("expected pending fall cancelled, got %+v", got)
	}
}

func TestEdgeLatchRiseSurvivesLaterFall(t *testing.T) {
	var l EdgeLatch
	l.Post(Edges{Rise: Bit(1)})
	l.Post(Edges{Fall: Bit(1)})

	got := l.Take()
	if got.Rise != Bit(1) {
		t.Errorf("pending rise was lost: %+v", got)
	}
}

func TestLevelTracker(t *testing.T) {
	var lt LevelTracker
	steps := []struct {
		level Mask
		want  Edges
	}{
		{0, Edges{}},
		{Bit(0), Edges{Rise: Bit(0)}},
		{Bit(0), Edges{}},
		{Bit(0) | Bit(2), Edges{Rise: Bit(2)}},
		{Bit(2), Edges{Fall: Bit(0)}},
		{0, Edges{Fall: Bit(2)}},
	}
	for i, s := range steps {
		if got := lt.Update(s.level); got != s.want {
			t.Errorf("step %d: Update(%08b) = %+v, want %+v", i, s.level, got, s.want)
		}
	}
}

func TestMaskHelpers(t *testing.T) {
	m := Bit(0) | Bit(3) | Bit(7)
	if m.Count() != 3 {
		t.Errorf("Count = %d, want 3", m.Count())
	}
	if !m.Has(3) || m.Has(4) {
		t.Error("Has returned wrong membership")
	}
	got := m.Circuits()
	want := []int{1, 4, 8}
	if len(got) != len(want) {
		t.Fatalf("Circuits = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Circuits = %v, want %v", got, want)
		}
	}
}

func TestEventCounts(t *testing.T) {
	var c EventCounts
	for _, typ := range []EventType{
		EventPreAlarm, EventGeneralAlarm, EventGeneralAlarm,
		EventSLCTrouble, EventNACDisabled, EventSLCTroubleRestored,
		EventAcknowledged, EventSilenced, EventUnsilenced, EventFunction,
	} {
		c.Add(Event{Type: typ})
	}
	want := EventCounts{PreAlarms: 1, GeneralAlarms: 2, Troubles: 2, Restores: 1, Acknowledges: 1, Silences: 2}
	if c != want {
		t.Errorf("counts = %+v, want %+v", c, want)
	}
}
