package mqtt

import (
	"testing"
)

func payloads(msgs []bufferedMsg) []byte {
	var out []byte
	for _, m := range msgs {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOfflineBufferEmptyDrain(t *testing.T) {
	b := newOfflineBuffer(10)
	if got := b.drainAll(); got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
}

func TestOfflineBufferPushAndDrain(t *testing.T) {
	b := newOfflineBuffer(10)
	for i := 0; i < 5; i++ {
		b.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
	if b.len() != 5 {
		t.Fatalf("expected len 5, got %d", b.len())
	}

	got := b.drainAll()
	if string(payloads(got)) != string([]byte{0, 1, 2, 3, 4}) {
		t.Errorf("expected oldest first, got %v", payloads(got))
	}
	if b.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", b.len())
	}
	if got2 := b.drainAll(); got2 != nil {
		t.Errorf("expected nil from second drain, got %d items", len(got2))
	}
}

func TestOfflineBufferOverflowDropsOldest(t *testing.T) {
	b := newOfflineBuffer(5)
	for i := 0; i < 8; i++ {
		b.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}

	got := b.drainAll()
	if string(payloads(got)) != string([]byte{3, 4, 5, 6, 7}) {
		t.Errorf("expected the most recent 5, got %v", payloads(got))
	}
	if b.dropped != 3 {
		t.Errorf("expected 3 dropped, got %d", b.dropped)
	}
}

func TestOfflineBufferKeepsAlarms(t *testing.T) {
	tests := []struct {
		name  string
		msgs  []bufferedMsg
		want  []byte
		drops uint64
	}{
		{
			name: "evicts oldest non-alarm",
			msgs: []bufferedMsg{
				{payload: []byte{0}, alarm: true},
				{payload: []byte{1}},
				{payload: []byte{2}},
				{payload: []byte{3}},
			},
			want:  []byte{0, 2, 3},
			drops: 1,
		},
		{
			name: "drops newcomer when only alarms are held",
			msgs: []bufferedMsg{
				{payload: []byte{0}, alarm: true},
				{payload: []byte{1}, alarm: true},
				{payload: []byte{2}, alarm: true},
				{payload: []byte{3}},
			},
			want:  []byte{0, 1, 2},
			drops: 1,
		},
		{
			name: "alarm evicts oldest alarm when only alarms are held",
			msgs: []bufferedMsg{
				{payload: []byte{0}, alarm: true},
				{payload: []byte{1}, alarm: true},
				{payload: []byte{2}, alarm: true},
				{payload: []byte{3}, alarm: true},
			},
			want:  []byte{1, 2, 3},
			drops: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newOfflineBuffer(3)
			for _, m := range tt.msgs {
				b.push(m)
			}
			got := b.drainAll()
			if string(payloads(got)) != string(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, payloads(got))
			}
			if b.dropped != tt.drops {
				t.Errorf("expected %d dropped, got %d", tt.drops, b.dropped)
			}
		})
	}
}

func TestOfflineBufferMultipleCycles(t *testing.T) {
	b := newOfflineBuffer(3)
	for round := 0; round < 3; round++ {
		for i := 0; i < 5; i++ {
			b.push(bufferedMsg{payload: []byte{byte(round*10 + i)}})
		}
		got := b.drainAll()
		want := []byte{byte(round*10 + 2), byte(round*10 + 3), byte(round*10 + 4)}
		if string(payloads(got)) != string(want) {
			t.Errorf("round %d: expected %v, got %v", round, want, payloads(got))
		}
		if b.overflow {
			t.Errorf("round %d: overflow should reset on drain", round)
		}
	}
	if b.dropped != 6 {
		t.Errorf("dropped count should accumulate across drains, got %d", b.dropped)
	}
}

func TestOfflineBufferPreservesFields(t *testing.T) {
	b := newOfflineBuffer(5)
	b.push(bufferedMsg{topic: TopicSystem, payload: []byte(`{"x":1}`), qos: 1, retained: true, alarm: false})

	got := b.drainAll()
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	m := got[0]
	if m.topic != TopicSystem || string(m.payload) != `{"x":1}` || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
