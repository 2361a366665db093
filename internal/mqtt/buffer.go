package mqtt

import "log"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	alarm    bool // pre-alarm or general alarm; evicted last
}

// offlineBuffer holds messages, oldest first, while the broker is
// unreachable. When full it evicts the oldest non-alarm message, so alarm
// reports survive an outage that floods the buffer with trouble churn.
// Not safe for concurrent use; caller must synchronize.
type offlineBuffer struct {
	msgs     []bufferedMsg
	capacity int
	dropped  uint64
	overflow bool // true if any message was dropped since last drain
}

func newOfflineBuffer(capacity int) *offlineBuffer {
	return &offlineBuffer{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
	}
}

func (b *offlineBuffer) push(msg bufferedMsg) {
	if len(b.msgs) < b.capacity {
		b.msgs = append(b.msgs, msg)
		return
	}

	if !b.overflow {
		log.Printf("mqtt: buffer full (%d messages), dropping", b.capacity)
		b.overflow = true
	}
	b.dropped++

	victim := -1
	for i, m := range b.msgs {
		if !m.alarm {
			victim = i
			break
		}
	}
	if victim < 0 {
		if !msg.alarm {
			// Only alarms are held; the newcomer is the least important.
			return
		}
		victim = 0
	}
	copy(b.msgs[victim:], b.msgs[victim+1:])
	b.msgs[len(b.msgs)-1] = msg
}

func (b *offlineBuffer) drainAll() []bufferedMsg {
	if len(b.msgs) == 0 {
		return nil
	}
	result := b.msgs
	b.msgs = make([]bufferedMsg, 0, b.capacity)
	b.overflow = false
	return result
}

func (b *offlineBuffer) len() int {
	return len(b.msgs)
}
