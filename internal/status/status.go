// Package status keeps the daemon's view of the panel for the web page
// and the MQTT lifecycle events. The main loop writes it once per pass;
// HTTP handlers and the supervisor read copies.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/fire-panel/internal/logic"
)

// readyCycles is the number of full scan cycles after which every channel
// has been debounced at least once.
const readyCycles = 2

// NetworkInfo mirrors the host network state written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config is the daemon configuration shown on the status page.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	WSBroker    string // browser MQTT endpoint; empty disables live updates
	PreAlarm    bool
	AlarmAt     uint16
	Analog      string // converter endpoint, or "simulated"
}

// Condition is the single most severe panel condition.
type Condition string

const (
	ConditionNormal   Condition = "NORMAL"
	ConditionTrouble  Condition = "TROUBLE"
	ConditionPreAlarm Condition = "PRE_ALARM"
	ConditionAlarm    Condition = "ALARM"
)

// Snapshot is a copy of the tracked state and can be used without locking.
type Snapshot struct {
	State         logic.State
	Outputs       logic.Outputs
	ResetPending  bool
	ScanCycles    uint64
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Ready reports whether every channel has completed debouncing.
func (s Snapshot) Ready() bool {
	return s.ScanCycles >= readyCycles
}

// Uptime is the time since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Condition reports the most severe latched condition. Alarms outrank
// pre-alarms, which outrank any trouble.
func (s Snapshot) Condition() Condition {
	c := s.State.Causes
	switch {
	case c.GeneralAlarm != 0:
		return ConditionAlarm
	case c.PreAlarm != 0:
		return ConditionPreAlarm
	case c.SLCTrouble|c.NACTrouble|c.NACDisabled|c.GeneralTrouble != 0:
		return ConditionTrouble
	}
	return ConditionNormal
}

// Tracker guards the current Snapshot.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker returns a Tracker for a daemon started at startTime.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{StartTime: startTime, Config: cfg},
		now:  time.Now,
	}
}

func (t *Tracker) set(fn func(*Snapshot)) {
	t.mu.Lock()
	fn(&t.snap)
	t.mu.Unlock()
}

// Update records the panel state after a main-loop pass.
func (t *Tracker) Update(state logic.State, out logic.Outputs, counts logic.EventCounts) {
	t.set(func(s *Snapshot) {
		s.State = state
		s.Outputs = out
		s.Counts = counts
	})
}

// SetScan records scan progress and whether a reset is counting down.
func (t *Tracker) SetScan(cycles uint64, resetPending bool) {
	t.set(func(s *Snapshot) {
		s.ScanCycles = cycles
		s.ResetPending = resetPending
	})
}

func (t *Tracker) SetMQTTConnected(connected bool) {
	t.set(func(s *Snapshot) { s.MQTTConnected = connected })
}

func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.set(func(s *Snapshot) { s.Network = info })
}

// Snapshot returns a copy of the tracked state stamped with the current time.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
