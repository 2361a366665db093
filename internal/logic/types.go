// Package logic contains the pure control core of the fire alarm panel:
// tick scheduling, channel scanning and classification, condition latching
// and NAC output coding.
// This package has NO external dependencies (no GPIO, ADC, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"math/bits"
	"time"
)

// Fixed panel geometry.
const (
	NumNAC = 4 // notification appliance circuits
	NumSLC = 8 // signaling line (initiating) circuits
)

// Mask is a set of circuits or trouble sources, one bit per member.
// Bit 0 is circuit 1.
type Mask uint8

// Has reports whether circuit index i (0-based) is in the mask.
func (m Mask) Has(i int) bool {
	return m&(1<<uint(i)) != 0
}

// Count returns the number of members.
func (m Mask) Count() int {
	return bits.OnesCount8(uint8(m))
}

// Circuits returns the 1-based circuit numbers in the mask.
func (m Mask) Circuits() []int {
	var out []int
	for i := 0; i < 8; i++ {
		if m.Has(i) {
			out = append(out, i+1)
		}
	}
	return out
}

// Bit returns the mask with only circuit index i set.
func Bit(i int) Mask {
	return 1 << uint(i)
}

// Edges is the set of members that changed during one detection step.
type Edges struct {
	Rise Mask
	Fall Mask
}

// Empty reports whether no member changed.
func (e Edges) Empty() bool {
	return e.Rise == 0 && e.Fall == 0
}

// General trouble sources.
const (
	TroubleACPower = 0 // loss of AC power, sensed on a digital input
)

// Family is the kind of circuit a scan channel senses.
type Family uint8

const (
	FamilyNAC Family = iota // notification circuit trouble sense
	FamilySLC               // initiating circuit alarm/trouble sense
)

func (f Family) String() string {
	switch f {
	case FamilyNAC:
		return "NAC"
	case FamilySLC:
		return "SLC"
	}
	return "UNKNOWN"
}

// ChannelSpec wires one scan channel to an analog input.
type ChannelSpec struct {
	Family  Family
	Circuit int   // 0-based circuit index within the family
	Input   uint8 // analog front end input number
}

// DefaultChannels returns the reference wiring: NAC sense on inputs 0-3,
// SLC sense on inputs 6-13.
func DefaultChannels() []ChannelSpec {
	chans := make([]ChannelSpec, 0, NumNAC+NumSLC)
	for i := 0; i < NumNAC; i++ {
		chans = append(chans, ChannelSpec{Family: FamilyNAC, Circuit: i, Input: uint8(i)})
	}
	for i := 0; i < NumSLC; i++ {
		chans = append(chans, ChannelSpec{Family: FamilySLC, Circuit: i, Input: uint8(6 + i)})
	}
	return chans
}

// Button is a set of front-panel buttons.
type Button uint8

const (
	ButtonReset Button = 1 << iota
	ButtonAcknowledge
	ButtonSilence
	ButtonFunction
)

// Category is a set of condition categories.
type Category uint8

const (
	CategoryPreAlarm Category = 1 << iota
	CategoryGeneralAlarm
	CategoryTrouble
)

func (c Category) String() string {
	switch c {
	case CategoryPreAlarm:
		return "PRE_ALARM"
	case CategoryGeneralAlarm:
		return "GENERAL_ALARM"
	case CategoryTrouble:
		return "TROUBLE"
	case 0:
		return ""
	}
	return "MIXED"
}

// EventType names a change reported by the state machine.
type EventType string

const (
	EventPreAlarm               EventType = "PRE_ALARM"
	EventGeneralAlarm           EventType = "GENERAL_ALARM"
	EventSLCTrouble             EventType = "SLC_TROUBLE"
	EventSLCTroubleRestored     EventType = "SLC_TROUBLE_RESTORED"
	EventNACTrouble             EventType = "NAC_TROUBLE"
	EventNACTroubleRestored     EventType = "NAC_TROUBLE_RESTORED"
	EventNACDisabled            EventType = "NAC_DISABLED"
	EventGeneralTrouble         EventType = "GENERAL_TROUBLE"
	EventGeneralTroubleRestored EventType = "GENERAL_TROUBLE_RESTORED"
	EventAcknowledged           EventType = "ACKNOWLEDGED"
	EventSilenced               EventType = "SILENCED"
	EventUnsilenced             EventType = "UNSILENCED"
	EventResetArmed             EventType = "RESET_ARMED"
	EventFunction               EventType = "FUNCTION"
)

// Event represents a panel change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// Circuits holds the contributing circuits or trouble sources.
	Circuits Mask
	// Category is set for acknowledge events.
	Category Category
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	PreAlarms     int
	GeneralAlarms int
	Troubles      int
	Restores      int
	Acknowledges  int
	Silences      int
}

// Add counts one event.
func (c *EventCounts) Add(e Event) {
	switch e.Type {
	case EventPreAlarm:
		c.PreAlarms++
	case EventGeneralAlarm:
		c.GeneralAlarms++
	case EventSLCTrouble, EventNACTrouble, EventNACDisabled, EventGeneralTrouble:
		c.Troubles++
	case EventSLCTroubleRestored, EventNACTroubleRestored, EventGeneralTroubleRestored:
		c.Restores++
	case EventAcknowledged:
		c.Acknowledges++
	case EventSilenced, EventUnsilenced:
		c.Silences++
	}
}
