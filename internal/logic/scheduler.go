package logic

// TickRate is the base tick frequency in Hz.
const TickRate = 16

// ResetSteps is the reset countdown length in half-rate steps
// (127 steps of 2 ticks, just under 16 seconds).
const ResetSteps = 127

// Phase is the set of coder and flasher phase bits derived from the tick.
type Phase uint8

const (
	PhaseFlasher  Phase = 1 << iota // toggles every 2 ticks
	PhaseMarch120                   // toggles every 4 ticks: 120 cycles/min
	PhaseMarch60                    // toggles every 8 ticks: 60 cycles/min
	PhaseBuzzer                     // toggles every 8 ticks
	PhaseTemporal                   // Temporal-3 pulse region
)

// Has reports whether all bits of p are set.
func (ph Phase) Has(p Phase) bool {
	return ph&p == p
}

// temporalSteps is the length of one Temporal-3 round. Steps 0, 2 and 4
// are pulses; 1 and 3 are gaps; 5, 6 and 7 are the long silence.
const temporalSteps = 8

// TickEvents reports what a tick asks of the other components.
type TickEvents struct {
	// Scan requests that the scanner begin (or continue) a conversion cycle.
	Scan bool
	// Reset means the countdown expired and the full reset must be invoked.
	Reset bool
}

// Scheduler derives sub-rate events from the base tick.
// It runs in the interrupt context only.
type Scheduler struct {
	count    uint8
	phase    Phase
	temporal uint8
	reset    uint8
	halted   bool
}

// NewScheduler creates a scheduler with all phases low and the Temporal-3
// generator positioned at the start of a pulse.
func NewScheduler() *Scheduler {
	return &Scheduler{phase: PhaseTemporal}
}

// ArmReset starts (or restarts) the reset countdown.
func (s *Scheduler) ArmReset() {
	if s.halted {
		return
	}
	s.reset = ResetSteps
}

// ResetPending reports whether a countdown is in flight.
func (s *Scheduler) ResetPending() bool {
	return s.reset != 0
}

// Phase returns the current phase bits.
func (s *Scheduler) Phase() Phase {
	return s.phase
}

// Count returns the free-running tick counter.
func (s *Scheduler) Count() uint8 {
	return s.count
}

// Tick advances the scheduler by one base tick.
// Once a reset has been reported every further tick is a no-op.
func (s *Scheduler) Tick() TickEvents {
	var ev TickEvents
	if s.halted {
		return ev
	}

	s.count++

	if s.count%2 == 0 {
		s.phase ^= PhaseFlasher
		if s.reset != 0 {
			s.reset--
			if s.reset == 0 {
				s.halted = true
				ev.Reset = true
				return ev
			}
		}
	}

	if s.count%4 == 0 {
		s.phase ^= PhaseMarch120
	}

	if s.count%8 == 0 {
		s.phase ^= PhaseBuzzer | PhaseMarch60
		s.temporal = (s.temporal + 1) % temporalSteps
		if s.temporal < 5 && s.temporal%2 == 0 {
			s.phase |= PhaseTemporal
		} else {
			s.phase &^= PhaseTemporal
		}
		ev.Scan = true
	}

	return ev
}
