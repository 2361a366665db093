package logic

import "time"

// Causes are the latched cause registers.
type Causes struct {
	PreAlarm       Mask
	GeneralAlarm   Mask
	SLCTrouble     Mask
	NACTrouble     Mask
	NACDisabled    Mask
	GeneralTrouble Mask
}

// Alarm returns the union of both alarm registers.
func (c Causes) Alarm() Mask {
	return c.PreAlarm | c.GeneralAlarm
}

// Trouble reports whether any trouble register is non-empty.
func (c Causes) Trouble() bool {
	return c.SLCTrouble|c.NACTrouble|c.NACDisabled|c.GeneralTrouble != 0
}

// NACConfig is the fixed capability of one notification circuit.
type NACConfig struct {
	Disabled    bool
	Silenceable bool
	PreAlarm    bool
	Pattern     Pattern
}

// NAC is the control state of one notification circuit.
type NAC struct {
	NACConfig
	Active bool
}

// UI is the logical user interface output state.
type UI struct {
	AlarmFlash   bool
	AlarmSolid   bool
	TroubleFlash bool
	TroubleSolid bool
	Silenced     bool
	Buzzer       bool
}

// State is the condition latching state machine. It is owned by the
// main loop and only mutated through Step.
type State struct {
	PreAlarmMode bool
	Causes       Causes
	Unacked      Category
	UI           UI
	NACs         [NumNAC]NAC
}

// NewState creates the boot state. Software-disabled circuits are latched
// as a trouble condition.
func NewState(preAlarmMode bool, nacs [NumNAC]NACConfig) State {
	s := State{PreAlarmMode: preAlarmMode}
	for i, cfg := range nacs {
		s.NACs[i].NACConfig = cfg
		if cfg.Disabled {
			s.Causes.NACDisabled |= Bit(i)
		}
	}
	if s.Causes.NACDisabled != 0 {
		s.Unacked |= CategoryTrouble
	}
	s.Recompute()
	return s
}

// BootEvents reports the conditions latched by NewState.
func (s *State) BootEvents(t time.Time) []Event {
	if s.Causes.NACDisabled == 0 {
		return nil
	}
	return []Event{{Timestamp: t, Type: EventNACDisabled, Circuits: s.Causes.NACDisabled}}
}

// Input is everything the state machine consumes in one main-loop pass.
type Input struct {
	Time           time.Time
	SLCAlarm       Edges
	SLCTrouble     Edges
	NACTrouble     Edges
	GeneralTrouble Edges
	// Pressed holds the buttons that went down since the previous pass.
	Pressed Button
}

// Output is what one pass asks of its host.
type Output struct {
	Events []Event
	// ResetRequested asks the tick scheduler to arm the reset countdown.
	ResetRequested bool
}

// Step applies one pass of input to s and recomputes the UI.
func Step(s *State, in Input) Output {
	var out Output
	emit := func(t EventType, circuits Mask, cat Category) {
		out.Events = append(out.Events, Event{Timestamp: in.Time, Type: t, Circuits: circuits, Category: cat})
	}

	if fresh := in.SLCAlarm.Rise &^ s.Causes.GeneralAlarm; fresh != 0 {
		if s.PreAlarmMode && s.Causes.PreAlarm == 0 {
			s.Causes.PreAlarm |= fresh
			s.Unacked |= CategoryPreAlarm
			s.activate(func(n NAC) bool { return n.PreAlarm })
			emit(EventPreAlarm, fresh, 0)
		} else {
			s.Causes.GeneralAlarm |= fresh
			s.Unacked |= CategoryGeneralAlarm
			s.activate(func(NAC) bool { return true })
			s.UI.Silenced = false
			emit(EventGeneralAlarm, fresh, 0)
		}
	}

	troubles := [...]struct {
		reg            *Mask
		in             Edges
		raise, restore EventType
	}{
		{&s.Causes.SLCTrouble, in.SLCTrouble, EventSLCTrouble, EventSLCTroubleRestored},
		{&s.Causes.NACTrouble, in.NACTrouble, EventNACTrouble, EventNACTroubleRestored},
		{&s.Causes.GeneralTrouble, in.GeneralTrouble, EventGeneralTrouble, EventGeneralTroubleRestored},
	}
	for _, tr := range troubles {
		m := latchTrouble(tr.reg, tr.in)
		if m.Rise != 0 {
			s.Unacked |= CategoryTrouble
			emit(tr.raise, m.Rise, 0)
		}
		if m.Fall != 0 {
			emit(tr.restore, m.Fall, 0)
		}
	}

	if in.Pressed&ButtonReset != 0 {
		out.ResetRequested = true
		emit(EventResetArmed, 0, 0)
	}
	if in.Pressed&ButtonAcknowledge != 0 {
		if cat := s.acknowledge(); cat != 0 {
			emit(EventAcknowledged, 0, cat)
		}
	}
	if in.Pressed&ButtonSilence != 0 {
		if toggled, ok := s.silence(); ok {
			if s.UI.Silenced {
				emit(EventSilenced, toggled, 0)
			} else {
				emit(EventUnsilenced, toggled, 0)
			}
		}
	}
	if in.Pressed&ButtonFunction != 0 {
		emit(EventFunction, 0, 0)
	}

	s.Recompute()
	return out
}

// latchTrouble ORs in new trouble members and then clears restored ones.
// A member carrying both edges rose and restored since the last pass.
// Both returned masks are limited to members that actually changed.
func latchTrouble(reg *Mask, e Edges) Edges {
	var changed Edges
	changed.Rise = e.Rise &^ *reg
	*reg |= changed.Rise
	changed.Fall = e.Fall & *reg
	*reg &^= changed.Fall
	return changed
}

func (s *State) activate(want func(NAC) bool) {
	for i := range s.NACs {
		if !s.NACs[i].Disabled && want(s.NACs[i]) {
			s.NACs[i].Active = true
		}
	}
}

// acknowledge clears the highest priority unacknowledged category and
// returns it, or 0 when nothing was pending.
func (s *State) acknowledge() Category {
	for _, cat := range [...]Category{CategoryPreAlarm, CategoryGeneralAlarm, CategoryTrouble} {
		if s.Unacked&cat != 0 {
			s.Unacked &^= cat
			return cat
		}
	}
	return 0
}

// silence toggles the silenceable circuits appropriate to the alarm stage
// and returns the circuits that were toggled. The silenced indicator
// toggles in either alarm stage as long as any circuit is typed
// silenceable, even when none of them qualifies for the stage.
func (s *State) silence() (Mask, bool) {
	var preOnly bool
	switch {
	case s.Causes.PreAlarm != 0 && s.Causes.GeneralAlarm == 0:
		preOnly = true
	case s.Causes.GeneralAlarm != 0:
	default:
		return 0, false
	}

	var (
		toggled     Mask
		silenceable bool
	)
	for i, n := range s.NACs {
		if !n.Silenceable {
			continue
		}
		silenceable = true
		if n.Disabled || (preOnly && !n.PreAlarm) {
			continue
		}
		s.NACs[i].Active = !n.Active
		toggled |= Bit(i)
	}
	if !silenceable {
		return 0, false
	}
	s.UI.Silenced = !s.UI.Silenced
	return toggled, true
}

// Recompute derives the UI bits from the latched causes and acknowledge
// state. Only the silenced indicator is carried over.
func (s *State) Recompute() {
	alarmFlash := (s.Causes.PreAlarm != 0 && s.Unacked&CategoryPreAlarm != 0) ||
		(s.Causes.GeneralAlarm != 0 && s.Unacked&CategoryGeneralAlarm != 0)
	troubleFlash := s.Causes.Trouble() && s.Unacked&CategoryTrouble != 0

	s.UI = UI{
		AlarmFlash:   alarmFlash,
		AlarmSolid:   s.Causes.Alarm() != 0 && !alarmFlash,
		TroubleFlash: troubleFlash,
		TroubleSolid: s.Causes.Trouble() && !troubleFlash,
		Silenced:     s.UI.Silenced,
		Buzzer:       alarmFlash || troubleFlash,
	}
}

// Outputs is the logical output image handed to the output driver.
type Outputs struct {
	PowerLED   bool
	AlarmLED   bool
	TroubleLED bool
	SilenceLED bool
	Buzzer     bool
	NAC        [NumNAC]bool
}

// Render combines the state with the current phase into the output image.
func Render(s *State, ph Phase) Outputs {
	return Outputs{
		PowerLED:   !s.Causes.GeneralTrouble.Has(TroubleACPower),
		AlarmLED:   s.UI.AlarmSolid || (s.UI.AlarmFlash && ph.Has(PhaseFlasher)),
		TroubleLED: s.UI.TroubleSolid || (s.UI.TroubleFlash && ph.Has(PhaseFlasher)),
		SilenceLED: s.UI.Silenced,
		Buzzer:     s.UI.Buzzer && ph.Has(PhaseBuzzer),
		NAC:        Code(s.NACs, ph),
	}
}
