package logic

// Class is the classification of one raw sample.
type Class uint8

const (
	ClassAlarm Class = 1 << iota
	ClassTrouble
)

// DefaultAlarmAt is the raw reading (10-bit counts) at and above which an
// initiating circuit is in alarm.
const DefaultAlarmAt = 0x355

// Classifier turns raw analog readings into conditions.
// A zero trouble threshold disables trouble detection for that family.
type Classifier struct {
	AlarmAt         uint16
	SLCTroubleBelow uint16
	NACTroubleBelow uint16
}

// DefaultClassifier returns the reference thresholds: alarm detection on,
// trouble detection off for both families.
func DefaultClassifier() Classifier {
	return Classifier{AlarmAt: DefaultAlarmAt}
}

// Classify returns the conditions present in raw for a channel of family f.
func (c Classifier) Classify(f Family, raw uint16) Class {
	var cls Class
	switch f {
	case FamilySLC:
		if c.AlarmAt != 0 && raw >= c.AlarmAt {
			cls |= ClassAlarm
		}
		if raw < c.SLCTroubleBelow {
			cls |= ClassTrouble
		}
	case FamilyNAC:
		if raw < c.NACTroubleBelow {
			cls |= ClassTrouble
		}
	}
	return cls
}

// CycleEdges holds the confirmed edges of one complete scan cycle.
type CycleEdges struct {
	SLCAlarm   Edges
	SLCTrouble Edges
	NACTrouble Edges
}

// ScanStep tells the host what to do after a conversion result.
type ScanStep struct {
	// Next is the analog input to convert when More is set.
	Next uint8
	More bool
	// CycleDone is set when the result completed a full scan cycle;
	// Edges then holds that cycle's confirmed changes.
	CycleDone bool
	Edges     CycleEdges
}

// history is the rolling per-channel sample record of one tracked
// condition: previous cycle, current cycle and the last reported value.
type history struct {
	prev   Mask
	cur    Mask
	stable Mask
}

func (h *history) write(i int, on bool) {
	if on {
		h.cur |= Bit(i)
	} else {
		h.cur &^= Bit(i)
	}
}

// shift ends a cycle. A member is reported only when the previous and
// current cycles agree on a value different from the last reported one.
func (h *history) shift() Edges {
	agreed := ^(h.prev ^ h.cur)
	next := (h.stable &^ agreed) | (h.cur & agreed)
	e := Edges{
		Rise: next &^ h.stable,
		Fall: h.stable &^ next,
	}
	h.stable = next
	h.prev = h.cur
	return e
}

// Scanner round-robins the analog front end across all configured channels
// and debounces the classified results by full scan cycle.
// It runs in the interrupt context only and owns all sample history.
type Scanner struct {
	channels   []ChannelSpec
	classifier Classifier

	pos     int
	running bool
	cycles  uint64

	slcAlarm   history
	slcTrouble history
	nacTrouble history
}

// NewScanner creates an idle scanner over the given channels.
func NewScanner(channels []ChannelSpec, classifier Classifier) *Scanner {
	return &Scanner{
		channels:   channels,
		classifier: classifier,
	}
}

// Running reports whether a cycle is in progress.
func (s *Scanner) Running() bool {
	return s.running
}

// Cycles returns the number of completed scan cycles.
func (s *Scanner) Cycles() uint64 {
	return s.cycles
}

// Request handles a scan request. If no cycle is running a new one begins
// at the first channel and its input is returned with ok set. A request
// during a running cycle is absorbed.
func (s *Scanner) Request() (input uint8, ok bool) {
	if s.running || len(s.channels) == 0 {
		return 0, false
	}
	s.running = true
	s.pos = 0
	return s.channels[0].Input, true
}

// Complete classifies the raw reading for the channel in flight.
func (s *Scanner) Complete(raw uint16) ScanStep {
	if !s.running {
		return ScanStep{}
	}
	ch := s.channels[s.pos]
	cls := s.classifier.Classify(ch.Family, raw)
	switch ch.Family {
	case FamilySLC:
		s.slcAlarm.write(ch.Circuit, cls&ClassAlarm != 0)
		s.slcTrouble.write(ch.Circuit, cls&ClassTrouble != 0)
	case FamilyNAC:
		s.nacTrouble.write(ch.Circuit, cls&ClassTrouble != 0)
	}
	return s.advance()
}

// Fail skips the channel in flight after a failed conversion. The channel
// keeps its previous classification.
func (s *Scanner) Fail() ScanStep {
	if !s.running {
		return ScanStep{}
	}
	return s.advance()
}

func (s *Scanner) advance() ScanStep {
	s.pos++
	if s.pos < len(s.channels) {
		return ScanStep{Next: s.channels[s.pos].Input, More: true}
	}

	s.pos = 0
	s.running = false
	s.cycles++
	return ScanStep{
		CycleDone: true,
		Edges: CycleEdges{
			SLCAlarm:   s.slcAlarm.shift(),
			SLCTrouble: s.slcTrouble.shift(),
			NACTrouble: s.nacTrouble.shift(),
		},
	}
}
