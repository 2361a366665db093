package internal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/fire-panel/internal/adc"
	"github.com/sweeney/fire-panel/internal/controller"
	"github.com/sweeney/fire-panel/internal/gpio"
	"github.com/sweeney/fire-panel/internal/logic"
	"github.com/sweeney/fire-panel/internal/mqtt"
	"github.com/sweeney/fire-panel/internal/status"
)

const (
	rawNormal = 0x200
	rawAlarm  = 0x3A0
)

// slcInput is the analog input of SLC circuit n (1-based) in the default wiring.
func slcInput(n int) uint8 {
	return uint8(5 + n)
}

// panel wires the controller to fakes for every I/O boundary and drives
// both contexts from the test goroutine.
type panel struct {
	ctrl      *controller.Controller
	adc       *adc.Fake
	inputs    *gpio.FakeInputs
	outputs   *gpio.FakeOutputs
	publisher *mqtt.FakePublisher
	queue     *mqtt.Queue
	tracker   *status.Tracker
	resets    int
	now       time.Time
}

func newPanel(t *testing.T, preAlarm bool, nacs [logic.NumNAC]logic.NACConfig) *panel {
	t.Helper()
	p := &panel{
		adc:       adc.NewFake(rawNormal),
		inputs:    gpio.NewFakeInputs(gpio.Inputs{}),
		outputs:   gpio.NewFakeOutputs(),
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(time.Now(), status.Config{}),
		now:       time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	p.queue = mqtt.NewQueue(p.publisher, 64)
	p.ctrl = controller.New(controller.Config{
		PreAlarm:   preAlarm,
		NACs:       nacs,
		Channels:   logic.DefaultChannels(),
		Classifier: logic.DefaultClassifier(),
	}, controller.Deps{
		Converter: p.adc,
		Inputs:    p.inputs,
		Outputs:   p.outputs,
		Notifier:  p.queue,
		Resetter:  controller.ResetFunc(func() { p.resets++ }),
		Tracker:   p.tracker,
	})
	p.ctrl.Boot(p.now)
	return p
}

func referenceNACs() [logic.NumNAC]logic.NACConfig {
	var nacs [logic.NumNAC]logic.NACConfig
	for i := range nacs {
		nacs[i] = logic.NACConfig{Silenceable: true}
	}
	nacs[0].Pattern = logic.PatternTemporal3
	return nacs
}

// scan runs two full scan cycles, enough to debounce any change, then one
// main-loop pass.
func (p *panel) scan(t *testing.T) {
	t.Helper()
	for c := 0; c < 2; c++ {
		for i := 0; i < 8; i++ {
			if err := p.ctrl.HandleTick(); err != nil {
				t.Fatalf("HandleTick: %v", err)
			}
		}
		for drained := false; !drained; {
			select {
			case s := <-p.adc.Done():
				p.ctrl.HandleSample(s)
			default:
				drained = true
			}
		}
	}
	p.pass()
}

func (p *panel) pass() {
	p.now = p.now.Add(10 * time.Millisecond)
	p.ctrl.Pass(p.now)
}

// press holds a button for one pass and releases it on the next.
func (p *panel) press(in gpio.Inputs) {
	p.inputs.Set(in)
	p.pass()
	p.inputs.Set(gpio.Inputs{})
	p.pass()
}

// flush publishes everything queued so far.
func (p *panel) flush() []logic.Event {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.queue.Run(ctx)
	events := p.publisher.Published()
	p.publisher.Reset()
	return events
}

func expectTypes(t *testing.T, events []logic.Event, want ...logic.EventType) {
	t.Helper()
	if len(events) != len(want) {
		var got []logic.EventType
		for _, e := range events {
			got = append(got, e.Type)
		}
		t.Fatalf("expected events %v, got %v", want, got)
	}
	for i := range want {
		if events[i].Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], events[i].Type)
		}
	}
}

// TestIntegrationFireSequence walks a pre-alarm panel through detection,
// acknowledgement, escalation, silence, resound and reset.
func TestIntegrationFireSequence(t *testing.T) {
	nacs := referenceNACs()
	nacs[0].PreAlarm = true
	p := newPanel(t, true, nacs)

	p.scan(t)
	expectTypes(t, p.flush())

	// Smoke at SLC 3: pre-alarm, only the pre-alarm circuit sounds.
	p.adc.Set(slcInput(3), rawAlarm)
	p.scan(t)
	events := p.flush()
	expectTypes(t, events, logic.EventPreAlarm)
	if events[0].Circuits != logic.Bit(2) {
		t.Errorf("pre-alarm circuits: got %v", events[0].Circuits.Circuits())
	}
	st := p.ctrl.State()
	if !st.NACs[0].Active || st.NACs[1].Active {
		t.Errorf("expected only NAC 1 active, got %+v", st.NACs)
	}

	p.press(gpio.Inputs{Acknowledge: true})
	events = p.flush()
	expectTypes(t, events, logic.EventAcknowledged)
	if events[0].Category != logic.CategoryPreAlarm {
		t.Errorf("acknowledged category: got %s", events[0].Category)
	}

	// Second detector at SLC 5 escalates to general alarm.
	p.adc.Set(slcInput(5), rawAlarm)
	p.scan(t)
	expectTypes(t, p.flush(), logic.EventGeneralAlarm)
	st = p.ctrl.State()
	for i, n := range st.NACs {
		if !n.Active {
			t.Errorf("NAC %d should be active in general alarm", i+1)
		}
	}

	p.press(gpio.Inputs{Silence: true})
	expectTypes(t, p.flush(), logic.EventSilenced)
	out, _ := p.outputs.Last()
	if !out.SilenceLED {
		t.Error("silence LED should be lit")
	}
	for i, on := range out.NAC {
		if on {
			t.Errorf("NAC %d should be silent", i+1)
		}
	}

	// A third detector resounds.
	p.adc.Set(slcInput(6), rawAlarm)
	p.scan(t)
	expectTypes(t, p.flush(), logic.EventGeneralAlarm)
	st = p.ctrl.State()
	if st.UI.Silenced {
		t.Error("resound should clear the silenced indicator")
	}
	if !st.NACs[3].Active {
		t.Error("resound should reactivate silenced circuits")
	}

	// Reset: armed by the button, performed by the tick context.
	p.press(gpio.Inputs{Reset: true})
	expectTypes(t, p.flush(), logic.EventResetArmed)
	if !p.tracker.Snapshot().ResetPending {
		t.Error("status should show the reset pending")
	}
	for i := 0; i < 2*logic.ResetSteps+8; i++ {
		if err := p.ctrl.HandleTick(); err != nil {
			if !errors.Is(err, controller.ErrReset) {
				t.Fatalf("HandleTick: %v", err)
			}
			break
		}
	}
	if p.resets != 1 {
		t.Errorf("expected one full reset, got %d", p.resets)
	}
}

// TestIntegrationAlarmLatchesUntilReset verifies that restore, acknowledge
// and silence never clear an alarm.
func TestIntegrationAlarmLatchesUntilReset(t *testing.T) {
	p := newPanel(t, false, referenceNACs())

	p.adc.Set(slcInput(1), rawAlarm)
	p.scan(t)
	p.adc.Set(slcInput(1), rawNormal)
	p.scan(t)
	p.press(gpio.Inputs{Acknowledge: true})
	p.press(gpio.Inputs{Silence: true})
	p.press(gpio.Inputs{Silence: true})

	expectTypes(t, p.flush(),
		logic.EventGeneralAlarm,
		logic.EventAcknowledged,
		logic.EventSilenced,
		logic.EventUnsilenced,
	)
	st := p.ctrl.State()
	if st.Causes.GeneralAlarm != logic.Bit(0) {
		t.Errorf("general alarm should stay latched, got %v", st.Causes.GeneralAlarm.Circuits())
	}
	if !st.UI.AlarmSolid {
		t.Error("acknowledged alarm should be solid")
	}
}

// TestIntegrationFlickerNeverReported alternates a detector every scan
// cycle; no alarm may result.
func TestIntegrationFlickerNeverReported(t *testing.T) {
	p := newPanel(t, false, referenceNACs())

	for c := 0; c < 12; c++ {
		raw := uint16(rawNormal)
		if c%2 == 1 {
			raw = rawAlarm
		}
		p.adc.Set(slcInput(2), raw)
		for i := 0; i < 8; i++ {
			p.ctrl.HandleTick()
		}
		for drained := false; !drained; {
			select {
			case s := <-p.adc.Done():
				p.ctrl.HandleSample(s)
			default:
				drained = true
			}
		}
		p.pass()
	}
	expectTypes(t, p.flush())
	if p.ctrl.State().Causes.Alarm() != 0 {
		t.Error("flicker must not latch an alarm")
	}
}

// TestIntegrationDisabledNACNeverDriven checks that a software-disabled
// circuit is reported as trouble and never sounds.
func TestIntegrationDisabledNACNeverDriven(t *testing.T) {
	nacs := referenceNACs()
	nacs[1].Disabled = true
	p := newPanel(t, false, nacs)

	events := p.flush()
	expectTypes(t, events, logic.EventNACDisabled)

	p.adc.Set(slcInput(4), rawAlarm)
	p.scan(t)
	for i := 0; i < 32; i++ {
		p.ctrl.HandleTick()
		p.pass()
	}
	for i, out := range p.outputs.Writes {
		if out.NAC[1] {
			t.Fatalf("write %d drove disabled NAC 2", i)
		}
	}
	out, _ := p.outputs.Last()
	if !out.NAC[2] {
		t.Error("enabled steady NAC 3 should sound")
	}
}

// TestIntegrationPublishFailureDoesNotCrash keeps the panel running while
// the broker rejects every event.
func TestIntegrationPublishFailureDoesNotCrash(t *testing.T) {
	p := newPanel(t, false, referenceNACs())
	p.publisher.PublishError = errors.New("broker down")

	p.adc.Set(slcInput(7), rawAlarm)
	p.scan(t)
	p.flush()

	if p.ctrl.State().Causes.GeneralAlarm != logic.Bit(6) {
		t.Error("alarm should latch regardless of publish failures")
	}
	if p.tracker.Snapshot().Counts.GeneralAlarms != 1 {
		t.Error("event counts should include unpublished events")
	}
}

// TestIntegrationPayloadFormat checks the wire format of a published event.
func TestIntegrationPayloadFormat(t *testing.T) {
	p := newPanel(t, false, referenceNACs())
	p.adc.Set(slcInput(3), rawAlarm)
	p.adc.Set(slcInput(8), rawAlarm)
	p.scan(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.queue.Run(ctx)

	if len(p.publisher.Payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(p.publisher.Payloads))
	}
	var parsed mqtt.Payload
	if err := json.Unmarshal(p.publisher.Payloads[0], &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Panel.Event != "GENERAL_ALARM" {
		t.Errorf("event: got %q", parsed.Panel.Event)
	}
	if len(parsed.Panel.Circuits) != 2 || parsed.Panel.Circuits[0] != 3 || parsed.Panel.Circuits[1] != 8 {
		t.Errorf("circuits: got %v, want [3 8]", parsed.Panel.Circuits)
	}
	if parsed.Panel.Timestamp == "" {
		t.Error("missing timestamp")
	}
	if parsed.Panel.Priority != mqtt.PriorityAlarm {
		t.Errorf("priority: got %q", parsed.Panel.Priority)
	}
	if parsed.Panel.Category != "" {
		t.Errorf("category should be omitted, got %q", parsed.Panel.Category)
	}
}

// TestIntegrationStatusReflectsPanel checks the status view the web and
// MQTT system events are built from.
func TestIntegrationStatusReflectsPanel(t *testing.T) {
	p := newPanel(t, false, referenceNACs())
	p.inputs.Set(gpio.Inputs{ACPowerLoss: true})
	p.scan(t)

	snap := p.tracker.Snapshot()
	if !snap.Ready() {
		t.Error("panel should be ready after two scan cycles")
	}
	inner := status.Build(snap)
	if inner.Indicators.Power {
		t.Error("power indicator should be off on AC loss")
	}
	if inner.Indicators.Trouble != "FLASH" {
		t.Errorf("trouble indicator: got %q, want FLASH", inner.Indicators.Trouble)
	}
	if len(inner.Unacknowledged) != 1 || inner.Unacknowledged[0] != "TROUBLE" {
		t.Errorf("unacknowledged: got %v", inner.Unacknowledged)
	}
}
