// Package controller hosts the panel's two execution contexts: the
// interrupt context (base tick and conversion completion) and the
// cooperative main loop (inputs, state machine, coder, output driver).
package controller

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/fire-panel/internal/adc"
	"github.com/sweeney/fire-panel/internal/gpio"
	"github.com/sweeney/fire-panel/internal/logic"
	"github.com/sweeney/fire-panel/internal/metrics"
	"github.com/sweeney/fire-panel/internal/status"
)

// ErrReset is returned by the interrupt loop after the full reset has been
// invoked. Nothing in the controller runs after it.
var ErrReset = errors.New("controller: full reset")

// Notifier receives panel events without blocking. It reports false if the
// event had to be dropped.
type Notifier interface {
	Enqueue(event logic.Event) bool
}

// Resetter performs the full system reset.
type Resetter interface {
	Reset()
}

// ResetFunc adapts a function to Resetter.
type ResetFunc func()

// Reset calls f.
func (f ResetFunc) Reset() { f() }

// flagReset is raised by the main loop and taken by the interrupt context.
const flagReset uint32 = 1 << 0

// Config is the fixed panel configuration.
type Config struct {
	PreAlarm   bool
	NACs       [logic.NumNAC]logic.NACConfig
	Channels   []logic.ChannelSpec
	Classifier logic.Classifier
	// Settle is waited after selecting each channel, before its
	// conversion starts. The wait sleeps the interrupt goroutine.
	Settle time.Duration
}

// Deps are the I/O boundaries the controller drives.
// Tracker and Metrics may be nil.
type Deps struct {
	Converter adc.Converter
	Inputs    gpio.InputPort
	Outputs   gpio.OutputPort
	Notifier  Notifier
	Resetter  Resetter
	Tracker   *status.Tracker
	Metrics   *metrics.Metrics
}

// Controller owns the panel state and the context-crossing primitives.
type Controller struct {
	deps Deps

	// Interrupt context only.
	sched  *logic.Scheduler
	scan   *logic.Scanner
	settle time.Duration
	wait   func(time.Duration)

	// Shared between contexts.
	flags        logic.Flags
	phase        atomic.Uint32
	cycles       atomic.Uint64
	resetPending atomic.Bool
	slcAlarm     logic.EdgeLatch
	slcTrouble   logic.EdgeLatch
	nacTrouble   logic.EdgeLatch

	// Main loop only.
	state   logic.State
	buttons logic.LevelTracker
	power   logic.LevelTracker
	counts  logic.EventCounts
}

// New creates a controller in the boot state.
func New(cfg Config, deps Deps) *Controller {
	c := &Controller{
		deps:   deps,
		sched:  logic.NewScheduler(),
		scan:   logic.NewScanner(cfg.Channels, cfg.Classifier),
		settle: cfg.Settle,
		wait:   time.Sleep,
		state:  logic.NewState(cfg.PreAlarm, cfg.NACs),
	}
	c.phase.Store(uint32(c.sched.Phase()))
	return c
}

// HandleTick runs one base tick in the interrupt context. It returns
// ErrReset once the reset countdown has expired and the full reset has
// been invoked.
func (c *Controller) HandleTick() error {
	if c.flags.Take(flagReset) != 0 {
		c.sched.ArmReset()
	}

	ev := c.sched.Tick()
	c.phase.Store(uint32(c.sched.Phase()))
	c.resetPending.Store(c.sched.ResetPending())

	if ev.Reset {
		log.Printf("reset countdown expired, performing full reset")
		c.deps.Resetter.Reset()
		return ErrReset
	}

	if ev.Scan {
		if input, ok := c.scan.Request(); ok {
			c.start(input)
		}
	}
	return nil
}

// HandleSample consumes one completed conversion in the interrupt context
// and chains the next one.
func (c *Controller) HandleSample(s adc.Sample) {
	var step logic.ScanStep
	if s.Err != nil {
		log.Printf("adc conversion error: %v", s.Err)
		if c.deps.Metrics != nil {
			c.deps.Metrics.ADCErrorsTotal.Inc()
		}
		step = c.scan.Fail()
	} else {
		if c.deps.Metrics != nil {
			c.deps.Metrics.ConversionsTotal.Inc()
		}
		step = c.scan.Complete(s.Raw)
	}

	if next, ok := c.advance(step); ok {
		c.start(next)
	}
}

// start selects input, lets the multiplexer settle and begins the
// conversion. A converter that refuses the start is treated like a failed
// conversion and the scan moves on to the next channel.
func (c *Controller) start(input uint8) {
	for {
		if c.settle > 0 {
			c.wait(c.settle)
		}
		err := c.deps.Converter.Start(input)
		if err == nil {
			return
		}
		log.Printf("adc start input %d: %v", input, err)
		if c.deps.Metrics != nil {
			c.deps.Metrics.ADCErrorsTotal.Inc()
		}
		next, ok := c.advance(c.scan.Fail())
		if !ok {
			return
		}
		input = next
	}
}

// advance publishes a finished cycle and reports the next input to convert.
func (c *Controller) advance(step logic.ScanStep) (uint8, bool) {
	if step.CycleDone {
		c.slcAlarm.Post(step.Edges.SLCAlarm)
		c.slcTrouble.Post(step.Edges.SLCTrouble)
		c.nacTrouble.Post(step.Edges.NACTrouble)
		c.cycles.Store(c.scan.Cycles())
		if c.deps.Metrics != nil {
			c.deps.Metrics.ScanCyclesTotal.Inc()
		}
	}
	return step.Next, step.More
}

// Interrupts runs the interrupt context until ctx is cancelled or the full
// reset has been invoked.
func (c *Controller) Interrupts(ctx context.Context, tick <-chan time.Time) error {
	done := c.deps.Converter.Done()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			if err := c.HandleTick(); err != nil {
				return err
			}
		case s := <-done:
			c.HandleSample(s)
		}
	}
}

// Boot reports the conditions latched at power-up.
func (c *Controller) Boot(now time.Time) {
	c.notify(c.state.BootEvents(now))
	c.publishState(logic.Render(&c.state, c.Phase()))
}

// Pass runs one main-loop pass.
func (c *Controller) Pass(now time.Time) {
	var (
		pressed logic.Button
		power   logic.Edges
	)
	in, err := c.deps.Inputs.Read()
	if err != nil {
		log.Printf("input read error: %v", err)
		if c.deps.Metrics != nil {
			c.deps.Metrics.InputErrorsTotal.Inc()
		}
	} else {
		pressed = logic.Button(c.buttons.Update(logic.Mask(in.Buttons())).Rise)
		power = c.power.Update(in.GeneralTrouble())
	}

	out := logic.Step(&c.state, logic.Input{
		Time:           now,
		SLCAlarm:       c.slcAlarm.Take(),
		SLCTrouble:     c.slcTrouble.Take(),
		NACTrouble:     c.nacTrouble.Take(),
		GeneralTrouble: power,
		Pressed:        pressed,
	})
	if out.ResetRequested {
		log.Printf("reset requested, countdown armed")
		c.flags.Set(flagReset)
	}
	c.notify(out.Events)

	outputs := logic.Render(&c.state, c.Phase())
	if err := c.deps.Outputs.Write(outputs); err != nil {
		log.Printf("output write error: %v", err)
		if c.deps.Metrics != nil {
			c.deps.Metrics.OutputErrorsTotal.Inc()
		}
	}
	c.publishState(outputs)
}

// MainLoop boots the panel and runs a pass every poll interval until ctx
// is cancelled.
func (c *Controller) MainLoop(ctx context.Context, poll time.Duration) error {
	c.Boot(time.Now())

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			c.Pass(now)
		}
	}
}

func (c *Controller) notify(events []logic.Event) {
	for _, e := range events {
		log.Printf("event: %s circuits=%v category=%s", e.Type, e.Circuits.Circuits(), e.Category)
		c.counts.Add(e)
		if c.deps.Notifier != nil && !c.deps.Notifier.Enqueue(e) {
			log.Printf("event queue full, dropped %s", e.Type)
			if c.deps.Metrics != nil {
				c.deps.Metrics.DroppedEvents.Inc()
			}
		}
	}
	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveEvents(events)
	}
}

func (c *Controller) publishState(outputs logic.Outputs) {
	pending := c.ResetPending()
	if m := c.deps.Metrics; m != nil {
		m.ObserveState(&c.state)
		if pending {
			m.ResetPending.Set(1)
		} else {
			m.ResetPending.Set(0)
		}
	}
	if t := c.deps.Tracker; t != nil {
		t.Update(c.state, outputs, c.counts)
		t.SetScan(c.cycles.Load(), pending)
	}
}

// Phase returns the coder and flasher phase last published by the tick.
func (c *Controller) Phase() logic.Phase {
	return logic.Phase(c.phase.Load())
}

// ResetPending reports whether a reset has been requested or is counting down.
func (c *Controller) ResetPending() bool {
	return c.resetPending.Load() || c.flags.Peek()&flagReset != 0
}

// ScanCycles returns the number of completed scan cycles.
func (c *Controller) ScanCycles() uint64 {
	return c.cycles.Load()
}

// State returns a copy of the panel state. Main loop only.
func (c *Controller) State() logic.State {
	return c.state
}

// Counts returns the event counts since boot. Main loop only.
func (c *Controller) Counts() logic.EventCounts {
	return c.counts
}
