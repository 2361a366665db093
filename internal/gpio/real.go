//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/fire-panel/internal/logic"
)

// RealPort drives the panel from actual hardware using the Linux GPIO
// character device. It implements both InputPort and OutputPort.
type RealPort struct {
	chip *gpiocdev.Chip
	in   *gpiocdev.Lines
	out  *gpiocdev.Lines
	raw  []int
}

// NewRealPort requests the panel lines on the named chip.
func NewRealPort(chipName string, pins Pins) (*RealPort, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Buttons and power sense pull up; a closed contact reads 0.
	in, err := chip.RequestLines(pins.inputs(), gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request input lines %v: %w", pins.inputs(), err)
	}

	// All outputs start low: LEDs dark, buzzer quiet, circuits off.
	out, err := chip.RequestLines(pins.outputs(), gpiocdev.AsOutput(make([]int, len(pins.outputs()))...))
	if err != nil {
		in.Close()
		chip.Close()
		return nil, fmt.Errorf("request output lines %v: %w", pins.outputs(), err)
	}

	return &RealPort{
		chip: chip,
		in:   in,
		out:  out,
		raw:  make([]int, len(pins.inputs())),
	}, nil
}

// Read returns the logical input levels.
func (p *RealPort) Read() (Inputs, error) {
	if err := p.in.Values(p.raw); err != nil {
		return Inputs{}, fmt.Errorf("read input lines: %w", err)
	}
	return decodeInputs(p.raw), nil
}

// Write sets every output line from the logical image.
func (p *RealPort) Write(out logic.Outputs) error {
	if err := p.out.SetValues(encodeOutputs(out)); err != nil {
		return fmt.Errorf("write output lines: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// Output lines are reconfigured to input with pull-down (matching Pi boot
// defaults) before closing so no notification circuit is left driven.
func (p *RealPort) Close() error {
	var errs []error

	if p.out != nil {
		if err := p.out.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure output lines: %w", err))
		}
		if err := p.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output lines: %w", err))
		}
	}
	if p.in != nil {
		if err := p.in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input lines: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
