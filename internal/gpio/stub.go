//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/fire-panel/internal/logic"
)

// ErrUnsupported is returned by every RealPort operation off Linux. Use
// -sim to run the panel on a development machine.
var ErrUnsupported = errors.New("gpio: character device requires linux")

// RealPort is a placeholder so the daemon builds on other platforms.
type RealPort struct{}

func NewRealPort(chipName string, pins Pins) (*RealPort, error) {
	return nil, ErrUnsupported
}

func (p *RealPort) Read() (Inputs, error)         { return Inputs{}, ErrUnsupported }
func (p *RealPort) Write(out logic.Outputs) error { return ErrUnsupported }
func (p *RealPort) Close() error                  { return nil }
