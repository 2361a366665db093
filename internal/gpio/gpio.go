// Package gpio provides the panel's digital input and output ports with
// hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/fire-panel/internal/logic"

// Inputs is one read of the digital input port, in logical form.
type Inputs struct {
	Reset       bool
	Acknowledge bool
	Silence     bool
	Function    bool
	ACPowerLoss bool
}

// Buttons returns the buttons currently held down.
func (in Inputs) Buttons() logic.Button {
	var b logic.Button
	if in.Reset {
		b |= logic.ButtonReset
	}
	if in.Acknowledge {
		b |= logic.ButtonAcknowledge
	}
	if in.Silence {
		b |= logic.ButtonSilence
	}
	if in.Function {
		b |= logic.ButtonFunction
	}
	return b
}

// GeneralTrouble returns the general trouble sources currently present.
func (in Inputs) GeneralTrouble() logic.Mask {
	var m logic.Mask
	if in.ACPowerLoss {
		m |= logic.Bit(logic.TroubleACPower)
	}
	return m
}

// InputPort reads the front-panel buttons and supervision lines.
type InputPort interface {
	// Read returns the logical input levels.
	// Buttons and the power-loss sense are wired active-low.
	Read() (Inputs, error)

	// Close releases GPIO resources.
	Close() error
}

// OutputPort drives the LEDs, buzzer and notification circuits.
// It is the only place logical output bits are mapped to pins.
type OutputPort interface {
	Write(out logic.Outputs) error
	Close() error
}

// Pins maps panel signals to line offsets on one GPIO chip.
type Pins struct {
	Reset       int `yaml:"reset"`
	Acknowledge int `yaml:"acknowledge"`
	Silence     int `yaml:"silence"`
	Function    int `yaml:"function"`
	ACPowerLoss int `yaml:"ac_power_loss"`

	PowerLED   int               `yaml:"power_led"`
	AlarmLED   int               `yaml:"alarm_led"`
	TroubleLED int               `yaml:"trouble_led"`
	SilenceLED int               `yaml:"silence_led"`
	Buzzer     int               `yaml:"buzzer"`
	NAC        [logic.NumNAC]int `yaml:"nac"`
}

// DefaultPins returns the reference wiring (BCM numbering).
func DefaultPins() Pins {
	return Pins{
		Reset:       5,
		Acknowledge: 6,
		Silence:     13,
		Function:    19,
		ACPowerLoss: 26,

		PowerLED:   12,
		AlarmLED:   16,
		TroubleLED: 20,
		SilenceLED: 21,
		Buzzer:     18,
		NAC:        [logic.NumNAC]int{17, 27, 22, 23},
	}
}

func (p Pins) inputs() []int {
	return []int{p.Reset, p.Acknowledge, p.Silence, p.Function, p.ACPowerLoss}
}

func (p Pins) outputs() []int {
	return []int{p.PowerLED, p.AlarmLED, p.TroubleLED, p.SilenceLED, p.Buzzer,
		p.NAC[0], p.NAC[1], p.NAC[2], p.NAC[3]}
}

// Lines returns every line offset the panel uses.
func (p Pins) Lines() []int {
	return append(p.inputs(), p.outputs()...)
}

// decodeInputs converts raw active-low levels (ordered as Pins.inputs)
// into logical inputs.
func decodeInputs(raw []int) Inputs {
	return Inputs{
		Reset:       raw[0] == 0,
		Acknowledge: raw[1] == 0,
		Silence:     raw[2] == 0,
		Function:    raw[3] == 0,
		ACPowerLoss: raw[4] == 0,
	}
}

// encodeOutputs converts the logical output image into raw levels ordered
// as Pins.outputs. Outputs are active-high.
func encodeOutputs(out logic.Outputs) []int {
	return []int{
		level(out.PowerLED), level(out.AlarmLED), level(out.TroubleLED),
		level(out.SilenceLED), level(out.Buzzer),
		level(out.NAC[0]), level(out.NAC[1]), level(out.NAC[2]), level(out.NAC[3]),
	}
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
