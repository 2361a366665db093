package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/fire-panel/internal/logic"
)

// maxRaw is the full-scale reading of a 10-bit converter.
const maxRaw = 0x3FF

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	p := cfg.Panel

	if p.Poll <= 0 {
		return fmt.Errorf("panel: poll must be positive, got %v", p.Poll)
	}
	if p.Poll > time.Second/logic.TickRate {
		return fmt.Errorf("panel: poll %v is slower than one tick (%v)", p.Poll, time.Second/logic.TickRate)
	}
	if p.Settle < 0 || p.Settle > time.Millisecond {
		return fmt.Errorf("panel: settle must be between 0 and 1ms, got %v", p.Settle)
	}

	if p.AlarmAt == 0 || p.AlarmAt > maxRaw {
		return fmt.Errorf("panel: alarm_at must be in 1..%d, got %d", maxRaw, p.AlarmAt)
	}
	if p.SLCTroubleBelow >= p.AlarmAt {
		return fmt.Errorf("panel: slc_trouble_below (%d) must be below alarm_at (%d)", p.SLCTroubleBelow, p.AlarmAt)
	}
	if p.NACTroubleBelow > maxRaw {
		return fmt.Errorf("panel: nac_trouble_below must be at most %d, got %d", maxRaw, p.NACTroubleBelow)
	}

	if len(p.NACs) != logic.NumNAC {
		return fmt.Errorf("panel: expected %d nacs, got %d", logic.NumNAC, len(p.NACs))
	}
	for i, n := range p.NACs {
		if n.Pattern == "" {
			continue
		}
		if _, err := logic.ParsePattern(n.Pattern); err != nil {
			return fmt.Errorf("panel: nac %d: %w", i+1, err)
		}
	}

	if len(p.Channels.NAC) != logic.NumNAC {
		return fmt.Errorf("panel: expected %d nac channels, got %d", logic.NumNAC, len(p.Channels.NAC))
	}
	if len(p.Channels.SLC) != logic.NumSLC {
		return fmt.Errorf("panel: expected %d slc channels, got %d", logic.NumSLC, len(p.Channels.SLC))
	}
	owner := make(map[uint8]string)
	for _, c := range p.ChannelSpecs() {
		name := fmt.Sprintf("%s %d", c.Family, c.Circuit+1)
		if prev, exists := owner[c.Input]; exists {
			return fmt.Errorf("panel: analog input %d used by %s and %s", c.Input, prev, name)
		}
		owner[c.Input] = name
	}

	if cfg.Analog.Shift > 6 {
		return fmt.Errorf("analog: shift must be at most 6, got %d", cfg.Analog.Shift)
	}
	if cfg.Analog.Endpoint != "" && cfg.Analog.Timeout <= 0 {
		return fmt.Errorf("analog: timeout must be positive, got %v", cfg.Analog.Timeout)
	}

	if cfg.GPIO.Chip == "" {
		return errors.New("gpio: chip required")
	}
	lines := make(map[int]bool)
	for _, l := range cfg.GPIO.Pins.Lines() {
		if lines[l] {
			return fmt.Errorf("gpio: line %d assigned twice", l)
		}
		lines[l] = true
	}

	if cfg.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt: heartbeat must not be negative, got %v", cfg.MQTT.Heartbeat)
	}

	return nil
}
