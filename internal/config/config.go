// Package config loads the panel configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/fire-panel/internal/adc"
	"github.com/sweeney/fire-panel/internal/gpio"
	"github.com/sweeney/fire-panel/internal/logic"
)

type Config struct {
	Panel  PanelConfig  `yaml:"panel"`
	Analog AnalogConfig `yaml:"analog"`
	GPIO   GPIOConfig   `yaml:"gpio"`
	MQTT   MQTTConfig   `yaml:"mqtt"`
	HTTP   HTTPConfig   `yaml:"http"`
}

// ---- PANEL ----

type PanelConfig struct {
	PreAlarm bool `yaml:"pre_alarm"`

	// Poll is the main loop pass interval.
	Poll time.Duration `yaml:"poll"`
	// Settle is how long the interrupt goroutine sleeps after selecting
	// a channel, before starting its conversion.
	Settle time.Duration `yaml:"settle"`

	AlarmAt         uint16 `yaml:"alarm_at"`
	SLCTroubleBelow uint16 `yaml:"slc_trouble_below"` // 0 = disabled
	NACTroubleBelow uint16 `yaml:"nac_trouble_below"` // 0 = disabled

	NACs     []NACConfig    `yaml:"nacs"`
	Channels ChannelsConfig `yaml:"channels"`
}

type NACConfig struct {
	Disabled    bool   `yaml:"disabled"`
	Silenceable *bool  `yaml:"silenceable"` // nil = silenceable
	PreAlarm    bool   `yaml:"pre_alarm"`
	Pattern     string `yaml:"pattern"` // empty = steady
}

// ChannelsConfig assigns analog inputs to circuits, in circuit order.
type ChannelsConfig struct {
	NAC []uint8 `yaml:"nac"`
	SLC []uint8 `yaml:"slc"`
}

// ---- ANALOG FRONT END ----

type AnalogConfig struct {
	Endpoint    string        `yaml:"endpoint"` // empty = simulated
	UnitID      uint8         `yaml:"unit_id"`
	BaseAddress uint16        `yaml:"base_address"`
	Shift       uint          `yaml:"shift"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ---- GPIO ----

type GPIOConfig struct {
	Chip string    `yaml:"chip"`
	Pins gpio.Pins `yaml:"pins"`
}

// ---- MQTT ----

type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 = disabled
}

// ---- HTTP ----

type HTTPConfig struct {
	Addr     string `yaml:"addr"`
	WSBroker string `yaml:"ws_broker"`
}

// Default returns the reference panel: pre-alarm off, NAC 1 on
// Temporal-3, every circuit silenceable, NACs 3 and 4 software-disabled,
// trouble sensing off.
func Default() *Config {
	nacs := make([]NACConfig, logic.NumNAC)
	nacs[0].Pattern = logic.PatternTemporal3.String()
	nacs[2].Disabled = true
	nacs[3].Disabled = true

	var ch ChannelsConfig
	for _, c := range logic.DefaultChannels() {
		switch c.Family {
		case logic.FamilyNAC:
			ch.NAC = append(ch.NAC, c.Input)
		case logic.FamilySLC:
			ch.SLC = append(ch.SLC, c.Input)
		}
	}

	return &Config{
		Panel: PanelConfig{
			Poll:     10 * time.Millisecond,
			Settle:   20 * time.Microsecond,
			AlarmAt:  logic.DefaultAlarmAt,
			NACs:     nacs,
			Channels: ch,
		},
		Analog: AnalogConfig{
			UnitID:  1,
			Timeout: 50 * time.Millisecond,
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
			Pins: gpio.DefaultPins(),
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://localhost:1883",
			Heartbeat: 15 * time.Minute,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
	}
}

// Load reads the YAML file at path over the defaults.
// An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Classifier returns the sample classifier thresholds.
func (p PanelConfig) Classifier() logic.Classifier {
	return logic.Classifier{
		AlarmAt:         p.AlarmAt,
		SLCTroubleBelow: p.SLCTroubleBelow,
		NACTroubleBelow: p.NACTroubleBelow,
	}
}

// ChannelSpecs returns the scan order: NAC sense channels, then SLC.
func (p PanelConfig) ChannelSpecs() []logic.ChannelSpec {
	specs := make([]logic.ChannelSpec, 0, len(p.Channels.NAC)+len(p.Channels.SLC))
	for i, in := range p.Channels.NAC {
		specs = append(specs, logic.ChannelSpec{Family: logic.FamilyNAC, Circuit: i, Input: in})
	}
	for i, in := range p.Channels.SLC {
		specs = append(specs, logic.ChannelSpec{Family: logic.FamilySLC, Circuit: i, Input: in})
	}
	return specs
}

// NACConfigs converts the circuit list. It must only be called on a
// validated config.
func (p PanelConfig) NACConfigs() ([logic.NumNAC]logic.NACConfig, error) {
	var out [logic.NumNAC]logic.NACConfig
	for i, n := range p.NACs {
		if i >= logic.NumNAC {
			break
		}
		pat := logic.PatternSteady
		if n.Pattern != "" {
			var err error
			pat, err = logic.ParsePattern(n.Pattern)
			if err != nil {
				return out, fmt.Errorf("nac %d: %w", i+1, err)
			}
		}
		out[i] = logic.NACConfig{
			Disabled:    n.Disabled,
			Silenceable: n.Silenceable == nil || *n.Silenceable,
			PreAlarm:    n.PreAlarm,
			Pattern:     pat,
		}
	}
	return out, nil
}

// ADC returns the converter settings.
func (a AnalogConfig) ADC() adc.Config {
	return adc.Config{
		Endpoint:    a.Endpoint,
		UnitID:      a.UnitID,
		BaseAddress: a.BaseAddress,
		Shift:       a.Shift,
		Timeout:     a.Timeout,
	}
}
