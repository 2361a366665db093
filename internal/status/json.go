package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fire-panel/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string         `json:"event,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Ready          bool           `json:"ready"`
	Condition      Condition      `json:"condition"`
	Alarm          AlarmJSON      `json:"alarm"`
	Trouble        TroubleJSON    `json:"trouble"`
	Unacknowledged []string       `json:"unacknowledged"`
	Indicators     IndicatorsJSON `json:"indicators"`
	NACs           []NACJSON      `json:"nacs"`
	ResetPending   bool           `json:"reset_pending"`
	ScanCycles     uint64         `json:"scan_cycles"`
	UptimeSeconds  int64          `json:"uptime_seconds"`
	StartTime      string         `json:"start_time"`
	Timestamp      string         `json:"timestamp"`
	MQTT           MQTTStatus     `json:"mqtt"`
	Counts         CountsJSON     `json:"event_counts"`
	Network        *NetworkJSON   `json:"network,omitempty"`
	Config         ConfigJSON     `json:"config"`
}

// AlarmJSON lists latched alarm circuits (1-based).
type AlarmJSON struct {
	PreAlarm     []int `json:"pre_alarm"`
	GeneralAlarm []int `json:"general_alarm"`
}

// TroubleJSON lists latched trouble circuits and sources.
type TroubleJSON struct {
	SLC         []int    `json:"slc"`
	NAC         []int    `json:"nac"`
	NACDisabled []int    `json:"nac_disabled"`
	General     []string `json:"general"`
}

// IndicatorsJSON reports the front-panel indicators.
// LED modes are "OFF", "FLASH" or "SOLID".
type IndicatorsJSON struct {
	Power    bool   `json:"power"`
	Alarm    string `json:"alarm"`
	Trouble  string `json:"trouble"`
	Silenced bool   `json:"silenced"`
	Buzzer   bool   `json:"buzzer"`
}

// NACJSON reports one notification circuit.
type NACJSON struct {
	Circuit     int    `json:"circuit"`
	Active      bool   `json:"active"`
	Output      bool   `json:"output"`
	Disabled    bool   `json:"disabled"`
	Silenceable bool   `json:"silenceable"`
	PreAlarm    bool   `json:"pre_alarm"`
	Pattern     string `json:"pattern"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	PreAlarms     int `json:"pre_alarms"`
	GeneralAlarms int `json:"general_alarms"`
	Troubles      int `json:"troubles"`
	Restores      int `json:"restores"`
	Acknowledges  int `json:"acknowledges"`
	Silences      int `json:"silences"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPPort    string `json:"http_port"`
	WSBroker    string `json:"ws_broker,omitempty"`
	PreAlarm    bool   `json:"pre_alarm"`
	AlarmAt     uint16 `json:"alarm_at"`
	Analog      string `json:"analog"`
}

// generalTroubleNames names the general trouble sources by bit.
var generalTroubleNames = map[int]string{
	logic.TroubleACPower: "ac_power",
}

// LEDMode returns the display mode of an indicator.
func LEDMode(flash, solid bool) string {
	switch {
	case flash:
		return "FLASH"
	case solid:
		return "SOLID"
	}
	return "OFF"
}

func circuits(m logic.Mask) []int {
	c := m.Circuits()
	if c == nil {
		return []int{}
	}
	return c
}

func generalTroubles(m logic.Mask) []string {
	names := []string{}
	for _, i := range m.Circuits() {
		name, ok := generalTroubleNames[i-1]
		if !ok {
			continue
		}
		names = append(names, name)
	}
	return names
}

func unacknowledged(c logic.Category) []string {
	out := []string{}
	for _, cat := range []logic.Category{logic.CategoryPreAlarm, logic.CategoryGeneralAlarm, logic.CategoryTrouble} {
		if c&cat != 0 {
			out = append(out, cat.String())
		}
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	st := snap.State

	nacs := make([]NACJSON, 0, logic.NumNAC)
	for i, n := range st.NACs {
		nacs = append(nacs, NACJSON{
			Circuit:     i + 1,
			Active:      n.Active,
			Output:      snap.Outputs.NAC[i],
			Disabled:    n.Disabled,
			Silenceable: n.Silenceable,
			PreAlarm:    n.PreAlarm,
			Pattern:     n.Pattern.String(),
		})
	}

	return StatusInner{
		Ready:     snap.Ready(),
		Condition: snap.Condition(),
		Alarm: AlarmJSON{
			PreAlarm:     circuits(st.Causes.PreAlarm),
			GeneralAlarm: circuits(st.Causes.GeneralAlarm),
		},
		Trouble: TroubleJSON{
			SLC:         circuits(st.Causes.SLCTrouble),
			NAC:         circuits(st.Causes.NACTrouble),
			NACDisabled: circuits(st.Causes.NACDisabled),
			General:     generalTroubles(st.Causes.GeneralTrouble),
		},
		Unacknowledged: unacknowledged(st.Unacked),
		Indicators: IndicatorsJSON{
			Power:    !st.Causes.GeneralTrouble.Has(logic.TroubleACPower),
			Alarm:    LEDMode(st.UI.AlarmFlash, st.UI.AlarmSolid),
			Trouble:  LEDMode(st.UI.TroubleFlash, st.UI.TroubleSolid),
			Silenced: st.UI.Silenced,
			Buzzer:   st.UI.Buzzer,
		},
		NACs:          nacs,
		ResetPending:  snap.ResetPending,
		ScanCycles:    snap.ScanCycles,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			PreAlarms:     snap.Counts.PreAlarms,
			GeneralAlarms: snap.Counts.GeneralAlarms,
			Troubles:      snap.Counts.Troubles,
			Restores:      snap.Counts.Restores,
			Acknowledges:  snap.Counts.Acknowledges,
			Silences:      snap.Counts.Silences,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPPort:    snap.Config.HTTPPort,
			WSBroker:    snap.Config.WSBroker,
			PreAlarm:    snap.Config.PreAlarm,
			AlarmAt:     snap.Config.AlarmAt,
			Analog:      snap.Config.Analog,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// Build returns the status view of snap (no event/reason).
func Build(snap Snapshot) StatusInner {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: Build(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := Build(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
