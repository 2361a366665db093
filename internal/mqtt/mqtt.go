// Package mqtt publishes panel events and daemon lifecycle events to an
// MQTT broker. The Publisher interface has a paho-backed implementation
// and a recording fake for tests.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/fire-panel/internal/logic"
)

const (
	// Topic carries one message per panel event.
	Topic = "fire/panel/events"

	// TopicSystem carries STARTUP, RESET, HEARTBEAT and SHUTDOWN messages.
	// Lifecycle messages are retained so a new subscriber sees the last one.
	TopicSystem = "fire/panel/system"
)

// Publisher delivers panel and system events. Errors are reported to the
// caller and never stop the panel.
type Publisher interface {
	Publish(event logic.Event) error
	PublishSystem(event SystemEvent) error
	Close() error
}

// ConnectionStatus reports whether the broker connection is up.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent is a daemon lifecycle event.
type SystemEvent struct {
	Timestamp time.Time
	Event     string // STARTUP, RESET, HEARTBEAT, SHUTDOWN
	Reason    string // signal name, RESET_BUTTON or MQTT_DISCONNECT

	// RawPayload replaces the generated payload when set. The daemon
	// fills it with a full status snapshot.
	RawPayload []byte
	Retained   bool
}

// Priority groups event types by how urgently a monitoring station needs
// them.
type Priority string

const (
	PriorityAlarm    Priority = "alarm"
	PriorityTrouble  Priority = "trouble"
	PriorityOperator Priority = "operator"
)

// PriorityOf returns the priority of an event type.
func PriorityOf(t logic.EventType) Priority {
	switch t {
	case logic.EventPreAlarm, logic.EventGeneralAlarm:
		return PriorityAlarm
	case logic.EventSLCTrouble, logic.EventSLCTroubleRestored,
		logic.EventNACTrouble, logic.EventNACTroubleRestored,
		logic.EventNACDisabled,
		logic.EventGeneralTrouble, logic.EventGeneralTroubleRestored:
		return PriorityTrouble
	default:
		return PriorityOperator
	}
}

// Payload is the JSON body published on Topic.
type Payload struct {
	Panel PanelPayload `json:"panel"`
}

// PanelPayload describes one panel event. Circuits are 1-based.
type PanelPayload struct {
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
	Priority  Priority `json:"priority"`
	Circuits  []int    `json:"circuits,omitempty"`
	Category  string   `json:"category,omitempty"`
}

// FormatPayload encodes a panel event for Topic.
func FormatPayload(event logic.Event) ([]byte, error) {
	return json.Marshal(Payload{Panel: PanelPayload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
		Priority:  PriorityOf(event.Type),
		Circuits:  event.Circuits.Circuits(),
		Category:  event.Category.String(),
	}})
}

// SystemPayload is the JSON body of a lifecycle event that carries no
// status snapshot, such as the broker will.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner holds the lifecycle event fields.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload encodes a lifecycle event for TopicSystem.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{System: SystemPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}})
}

// eventMessage builds the wire message for a panel event.
func eventMessage(event logic.Event) (bufferedMsg, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return bufferedMsg{}, err
	}
	return bufferedMsg{
		topic:   Topic,
		payload: payload,
		qos:     1,
		alarm:   PriorityOf(event.Type) == PriorityAlarm,
	}, nil
}

// systemMessage builds the wire message for a lifecycle event.
func systemMessage(event SystemEvent) (bufferedMsg, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return bufferedMsg{}, err
	}
	return bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained}, nil
}
