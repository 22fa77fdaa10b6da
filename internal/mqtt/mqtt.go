// Package mqtt publishes parking change documents and daemon lifecycle
// events to an MQTT broker, with abstraction for testing.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/parking-logger/internal/frame"
	"github.com/sweeney/parking-logger/internal/logic"
)

// TopicLogs receives one document per reported change.
const TopicLogs = "parking/sensor/logs"

// TopicCurrentState holds the latest state as a retained message, so the
// broker always serves exactly one current document.
const TopicCurrentState = "parking/sensor/current_state"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "parking/sensor/system"

// Publisher publishes change events and lifecycle events to MQTT.
type Publisher interface {
	// Name identifies the sink in logs.
	Name() string

	// Write publishes a change document and replaces the current state.
	// Returns error if publishing fails (should not crash the process).
	Write(ctx context.Context, event logic.ChangeEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Document is the JSON payload for one change.
type Document struct {
	ID                string `json:"id"`
	Timestamp         string `json:"timestamp"`
	SlotAvailable     int    `json:"slot_available"`
	Slot1Status       string `json:"slot1_status"`
	Slot2Status       string `json:"slot2_status"`
	Slot3Status       string `json:"slot3_status"`
	Slot4Status       string `json:"slot4_status"`
	Slot5Status       string `json:"slot5_status"`
	ChangeDescription string `json:"change_description"`
}

// CurrentState is the retained payload describing the latest state.
type CurrentState struct {
	LastUpdated   string `json:"last_updated"`
	SlotAvailable int    `json:"slot_available"`
	Slot1Status   string `json:"slot1_status"`
	Slot2Status   string `json:"slot2_status"`
	Slot3Status   string `json:"slot3_status"`
	Slot4Status   string `json:"slot4_status"`
	Slot5Status   string `json:"slot5_status"`
	LastChange    string `json:"last_change"`
}

// NewDocument converts a change event into its structured document.
// The record must carry an integer available count and exactly five slots.
func NewDocument(event logic.ChangeEvent) (Document, error) {
	available, err := event.Record.Available()
	if err != nil {
		return Document{}, err
	}
	slots := event.Record.Slots()
	if len(slots) != frame.SlotCount {
		return Document{}, fmt.Errorf("expected %d slots, got %d", frame.SlotCount, len(slots))
	}
	return Document{
		ID:                event.ID,
		Timestamp:         event.Timestamp.UTC().Format(time.RFC3339),
		SlotAvailable:     available,
		Slot1Status:       slots[0],
		Slot2Status:       slots[1],
		Slot3Status:       slots[2],
		Slot4Status:       slots[3],
		Slot5Status:       slots[4],
		ChangeDescription: event.Description,
	}, nil
}

// CurrentState derives the retained current-state payload from d.
func (d Document) CurrentState() CurrentState {
	return CurrentState{
		LastUpdated:   d.Timestamp,
		SlotAvailable: d.SlotAvailable,
		Slot1Status:   d.Slot1Status,
		Slot2Status:   d.Slot2Status,
		Slot3Status:   d.Slot3Status,
		Slot4Status:   d.Slot4Status,
		Slot5Status:   d.Slot5Status,
		LastChange:    d.ChangeDescription,
	}
}

// FormatPayloads creates the change document and current-state JSON payloads.
func FormatPayloads(event logic.ChangeEvent) (doc, current []byte, err error) {
	d, err := NewDocument(event)
	if err != nil {
		return nil, nil, fmt.Errorf("build document: %w", err)
	}
	if doc, err = json.Marshal(d); err != nil {
		return nil, nil, err
	}
	if current, err = json.Marshal(d.CurrentState()); err != nil {
		return nil, nil, err
	}
	return doc, current, nil
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
