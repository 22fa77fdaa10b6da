package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string     `json:"event,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Available       string     `json:"available"`
	Slots           []SlotJSON `json:"slots"`
	LastChange      string     `json:"last_change,omitempty"`
	LastDescription string     `json:"last_description,omitempty"`
	Ready           bool       `json:"ready"`
	UptimeSeconds   int64      `json:"uptime_seconds"`
	StartTime       string     `json:"start_time"`
	Timestamp       string     `json:"timestamp"`
	MQTT            MQTTStatus `json:"mqtt"`
	Counts          CountsJSON `json:"counts"`
	Config          ConfigJSON `json:"config"`
}

// SlotJSON is one slot's status.
type SlotJSON struct {
	Slot   int    `json:"slot"`
	Status string `json:"status"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of line outcome counts.
type CountsJSON struct {
	Lines            int `json:"lines"`
	Malformed        int `json:"malformed"`
	ChecksumFailures int `json:"checksum_failures"`
	Unchanged        int `json:"unchanged"`
	Debounced        int `json:"debounced"`
	Reported         int `json:"reported"`
	SinkFailures     int `json:"sink_failures"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SerialPort  string `json:"serial_port"`
	PollMs      int64  `json:"poll_ms"`
	MinStateMs  int64  `json:"min_state_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	DataDir     string `json:"data_dir"`
}

func buildInner(snap Snapshot) StatusInner {
	available := snap.Available
	if available == "" {
		available = "UNKNOWN"
	}

	slots := make([]SlotJSON, len(snap.Slots))
	for i, s := range snap.Slots {
		slots[i] = SlotJSON{Slot: i + 1, Status: s}
	}

	inner := StatusInner{
		Available:       available,
		Slots:           slots,
		LastDescription: snap.LastDescription,
		Ready:           snap.Ready,
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts:          CountsJSON(snap.Counts),
		Config:          ConfigJSON(snap.Config),
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
