// Package status provides a thread-safe status tracker for the parking-logger daemon.
// It is read by the HTTP handlers and by lifecycle events published to MQTT.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/parking-logger/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	SerialPort  string
	PollMs      int64
	MinStateMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	DataDir     string
}

// Counts tracks line outcomes since startup.
type Counts struct {
	Lines            int
	Malformed        int
	ChecksumFailures int
	Unchanged        int
	Debounced        int
	Reported         int
	SinkFailures     int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Available       string
	Slots           logic.SlotState
	LastChange      time.Time
	LastDescription string
	Ready           bool
	Counts          Counts
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// RecordChange stores the state carried by a reported change.
func (t *Tracker) RecordChange(ev logic.ChangeEvent) {
	fields := ev.Record.Fields()
	t.mu.Lock()
	if len(fields) > 0 {
		t.snap.Available = fields[0]
	}
	t.snap.Slots = ev.Record.Slots()
	t.snap.LastChange = ev.Timestamp
	t.snap.LastDescription = ev.Description
	t.snap.Ready = true
	t.mu.Unlock()
}

// SetCounts replaces the outcome counters.
func (t *Tracker) SetCounts(c Counts) {
	t.mu.Lock()
	t.snap.Counts = c
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Slots = append(logic.SlotState(nil), t.snap.Slots...)
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
