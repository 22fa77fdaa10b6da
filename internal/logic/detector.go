package logic

import (
	"slices"
	"sync"
	"time"
)

// Detector decides whether an observed slot state is a reportable change
// relative to the last committed state.
type Detector struct {
	minStateDuration time.Duration

	mu     sync.Mutex
	mem    Memory
	counts Counts
}

// NewDetector creates a detector with empty memory. The first observation is
// always reported as the initial state.
func NewDetector(minStateDuration time.Duration) *Detector {
	return &Detector{minStateDuration: minStateDuration}
}

// NewDetectorWithMemory creates a detector starting from an existing committed state.
func NewDetectorWithMemory(minStateDuration time.Duration, mem Memory) *Detector {
	d := NewDetector(minStateDuration)
	d.mem = cloneMemory(mem)
	return d
}

// Observe compares the record's slot state against memory. It returns the
// change description and true when the observation is reportable, or "" and
// false when it is suppressed.
//
// A differing observation inside the debounce window is dropped without
// touching memory; the next observation is still compared against the
// previously committed state.
func (d *Detector) Observe(record Record, now time.Time) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := record.Slots()

	if !d.mem.Set {
		d.commit(current, now)
		d.counts.Reported++
		return InitialStateDescription, true
	}

	if current.Equal(d.mem.LastState) {
		d.counts.Unchanged++
		return "", false
	}

	if !d.mem.LastChange.IsZero() && now.Sub(d.mem.LastChange) < d.minStateDuration {
		d.counts.Debounced++
		return "", false
	}

	description := current.Describe(d.mem.LastState)
	d.commit(current, now)
	d.counts.Reported++
	return description, true
}

func (d *Detector) commit(state SlotState, now time.Time) {
	d.mem = Memory{
		LastState:  state,
		LastChange: now,
		Set:        true,
	}
}

// Memory returns a copy of the committed state.
func (d *Detector) Memory() Memory {
	d.mu.Lock()
	defer d.mu.Unlock()
	return cloneMemory(d.mem)
}

// Counts returns a snapshot of outcome counters.
func (d *Detector) Counts() Counts {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.counts
}

// Reset forgets the committed state; the next observation is reported as initial.
func (d *Detector) Reset() {
	d.mu.Lock()
	d.mem = Memory{}
	d.mu.Unlock()
}

// MinStateDuration returns the configured debounce window.
func (d *Detector) MinStateDuration() time.Duration {
	return d.minStateDuration
}

func cloneMemory(m Memory) Memory {
	m.LastState = slices.Clone(m.LastState)
	return m
}
