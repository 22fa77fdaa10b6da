// Package logic contains pure business logic for parking slot state tracking.
// This package has NO external dependencies (no serial port, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// InitialStateDescription is reported for the first observation after startup.
const InitialStateDescription = "initial state"

// DefaultMinStateDuration is the debounce window applied after a committed change.
const DefaultMinStateDuration = 2 * time.Second

// Record is one validated payload: the available-slot count followed by
// the per-slot status tokens. It is immutable once constructed.
type Record struct {
	fields []string
}

// NewRecord copies fields into a Record.
func NewRecord(fields []string) Record {
	return Record{fields: slices.Clone(fields)}
}

// Fields returns a copy of all payload fields in wire order.
func (r Record) Fields() []string {
	return slices.Clone(r.fields)
}

// Len returns the number of payload fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Available parses the leading available-slot count.
func (r Record) Available() (int, error) {
	if len(r.fields) == 0 {
		return 0, fmt.Errorf("empty record")
	}
	n, err := strconv.Atoi(r.fields[0])
	if err != nil {
		return 0, fmt.Errorf("parse available count %q: %w", r.fields[0], err)
	}
	return n, nil
}

// Slots returns the per-slot statuses, excluding the available count.
func (r Record) Slots() SlotState {
	if len(r.fields) < 2 {
		return nil
	}
	return SlotState(slices.Clone(r.fields[1:]))
}

// String joins the payload fields with commas, as written to the ledger.
func (r Record) String() string {
	return strings.Join(r.fields, ",")
}

// SlotState is the positional tuple of slot status tokens.
type SlotState []string

// Equal reports whether every positional status matches.
func (s SlotState) Equal(other SlotState) bool {
	return slices.Equal(s, other)
}

// Describe lists the positions that differ between old and s as
// "Slot i: old → new" entries in ascending slot order, joined by ", ".
func (s SlotState) Describe(old SlotState) string {
	n := max(len(s), len(old))
	var changes []string
	for i := 0; i < n; i++ {
		prev, curr := at(old, i), at(s, i)
		if prev != curr {
			changes = append(changes, fmt.Sprintf("Slot %d: %s → %s", i+1, prev, curr))
		}
	}
	return strings.Join(changes, ", ")
}

func at(s SlotState, i int) string {
	if i < len(s) {
		return s[i]
	}
	return ""
}

// Memory is the detector's committed state. Set is false until the first
// observation has been accepted.
type Memory struct {
	LastState  SlotState
	LastChange time.Time
	Set        bool
}

// Counts tracks detector outcomes since startup.
type Counts struct {
	Reported  int
	Unchanged int
	Debounced int
}

// ChangeEvent is a reportable transition handed to sinks.
type ChangeEvent struct {
	ID          string
	Timestamp   time.Time
	Record      Record
	Description string
}
