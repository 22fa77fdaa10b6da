package mqtt

import (
	"context"
	"sync"

	"github.com/sweeney/parking-logger/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Events contains all change events that were published.
	Events []logic.ChangeEvent

	// Documents and CurrentStates contain the JSON payloads that were published.
	Documents     [][]byte
	CurrentStates [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// WriteError, if set, will be returned by Write.
	WriteError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Name identifies the sink in logs.
func (f *FakePublisher) Name() string { return "mqtt" }

// Write records the change event.
func (f *FakePublisher) Write(_ context.Context, event logic.ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}

	doc, current, err := FormatPayloads(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Documents = append(f.Documents, doc)
	f.CurrentStates = append(f.CurrentStates, current)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Documents = nil
	f.CurrentStates = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.WriteError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
