package serial

import "errors"

// FakeSource is a test double that returns scripted lines.
type FakeSource struct {
	// Lines contains scripted lines to return. Each call to ReadLine
	// consumes the next one; once exhausted ReadLine returns "".
	Lines []string

	// index tracks current position in Lines
	index int

	// ErrAt, if non-negative, makes ReadLine return ReadError on that call.
	ErrAt int

	// ReadError is returned at ErrAt, or on every call if ErrAt is negative
	// and ReadError is set.
	ReadError error

	calls int

	// Closed tracks how many times Close was called
	Closed int
}

// NewFakeSource creates a FakeSource with the given lines.
func NewFakeSource(lines ...string) *FakeSource {
	return &FakeSource{Lines: lines, ErrAt: -1}
}

// ReadLine returns the next scripted line.
func (f *FakeSource) ReadLine() (string, error) {
	call := f.calls
	f.calls++

	if f.ReadError != nil && (f.ErrAt < 0 || f.ErrAt == call) {
		return "", f.ReadError
	}
	if f.Closed > 0 {
		return "", errors.New("fake source closed")
	}
	if f.index >= len(f.Lines) {
		return "", nil
	}

	line := f.Lines[f.index]
	f.index++
	return line, nil
}

// Remaining reports how many scripted lines are unread.
func (f *FakeSource) Remaining() int {
	return len(f.Lines) - f.index
}

// Close records the call.
func (f *FakeSource) Close() error {
	f.Closed++
	return nil
}
