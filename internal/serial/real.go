package serial

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	bugst "go.bug.st/serial"
)

// port is the subset of bugst.Port used by RealSource.
type port interface {
	Read(p []byte) (int, error)
	Close() error
}

// RealSource reads lines from a serial port.
type RealSource struct {
	port    port
	pending []byte
	chunk   []byte
	closed  bool
}

// Open opens the named serial port at the given baud rate, 8N1, with a
// short read timeout so ReadLine never blocks for long.
func Open(name string, baud int, readTimeout time.Duration) (*RealSource, error) {
	p, err := bugst.Open(name, &bugst.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   bugst.NoParity,
		StopBits: bugst.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", name, err)
	}
	if err := p.ResetInputBuffer(); err != nil {
		p.Close()
		return nil, fmt.Errorf("reset input buffer on %s: %w", name, err)
	}
	return newRealSource(p), nil
}

func newRealSource(p port) *RealSource {
	return &RealSource{
		port:  p,
		chunk: make([]byte, 256),
	}
}

// ListPorts returns the serial ports present on the system.
func ListPorts() ([]string, error) {
	return bugst.GetPortsList()
}

// ReadLine returns the next buffered line, reading from the port at most once.
func (s *RealSource) ReadLine() (string, error) {
	if s.closed {
		return "", errors.New("serial: source closed")
	}

	if line, ok := s.takeLine(); ok {
		return line, nil
	}

	n, err := s.port.Read(s.chunk)
	if err != nil {
		return "", fmt.Errorf("read serial: %w", err)
	}
	s.pending = append(s.pending, s.chunk[:n]...)

	if line, ok := s.takeLine(); ok {
		return line, nil
	}
	if len(s.pending) > maxLineLength {
		s.pending = s.pending[:0]
	}
	return "", nil
}

func (s *RealSource) takeLine() (string, bool) {
	i := bytes.IndexByte(s.pending, '\n')
	if i < 0 {
		return "", false
	}
	line := string(bytes.TrimRight(s.pending[:i], "\r"))
	s.pending = append(s.pending[:0], s.pending[i+1:]...)
	return line, true
}

// Close releases the port. Calling Close more than once is a no-op.
func (s *RealSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.port.Close(); err != nil {
		return fmt.Errorf("close serial: %w", err)
	}
	return nil
}
