// Package serial provides line-oriented reading from the sensor's serial link
// with hardware abstraction.
// The real implementation uses go.bug.st/serial.
// The fake implementation allows testing without a device attached.
package serial

import "time"

// Source yields complete lines from the device.
type Source interface {
	// ReadLine returns the next complete line without its terminator.
	// It blocks at most briefly and returns "" with a nil error when no
	// complete line is available yet.
	ReadLine() (string, error)

	// Close releases the underlying port.
	Close() error
}

// Defaults matching the sensor firmware (9600 8N1).
const (
	DefaultPort        = "/dev/ttyACM0"
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 50 * time.Millisecond

	// maxLineLength bounds a partial line; longer runs without a newline are
	// line noise and are discarded.
	maxLineLength = 4096
)
