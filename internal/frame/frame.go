// Package frame parses and validates lines of the sensor's serial wire format:
//
//	DATA,<available>,<slot1>,<slot2>,<slot3>,<slot4>,<slot5>,<checksum>
//
// The checksum is the decimal sum of the character codes of everything
// before the final delimiter, prefix included.
package frame

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sweeney/parking-logger/internal/logic"
)

const (
	// Prefix marks a data line. Anything else on the link is diagnostic chatter.
	Prefix = "DATA,"

	// Delimiter separates fields on the wire.
	Delimiter = ","

	// PayloadFieldCount is the number of payload fields: the available count
	// followed by one status per slot.
	PayloadFieldCount = 6

	// SlotCount is the number of monitored slots.
	SlotCount = PayloadFieldCount - 1
)

// Kind classifies a malformed frame.
type Kind int

const (
	KindNotADataLine Kind = iota + 1
	KindWrongFieldCount
	KindInvalidEncoding
)

func (k Kind) String() string {
	switch k {
	case KindNotADataLine:
		return "not a data line"
	case KindWrongFieldCount:
		return "wrong field count"
	case KindInvalidEncoding:
		return "invalid encoding"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is matching against a *FrameError.
var (
	ErrNotADataLine    = errors.New("not a data line")
	ErrWrongFieldCount = errors.New("wrong field count")
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// FrameError describes why a line was rejected.
type FrameError struct {
	Kind Kind
	// Actual is the number of tokens after the prefix (WrongFieldCount only).
	Actual int
	Line   string
}

func (e *FrameError) Error() string {
	if e.Kind == KindWrongFieldCount {
		return fmt.Sprintf("frame: %s: got %d tokens, want %d", e.Kind, e.Actual, PayloadFieldCount+1)
	}
	return fmt.Sprintf("frame: %s", e.Kind)
}

// Is lets errors.Is match the sentinel for this error's kind.
func (e *FrameError) Is(target error) bool {
	switch e.Kind {
	case KindNotADataLine:
		return target == ErrNotADataLine
	case KindWrongFieldCount:
		return target == ErrWrongFieldCount
	case KindInvalidEncoding:
		return target == ErrInvalidEncoding
	}
	return false
}

// Frame is a structurally valid line, not yet checksum-verified.
type Frame struct {
	// Covered is the exact text the checksum was computed over: the prefix,
	// every payload field and the delimiters between them.
	Covered string
	// Checksum is the trailing checksum token as received.
	Checksum string
	Record   logic.Record
}

// Verify checks the frame's checksum token against its covered text.
func (f Frame) Verify() bool {
	return Verify(f.Covered, f.Checksum)
}

// Parse splits a raw line into a Frame. Surrounding whitespace (the
// device's CR/LF terminator) is ignored. It has no side effects.
func Parse(line string) (Frame, error) {
	line = strings.TrimSpace(line)

	if !utf8.ValidString(line) {
		return Frame{}, &FrameError{Kind: KindInvalidEncoding, Line: line}
	}
	if !strings.HasPrefix(line, Prefix) {
		return Frame{}, &FrameError{Kind: KindNotADataLine, Line: line}
	}

	tokens := strings.Split(strings.TrimPrefix(line, Prefix), Delimiter)
	if len(tokens) != PayloadFieldCount+1 {
		return Frame{}, &FrameError{Kind: KindWrongFieldCount, Actual: len(tokens), Line: line}
	}

	payload := tokens[:PayloadFieldCount]
	return Frame{
		Covered:  Prefix + strings.Join(payload, Delimiter),
		Checksum: tokens[PayloadFieldCount],
		Record:   logic.NewRecord(payload),
	}, nil
}

// Encode builds a complete wire line for the given payload fields, the way
// the sensor emits them. No line terminator is appended.
func Encode(fields []string) string {
	covered := Prefix + strings.Join(fields, Delimiter)
	return fmt.Sprintf("%s%s%d", covered, Delimiter, Checksum(covered))
}
