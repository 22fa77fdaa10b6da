package frame

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/parking-logger/internal/logic"
)

const (
	validCovered = "DATA,3,EMPTY,EMPTY,OCCUPIED,EMPTY,EMPTY"
	validLine    = validCovered + ",2781"
)

func TestParseValidLine(t *testing.T) {
	f, err := Parse(validLine)
	require.NoError(t, err)

	require.Equal(t, validCovered, f.Covered)
	require.Equal(t, "2781", f.Checksum)
	require.Equal(t, []string{"3", "EMPTY", "EMPTY", "OCCUPIED", "EMPTY", "EMPTY"}, f.Record.Fields())
	require.True(t, f.Verify())
}

func TestParseTrimsLineTerminator(t *testing.T) {
	f, err := Parse(validLine + "\r\n")
	require.NoError(t, err)
	require.Equal(t, "2781", f.Checksum)
	require.True(t, f.Verify())
}

func TestParseRejectsWrongPrefix(t *testing.T) {
	lines := []string{
		"",
		"Parking system ready",
		"data,3,EMPTY,EMPTY,OCCUPIED,EMPTY,EMPTY,2781",
		"DATA;3;EMPTY;EMPTY;OCCUPIED;EMPTY;EMPTY;2781",
		"DATA",
		" XDATA,3,EMPTY,EMPTY,OCCUPIED,EMPTY,EMPTY,2781",
	}
	for _, line := range lines {
		_, err := Parse(line)
		require.ErrorIs(t, err, ErrNotADataLine, "line %q", line)
		require.NotErrorIs(t, err, ErrWrongFieldCount)
	}
}

func TestParseRejectsWrongFieldCount(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		actual int
	}{
		{"missing checksum", validCovered, 6},
		{"extra field", "DATA,3,EMPTY,EMPTY,OCCUPIED,EMPTY,EMPTY,EMPTY,2781", 8},
		{"prefix only", "DATA,", 1},
		{"trailing delimiter", validLine + ",", 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line)
			require.ErrorIs(t, err, ErrWrongFieldCount)

			var fe *FrameError
			require.True(t, errors.As(err, &fe))
			require.Equal(t, KindWrongFieldCount, fe.Kind)
			require.Equal(t, tt.actual, fe.Actual)
			require.Contains(t, fe.Error(), "want 7")
		})
	}
}

func TestParseFieldCountCheckedRegardlessOfChecksum(t *testing.T) {
	// Correct checksum for five payload fields is still a malformed frame.
	line := Encode([]string{"3", "EMPTY", "EMPTY", "OCCUPIED", "EMPTY"})
	require.True(t, Verify("DATA,3,EMPTY,EMPTY,OCCUPIED,EMPTY", line[len(line)-4:]))
	_, err := Parse(line)
	require.ErrorIs(t, err, ErrWrongFieldCount)
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	_, err := Parse("DATA,3,EMPTY,\xff,OCCUPIED,EMPTY,EMPTY,2781")
	require.ErrorIs(t, err, ErrInvalidEncoding)
}

func TestParseEmptyFieldsAreStructurallyValid(t *testing.T) {
	f, err := Parse("DATA,,,,,,,0")
	require.NoError(t, err)
	require.Equal(t, 6, f.Record.Len())
	require.Equal(t, "DATA,,,,,,", f.Covered)
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	fields := []string{"5", "Empty", "Empty", "Empty", "Empty", "Empty"}
	line := Encode(fields)
	require.Equal(t, "DATA,5,Empty,Empty,Empty,Empty,Empty,3234", line)

	f, err := Parse(line)
	require.NoError(t, err)
	require.True(t, f.Verify())
	require.Equal(t, logic.NewRecord(fields), f.Record)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "not a data line", KindNotADataLine.String())
	require.Equal(t, "wrong field count", KindWrongFieldCount.String())
	require.Equal(t, "invalid encoding", KindInvalidEncoding.String())
	require.Equal(t, "unknown", Kind(0).String())
}
