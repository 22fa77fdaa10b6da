package serial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFakeSourceReadLine(t *testing.T) {
	f := NewFakeSource("a", "b")

	line, err := f.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "a", line)

	line, err = f.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "b", line)
	require.Zero(t, f.Remaining())

	// Exhausted: idle, not an error.
	line, err = f.ReadLine()
	require.NoError(t, err)
	require.Empty(t, line)
}

func TestFakeSourceErrorAt(t *testing.T) {
	f := NewFakeSource("a", "b")
	f.ErrAt = 1
	f.ReadError = errors.New("unplugged")

	_, err := f.ReadLine()
	require.NoError(t, err)
	_, err = f.ReadLine()
	require.EqualError(t, err, "unplugged")

	// The line was not consumed by the failing call.
	line, err := f.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "b", line)
}

func TestFakeSourceClose(t *testing.T) {
	f := NewFakeSource("a")
	require.NoError(t, f.Close())
	require.Equal(t, 1, f.Closed)

	_, err := f.ReadLine()
	require.Error(t, err)
}
