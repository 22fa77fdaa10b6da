package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	require.Nil(t, rb.drainAll())
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	for i := 0; i < 5; i++ {
		rb.push(bufferedMsg{topic: TopicLogs, payload: []byte{byte(i)}})
	}

	got := rb.drainAll()
	require.Len(t, got, 5)
	for i := 0; i < 5; i++ {
		require.Equal(t, byte(i), got[i].payload[0], "item %d", i)
	}

	require.Nil(t, rb.drainAll(), "second drain should be empty")
}

func TestRingBufferOverflowKeepsNewest(t *testing.T) {
	capacity := 5
	rb := newRingBuffer(capacity)

	var firstDrops int
	for i := 0; i < capacity+3; i++ {
		if rb.push(bufferedMsg{topic: TopicLogs, payload: []byte{byte(i)}}) {
			firstDrops++
		}
	}
	require.Equal(t, 1, firstDrops, "overflow is reported once per drain cycle")

	got := rb.drainAll()
	require.Len(t, got, capacity)
	for i := 0; i < capacity; i++ {
		require.Equal(t, byte(i+3), got[i].payload[0], "oldest 3 were dropped")
	}

	// Overflow flag resets on drain.
	for i := 0; i < capacity; i++ {
		require.False(t, rb.push(bufferedMsg{topic: TopicLogs}))
	}
	require.True(t, rb.push(bufferedMsg{topic: TopicLogs}))
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5)

	for i := 0; i < 3; i++ {
		rb.push(bufferedMsg{topic: TopicLogs, payload: []byte{byte(i)}})
	}
	require.Len(t, rb.drainAll(), 3)

	for i := 10; i < 14; i++ {
		rb.push(bufferedMsg{topic: TopicLogs, payload: []byte{byte(i)}})
	}
	got := rb.drainAll()
	require.Len(t, got, 4)
	for i, msg := range got {
		require.Equal(t, byte(10+i), msg.payload[0])
	}
}

func TestRingBufferLen(t *testing.T) {
	rb := newRingBuffer(10)
	require.Zero(t, rb.len())

	rb.push(bufferedMsg{topic: TopicLogs})
	rb.push(bufferedMsg{topic: TopicLogs})
	require.Equal(t, 2, rb.len())

	rb.drainAll()
	require.Zero(t, rb.len())
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(bufferedMsg{
		topic:    TopicCurrentState,
		payload:  []byte(`{"slot_available":3}`),
		qos:      1,
		retained: true,
	})

	got := rb.drainAll()
	require.Len(t, got, 1)
	require.Equal(t, bufferedMsg{
		topic:    TopicCurrentState,
		payload:  []byte(`{"slot_available":3}`),
		qos:      1,
		retained: true,
	}, got[0])
}
