package logic

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func rec(fields ...string) Record {
	return NewRecord(fields)
}

// setupTrackingDetector returns a detector whose memory was committed at t0.
func setupTrackingDetector(t *testing.T, slots ...string) *Detector {
	t.Helper()
	d := NewDetectorWithMemory(DefaultMinStateDuration, Memory{
		LastState:  SlotState(slots),
		LastChange: t0,
		Set:        true,
	})
	return d
}

func TestNewDetector(t *testing.T) {
	d := NewDetector(2 * time.Second)
	require.NotNil(t, d)
	require.Equal(t, 2*time.Second, d.MinStateDuration())
	require.False(t, d.Memory().Set)
}

func TestFirstObservationIsInitialState(t *testing.T) {
	d := NewDetector(DefaultMinStateDuration)

	desc, ok := d.Observe(rec("3", "EMPTY", "EMPTY", "OCCUPIED", "EMPTY", "EMPTY"), t0)
	require.True(t, ok)
	require.Equal(t, InitialStateDescription, desc)

	mem := d.Memory()
	require.True(t, mem.Set)
	require.Equal(t, SlotState{"EMPTY", "EMPTY", "OCCUPIED", "EMPTY", "EMPTY"}, mem.LastState)
	require.Equal(t, t0, mem.LastChange)
}

func TestFirstObservationIgnoresFieldValues(t *testing.T) {
	inputs := []Record{
		rec("5", "EMPTY", "EMPTY", "EMPTY", "EMPTY", "EMPTY"),
		rec("0", "OCCUPIED", "OCCUPIED", "OCCUPIED", "OCCUPIED", "OCCUPIED"),
		rec("x", "", "", "", "", ""),
	}
	for _, r := range inputs {
		d := NewDetector(DefaultMinStateDuration)
		desc, ok := d.Observe(r, t0)
		require.True(t, ok)
		require.Equal(t, InitialStateDescription, desc)
	}
}

func TestUnchangedStateSuppressed(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "O", "E", "E")

	for i := 0; i < 10; i++ {
		now := t0.Add(time.Duration(i) * 500 * time.Millisecond)
		desc, ok := d.Observe(rec("4", "E", "E", "O", "E", "E"), now)
		require.False(t, ok, "iteration %d", i)
		require.Empty(t, desc)
	}

	mem := d.Memory()
	require.Equal(t, t0, mem.LastChange, "unchanged observations must not advance the timestamp")
	require.Equal(t, 10, d.Counts().Unchanged)
}

func TestAvailableCountExcludedFromComparison(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "E", "E", "E")

	_, ok := d.Observe(rec("1", "E", "E", "E", "E", "E"), t0.Add(10*time.Second))
	require.False(t, ok)
}

func TestChangeInsideDebounceWindowDropped(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "O", "E", "E")

	desc, ok := d.Observe(rec("2", "O", "E", "O", "E", "E"), t0.Add(1500*time.Millisecond))
	require.False(t, ok)
	require.Empty(t, desc)

	mem := d.Memory()
	require.Equal(t, SlotState{"E", "E", "O", "E", "E"}, mem.LastState)
	require.Equal(t, t0, mem.LastChange)
	require.Equal(t, 1, d.Counts().Debounced)
}

func TestChangeAfterDebounceWindowReported(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "O", "E", "E")
	now := t0.Add(DefaultMinStateDuration + time.Millisecond)

	desc, ok := d.Observe(rec("2", "O", "E", "O", "E", "E"), now)
	require.True(t, ok)
	require.Equal(t, "Slot 1: E → O", desc)

	mem := d.Memory()
	require.Equal(t, SlotState{"O", "E", "O", "E", "E"}, mem.LastState)
	require.Equal(t, now, mem.LastChange)
}

func TestChangeExactlyAtWindowBoundaryReported(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "E", "E", "E")

	_, ok := d.Observe(rec("4", "O", "E", "E", "E", "E"), t0.Add(DefaultMinStateDuration))
	require.True(t, ok)
}

func TestDescriptionOrdering(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "O", "E", "E")

	desc, ok := d.Observe(rec("2", "O", "E", "O", "E", "F"), t0.Add(5*time.Second))
	require.True(t, ok)
	require.Equal(t, "Slot 1: E → O, Slot 5: E → F", desc)
}

func TestExcursionInsideWindowIsForgotten(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "E", "E", "E")

	// Flicker to occupied and back before the window elapses.
	_, ok := d.Observe(rec("4", "O", "E", "E", "E", "E"), t0.Add(500*time.Millisecond))
	require.False(t, ok)
	_, ok = d.Observe(rec("5", "E", "E", "E", "E", "E"), t0.Add(1*time.Second))
	require.False(t, ok)

	// After the window, the reverted state equals memory: nothing to report.
	_, ok = d.Observe(rec("5", "E", "E", "E", "E", "E"), t0.Add(3*time.Second))
	require.False(t, ok)
	require.Equal(t, SlotState{"E", "E", "E", "E", "E"}, d.Memory().LastState)
}

func TestPersistentChangeReportedOnceWindowElapses(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "E", "E", "E")

	for _, offset := range []time.Duration{500 * time.Millisecond, time.Second, 1500 * time.Millisecond} {
		_, ok := d.Observe(rec("4", "E", "O", "E", "E", "E"), t0.Add(offset))
		require.False(t, ok)
	}

	desc, ok := d.Observe(rec("4", "E", "O", "E", "E", "E"), t0.Add(2500*time.Millisecond))
	require.True(t, ok)
	require.Equal(t, "Slot 2: E → O", desc)

	// Same state again is unchanged.
	_, ok = d.Observe(rec("4", "E", "O", "E", "E", "E"), t0.Add(10*time.Second))
	require.False(t, ok)
}

func TestDebounceWindowRestartsAfterCommit(t *testing.T) {
	d := NewDetector(DefaultMinStateDuration)
	d.Observe(rec("5", "E", "E", "E", "E", "E"), t0)

	_, ok := d.Observe(rec("4", "O", "E", "E", "E", "E"), t0.Add(3*time.Second))
	require.True(t, ok)

	// One second after the commit: inside the new window.
	_, ok = d.Observe(rec("3", "O", "O", "E", "E", "E"), t0.Add(4*time.Second))
	require.False(t, ok)

	desc, ok := d.Observe(rec("3", "O", "O", "E", "E", "E"), t0.Add(5*time.Second))
	require.True(t, ok)
	require.Equal(t, "Slot 2: E → O", desc)
}

func TestMemoryWithoutTimestampAcceptsChange(t *testing.T) {
	d := NewDetectorWithMemory(DefaultMinStateDuration, Memory{
		LastState: SlotState{"E", "E", "E", "E", "E"},
		Set:       true,
	})

	desc, ok := d.Observe(rec("4", "E", "E", "E", "E", "O"), t0)
	require.True(t, ok)
	require.Equal(t, "Slot 5: E → O", desc)
}

func TestZeroWindowReportsEveryChange(t *testing.T) {
	d := NewDetector(0)
	d.Observe(rec("5", "E", "E", "E", "E", "E"), t0)

	_, ok := d.Observe(rec("4", "O", "E", "E", "E", "E"), t0)
	require.True(t, ok)
	_, ok = d.Observe(rec("5", "E", "E", "E", "E", "E"), t0)
	require.True(t, ok)
}

func TestReset(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "E", "E", "E")
	d.Reset()
	require.False(t, d.Memory().Set)

	desc, ok := d.Observe(rec("5", "E", "E", "E", "E", "E"), t0.Add(time.Second))
	require.True(t, ok)
	require.Equal(t, InitialStateDescription, desc)
}

func TestMemoryIsACopy(t *testing.T) {
	d := setupTrackingDetector(t, "E", "E", "E", "E", "E")

	mem := d.Memory()
	mem.LastState[0] = "MUTATED"

	require.Equal(t, "E", d.Memory().LastState[0])
}

func TestCounts(t *testing.T) {
	d := NewDetector(DefaultMinStateDuration)
	d.Observe(rec("5", "E", "E", "E", "E", "E"), t0)
	d.Observe(rec("5", "E", "E", "E", "E", "E"), t0.Add(time.Second))
	d.Observe(rec("4", "O", "E", "E", "E", "E"), t0.Add(time.Second))
	d.Observe(rec("4", "O", "E", "E", "E", "E"), t0.Add(3*time.Second))
	require.Equal(t, Counts{Reported: 2, Unchanged: 1, Debounced: 1}, d.Counts())
}

func TestRecordAccessors(t *testing.T) {
	fields := []string{"3", "EMPTY", "EMPTY", "OCCUPIED", "EMPTY", "EMPTY"}
	r := NewRecord(fields)
	fields[0] = "9"

	n, err := r.Available()
	require.NoError(t, err)
	require.Equal(t, 3, n, "record must not alias the caller's slice")
	require.Equal(t, 6, r.Len())
	require.Equal(t, SlotState{"EMPTY", "EMPTY", "OCCUPIED", "EMPTY", "EMPTY"}, r.Slots())
	require.Equal(t, "3,EMPTY,EMPTY,OCCUPIED,EMPTY,EMPTY", r.String())

	_, err = NewRecord([]string{"three"}).Available()
	require.Error(t, err)
	_, err = Record{}.Available()
	require.Error(t, err)
}

func TestSlotStateDescribe(t *testing.T) {
	tests := []struct {
		name string
		old  SlotState
		new  SlotState
		want string
	}{
		{"none", SlotState{"E", "E"}, SlotState{"E", "E"}, ""},
		{"first", SlotState{"E", "E"}, SlotState{"O", "E"}, "Slot 1: E → O"},
		{"all", SlotState{"E", "O"}, SlotState{"O", "E"}, "Slot 1: E → O, Slot 2: O → E"},
		{"grown", SlotState{"E"}, SlotState{"E", "O"}, "Slot 2:  → O"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.new.Describe(tt.old))
		})
	}
}
