package auditlog

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfid-door-lock/internal/types"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndRecent(t *testing.T) {
	l := openTestLog(t)

	base := time.Now().UTC().Truncate(time.Second)
	events := []types.ScanEvent{
		{Identifier: "DE AD BE EF", Outcome: types.OutcomeEnrolled, Timestamp: base},
		{Identifier: "DE AD BE EF", Outcome: types.OutcomeGranted, Timestamp: base.Add(time.Second)},
		{Identifier: "04 1A 2B 3D", Outcome: types.OutcomeDenied, Timestamp: base.Add(2 * time.Second)},
	}
	for _, event := range events {
		require.NoError(t, l.Append(event))
	}

	got, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Newest first
	assert.Equal(t, types.OutcomeDenied, got[0].Outcome)
	assert.Equal(t, "04 1A 2B 3D", got[0].Identifier)
	assert.Equal(t, types.OutcomeEnrolled, got[2].Outcome)
}

func TestRecentHonorsLimit(t *testing.T) {
	l := openTestLog(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, l.Append(types.ScanEvent{
			Identifier: fmt.Sprintf("%02X", i),
			Outcome:    types.OutcomeDenied,
			Timestamp:  time.Now(),
		}))
	}

	got, err := l.Recent(2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecentEmptyLog(t *testing.T) {
	l := openTestLog(t)

	got, err := l.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCount(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.Append(types.ScanEvent{Identifier: "01", Outcome: types.OutcomeEnrolled, Timestamp: time.Now()}))
	require.NoError(t, l.Append(types.ScanEvent{Identifier: "01", Outcome: types.OutcomeGranted, Timestamp: time.Now()}))
	require.NoError(t, l.Append(types.ScanEvent{Identifier: "01", Outcome: types.OutcomeGranted, Timestamp: time.Now()}))
	require.NoError(t, l.Append(types.ScanEvent{Identifier: "02", Outcome: types.OutcomeDenied, Timestamp: time.Now()}))

	counters, err := l.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(4), counters.Total)
	assert.Equal(t, int64(2), counters.Granted)
	assert.Equal(t, int64(1), counters.Denied)
}

func TestAppendRejectsUnknownOutcome(t *testing.T) {
	l := openTestLog(t)

	err := l.Append(types.ScanEvent{Identifier: "01", Outcome: types.Outcome("bogus"), Timestamp: time.Now()})
	assert.Error(t, err)
}

func TestLogSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Append(types.ScanEvent{Identifier: "AB", Outcome: types.OutcomeDenied, Timestamp: time.Now()}))
	require.NoError(t, l.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	counters, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters.Total)
}
