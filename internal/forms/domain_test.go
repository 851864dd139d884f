package forms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildNumber(t *testing.T) {
	date := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "TI-202608-00001", BuildNumber("TI", date, 1))
	require.Equal(t, "TIR-202608-00042", BuildNumber("TIR", date, 42))

	// Months render zero-padded.
	january := time.Date(2027, 1, 3, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "TIC-202701-00007", BuildNumber("TIC", january, 7))
}

func TestIncrementGroupIsMonthly(t *testing.T) {
	require.Equal(t, 202608, IncrementGroup(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 202608, IncrementGroup(time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)))
	require.Equal(t, 202609, IncrementGroup(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 202701, IncrementGroup(time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestCancellationTrackHelpers(t *testing.T) {
	var f Form
	require.False(t, f.IsCancellationRequested())
	require.False(t, f.IsCancellationApproved())

	f.CancellationStatus = StatusRef(StatusPending)
	require.True(t, f.IsCancellationRequested())
	require.False(t, f.IsCancellationApproved())

	f.CancellationStatus = StatusRef(StatusApproved)
	require.False(t, f.IsCancellationRequested())
	require.True(t, f.IsCancellationApproved())

	f.CancellationStatus = StatusRef(StatusRejected)
	require.False(t, f.IsCancellationRequested())
	require.False(t, f.IsCancellationApproved())
}

func TestCloseTrackHelper(t *testing.T) {
	var f Form
	require.False(t, f.IsCloseApproved())
	f.CloseStatus = StatusRef(StatusPending)
	require.False(t, f.IsCloseApproved())
	f.CloseStatus = StatusRef(StatusApproved)
	require.True(t, f.IsCloseApproved())
}
