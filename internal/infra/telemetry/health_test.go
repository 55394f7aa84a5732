package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthTrackerReportsOKWhileBeating(t *testing.T) {
	tracker := NewHealthTracker()
	beat := tracker.Register("sync-loop", time.Second)

	beat.Beat()
	report := tracker.Report()
	require.Equal(t, HealthStatusOK, report.Status)
	require.Len(t, report.Loops, 1)
	require.Equal(t, "sync-loop", report.Loops[0].Name)
	require.True(t, report.Loops[0].Healthy)
}

func TestHealthTrackerDegradesOnSilence(t *testing.T) {
	tracker := NewHealthTracker()
	beat := tracker.Register("watch-loop", 10*time.Millisecond)
	beat.Beat()

	require.Eventually(t, func() bool {
		return tracker.Report().Status == HealthStatusDegraded
	}, time.Second, 5*time.Millisecond)
}

func TestHealthTrackerGraceBeforeFirstBeat(t *testing.T) {
	tracker := NewHealthTracker()
	tracker.Register("slow-starter", time.Minute)

	report := tracker.Report()
	require.Equal(t, HealthStatusOK, report.Status)
}

func TestHealthTrackerDeregister(t *testing.T) {
	tracker := NewHealthTracker()
	beat := tracker.Register("old-loop", time.Nanosecond)
	beat.Beat()
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, HealthStatusDegraded, tracker.Report().Status)

	tracker.Deregister("old-loop")
	require.Equal(t, HealthStatusOK, tracker.Report().Status)
	require.Empty(t, tracker.Report().Loops)
}
