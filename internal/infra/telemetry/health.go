package telemetry

import (
	"sort"
	"sync"
	"time"
)

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// HealthTracker aggregates liveness of registered loops. Each loop beats
// its handle on every iteration; a loop that stays silent for two
// intervals degrades the overall report.
type HealthTracker struct {
	mu    sync.Mutex
	loops map[string]*HealthBeat
}

// HealthBeat is the per-loop handle returned by Register.
type HealthBeat struct {
	name         string
	interval     time.Duration
	mu           sync.Mutex
	registeredAt time.Time
	lastBeatAt   time.Time
}

type HealthReport struct {
	Status string             `json:"status"`
	Loops  []HealthLoopStatus `json:"loops,omitempty"`
}

type HealthLoopStatus struct {
	Name       string    `json:"name"`
	Healthy    bool      `json:"healthy"`
	LastBeatAt time.Time `json:"lastBeatAt"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{loops: make(map[string]*HealthBeat)}
}

// Register adds a loop to the tracker. interval is the loop's expected
// beat cadence; registering again under the same name replaces the
// previous handle.
func (t *HealthTracker) Register(name string, interval time.Duration) *HealthBeat {
	beat := &HealthBeat{
		name:         name,
		interval:     interval,
		registeredAt: time.Now(),
	}
	t.mu.Lock()
	t.loops[name] = beat
	t.mu.Unlock()
	return beat
}

// Deregister removes a loop, e.g. when a reconfiguration retires it.
func (t *HealthTracker) Deregister(name string) {
	t.mu.Lock()
	delete(t.loops, name)
	t.mu.Unlock()
}

func (b *HealthBeat) Beat() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.lastBeatAt = time.Now()
	b.mu.Unlock()
}

func (b *HealthBeat) healthyAt(now time.Time) (bool, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	deadline := b.lastBeatAt
	if deadline.IsZero() {
		// Not beaten yet: allow a startup grace window.
		deadline = b.registeredAt
	}
	return now.Sub(deadline) <= 2*b.interval, b.lastBeatAt
}

// Report snapshots all loops. Status is "ok" only when every loop has
// beaten within its staleness window.
func (t *HealthTracker) Report() HealthReport {
	now := time.Now()

	t.mu.Lock()
	beats := make([]*HealthBeat, 0, len(t.loops))
	for _, beat := range t.loops {
		beats = append(beats, beat)
	}
	t.mu.Unlock()

	report := HealthReport{Status: HealthStatusOK}
	for _, beat := range beats {
		healthy, lastBeatAt := beat.healthyAt(now)
		if !healthy {
			report.Status = HealthStatusDegraded
		}
		report.Loops = append(report.Loops, HealthLoopStatus{
			Name:       beat.name,
			Healthy:    healthy,
			LastBeatAt: lastBeatAt,
		})
	}
	sort.Slice(report.Loops, func(i, j int) bool {
		return report.Loops[i].Name < report.Loops[j].Name
	})
	return report
}
