package discovery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

// SettingsSource hands the orchestrator the discovery slice of the
// current configuration. It is consulted once per trigger so a config
// reload takes effect on the next cycle without restarts.
type SettingsSource interface {
	DiscoverySettings() domain.DiscoverySettings
}

// Orchestrator runs the discovery mode state machine. Cycles are
// strictly on-demand: nothing here owns a timer. Overlapping triggers
// that share a scope key attach to the in-flight cycle instead of
// starting their own.
type Orchestrator struct {
	logger   *zap.Logger
	metrics  domain.Metrics
	settings SettingsSource
	cluster  Provider
	api      Provider

	group    singleflight.Group
	inflight atomic.Int32

	mu        sync.Mutex
	lastCycle *domain.CycleSummary
}

type OrchestratorOptions struct {
	Logger   *zap.Logger
	Metrics  domain.Metrics
	Settings SettingsSource
	Cluster  Provider
	API      Provider
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Orchestrator{
		logger:   logger.Named("discovery"),
		metrics:  metrics,
		settings: opts.Settings,
		cluster:  opts.Cluster,
		api:      opts.API,
	}
}

// completedCycle pairs a finished cycle with the token of the trigger
// that actually ran it, so attached callers can tell they coalesced.
type completedCycle struct {
	cycle     domain.DiscoveryCycle
	initiator string
}

// Run triggers one discovery cycle, or attaches to the in-flight cycle
// for the same scope. The cycle itself runs on a context detached from
// the caller: a disconnecting trigger never cancels work that later
// callers will want.
func (o *Orchestrator) Run(ctx context.Context) domain.DiscoveryCycle {
	if ctx == nil {
		ctx = context.Background()
	}
	settings := o.settings.DiscoverySettings()
	mode := settings.EffectiveMode()
	if mode == domain.ModeDisabled {
		return domain.DiscoveryCycle{
			ID:        telemetry.NewCycleID(),
			Mode:      domain.ModeDisabled,
			Result:    domain.EmptyOKResult(),
			StartedAt: time.Now().UTC(),
		}
	}

	token := telemetry.NewCycleID()
	ch := o.group.DoChan(settings.ScopeKey(), func() (any, error) {
		return o.runCycle(context.WithoutCancel(ctx), settings, token), nil
	})

	select {
	case res := <-ch:
		completed := res.Val.(completedCycle)
		cycle := completed.cycle
		if completed.initiator != token {
			cycle.Coalesced = true
			o.metrics.AddCoalesced(1)
			o.logger.Debug("attached to in-flight cycle",
				telemetry.EventField(telemetry.EventCycleCoalesced),
				telemetry.CycleIDField(cycle.ID),
				telemetry.ScopeField(settings.ScopeKey()),
			)
		}
		return cycle
	case <-ctx.Done():
		// The caller is gone; the cycle keeps running detached so the
		// next reader finds a fresh last-cycle record.
		return domain.DiscoveryCycle{
			ID:        telemetry.NewCycleID(),
			Mode:      mode,
			Result:    unavailable("caller canceled while a cycle was in flight"),
			StartedAt: time.Now().UTC(),
			Coalesced: true,
		}
	}
}

func (o *Orchestrator) runCycle(ctx context.Context, settings domain.DiscoverySettings, initiator string) completedCycle {
	o.inflight.Add(1)
	defer o.inflight.Add(-1)

	mode := settings.EffectiveMode()
	cycleID := telemetry.NewCycleID()
	startedAt := time.Now().UTC()
	o.logger.Debug("cycle started",
		telemetry.EventField(telemetry.EventCycleStart),
		telemetry.CycleIDField(cycleID),
		telemetry.ModeField(string(mode)),
		telemetry.ScopeField(settings.ScopeKey()),
	)

	var (
		result   domain.DiscoveryResult
		outcomes []domain.ProviderOutcome
	)
	switch mode {
	case domain.ModeCluster:
		result, outcomes = o.invoke(ctx, o.cluster, settings, outcomes)
	case domain.ModeAPI:
		result, outcomes = o.invoke(ctx, o.api, settings, outcomes)
	default: // ModeAuto
		result, outcomes = o.invoke(ctx, o.cluster, settings, outcomes)
		if !result.OK() && settings.APIBaseURL != "" {
			result, outcomes = o.invoke(ctx, o.api, settings, outcomes)
		}
		if !result.OK() {
			// Absent discovery capability must never fail the caller;
			// the per-provider outcomes keep the real statuses for the
			// status surface.
			result = domain.EmptyOKResult()
		}
	}

	cycle := domain.DiscoveryCycle{
		ID:        cycleID,
		Mode:      mode,
		Result:    result,
		Outcomes:  outcomes,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}

	summary := cycle.Summary()
	o.mu.Lock()
	o.lastCycle = &summary
	o.mu.Unlock()

	o.metrics.ObserveCycle(mode, result.Status, cycle.Duration)
	o.logger.Info("cycle complete",
		telemetry.EventField(telemetry.EventCycleComplete),
		telemetry.CycleIDField(cycleID),
		telemetry.ModeField(string(mode)),
		telemetry.StatusField(string(result.Status)),
		zap.Int("servers", len(result.Servers)),
		telemetry.DurationField(cycle.Duration),
	)
	return completedCycle{cycle: cycle, initiator: initiator}
}

// invoke runs one provider under the configured deadline. The deadline
// is enforced through context cancellation; a provider that overruns it
// reports status=timeout per its contract.
func (o *Orchestrator) invoke(ctx context.Context, provider Provider, settings domain.DiscoverySettings, outcomes []domain.ProviderOutcome) (domain.DiscoveryResult, []domain.ProviderOutcome) {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultDiscoveryTimeoutSeconds * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	result := provider.Discover(callCtx, settings)
	duration := time.Since(started)

	o.metrics.ObserveProvider(provider.Name(), result.Status, duration)
	switch result.Status {
	case domain.DiscoveryUnavailable:
		o.logger.Warn("provider unavailable",
			telemetry.EventField(telemetry.EventProviderUnavailable),
			telemetry.ProviderField(provider.Name()),
			zap.String("reason", result.Reason),
		)
	case domain.DiscoveryTimeout:
		o.logger.Warn("provider timed out",
			telemetry.EventField(telemetry.EventProviderTimeout),
			telemetry.ProviderField(provider.Name()),
			zap.String("reason", result.Reason),
			telemetry.DurationField(duration),
		)
	}

	return result, append(outcomes, domain.ProviderOutcome{
		Provider: provider.Name(),
		Status:   result.Status,
		Reason:   result.Reason,
		Servers:  len(result.Servers),
		Duration: duration,
	})
}

// InFlight reports whether any discovery cycle is currently running.
func (o *Orchestrator) InFlight() bool {
	return o.inflight.Load() > 0
}

// LastCycle returns a copy of the most recently completed cycle
// summary, or nil before the first cycle.
func (o *Orchestrator) LastCycle() *domain.CycleSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.lastCycle == nil {
		return nil
	}
	summary := *o.lastCycle
	return &summary
}
