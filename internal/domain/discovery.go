package domain

import "time"

// DiscoveryMode selects which providers a discovery cycle consults.
type DiscoveryMode string

const (
	// ModeAuto tries the cluster control plane first and falls back to
	// the management API when the cluster yields nothing usable and an
	// API base URL is configured.
	ModeAuto DiscoveryMode = "auto"

	// ModeCluster consults only the cluster control plane.
	ModeCluster DiscoveryMode = "cluster"

	// ModeAPI consults only the management API.
	ModeAPI DiscoveryMode = "api"

	// ModeDisabled skips discovery entirely; the catalog serves manual
	// entries only.
	ModeDisabled DiscoveryMode = "disabled"
)

func (m DiscoveryMode) Valid() bool {
	switch m {
	case ModeAuto, ModeCluster, ModeAPI, ModeDisabled:
		return true
	default:
		return false
	}
}

// DiscoveryStatus classifies one provider attempt.
type DiscoveryStatus string

const (
	// DiscoveryOK: the provider answered. An empty server list is still ok.
	DiscoveryOK DiscoveryStatus = "ok"

	// DiscoveryUnavailable: the capability is absent or the source answered
	// with something unusable. Never an error for catalog readers.
	DiscoveryUnavailable DiscoveryStatus = "unavailable"

	// DiscoveryTimeout: the provider ran out of time.
	DiscoveryTimeout DiscoveryStatus = "timeout"
)

// DiscoveryResult is what a provider hands back. Providers do not return
// errors; absence and trouble are carried as statuses so catalog reads
// can always proceed.
type DiscoveryResult struct {
	Servers []ToolServer
	Status  DiscoveryStatus
	Reason  string
}

func (r DiscoveryResult) OK() bool {
	return r.Status == DiscoveryOK
}

// EmptyOKResult is the normalized outcome when no provider can serve:
// a successful cycle with nothing discovered.
func EmptyOKResult() DiscoveryResult {
	return DiscoveryResult{Status: DiscoveryOK}
}

// DiscoverySettings is the discovery slice of the runtime configuration,
// snapshotted per cycle.
type DiscoverySettings struct {
	Enabled    bool
	Mode       DiscoveryMode
	Timeout    time.Duration
	Namespace  string
	Kubeconfig string
	APIBaseURL string
}

// EffectiveMode folds the enabled flag into the mode machine.
func (s DiscoverySettings) EffectiveMode() DiscoveryMode {
	if !s.Enabled {
		return ModeDisabled
	}
	if s.Mode == "" {
		return ModeAuto
	}
	return s.Mode
}

// ScopeKey identifies a coalescing scope. Cycles triggered concurrently
// with equal keys share a single provider invocation.
func (s DiscoverySettings) ScopeKey() string {
	return string(s.EffectiveMode()) + "|" + s.Namespace + "|" + s.APIBaseURL
}

// ProviderOutcome records one provider attempt inside a cycle.
type ProviderOutcome struct {
	Provider string          `json:"provider"`
	Status   DiscoveryStatus `json:"status"`
	Reason   string          `json:"reason,omitempty"`
	Servers  int             `json:"servers"`
	Duration time.Duration   `json:"duration"`
}

// DiscoveryCycle is the full record of one orchestrated discovery pass.
type DiscoveryCycle struct {
	ID        string
	Mode      DiscoveryMode
	Result    DiscoveryResult
	Outcomes  []ProviderOutcome
	StartedAt time.Time
	Duration  time.Duration

	// Coalesced marks cycles that attached to an in-flight pass instead
	// of invoking providers themselves.
	Coalesced bool
}

// Summary projects the cycle into its status-surface form.
func (c DiscoveryCycle) Summary() CycleSummary {
	return CycleSummary{
		ID:          c.ID,
		Mode:        c.Mode,
		Status:      c.Result.Status,
		Reason:      c.Result.Reason,
		Servers:     len(c.Result.Servers),
		Providers:   c.Outcomes,
		CompletedAt: c.StartedAt.Add(c.Duration),
		DurationMs:  c.Duration.Milliseconds(),
	}
}

// CycleSummary is a read-only snapshot of a completed cycle for status
// queries.
type CycleSummary struct {
	ID          string            `json:"id"`
	Mode        DiscoveryMode     `json:"mode"`
	Status      DiscoveryStatus   `json:"status"`
	Reason      string            `json:"reason,omitempty"`
	Servers     int               `json:"servers"`
	Providers   []ProviderOutcome `json:"providers,omitempty"`
	CompletedAt time.Time         `json:"completedAt"`
	DurationMs  int64             `json:"durationMs"`
}

// RefreshSummary is the response of an explicit refresh request.
type RefreshSummary struct {
	CycleID       string                        `json:"cycleId"`
	Mode          DiscoveryMode                 `json:"mode"`
	Status        DiscoveryStatus               `json:"status"`
	Reason        string                        `json:"reason,omitempty"`
	Providers     []ProviderOutcome             `json:"providers,omitempty"`
	Discovered    int                           `json:"discovered"`
	CatalogSize   int                           `json:"catalogSize"`
	Registrations map[string]RegistrationRecord `json:"registrations,omitempty"`
	DurationMs    int64                         `json:"durationMs"`
	Coalesced     bool                          `json:"coalesced"`
}

// DiscoveryStatusReport describes the discovery subsystem without
// triggering a cycle.
type DiscoveryStatusReport struct {
	Enabled        bool              `json:"enabled"`
	Mode           DiscoveryMode     `json:"mode"`
	TimeoutSeconds int               `json:"timeoutSeconds"`
	Namespace      string            `json:"namespace,omitempty"`
	APIConfigured  bool              `json:"apiConfigured"`
	InFlight       bool              `json:"inFlight"`
	LastCycle      *CycleSummary     `json:"lastCycle,omitempty"`
	LastSyncErrors map[string]string `json:"lastSyncErrors,omitempty"`
}

// Discovery and synchronization defaults.
const (
	DefaultDiscoveryTimeoutSeconds = 10
	DefaultRegistryTimeoutSeconds  = 10
	DefaultRegistryConcurrency     = 4
)
