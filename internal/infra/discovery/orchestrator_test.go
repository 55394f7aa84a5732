package discovery

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpdex/internal/domain"
)

type staticSettings struct {
	settings domain.DiscoverySettings
}

func (s staticSettings) DiscoverySettings() domain.DiscoverySettings {
	return s.settings
}

type settingsVar struct {
	v atomic.Value
}

func (s *settingsVar) set(settings domain.DiscoverySettings) {
	s.v.Store(settings)
}

func (s *settingsVar) DiscoverySettings() domain.DiscoverySettings {
	return s.v.Load().(domain.DiscoverySettings)
}

// scriptedProvider counts invocations and optionally blocks until
// released, so tests control exactly when a cycle completes.
type scriptedProvider struct {
	name   string
	kind   domain.Provenance
	result domain.DiscoveryResult
	block  chan struct{}
	calls  atomic.Int32
}

func (p *scriptedProvider) Name() string {
	return p.name
}

func (p *scriptedProvider) Kind() domain.Provenance {
	return p.kind
}

func (p *scriptedProvider) Discover(ctx context.Context, _ domain.DiscoverySettings) domain.DiscoveryResult {
	p.calls.Add(1)
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return timedOut(ctx.Err().Error())
		}
	}
	return p.result
}

type recordingMetrics struct {
	mu        sync.Mutex
	cycles    int
	providers []string
	coalesced int
}

func (m *recordingMetrics) ObserveCycle(domain.DiscoveryMode, domain.DiscoveryStatus, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
}

func (m *recordingMetrics) ObserveProvider(provider string, _ domain.DiscoveryStatus, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, provider)
}

func (m *recordingMetrics) AddCoalesced(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coalesced += n
}

func (m *recordingMetrics) ObserveRegistration(domain.RegistrationOutcome) {}

func (m *recordingMetrics) SetCatalogSize(domain.Provenance, int) {}

func (m *recordingMetrics) AddMergeCollisions(int) {}

func (m *recordingMetrics) coalescedTotal() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.coalesced
}

func okServers(provenance domain.Provenance, names ...string) domain.DiscoveryResult {
	servers := make([]domain.ToolServer, 0, len(names))
	for _, name := range names {
		servers = append(servers, domain.ToolServer{
			Name:       name,
			Endpoint:   "http://" + name + ".internal/mcp",
			Provenance: provenance,
			ObservedAt: time.Now().UTC(),
		})
	}
	return domain.DiscoveryResult{Status: domain.DiscoveryOK, Servers: servers}
}

func TestOrchestratorRun_DisabledSkipsProviders(t *testing.T) {
	cluster := &scriptedProvider{name: ProviderNameCluster, kind: domain.ProvenanceCluster}
	api := &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{Enabled: false}},
		Cluster:  cluster,
		API:      api,
	})

	cycle := orch.Run(context.Background())

	require.Equal(t, domain.ModeDisabled, cycle.Mode)
	require.Equal(t, domain.DiscoveryOK, cycle.Result.Status)
	require.Empty(t, cycle.Result.Servers)
	require.NotEmpty(t, cycle.ID)
	require.Zero(t, cluster.calls.Load())
	require.Zero(t, api.calls.Load())
	require.Nil(t, orch.LastCycle())
	require.False(t, orch.InFlight())
}

func TestOrchestratorRun_ClusterModeOnlyConsultsCluster(t *testing.T) {
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: okServers(domain.ProvenanceCluster, "search"),
	}
	api := &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled: true,
			Mode:    domain.ModeCluster,
			Timeout: time.Second,
		}},
		Cluster: cluster,
		API:     api,
	})

	cycle := orch.Run(context.Background())

	require.Equal(t, domain.ModeCluster, cycle.Mode)
	require.Equal(t, domain.DiscoveryOK, cycle.Result.Status)
	require.Len(t, cycle.Result.Servers, 1)
	require.Equal(t, int32(1), cluster.calls.Load())
	require.Zero(t, api.calls.Load())
	require.Len(t, cycle.Outcomes, 1)
	require.Equal(t, ProviderNameCluster, cycle.Outcomes[0].Provider)
}

func TestOrchestratorRun_SingleModeKeepsProviderStatus(t *testing.T) {
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: unavailable("no candidate toolserver resource is served by the cluster"),
	}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled: true,
			Mode:    domain.ModeCluster,
			Timeout: time.Second,
		}},
		Cluster: cluster,
		API:     &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI},
	})

	cycle := orch.Run(context.Background())

	// Pinned modes report the provider status verbatim; only auto
	// normalizes exhaustion to an empty ok.
	require.Equal(t, domain.DiscoveryUnavailable, cycle.Result.Status)
	require.Contains(t, cycle.Result.Reason, "no candidate")
}

func TestOrchestratorRun_AutoFallsBackToAPI(t *testing.T) {
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: unavailable("control plane client: no kubeconfig"),
	}
	api := &scriptedProvider{
		name:   ProviderNameAPI,
		kind:   domain.ProvenanceAPI,
		result: okServers(domain.ProvenanceAPI, "search", "docs"),
	}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled:    true,
			Mode:       domain.ModeAuto,
			Timeout:    time.Second,
			APIBaseURL: "http://mgmt.internal",
		}},
		Cluster: cluster,
		API:     api,
	})

	cycle := orch.Run(context.Background())

	require.Equal(t, domain.DiscoveryOK, cycle.Result.Status)
	require.Len(t, cycle.Result.Servers, 2)
	require.Equal(t, int32(1), cluster.calls.Load())
	require.Equal(t, int32(1), api.calls.Load())
	require.Len(t, cycle.Outcomes, 2)
	require.Equal(t, domain.DiscoveryUnavailable, cycle.Outcomes[0].Status)
	require.Equal(t, domain.DiscoveryOK, cycle.Outcomes[1].Status)
}

func TestOrchestratorRun_AutoWithoutAPIBaseURLSkipsAPI(t *testing.T) {
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: unavailable("control plane client: no kubeconfig"),
	}
	api := &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled: true,
			Mode:    domain.ModeAuto,
			Timeout: time.Second,
		}},
		Cluster: cluster,
		API:     api,
	})

	cycle := orch.Run(context.Background())

	require.Equal(t, domain.DiscoveryOK, cycle.Result.Status)
	require.Empty(t, cycle.Result.Servers)
	require.Zero(t, api.calls.Load())
	// The outcome keeps the real provider status for the status surface.
	require.Len(t, cycle.Outcomes, 1)
	require.Equal(t, domain.DiscoveryUnavailable, cycle.Outcomes[0].Status)
}

func TestOrchestratorRun_AutoNormalizesTotalFailure(t *testing.T) {
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: unavailable("no candidate toolserver resource is served by the cluster"),
	}
	api := &scriptedProvider{
		name:   ProviderNameAPI,
		kind:   domain.ProvenanceAPI,
		result: timedOut("get http://mgmt.internal/api/v1/toolservers: context deadline exceeded"),
	}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled:    true,
			Mode:       domain.ModeAuto,
			Timeout:    time.Second,
			APIBaseURL: "http://mgmt.internal",
		}},
		Cluster: cluster,
		API:     api,
	})

	cycle := orch.Run(context.Background())

	require.Equal(t, domain.DiscoveryOK, cycle.Result.Status)
	require.Empty(t, cycle.Result.Servers)
	require.Len(t, cycle.Outcomes, 2)
	require.Equal(t, domain.DiscoveryUnavailable, cycle.Outcomes[0].Status)
	require.Equal(t, domain.DiscoveryTimeout, cycle.Outcomes[1].Status)

	last := orch.LastCycle()
	require.NotNil(t, last)
	require.Equal(t, domain.DiscoveryOK, last.Status)
}

func TestOrchestratorRun_CoalescesConcurrentTriggers(t *testing.T) {
	release := make(chan struct{})
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: okServers(domain.ProvenanceCluster, "search"),
		block:  release,
	}
	metrics := &recordingMetrics{}
	orch := NewOrchestrator(OrchestratorOptions{
		Metrics: metrics,
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled: true,
			Mode:    domain.ModeCluster,
			Timeout: 5 * time.Second,
		}},
		Cluster: cluster,
		API:     &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI},
	})

	const triggers = 8
	start := make(chan struct{})
	results := make(chan domain.DiscoveryCycle, triggers)
	for i := 0; i < triggers; i++ {
		go func() {
			<-start
			results <- orch.Run(context.Background())
		}()
	}
	close(start)
	// Give every trigger time to attach before the provider returns.
	time.Sleep(100 * time.Millisecond)
	close(release)

	cycles := make([]domain.DiscoveryCycle, 0, triggers)
	for i := 0; i < triggers; i++ {
		cycles = append(cycles, <-results)
	}

	require.Equal(t, int32(1), cluster.calls.Load())
	coalesced := 0
	for _, cycle := range cycles {
		require.Equal(t, cycles[0].ID, cycle.ID)
		require.Equal(t, domain.DiscoveryOK, cycle.Result.Status)
		if cycle.Coalesced {
			coalesced++
		}
	}
	require.Equal(t, triggers-1, coalesced)
	require.Equal(t, triggers-1, metrics.coalescedTotal())
}

func TestOrchestratorRun_DifferentScopesRunIndependently(t *testing.T) {
	release := make(chan struct{})
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: okServers(domain.ProvenanceCluster, "search"),
		block:  release,
	}
	source := &settingsVar{}
	source.set(domain.DiscoverySettings{
		Enabled:   true,
		Mode:      domain.ModeCluster,
		Timeout:   5 * time.Second,
		Namespace: "team-a",
	})
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: source,
		Cluster:  cluster,
		API:      &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI},
	})

	results := make(chan domain.DiscoveryCycle, 2)
	go func() { results <- orch.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		return cluster.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	source.set(domain.DiscoverySettings{
		Enabled:   true,
		Mode:      domain.ModeCluster,
		Timeout:   5 * time.Second,
		Namespace: "team-b",
	})
	go func() { results <- orch.Run(context.Background()) }()
	require.Eventually(t, func() bool {
		return cluster.calls.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	close(release)
	first := <-results
	second := <-results

	require.NotEqual(t, first.ID, second.ID)
	require.False(t, first.Coalesced)
	require.False(t, second.Coalesced)
}

func TestOrchestratorRun_CallerDisconnectDoesNotCancelCycle(t *testing.T) {
	release := make(chan struct{})
	cluster := &scriptedProvider{
		name:   ProviderNameCluster,
		kind:   domain.ProvenanceCluster,
		result: okServers(domain.ProvenanceCluster, "search", "docs"),
		block:  release,
	}
	orch := NewOrchestrator(OrchestratorOptions{
		Settings: staticSettings{domain.DiscoverySettings{
			Enabled: true,
			Mode:    domain.ModeCluster,
			Timeout: 5 * time.Second,
		}},
		Cluster: cluster,
		API:     &scriptedProvider{name: ProviderNameAPI, kind: domain.ProvenanceAPI},
	})

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan domain.DiscoveryCycle, 1)
	go func() { returned <- orch.Run(ctx) }()
	require.Eventually(t, func() bool {
		return cluster.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	abandoned := <-returned
	require.True(t, abandoned.Coalesced)
	require.Equal(t, domain.DiscoveryUnavailable, abandoned.Result.Status)
	require.Nil(t, orch.LastCycle())
	require.True(t, orch.InFlight())

	close(release)
	require.Eventually(t, func() bool {
		return orch.LastCycle() != nil
	}, 2*time.Second, 10*time.Millisecond)

	last := orch.LastCycle()
	require.Equal(t, domain.DiscoveryOK, last.Status)
	require.Equal(t, 2, last.Servers)
	require.Eventually(t, func() bool {
		return !orch.InFlight()
	}, 2*time.Second, 10*time.Millisecond)
}
