package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEffectiveMode(t *testing.T) {
	off := DiscoverySettings{Enabled: false, Mode: ModeCluster}
	require.Equal(t, ModeDisabled, off.EffectiveMode())

	unset := DiscoverySettings{Enabled: true}
	require.Equal(t, ModeAuto, unset.EffectiveMode())

	api := DiscoverySettings{Enabled: true, Mode: ModeAPI}
	require.Equal(t, ModeAPI, api.EffectiveMode())
}

func TestScopeKeySeparatesTargets(t *testing.T) {
	base := DiscoverySettings{Enabled: true, Mode: ModeAuto, Namespace: "tools"}

	same := base
	require.Equal(t, base.ScopeKey(), same.ScopeKey())

	otherNamespace := base
	otherNamespace.Namespace = "staging"
	require.NotEqual(t, base.ScopeKey(), otherNamespace.ScopeKey())

	otherAPI := base
	otherAPI.APIBaseURL = "http://mgmt.local"
	require.NotEqual(t, base.ScopeKey(), otherAPI.ScopeKey())

	disabled := base
	disabled.Enabled = false
	require.NotEqual(t, base.ScopeKey(), disabled.ScopeKey())
}

func TestCycleSummaryProjection(t *testing.T) {
	started := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	cycle := DiscoveryCycle{
		ID:   "cycle-1",
		Mode: ModeAuto,
		Result: DiscoveryResult{
			Servers: []ToolServer{{Name: "calc"}, {Name: "search"}},
			Status:  DiscoveryOK,
		},
		Outcomes: []ProviderOutcome{
			{Provider: "cluster", Status: DiscoveryUnavailable, Reason: "no candidate resource present"},
			{Provider: "api", Status: DiscoveryOK, Servers: 2},
		},
		StartedAt: started,
		Duration:  250 * time.Millisecond,
	}

	summary := cycle.Summary()
	require.Equal(t, "cycle-1", summary.ID)
	require.Equal(t, DiscoveryOK, summary.Status)
	require.Equal(t, 2, summary.Servers)
	require.Len(t, summary.Providers, 2)
	require.Equal(t, started.Add(250*time.Millisecond), summary.CompletedAt)
	require.Equal(t, int64(250), summary.DurationMs)
}

func TestRegistrationOutcomeSuccess(t *testing.T) {
	require.True(t, RegistrationRegistered.Success())
	require.True(t, RegistrationConflict.Success())
	require.False(t, RegistrationFailed.Success())
}

func TestEmptyOKResult(t *testing.T) {
	result := EmptyOKResult()
	require.True(t, result.OK())
	require.Empty(t, result.Servers)
	require.Empty(t, result.Reason)
}
