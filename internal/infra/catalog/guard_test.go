package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mcpdex/internal/domain"
)

func TestGuardDeniesMutationsOnDiscoveredEntries(t *testing.T) {
	guard := NewGuard(nil)

	clusterServer := domain.ToolServer{Name: "calc", Provenance: domain.ProvenanceCluster}
	apiServer := domain.ToolServer{Name: "search", Provenance: domain.ProvenanceAPI}

	for _, op := range []domain.MutationOp{domain.MutationUpdate, domain.MutationDelete} {
		err := guard.Authorize(op, clusterServer)
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrExternallyManaged)
		require.Contains(t, err.Error(), "read-only")
		require.Contains(t, err.Error(), "cluster discovery")

		code, ok := domain.CodeFrom(err)
		require.True(t, ok)
		require.Equal(t, domain.CodePermissionDenied, code)
	}

	err := guard.Authorize(domain.MutationDelete, apiServer)
	require.ErrorIs(t, err, domain.ErrExternallyManaged)
	require.Contains(t, err.Error(), "api discovery")
}

func TestGuardAllowsManualMutations(t *testing.T) {
	guard := NewGuard(nil)

	manual := domain.ToolServer{Name: "calc", Provenance: domain.ProvenanceManual}
	require.NoError(t, guard.Authorize(domain.MutationUpdate, manual))
	require.NoError(t, guard.Authorize(domain.MutationDelete, manual))
}
