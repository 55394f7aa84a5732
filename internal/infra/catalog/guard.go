package catalog

import (
	"fmt"

	"go.uber.org/zap"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

// Guard sits in front of the manual store's mutation entry points.
// Discovered entries are owned by their source; updating or deleting
// them here would be undone by the next discovery cycle, so the guard
// denies it outright.
type Guard struct {
	logger *zap.Logger
}

func NewGuard(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger.Named("guard")}
}

// Authorize checks one mutation against the target's provenance. Reads
// never pass through here; they are allowed for every provenance.
func (g *Guard) Authorize(op domain.MutationOp, server domain.ToolServer) error {
	if !server.Provenance.Discovered() {
		return nil
	}

	g.logger.Info("mutation denied",
		telemetry.EventField(telemetry.EventMutationDenied),
		telemetry.ServerNameField(server.Name),
		telemetry.ProvenanceField(string(server.Provenance)),
		zap.String("op", string(op)),
	)
	return domain.E(
		domain.CodePermissionDenied,
		fmt.Sprintf("guard.%s", op),
		fmt.Sprintf("read-only: %q is managed by %s", server.Name, provenanceSource(server.Provenance)),
		domain.ErrExternallyManaged,
	)
}

func provenanceSource(p domain.Provenance) string {
	switch p {
	case domain.ProvenanceCluster:
		return "cluster discovery"
	case domain.ProvenanceAPI:
		return "api discovery"
	default:
		return string(p)
	}
}
