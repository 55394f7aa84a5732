package catalog

import (
	"time"

	"go.uber.org/zap"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/hashutil"
	"mcpdex/internal/infra/telemetry"
)

// Merger combines the manual store snapshot with one discovery result
// into a catalog view. Merging is deterministic: identical inputs yield
// identical ordering, provenance tags and ETag.
type Merger struct {
	logger  *zap.Logger
	metrics domain.Metrics
}

type MergerOptions struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
}

func NewMerger(opts MergerOptions) *Merger {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	return &Merger{
		logger:  logger.Named("merge"),
		metrics: metrics,
	}
}

// Merge places manual entries first in store order, then discovered
// entries in discovery order. Manual always wins an identifier
// collision; between two discovered entries the first seen wins.
// Dropped duplicates are counted, never an error.
func (m *Merger) Merge(manual []domain.ToolServer, discovered domain.DiscoveryResult) domain.CatalogView {
	servers := make([]domain.ToolServer, 0, len(manual)+len(discovered.Servers))
	seen := make(map[string]domain.Provenance, len(manual)+len(discovered.Servers))

	for _, server := range manual {
		entry := server.Clone()
		entry.Provenance = domain.ProvenanceManual
		if winner, dup := seen[entry.Name]; dup {
			// Two manual entries with one name cannot come out of the
			// store; tolerate it anyway and keep the first.
			m.logCollision(entry, winner)
			continue
		}
		seen[entry.Name] = entry.Provenance
		servers = append(servers, entry)
	}

	collisions := 0
	for _, server := range discovered.Servers {
		entry := server.Clone()
		if winner, dup := seen[entry.Name]; dup {
			collisions++
			m.logCollision(entry, winner)
			continue
		}
		seen[entry.Name] = entry.Provenance
		servers = append(servers, entry)
	}
	if collisions > 0 {
		m.metrics.AddMergeCollisions(collisions)
	}

	view := domain.CatalogView{
		Servers:     servers,
		ETag:        hashutil.CatalogETag(m.logger, servers),
		GeneratedAt: time.Now().UTC(),
	}
	m.publishSizes(view)
	return view
}

func (m *Merger) logCollision(dropped domain.ToolServer, winner domain.Provenance) {
	m.logger.Debug("duplicate identifier dropped",
		telemetry.EventField(telemetry.EventMergeCollision),
		telemetry.ServerNameField(dropped.Name),
		telemetry.ProvenanceField(string(dropped.Provenance)),
		zap.String("keptProvenance", string(winner)),
	)
}

func (m *Merger) publishSizes(view domain.CatalogView) {
	counts := view.CountByProvenance()
	for _, provenance := range []domain.Provenance{domain.ProvenanceManual, domain.ProvenanceCluster, domain.ProvenanceAPI} {
		m.metrics.SetCatalogSize(provenance, counts[provenance])
	}
}
