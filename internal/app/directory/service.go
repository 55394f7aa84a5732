package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/catalog"
)

// Store is the manual-entry persistence the service reads and mutates.
type Store interface {
	List() ([]domain.ToolServer, error)
	Get(name string) (domain.ToolServer, error)
	Create(server domain.ToolServer) (domain.ToolServer, error)
	Update(name string, server domain.ToolServer) (domain.ToolServer, error)
	Delete(name string) error
}

// CycleRunner triggers discovery cycles and exposes their bookkeeping.
type CycleRunner interface {
	Run(ctx context.Context) domain.DiscoveryCycle
	InFlight() bool
	LastCycle() *domain.CycleSummary
}

// RegistrySynchronizer pushes discovered entries to the execution
// registry after each merge.
type RegistrySynchronizer interface {
	Sync(ctx context.Context, view domain.CatalogView) map[string]domain.RegistrationRecord
	Failures() map[string]string
}

// SettingsSource hands the service the discovery slice of the current
// configuration for the status surface.
type SettingsSource interface {
	DiscoverySettings() domain.DiscoverySettings
}

// Service is the directory's application surface. Every catalog read
// runs the same path: discover on demand, merge with the manual store,
// synchronize new discovered entries, return the view. Discovery
// trouble never fails a read; the view then simply carries the manual
// entries.
type Service struct {
	logger       *zap.Logger
	store        Store
	orchestrator CycleRunner
	merger       *catalog.Merger
	guard        *catalog.Guard
	synchronizer RegistrySynchronizer
	settings     SettingsSource
}

type Options struct {
	Logger       *zap.Logger
	Store        Store
	Orchestrator CycleRunner
	Merger       *catalog.Merger
	Guard        *catalog.Guard
	Synchronizer RegistrySynchronizer
	Settings     SettingsSource
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		logger:       logger.Named("directory"),
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		merger:       opts.Merger,
		guard:        opts.Guard,
		synchronizer: opts.Synchronizer,
		settings:     opts.Settings,
	}
}

// Catalog returns the merged view of the directory. Only a storage
// failure is an error; a discovery cycle that found nothing, timed out
// or had no capability still yields a view with the manual entries.
func (s *Service) Catalog(ctx context.Context) (domain.CatalogView, error) {
	view, _, err := s.assemble(ctx)
	return view, err
}

// Refresh runs the same cycle path as Catalog and reports what the
// cycle and the synchronizer did.
func (s *Service) Refresh(ctx context.Context) (domain.RefreshSummary, error) {
	view, cycle, err := s.assemble(ctx)
	if err != nil {
		return domain.RefreshSummary{}, err
	}
	return domain.RefreshSummary{
		CycleID:       cycle.ID,
		Mode:          cycle.Mode,
		Status:        cycle.Result.Status,
		Reason:        cycle.Result.Reason,
		Providers:     cycle.Outcomes,
		Discovered:    len(cycle.Result.Servers),
		CatalogSize:   len(view.Servers),
		Registrations: cycle.Registrations,
		DurationMs:    cycle.Duration.Milliseconds(),
		Coalesced:     cycle.Coalesced,
	}, nil
}

// assembledCycle carries the cycle record plus the registration records
// of the synchronizer pass it triggered.
type assembledCycle struct {
	domain.DiscoveryCycle
	Registrations map[string]domain.RegistrationRecord
}

func (s *Service) assemble(ctx context.Context) (domain.CatalogView, assembledCycle, error) {
	manual, err := s.store.List()
	if err != nil {
		return domain.CatalogView{}, assembledCycle{}, err
	}
	cycle := s.orchestrator.Run(ctx)
	view := s.merger.Merge(manual, cycle.Result)
	registrations := s.synchronizer.Sync(ctx, view)
	return view, assembledCycle{DiscoveryCycle: cycle, Registrations: registrations}, nil
}

// Status describes the discovery subsystem without triggering a cycle.
func (s *Service) Status(_ context.Context) domain.DiscoveryStatusReport {
	settings := s.settings.DiscoverySettings()
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultDiscoveryTimeoutSeconds * time.Second
	}
	return domain.DiscoveryStatusReport{
		Enabled:        settings.Enabled,
		Mode:           settings.EffectiveMode(),
		TimeoutSeconds: int(timeout / time.Second),
		Namespace:      settings.Namespace,
		APIConfigured:  settings.APIBaseURL != "",
		InFlight:       s.orchestrator.InFlight(),
		LastCycle:      s.orchestrator.LastCycle(),
		LastSyncErrors: s.synchronizer.Failures(),
	}
}

// GetServer resolves one descriptor against the merged view.
func (s *Service) GetServer(ctx context.Context, name string) (domain.ToolServer, error) {
	view, err := s.Catalog(ctx)
	if err != nil {
		return domain.ToolServer{}, err
	}
	server, ok := view.Find(name)
	if !ok {
		return domain.ToolServer{}, domain.E(
			domain.CodeNotFound,
			"directory.get",
			fmt.Sprintf("tool server %q not found", name),
			domain.ErrServerNotFound,
		)
	}
	return server, nil
}

// CreateServer adds a manual entry. The identifier may shadow a
// discovered entry; manual wins at merge. Only a manual duplicate is a
// conflict.
func (s *Service) CreateServer(_ context.Context, server domain.ToolServer) (domain.ToolServer, error) {
	server.Provenance = domain.ProvenanceManual
	return s.store.Create(server)
}

// UpdateServer replaces a manual entry. Aimed at a discovered entry it
// is denied by the guard rather than silently shadowing.
func (s *Service) UpdateServer(ctx context.Context, name string, server domain.ToolServer) (domain.ToolServer, error) {
	target, err := s.resolveMutationTarget(ctx, name)
	if err != nil {
		return domain.ToolServer{}, err
	}
	if err := s.guard.Authorize(domain.MutationUpdate, target); err != nil {
		return domain.ToolServer{}, err
	}
	// The path identifies the resource; renames are not a thing here.
	server.Name = name
	server.Provenance = domain.ProvenanceManual
	return s.store.Update(name, server)
}

// DeleteServer removes a manual entry, guarded the same way as update.
func (s *Service) DeleteServer(ctx context.Context, name string) error {
	target, err := s.resolveMutationTarget(ctx, name)
	if err != nil {
		return err
	}
	if err := s.guard.Authorize(domain.MutationDelete, target); err != nil {
		return err
	}
	return s.store.Delete(name)
}

// resolveMutationTarget finds what a mutation is aimed at. A store hit
// is exactly a merged-view manual win, so the merged view only needs
// assembling when the store misses; the miss then distinguishes a
// discovered target from an unknown name.
func (s *Service) resolveMutationTarget(ctx context.Context, name string) (domain.ToolServer, error) {
	manual, err := s.store.Get(name)
	if err == nil {
		return manual, nil
	}
	if !errors.Is(err, domain.ErrServerNotFound) {
		return domain.ToolServer{}, err
	}

	view, viewErr := s.Catalog(ctx)
	if viewErr != nil {
		return domain.ToolServer{}, viewErr
	}
	if server, ok := view.Find(name); ok {
		return server, nil
	}
	return domain.ToolServer{}, err
}
