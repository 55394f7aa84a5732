package execregistry

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

// idleCloser is implemented by clients that pool connections. The
// synchronizer drops the pool when a pass ends; nothing stays warm
// between cycles.
type idleCloser interface {
	CloseIdleConnections()
}

// Synchronizer pushes discovered catalog entries into the execution
// registry. Registration is level-based: already-confirmed identifiers
// are skipped, failures are retried on the next pass, and a conflict
// from the registry counts as confirmation.
type Synchronizer struct {
	logger      *zap.Logger
	metrics     domain.Metrics
	client      RegistryClient
	concurrency int

	mu          sync.Mutex
	registered  map[string]struct{}
	lastRecords map[string]domain.RegistrationRecord
}

type SynchronizerOptions struct {
	Logger  *zap.Logger
	Metrics domain.Metrics
	// Client nil disables synchronization; Sync becomes a no-op.
	Client      RegistryClient
	Concurrency int
}

func NewSynchronizer(opts SynchronizerOptions) *Synchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = domain.DefaultRegistryConcurrency
	}
	return &Synchronizer{
		logger:      logger.Named("execregistry"),
		metrics:     metrics,
		client:      opts.Client,
		concurrency: concurrency,
		registered:  make(map[string]struct{}),
		lastRecords: make(map[string]domain.RegistrationRecord),
	}
}

// Enabled reports whether a registry client is configured.
func (s *Synchronizer) Enabled() bool {
	return s.client != nil
}

// Sync submits every discovered entry of the view that the registry has
// not confirmed yet and returns the records of this pass. A failed
// registration never aborts the pass. Manual entries are never
// submitted.
func (s *Synchronizer) Sync(ctx context.Context, view domain.CatalogView) map[string]domain.RegistrationRecord {
	if s.client == nil {
		return nil
	}

	present := make(map[string]struct{}, len(view.Servers))
	var pending []domain.ToolServer
	s.mu.Lock()
	for _, server := range view.Servers {
		if !server.Provenance.Discovered() {
			continue
		}
		present[server.Name] = struct{}{}
		if _, confirmed := s.registered[server.Name]; confirmed {
			continue
		}
		pending = append(pending, server.Clone())
	}
	// Identifiers gone from the view leave the memo so a rediscovered
	// server re-runs the idempotent register path.
	for name := range s.registered {
		if _, ok := present[name]; !ok {
			delete(s.registered, name)
		}
	}
	for name := range s.lastRecords {
		if _, ok := present[name]; !ok {
			delete(s.lastRecords, name)
		}
	}
	s.mu.Unlock()

	if len(pending) == 0 {
		return map[string]domain.RegistrationRecord{}
	}

	records := make([]domain.RegistrationRecord, len(pending))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for idx, server := range pending {
		eg.Go(func() error {
			records[idx] = s.register(egCtx, server)
			return nil
		})
	}
	_ = eg.Wait()

	if closer, ok := s.client.(idleCloser); ok {
		closer.CloseIdleConnections()
	}

	out := make(map[string]domain.RegistrationRecord, len(records))
	s.mu.Lock()
	for _, record := range records {
		out[record.Name] = record
		s.lastRecords[record.Name] = record
		if record.Outcome.Success() {
			s.registered[record.Name] = struct{}{}
		}
	}
	s.mu.Unlock()
	return out
}

func (s *Synchronizer) register(ctx context.Context, server domain.ToolServer) domain.RegistrationRecord {
	err := s.client.Register(ctx, server)
	record := domain.RegistrationRecord{
		Name:      server.Name,
		UpdatedAt: time.Now().UTC(),
	}
	switch {
	case err == nil:
		record.Outcome = domain.RegistrationRegistered
		s.logger.Info("provider registered",
			telemetry.EventField(telemetry.EventRegisterSuccess),
			telemetry.ServerNameField(server.Name),
			telemetry.ProvenanceField(string(server.Provenance)),
		)
	case errors.Is(err, domain.ErrAlreadyRegistered):
		record.Outcome = domain.RegistrationConflict
		s.logger.Debug("provider already registered",
			telemetry.EventField(telemetry.EventRegisterConflict),
			telemetry.ServerNameField(server.Name),
		)
	default:
		record.Outcome = domain.RegistrationFailed
		record.Error = err.Error()
		s.logger.Warn("provider registration failed",
			telemetry.EventField(telemetry.EventRegisterFailure),
			telemetry.ServerNameField(server.Name),
			zap.Error(err),
		)
	}
	s.metrics.ObserveRegistration(record.Outcome)
	return record
}

// LastRecords returns a copy of the latest per-identifier outcomes.
func (s *Synchronizer) LastRecords() map[string]domain.RegistrationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.RegistrationRecord, len(s.lastRecords))
	for name, record := range s.lastRecords {
		out[name] = record
	}
	return out
}

// Failures returns identifier to error text for entries whose latest
// attempt failed. Used by the discovery status surface.
func (s *Synchronizer) Failures() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out map[string]string
	for name, record := range s.lastRecords {
		if record.Outcome != domain.RegistrationFailed {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = record.Error
	}
	return out
}
