package telemetry

import (
	"time"

	"mcpdex/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveCycle(_ domain.DiscoveryMode, _ domain.DiscoveryStatus, _ time.Duration) {
}

func (n *NoopMetrics) ObserveProvider(_ string, _ domain.DiscoveryStatus, _ time.Duration) {}

func (n *NoopMetrics) AddCoalesced(_ int) {}

func (n *NoopMetrics) ObserveRegistration(_ domain.RegistrationOutcome) {}

func (n *NoopMetrics) SetCatalogSize(_ domain.Provenance, _ int) {}

func (n *NoopMetrics) AddMergeCollisions(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
