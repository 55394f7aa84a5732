package domain

import "time"

// Metrics records operational metrics for discovery, merging and
// registry synchronization. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// ObserveCycle records a completed discovery cycle.
	ObserveCycle(mode DiscoveryMode, status DiscoveryStatus, duration time.Duration)
	// ObserveProvider records one provider attempt inside a cycle.
	ObserveProvider(provider string, status DiscoveryStatus, duration time.Duration)
	// AddCoalesced counts callers that attached to an in-flight cycle.
	AddCoalesced(n int)
	// ObserveRegistration records one synchronizer attempt.
	ObserveRegistration(outcome RegistrationOutcome)
	// SetCatalogSize publishes the per-provenance entry count of the
	// most recent merged view.
	SetCatalogSize(provenance Provenance, count int)
	// AddMergeCollisions counts identifiers dropped by merge precedence.
	AddMergeCollisions(n int)
}
