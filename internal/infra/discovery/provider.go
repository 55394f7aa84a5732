package discovery

import (
	"context"

	"mcpdex/internal/domain"
)

// Provider names used in cycle outcomes, logs and metrics.
const (
	ProviderNameCluster = "cluster"
	ProviderNameAPI     = "api"
)

// Provider queries one external source for tool servers. Providers never
// return an error: absence, unreachability and slowness are all carried
// in the result status so a catalog read can always proceed. The caller
// bounds each invocation with a deadline on ctx; providers must stop
// work when it fires and report status=timeout.
type Provider interface {
	Name() string
	Kind() domain.Provenance
	Discover(ctx context.Context, settings domain.DiscoverySettings) domain.DiscoveryResult
}

func unavailable(reason string) domain.DiscoveryResult {
	return domain.DiscoveryResult{Status: domain.DiscoveryUnavailable, Reason: reason}
}

func timedOut(reason string) domain.DiscoveryResult {
	return domain.DiscoveryResult{Status: domain.DiscoveryTimeout, Reason: reason}
}
