package domain

import "time"

// DirectoryConfig is the normalized daemon configuration. The config
// loader produces it from the raw YAML file; dynamic providers snapshot
// and republish it on change.
type DirectoryConfig struct {
	ListenAddress string
	StorePath     string
	SeedPath      string
	Observability ObservabilitySettings
	Discovery     DiscoverySettings
	Registry      RegistrySettings
}

// ObservabilitySettings controls the metrics/health listener. Nil
// pointers mean "use the daemon default".
type ObservabilitySettings struct {
	ListenAddress  string
	MetricsEnabled *bool
	HealthzEnabled *bool
}

// RegistrySettings points the synchronizer at the execution registry.
// An empty BaseURL disables synchronization.
type RegistrySettings struct {
	BaseURL     string
	Timeout     time.Duration
	Concurrency int
}

func (s RegistrySettings) Enabled() bool {
	return s.BaseURL != ""
}

// ConfigUpdateSource tells subscribers what triggered a reload.
type ConfigUpdateSource string

const (
	ConfigUpdateSourceWatch  ConfigUpdateSource = "watch"
	ConfigUpdateSourceManual ConfigUpdateSource = "manual"
)

// ConfigUpdate is broadcast to subscribers after a successful reload
// that changed the effective configuration.
type ConfigUpdate struct {
	Config   DirectoryConfig
	Source   ConfigUpdateSource
	Revision uint64
}
