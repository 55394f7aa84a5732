package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mcpdex/internal/app/directory"
	"mcpdex/internal/domain"
	"mcpdex/internal/infra/catalog"
	"mcpdex/internal/infra/config"
	"mcpdex/internal/infra/discovery"
	"mcpdex/internal/infra/execregistry"
	"mcpdex/internal/infra/httpapi"
	"mcpdex/internal/infra/telemetry"
)

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func NewConfigProvider(ctx context.Context, cfg ServeConfig, logger *zap.Logger) (*config.DynamicProvider, error) {
	return config.NewDynamicProvider(ctx, cfg.ConfigPath, logger)
}

func NewStore(provider *config.DynamicProvider) (*catalog.Store, error) {
	return catalog.OpenStore(provider.Snapshot().StorePath)
}

func NewMerger(logger *zap.Logger, metrics domain.Metrics) *catalog.Merger {
	return catalog.NewMerger(catalog.MergerOptions{
		Logger:  logger,
		Metrics: metrics,
	})
}

func NewGuard(logger *zap.Logger) *catalog.Guard {
	return catalog.NewGuard(logger)
}

func NewOrchestrator(logger *zap.Logger, metrics domain.Metrics, provider *config.DynamicProvider) *discovery.Orchestrator {
	return discovery.NewOrchestrator(discovery.OrchestratorOptions{
		Logger:   logger,
		Metrics:  metrics,
		Settings: provider,
		Cluster:  discovery.NewClusterProvider(discovery.ClusterProviderOptions{Logger: logger}),
		API:      discovery.NewAPIProvider(discovery.APIProviderOptions{Logger: logger}),
	})
}

// NewSynchronizer binds the execution registry client from the boot
// config. Registry base URL changes require a restart; discovery
// settings stay dynamic because providers re-read them per cycle.
func NewSynchronizer(logger *zap.Logger, metrics domain.Metrics, provider *config.DynamicProvider) *execregistry.Synchronizer {
	registry := provider.Snapshot().Registry

	var client execregistry.RegistryClient
	if registry.Enabled() {
		client = execregistry.NewHTTPClient(execregistry.HTTPClientOptions{
			BaseURL: registry.BaseURL,
			Timeout: registry.Timeout,
		})
	}
	return execregistry.NewSynchronizer(execregistry.SynchronizerOptions{
		Logger:      logger,
		Metrics:     metrics,
		Client:      client,
		Concurrency: registry.Concurrency,
	})
}

func NewDirectoryService(
	logger *zap.Logger,
	store *catalog.Store,
	orchestrator *discovery.Orchestrator,
	merger *catalog.Merger,
	guard *catalog.Guard,
	synchronizer *execregistry.Synchronizer,
	provider *config.DynamicProvider,
) *directory.Service {
	return directory.NewService(directory.Options{
		Logger:       logger,
		Store:        store,
		Orchestrator: orchestrator,
		Merger:       merger,
		Guard:        guard,
		Synchronizer: synchronizer,
		Settings:     provider,
	})
}

func NewAPIServer(logger *zap.Logger, provider *config.DynamicProvider, service *directory.Service) *httpapi.Server {
	return httpapi.NewServer(httpapi.ServerOptions{
		Addr:      provider.Snapshot().ListenAddress,
		Logger:    logger,
		Directory: service,
	})
}
