package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mcpdex/internal/app/directory"
	"mcpdex/internal/domain"
	"mcpdex/internal/infra/catalog"
	"mcpdex/internal/infra/config"
	"mcpdex/internal/infra/httpapi"
	"mcpdex/internal/infra/telemetry"
)

const defaultHeartbeatInterval = 15 * time.Second

// Application wires the directory runtime and dependencies.
type Application struct {
	ctx        context.Context
	configPath string

	logger    *zap.Logger
	registry  *prometheus.Registry
	metrics   domain.Metrics
	health    *telemetry.HealthTracker
	config    *config.DynamicProvider
	store     *catalog.Store
	directory *directory.Service
	apiServer *httpapi.Server
}

// ApplicationOptions captures dependencies and settings for Application.
type ApplicationOptions struct {
	Context     context.Context
	ServeConfig ServeConfig
	Logger      *zap.Logger
	Registry    *prometheus.Registry
	Metrics     domain.Metrics
	Health      *telemetry.HealthTracker
	Config      *config.DynamicProvider
	Store       *catalog.Store
	Directory   *directory.Service
	APIServer   *httpapi.Server
}

// NewApplication constructs the directory runtime.
func NewApplication(opts ApplicationOptions) *Application {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Application{
		ctx:        ctx,
		configPath: opts.ServeConfig.ConfigPath,
		logger:     logger,
		registry:   opts.Registry,
		metrics:    opts.Metrics,
		health:     opts.Health,
		config:     opts.Config,
		store:      opts.Store,
		directory:  opts.Directory,
		apiServer:  opts.APIServer,
	}
}

// Run starts the directory services and blocks until shutdown.
func (a *Application) Run() error {
	defer func() { _ = a.store.Close() }()

	cfg := a.config.Snapshot()

	manualServers, err := a.store.Count()
	if err != nil {
		return fmt.Errorf("count stored servers: %w", err)
	}
	a.logger.Info("configuration loaded",
		zap.String("config", a.configPath),
		zap.String("store", a.store.Path()),
		zap.Int("manual_servers", manualServers),
	)

	if cfg.SeedPath != "" {
		a.importSeed(cfg.SeedPath)
	}

	metricsEnabled, healthzEnabled := resolveObservabilityDefaults()
	obsController := telemetry.NewObservabilityController(telemetry.ObservabilityControllerOptions{
		DefaultMetricsEnabled: metricsEnabled,
		DefaultHealthzEnabled: healthzEnabled,
		Registry:              a.registry,
		Health:                a.health,
		Logger:                a.logger,
	})
	if err := obsController.Apply(a.ctx, cfg.Observability); err != nil {
		a.logger.Warn("observability apply failed", zap.Error(err))
	}

	updates, err := a.config.Watch(a.ctx)
	if err != nil {
		a.logger.Warn("config watch unavailable", zap.Error(err))
	} else {
		go a.applyUpdates(updates, obsController)
	}

	heartbeat := a.health.Register("directory", defaultHeartbeatInterval)
	heartbeat.Beat()
	go a.beatLoop(heartbeat)

	return a.apiServer.Start(a.ctx)
}

// importSeed loads the configured seed file into the store. A missing
// file is a normal first-boot condition, not an error.
func (a *Application) importSeed(path string) {
	result, err := catalog.ReadSeedFile(path)
	if errors.Is(err, catalog.ErrSeedNotFound) {
		a.logger.Debug("seed file absent", zap.String("seed", path))
		return
	}
	if err != nil {
		a.logger.Warn("seed file unreadable", zap.String("seed", path), zap.Error(err))
		return
	}

	summary, err := catalog.ImportSeed(a.store, result, a.logger)
	if err != nil {
		a.logger.Warn("seed import failed", zap.String("seed", path), zap.Error(err))
		return
	}
	if len(summary.Issues) > 0 {
		a.logger.Warn("seed entries skipped",
			zap.String("seed", path),
			zap.Int("issues", len(summary.Issues)),
		)
	}
}

// applyUpdates reacts to config reloads. Discovery and registry
// settings are consumed per-cycle from the provider snapshot, so only
// the observability listener needs explicit reapplication here.
func (a *Application) applyUpdates(updates <-chan domain.ConfigUpdate, controller *telemetry.ObservabilityController) {
	for update := range updates {
		if err := controller.Apply(a.ctx, update.Config.Observability); err != nil {
			a.logger.Warn("observability apply failed",
				zap.Uint64("revision", update.Revision),
				zap.Error(err),
			)
		}
	}
}

func (a *Application) beatLoop(beat *telemetry.HealthBeat) {
	ticker := time.NewTicker(defaultHeartbeatInterval / 3)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			beat.Beat()
		}
	}
}
