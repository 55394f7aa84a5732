package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"mcpdex/internal/infra/catalog"
	"mcpdex/internal/infra/config"
)

// ValidateConfig validates the configuration at the provided path,
// along with the seed file it references.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) error {
	loader := config.NewLoader(a.logger)

	directoryConfig, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	seedServers := 0
	if directoryConfig.SeedPath != "" {
		result, err := catalog.ReadSeedFile(directoryConfig.SeedPath)
		switch {
		case errors.Is(err, catalog.ErrSeedNotFound):
			a.logger.Info("seed file absent", zap.String("seed", directoryConfig.SeedPath))
		case err != nil:
			return err
		default:
			seedServers = len(result.Servers)
			for _, issue := range result.Issues {
				a.logger.Warn("seed entry invalid",
					zap.String("seed", directoryConfig.SeedPath),
					zap.String("name", issue.Name),
					zap.String("kind", string(issue.Kind)),
					zap.String("message", issue.Message),
				)
			}
		}
	}

	a.logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		zap.String("listen", directoryConfig.ListenAddress),
		zap.String("mode", string(directoryConfig.Discovery.EffectiveMode())),
		zap.Int("seed_servers", seedServers),
	)
	return nil
}
