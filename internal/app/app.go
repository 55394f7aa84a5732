package app

import (
	"context"

	"go.uber.org/zap"
)

type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
}

type ValidateConfig struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	return &App{
		logger: logger.Named("app"),
	}
}

// Serve assembles the directory daemon and blocks until ctx is done.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	application, err := InitializeApplication(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	return application.Run()
}
