//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"
)

func InitializeApplication(ctx context.Context, cfg ServeConfig, logger *zap.Logger) (*Application, error) {
	wire.Build(AppSet)
	return nil, nil
}
