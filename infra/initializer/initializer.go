// Package initializer builds the application's infrastructure dependencies
// from configuration.
package initializer

import (
	"fmt"

	"github.com/rbxmart/rbxmart/app"
	"github.com/rbxmart/rbxmart/config"
	"github.com/rbxmart/rbxmart/infra"
	infracache "github.com/rbxmart/rbxmart/infra/cache"
	infraprovider "github.com/rbxmart/rbxmart/infra/provider"
	infrarepository "github.com/rbxmart/rbxmart/infra/repository"
	"github.com/rbxmart/rbxmart/pkg/eventbus"
)

// InitializeDependencies initializes all the application dependencies.
func InitializeDependencies(cfg *config.App) (*app.Deps, error) {
	deps := &app.Deps{}
	logger := setupLogger(cfg.Log)
	deps.Logger = logger

	db, err := infra.NewDBConnection(cfg.DB)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}
	deps.Uow = infrarepository.NewUoW(db)

	deps.EventBus = eventbus.NewMemoryBus(logger)

	deps.RobloxClient = infraprovider.NewRobloxAPIClient(cfg.Roblox, logger)
	deps.Gateway = infraprovider.NewSnapGateway(cfg.Gateway, logger)
	deps.Notifier = infraprovider.NewSMTPNotifier(cfg.SMTP, logger)

	deps.GamepassCache, err = infracache.NewRedisGamepassCache(cfg.Redis.URL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gamepass cache: %w", err)
	}

	return deps, nil
}
