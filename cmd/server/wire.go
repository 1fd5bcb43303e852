//go:build wireinject
// +build wireinject

package main

import (
	"waste_ops_backend/internal/app"
	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/jobs"
	platformes "waste_ops_backend/internal/platform/elasticsearch"
	"waste_ops_backend/internal/platform/logger"
	"waste_ops_backend/internal/platform/telemetry"
	"waste_ops_backend/internal/user"
	"waste_ops_backend/internal/usersync"

	"github.com/google/wire"
)

var platformSet = wire.NewSet(
	logger.New,
	provideDatabase,
	platformes.NewClient,
	provideSearchIndex,
)

var userSet = wire.NewSet(
	user.NewGORMRepository,
	user.NewService,
	wire.Bind(new(user.Service), new(*user.ServiceImplementation)),
)

var userSyncSet = wire.NewSet(
	provideIdentityBackend,
	provideIdentityProvider,
	telemetry.NewProvider,
	provideSyncMetrics,
	usersync.NewRoleResolver,
	usersync.NewEngine,
	wire.Bind(new(usersync.LocalStore), new(*user.ServiceImplementation)),
	wire.Bind(new(usersync.Reconciler), new(*usersync.Engine)),
	provideReadinessGate,
	usersync.GatePolicyFromConfig,
	usersync.NewTrigger,
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		platformSet,
		userSet,
		userSyncSet,
		provideTokenVerifier,

		user.NewHandler,
		usersync.NewHandler,
		wire.Bind(new(usersync.ManualRunner), new(*usersync.Trigger)),
		jobs.NewUserSyncJob,
		wire.Bind(new(jobs.ScheduledRunner), new(*usersync.Trigger)),
		wire.Bind(new(app.StartupRunner), new(*usersync.Trigger)),

		app.NewServer,
	)
	return nil, nil, nil
}

// initializeSyncTrigger builds the pieces needed for a one-off sync run.
func initializeSyncTrigger(cfg *config.Config) (*usersync.Trigger, func(), error) {
	wire.Build(platformSet, userSet, userSyncSet)
	return nil, nil, nil
}

// initializeUserService builds the user service for maintenance commands.
func initializeUserService(cfg *config.Config) (user.Service, func(), error) {
	wire.Build(platformSet, userSet)
	return nil, nil, nil
}
