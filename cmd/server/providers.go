package main

import (
	"context"
	"fmt"
	"log"

	"waste_ops_backend/internal/config"
	"waste_ops_backend/internal/identity"
	"waste_ops_backend/internal/identity/firebase"
	"waste_ops_backend/internal/identity/keycloak"
	"waste_ops_backend/internal/platform/database"
	platformes "waste_ops_backend/internal/platform/elasticsearch"
	"waste_ops_backend/internal/platform/telemetry"
	"waste_ops_backend/internal/user"
	"waste_ops_backend/internal/usersync"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// identityBackend is what every supported identity provider offers.
type identityBackend interface {
	identity.Provider
	identity.TokenVerifier
}

func provideIdentityBackend(cfg *config.Config, logger *zap.Logger) (identityBackend, error) {
	switch cfg.IdentityProvider {
	case config.IdentityProviderFirebase:
		p, err := firebase.NewProvider(context.Background(), cfg, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.IdentityProviderKeycloak:
		return keycloak.New(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported identity provider %q", cfg.IdentityProvider)
	}
}

func provideIdentityProvider(b identityBackend) identity.Provider { return b }

func provideTokenVerifier(b identityBackend) identity.TokenVerifier { return b }

// provideDatabase opens the database, migrates the schema when enabled and
// returns a cleanup that closes the pool and flushes the logger.
func provideDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(db, &user.User{}); err != nil {
			database.CloseGORMDB(db)
			return nil, nil, err
		}
		logger.Info("Database schema migrated")
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	return db, cleanup, nil
}

// provideSearchIndex returns nil when Elasticsearch is not configured. A
// failure to create the index is logged; writes will surface it later.
func provideSearchIndex(client *platformes.ESClientWrapper, logger *zap.Logger) user.SearchIndex {
	if client == nil {
		logger.Info("Elasticsearch not configured; user search disabled")
		return nil
	}
	if err := platformes.CreateUsersIndexIfNotExists(context.Background(), client, logger); err != nil {
		logger.Error("Failed to create Elasticsearch users index", zap.Error(err))
	}
	return user.NewElasticsearchIndex(client, logger)
}

func provideSyncMetrics(tel *telemetry.Provider) (*usersync.Metrics, error) {
	return usersync.NewMetrics(tel.MeterProvider())
}

func provideReadinessGate(provider identity.Provider, logger *zap.Logger) *usersync.ReadinessGate {
	return usersync.NewReadinessGate(usersync.CheckFor(provider), logger)
}
