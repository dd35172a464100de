// Package storage provides the durable key-value backends that hold the
// serialized catalog collections.
package storage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sangkips/pharmacy-invoice/internal/config"
	domainRepo "github.com/sangkips/pharmacy-invoice/internal/domain/repository"
	"github.com/sangkips/pharmacy-invoice/internal/infrastructure/database"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
	DriverRedis    = "redis"
)

// NewFromConfig opens the backend selected by cfg.Storage.Driver
func NewFromConfig(ctx context.Context, cfg *config.Config, log zerolog.Logger) (domainRepo.CollectionStore, error) {
	switch cfg.Storage.Driver {
	case DriverSQLite, "":
		db, err := database.NewSQLiteDB(cfg.Storage.Path, cfg.App.Debug, log)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	case DriverPostgres:
		db, err := database.NewPostgresDB(&cfg.Database, cfg.App.Debug, log)
		if err != nil {
			return nil, err
		}
		if err := database.AutoMigrate(db); err != nil {
			return nil, err
		}
		return NewGormStore(db), nil
	case DriverBolt:
		return NewBoltStore(cfg.Storage.BoltPath)
	case DriverRedis:
		return NewRedisStore(ctx, cfg.Storage.RedisURL, cfg.Storage.RedisPrefix)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q (use sqlite, postgres, bolt or redis)", cfg.Storage.Driver)
	}
}
