package main

import (
	"context"
	"fmt"

	"github.com/yohanna4/song-manager/internal/repository"
	"github.com/yohanna4/song-manager/internal/repository/memory"
	"github.com/yohanna4/song-manager/internal/repository/mongodb"
	"github.com/yohanna4/song-manager/internal/repository/postgres"
	"github.com/yohanna4/song-manager/pkg/config"
	"github.com/yohanna4/song-manager/pkg/db"
	"github.com/yohanna4/song-manager/pkg/logger"
)

// openStore connects the configured record store.
func openStore(ctx context.Context, cfg config.StoreConfig, log logger.Logger) (repository.SongRepository, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		repo, err := mongodb.Connect(ctx, mongodb.Config{
			URI:        cfg.DSN,
			Database:   cfg.Database,
			Collection: cfg.Collection,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Connected to MongoDB", logger.String("database", cfg.Database))
		return repo, nil

	case config.DriverPostgres:
		if cfg.Migrate {
			if err := migrate(ctx, cfg.DSN, log); err != nil {
				return nil, err
			}
		}
		pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DSN, MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		log.Info("Connected to PostgreSQL")
		return postgres.NewSongRepository(pool), nil

	case config.DriverMemory:
		log.Warn("Using in-memory store; data is lost on restart")
		return memory.NewSongRepository(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func migrate(ctx context.Context, dsn string, log logger.Logger) error {
	conn, err := db.OpenSQL(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	m, err := db.NewMigrator(conn, postgres.Migrations, postgres.MigrationsDir)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if version, dirty, err := m.Version(); err == nil {
		log.Info("Database migrated", logger.Int64("version", int64(version)), logger.Bool("dirty", dirty))
	}
	return nil
}
