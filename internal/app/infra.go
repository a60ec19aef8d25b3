package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fitnessapp/identity-sync/internal/api/handler"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/db/memory"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/db/mongo"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/db/postgres"
	"github.com/fitnessapp/identity-sync/internal/infrastructure/db/redis"
	"github.com/fitnessapp/identity-sync/internal/pkg/config"
	"github.com/fitnessapp/identity-sync/pkg/logger"
)

// Infra holds the storage adapters selected by configuration and the
// functions that release them.
type Infra struct {
	Users  ports.UserStore
	Events ports.SyncEventRepository
	Checks map[string]handler.Check

	closers []func(context.Context) error
}

func (i *Infra) onClose(fn func(context.Context) error) {
	i.closers = append(i.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (i *Infra) Close(ctx context.Context) error {
	var firstErr error
	for n := len(i.closers) - 1; n >= 0; n-- {
		if err := i.closers[n](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	i.closers = nil
	return firstErr
}

func setupInfra(ctx context.Context, cfg *config.Config, log zerolog.Logger) (_ *Infra, err error) {
	infra := &Infra{Checks: make(map[string]handler.Check)}
	defer func() {
		if err != nil {
			_ = infra.Close(context.Background())
		}
	}()

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		if err := setupPostgres(ctx, cfg, infra, log); err != nil {
			return nil, err
		}
	case config.StoreDriverMongo:
		if err := setupMongo(ctx, cfg, infra, log); err != nil {
			return nil, err
		}
	case config.StoreDriverMemory:
		infra.Users = memory.NewUserDirectory()
		infra.Events = memory.NewSyncEventRepository()
		log.Warn().Msg("using in-memory user directory; records are lost on restart")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	if cfg.Redis.Enabled {
		client, err := redis.Connect(ctx, redis.Config{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return nil, err
		}
		infra.onClose(func(context.Context) error { return client.Close() })
		infra.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		infra.Users = redis.NewCachedUserStore(infra.Users, client, cfg.Redis.UserTTL,
			logger.Component(log, "user_cache"))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("redis ready")
	}

	return infra, nil
}

func setupPostgres(ctx context.Context, cfg *config.Config, infra *Infra, log zerolog.Logger) error {
	if cfg.Postgres.MigrateOnStart {
		if err := postgres.Migrate(cfg.Postgres.URL, "up"); err != nil {
			return err
		}
		log.Info().Msg("database migrations applied")
	}

	db, err := postgres.Open(ctx, postgres.Config{DSN: cfg.Postgres.URL, MaxOpenConns: cfg.Postgres.MaxOpenConns})
	if err != nil {
		return err
	}
	infra.onClose(func(context.Context) error { return db.Close() })
	infra.Checks["postgres"] = pingSQL(db)
	infra.Users = postgres.NewUserDirectory(db)
	infra.Events = postgres.NewSyncEventRepository(db)

	log.Info().Msg("postgres ready")
	return nil
}

func setupMongo(ctx context.Context, cfg *config.Config, infra *Infra, log zerolog.Logger) error {
	client, db, err := mongo.Connect(ctx, mongo.Config{
		URI:                    cfg.Mongo.URI,
		Database:               cfg.Mongo.Database,
		MaxPoolSize:            cfg.Mongo.MaxPoolSize,
		ServerSelectionTimeout: cfg.Mongo.ServerSelectionTimeout,
	})
	if err != nil {
		return err
	}
	infra.onClose(client.Disconnect)
	infra.Checks["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

	users := mongo.NewUserDirectory(db)
	if err := users.EnsureIndexes(ctx); err != nil {
		return err
	}
	infra.Users = users
	infra.Events = mongo.NewSyncEventRepository(db)

	log.Info().Str("database", cfg.Mongo.Database).Msg("mongodb ready")
	return nil
}

func pingSQL(db *sql.DB) handler.Check {
	return db.PingContext
}
