package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/ferrywatch/ferries_core/internal/cache"
	"github.com/ferrywatch/ferries_core/internal/capacity"
	"github.com/ferrywatch/ferries_core/internal/config"
	"github.com/ferrywatch/ferries_core/internal/db"
	"github.com/ferrywatch/ferries_core/internal/preferences"
	"github.com/ferrywatch/ferries_core/internal/sailings"
	"github.com/ferrywatch/ferries_core/internal/schedule"
	"github.com/ferrywatch/ferries_core/internal/terminals"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Deps are the long-lived components built from a Config
type Deps struct {
	Config   *config.Config
	Registry *terminals.Registry
	Location *time.Location
	Service  *sailings.Service
	Store    preferences.Store
	Profiles *preferences.Manager
	Redis    *redis.Client // nil unless a component needs it
	Postgres *pgxpool.Pool // nil unless the postgres store is selected
}

// Build connects every configured backend. Close must be called on success.
func Build(ctx context.Context, cfg *config.Config) (*Deps, error) {
	loc, err := schedule.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	registry := terminals.Default()
	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("invalid terminal registry: %w", err)
	}

	deps := &Deps{Config: cfg, Registry: registry, Location: loc}

	if cfg.NeedsRedis() {
		deps.Redis, err = cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		log.Info().Str("host", cfg.Redis.Host).Int("port", cfg.Redis.Port).Msg("Redis connection established")
	}

	client := capacity.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	var source capacity.Source = client
	if cfg.CacheEnabled {
		source = cache.NewCapacitySource(client, deps.Redis, client.Endpoint(), cfg.Redis.TTL, cfg.Redis.MutexTTL)
	}
	deps.Service = sailings.NewService(registry, source, loc)

	store, err := OpenStore(ctx, cfg, deps.Redis)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Store = store
	if pg, ok := store.(*preferences.PostgresStore); ok {
		deps.Postgres = pg.Pool()
	}
	deps.Profiles = preferences.NewManager(deps.Store, registry, loc)

	return deps, nil
}

// OpenStore opens the configured preference backend
func OpenStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (preferences.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreSQLite:
		log.Debug().Str("path", cfg.Store.SQLitePath).Msg("Opening SQLite preference store")
		store, err := preferences.NewSQLiteStore(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoreRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis preference store requires a Redis connection")
		}
		return preferences.NewRedisStore(rdb, "prefs:"), nil
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, err
		}
		store, err := preferences.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("Postgres preference store ready")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Preferences scopes the preference store to profile
func (d *Deps) Preferences(profile string) *preferences.Preferences {
	return d.Profiles.For(profile)
}

// Close releases every connection opened by Build
func (d *Deps) Close() {
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close preference store")
		}
	}
	if d.Redis != nil {
		d.Redis.Close()
	}
}
