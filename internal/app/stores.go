// Package app wires configuration into stores and pipeline components.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"fx-trend-lab/internal/config"
	"fx-trend-lab/internal/snapshot"
	"fx-trend-lab/internal/storage"
	chstore "fx-trend-lab/internal/storage/clickhouse"
	"fx-trend-lab/internal/storage/memory"
	"fx-trend-lab/internal/storage/migrations"
	pgstore "fx-trend-lab/internal/storage/postgres"
)

// Stores holds all storage implementations.
type Stores struct {
	Observations storage.ObservationStore
	FeatureRows  storage.FeatureRowStore
	Metadata     storage.CurrencyMetadataStore
	Insights     storage.InsightStore
	Snapshot     snapshot.Cache
}

// OpenStores creates the stores selected by cfg. The returned cleanup
// releases every connection.
func OpenStores(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*Stores, func(), error) {
	cache, closeCache, err := openSnapshotCache(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Backend == config.BackendMemory {
		logger.Info().Msg("using in-memory storage")
		return &Stores{
			Observations: memory.NewObservationStore(),
			FeatureRows:  memory.NewFeatureRowStore(),
			Metadata:     memory.NewCurrencyMetadataStore(),
			Insights:     memory.NewInsightStore(),
			Snapshot:     cache,
		}, closeCache, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		closeCache()
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if cfg.Migrate {
		applied, err := migrations.RunPostgresMigrations(ctx, pool)
		if err != nil {
			pool.Close()
			closeCache()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info().Strs("applied", applied).Msg("postgres migrations done")
	}

	// ClickHouse
	var chConn *chstore.Conn
	if cfg.Migrate {
		chConn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickHouse.DSN)
	} else {
		chConn, err = chstore.NewConn(ctx, cfg.ClickHouse.DSN)
	}
	if err != nil {
		pool.Close()
		closeCache()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	logger.Info().Bool("migrated", cfg.Migrate).Msg("using postgres and clickhouse storage")

	stores := &Stores{
		// PostgreSQL stores (source and reference data)
		Observations: pgstore.NewObservationStore(pool),
		Metadata:     pgstore.NewCurrencyMetadataStore(pool),
		Insights:     pgstore.NewInsightStore(pool),

		// ClickHouse stores (analytics)
		FeatureRows: chstore.NewFeatureRowStore(chConn),

		Snapshot: cache,
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
		closeCache()
	}
	return stores, cleanup, nil
}

// openSnapshotCache returns a Redis cache when an address is configured,
// otherwise an in-process cache.
func openSnapshotCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (snapshot.Cache, func(), error) {
	if cfg.Addr == "" {
		return snapshot.NewMemoryCache(), func() {}, nil
	}

	client, err := snapshot.Dial(ctx, cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Addr).Msg("using redis snapshot cache")

	cache := snapshot.NewRedisCache(client, snapshot.WithKey(cfg.Key), snapshot.WithTTL(cfg.TTL))
	return cache, func() { _ = client.Close() }, nil
}
