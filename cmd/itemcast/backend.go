package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/xraph/itemcast/engine"
	"github.com/xraph/itemcast/forecast"
	"github.com/xraph/itemcast/harness"
	"github.com/xraph/itemcast/model"
	"github.com/xraph/itemcast/model/arima"
	"github.com/xraph/itemcast/store"
	bunstore "github.com/xraph/itemcast/store/bun"
	"github.com/xraph/itemcast/store/memory"
	pgstore "github.com/xraph/itemcast/store/postgres"
	redisstore "github.com/xraph/itemcast/store/redis"
)

func newPolicy(cfg config, logger *slog.Logger) (*forecast.Policy, error) {
	models := model.NewRegistry(arima.New())
	return forecast.New(models, forecast.WithConfig(cfg.Forecast), forecast.WithLogger(logger))
}

// openStore returns the configured store and a function releasing any
// client it opened.
func openStore(ctx context.Context, cfg config, logger *slog.Logger) (store.Store, func() error, error) {
	switch cfg.Backend {
	case backendPostgres:
		s, err := pgstore.New(ctx, cfg.Postgres.DSN, pgstore.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case backendBun:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return bunstore.New(db, bunstore.WithLogger(logger)), db.Close, nil
	case backendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		opts := []redisstore.Option{redisstore.WithLogger(logger)}
		if cfg.Redis.Prefix != "" {
			opts = append(opts, redisstore.WithPrefix(cfg.Redis.Prefix))
		}
		return redisstore.New(client, opts...), client.Close, nil
	case backendMemory:
		return memory.New(), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// newEngine builds an engine over the configured store with the forecast
// task registered against policy. The returned release function closes the
// store client; call it after the engine is closed.
func newEngine(ctx context.Context, cfg config, policy *forecast.Policy, tel *telemetry, logger *slog.Logger) (*engine.Engine, func() error, error) {
	s, release, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []engine.Option{
		engine.WithConfig(cfg.Engine),
		engine.WithLogger(logger),
	}
	if tel.tracerProvider != nil {
		opts = append(opts, engine.WithTracerProvider(tel.tracerProvider))
	}
	if tel.meterProvider != nil {
		opts = append(opts, engine.WithMeterProvider(tel.meterProvider))
	}
	eng, err := engine.New(s, opts...)
	if err != nil {
		return nil, nil, errors.Join(err, release())
	}
	harness.RegisterForecastTask(eng, policy)
	return eng, release, nil
}

func closeEngine(eng *engine.Engine, release func() error, logger *slog.Logger) {
	if err := eng.Close(context.Background()); err != nil {
		logger.Error("close engine", slog.String("error", err.Error()))
	}
	if err := release(); err != nil {
		logger.Error("close store client", slog.String("error", err.Error()))
	}
}
