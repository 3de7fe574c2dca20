package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/mongo"
	"github.com/aryan0dhankhar/employeedir/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/employeedir/internal/observability/metrics"
	"github.com/aryan0dhankhar/employeedir/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/employeedir/internal/reliability/retry"
	"github.com/aryan0dhankhar/employeedir/internal/repository"
	"github.com/aryan0dhankhar/employeedir/pkg/config"
	"github.com/aryan0dhankhar/employeedir/pkg/database"
)

// openStore connects the configured backend, retrying the initial connection, and returns
// it behind a circuit breaker together with a close function
func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.EmployeeRepository, func(), error) {
	repo, closeFn, err := openBackend(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	cb := circuitbreaker.NewCircuitBreaker(
		int32(cfg.BreakerFailureThreshold),
		1,
		time.Duration(cfg.BreakerTimeoutSeconds)*time.Second,
	)
	cb.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		metrics.SetStoreCircuitState(int(to))
		log.Warn("store circuit breaker state changed",
			slog.String("backend", cfg.StoreBackend),
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return repository.NewBreakerEmployeeRepository(repo, cb), closeFn, nil
}

func openBackend(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.EmployeeRepository, func(), error) {
	retryCfg := retry.DefaultConfig()

	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewMemoryEmployeeRepository(), func() {}, nil

	case config.BackendRedis:
		client, err := retry.Do(ctx, retryCfg, log, "connect redis", func(ctx context.Context) (*redis.Client, error) {
			return redis.NewClient(ctx, cfg.RedisURL, log)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return repository.NewRedisEmployeeRepository(client, log), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		dbCfg := &database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		}
		pool, err := retry.Do(ctx, retryCfg, log, "connect postgres", func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, dbCfg, log)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		repo := repository.NewPostgresEmployeeRepository(pool.GetDB(), log)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = pool.Close()
			return nil, nil, err
		}
		return repo, func() { _ = pool.Close() }, nil

	case config.BackendMongo:
		client, err := retry.Do(ctx, retryCfg, log, "connect mongo", func(ctx context.Context) (*mongo.Client, error) {
			return mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		coll := client.Collection(repository.EmployeeCollection)
		return repository.NewMongoEmployeeRepository(coll, log), func() { _ = client.Close() }, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
