package dblog

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolConfig sizes a pgx connection pool.
type PoolConfig struct {
	DSN               string        `validate:"required"`
	MaxConns          int32         `validate:"gt=0,gtefield=MinConns"`
	MinConns          int32         `validate:"gte=0"`
	MaxConnLifetime   time.Duration `validate:"gte=1m"`
	MaxConnIdleTime   time.Duration `validate:"gte=30s"`
	HealthCheckPeriod time.Duration `validate:"gte=10s"`
	PingTimeout       time.Duration `validate:"gt=0"`
	PingRetries       uint64        `validate:"lte=10"`
}

// DefaultPoolConfig returns production-safe pool settings for dsn.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:               dsn,
		MaxConns:          25,
		MinConns:          2,
		MaxConnLifetime:   10 * time.Minute,
		MaxConnIdleTime:   3 * time.Minute,
		HealthCheckPeriod: time.Minute,
		PingTimeout:       10 * time.Second,
		PingRetries:       3,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParsePoolConfig validates cfg and builds a pgxpool config whose
// connections report through tracer.
func ParsePoolConfig(cfg PoolConfig, tracer *Tracer) (*pgxpool.Config, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid pool config: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	if tracer != nil {
		poolConfig.ConnConfig.Tracer = tracer
	}

	return poolConfig, nil
}

// OpenPool creates the pool and pings it, retrying up to cfg.PingRetries
// times within cfg.PingTimeout. The pool is closed again if no ping succeeds.
func OpenPool(ctx context.Context, cfg PoolConfig, tracer *Tracer) (*pgxpool.Pool, error) {
	poolConfig, err := ParsePoolConfig(cfg, tracer)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.PingRetries), pingCtx)
	if err := backoff.Retry(func() error { return pool.Ping(pingCtx) }, policy); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}
