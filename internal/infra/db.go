package infra

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewDBPool initializes the pgx connection pool for the ingestion service.
// The pool is sized off the upload worker cap: every in-flight upload holds
// at most one connection for its status updates, and the request path adds
// duplicate lookups and record reads on top.
func NewDBPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolCfg.MaxConns = poolMaxConns(cfg.UploadWorkers)
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	connectTimeout := cfg.ExternalCallTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	return pool, nil
}

// poolMaxConns allots two connections per upload worker with a small floor
// so the serving path never starves during a full batch.
func poolMaxConns(workers int) int32 {
	n := int32(workers) * 2
	if n < 4 {
		n = 4
	}
	return n
}
