package inits

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	m "linked_friend_services/src/models"
)

//go:embed schema.sql
var schema string

type PostgresOptions struct {
	MaxConns       int
	ConnectTimeout time.Duration
	MaxIdleTime    time.Duration
}

func postgresConfig(connString string, opts PostgresOptions, logger *zap.Logger) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MaxIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxIdleTime
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		logger.Debug("Opened database connection", zap.Uint32("pid", conn.PgConn().PID()))
		return nil
	}
	return cfg, nil
}

// CreatePostgresPool opens the pool and checks it can reach the server.
func CreatePostgresPool(ctx context.Context, connString string, opts PostgresOptions, logger *zap.Logger) (*m.PGPool, error) {
	cfg, err := postgresConfig(connString, opts, logger)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnConfig.ConnectTimeout+time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("Connected to Postgres",
		zap.String("host", cfg.ConnConfig.Host),
		zap.String("database", cfg.ConnConfig.Database),
		zap.Int32("max_conns", cfg.MaxConns))
	return &m.PGPool{Pool: pool}, nil
}

// ApplySchema creates any missing tables and indexes.
func ApplySchema(ctx context.Context, connPool *m.PGPool) error {
	if _, err := connPool.Pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
