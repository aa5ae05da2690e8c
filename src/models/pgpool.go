package models

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGPool struct {
	Pool *pgxpool.Pool
}

// InTx runs fn in a transaction, committing when it returns nil.
func (connPool *PGPool) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, connPool.Pool, fn)
}

func (connPool *PGPool) Ping(ctx context.Context) error {
	return connPool.Pool.Ping(ctx)
}
