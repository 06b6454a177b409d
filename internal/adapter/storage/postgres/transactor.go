package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out pgx transactions so a service can span several
// repository writes, such as a settlement batch touching balances, queues,
// and the receipt row, under one commit.
type Transactor struct {
	pool Pool
}

// NewTransactor wraps the connection pool as a ports.DBTransactor.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction. Callers own Commit/Rollback.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
