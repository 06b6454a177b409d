package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WithdrawalRepo implements ports.WithdrawalRepository. A queue is stored as
// one header row plus its ordered entry rows; Save rewrites the entry rows so
// the stored order always matches the in-memory FIFO order.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *WithdrawalRepo) get(ctx context.Context, q rowQuerier, token, clientATA, lockClause string) (*domain.WithdrawalQueue, error) {
	headQuery := `SELECT token, client, client_ata, active_amount
		FROM withdrawal_queues WHERE token = $1 AND client_ata = $2` + lockClause

	queue := &domain.WithdrawalQueue{}
	err := q.QueryRow(ctx, headQuery, token, clientATA).Scan(
		&queue.Token, &queue.Client, &queue.ClientATA, &queue.ActiveAmount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get queue: %w", err)
	}

	entryQuery := `SELECT amount, lock_start FROM withdrawal_entries
		WHERE token = $1 AND client_ata = $2 ORDER BY position`

	rows, err := q.Query(ctx, entryQuery, token, clientATA)
	if err != nil {
		return nil, fmt.Errorf("get queue entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.WithdrawalEntry
		if err := rows.Scan(&e.Amount, &e.LockStart); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		queue.Entries = append(queue.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read queue entries: %w", err)
	}
	return queue, nil
}

// Get fetches a queue and its entries (non-locking read).
func (r *WithdrawalRepo) Get(ctx context.Context, token, clientATA string) (*domain.WithdrawalQueue, error) {
	return r.get(ctx, r.pool, token, clientATA, "")
}

// GetForUpdate fetches a queue with its header row locked.
// This MUST be called within a transaction.
func (r *WithdrawalRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, token, clientATA string) (*domain.WithdrawalQueue, error) {
	return r.get(ctx, tx, token, clientATA, " FOR UPDATE")
}

// Save writes the queue within a transaction: the header row is upserted and
// the entry rows are rewritten in FIFO order.
func (r *WithdrawalRepo) Save(ctx context.Context, tx pgx.Tx, q *domain.WithdrawalQueue) error {
	headQuery := `INSERT INTO withdrawal_queues (token, client, client_ata, active_amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token, client_ata)
		DO UPDATE SET active_amount = EXCLUDED.active_amount`

	if _, err := tx.Exec(ctx, headQuery, q.Token, q.Client, q.ClientATA, q.ActiveAmount); err != nil {
		return fmt.Errorf("upsert queue: %w", err)
	}

	deleteQuery := `DELETE FROM withdrawal_entries WHERE token = $1 AND client_ata = $2`
	if _, err := tx.Exec(ctx, deleteQuery, q.Token, q.ClientATA); err != nil {
		return fmt.Errorf("clear queue entries: %w", err)
	}

	entryQuery := `INSERT INTO withdrawal_entries (token, client_ata, position, amount, lock_start)
		VALUES ($1, $2, $3, $4, $5)`
	for i, e := range q.Entries {
		if _, err := tx.Exec(ctx, entryQuery, q.Token, q.ClientATA, i, e.Amount, e.LockStart); err != nil {
			return fmt.Errorf("insert queue entry: %w", err)
		}
	}
	return nil
}
