package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// BalanceRepo implements ports.BalanceRepository.
type BalanceRepo struct {
	pool Pool
}

// NewBalanceRepo creates a new BalanceRepo.
func NewBalanceRepo(pool Pool) *BalanceRepo {
	return &BalanceRepo{pool: pool}
}

const balanceColumns = `token, client, client_ata, amount, updated_at`

func scanBalance(row pgx.Row) (*domain.ClientBalance, error) {
	b := &domain.ClientBalance{}
	err := row.Scan(&b.Token, &b.Client, &b.ClientATA, &b.Amount, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// Get fetches a balance by its composite key (non-locking read).
func (r *BalanceRepo) Get(ctx context.Context, token, clientATA string) (*domain.ClientBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM client_balances WHERE token = $1 AND client_ata = $2`

	b, err := scanBalance(r.pool.QueryRow(ctx, query, token, clientATA))
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetForUpdate fetches a balance with pessimistic locking.
// This MUST be called within a transaction.
func (r *BalanceRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, token, clientATA string) (*domain.ClientBalance, error) {
	query := `SELECT ` + balanceColumns + ` FROM client_balances WHERE token = $1 AND client_ata = $2 FOR UPDATE`

	b, err := scanBalance(tx.QueryRow(ctx, query, token, clientATA))
	if err != nil {
		return nil, fmt.Errorf("get balance for update: %w", err)
	}
	return b, nil
}

// Upsert writes a balance within a transaction, creating the row on first
// deposit.
func (r *BalanceRepo) Upsert(ctx context.Context, tx pgx.Tx, b *domain.ClientBalance) error {
	query := `INSERT INTO client_balances (token, client, client_ata, amount, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token, client_ata)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query, b.Token, b.Client, b.ClientATA, b.Amount, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert balance: %w", err)
	}
	return nil
}
