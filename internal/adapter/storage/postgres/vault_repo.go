package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// VaultRepo implements ports.VaultRepository.
type VaultRepo struct {
	pool Pool
}

// NewVaultRepo creates a new VaultRepo.
func NewVaultRepo(pool Pool) *VaultRepo {
	return &VaultRepo{pool: pool}
}

func scanVault(row pgx.Row) (*domain.Vault, error) {
	v := &domain.Vault{}
	err := row.Scan(&v.Token, &v.Amount, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Get fetches the vault row for a token (non-locking read).
func (r *VaultRepo) Get(ctx context.Context, token string) (*domain.Vault, error) {
	query := `SELECT token, amount, updated_at FROM vaults WHERE token = $1`

	v, err := scanVault(r.pool.QueryRow(ctx, query, token))
	if err != nil {
		return nil, fmt.Errorf("get vault: %w", err)
	}
	return v, nil
}

// GetForUpdate fetches the vault row with pessimistic locking.
// This MUST be called within a transaction.
func (r *VaultRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, token string) (*domain.Vault, error) {
	query := `SELECT token, amount, updated_at FROM vaults WHERE token = $1 FOR UPDATE`

	v, err := scanVault(tx.QueryRow(ctx, query, token))
	if err != nil {
		return nil, fmt.Errorf("get vault for update: %w", err)
	}
	return v, nil
}

// Upsert writes the vault row within a transaction.
func (r *VaultRepo) Upsert(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	query := `INSERT INTO vaults (token, amount, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query, v.Token, v.Amount, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert vault: %w", err)
	}
	return nil
}
