package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// WhitelistRepo implements ports.WhitelistRepository.
type WhitelistRepo struct {
	pool Pool
}

// NewWhitelistRepo creates a new WhitelistRepo.
func NewWhitelistRepo(pool Pool) *WhitelistRepo {
	return &WhitelistRepo{pool: pool}
}

// Get fetches a whitelist entry by mint.
func (r *WhitelistRepo) Get(ctx context.Context, mint string) (*domain.WhitelistedToken, error) {
	query := `SELECT mint, decimals, precision, created_at FROM whitelisted_tokens WHERE mint = $1`

	t := &domain.WhitelistedToken{}
	err := r.pool.QueryRow(ctx, query, mint).Scan(&t.Mint, &t.Decimals, &t.Precision, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get whitelisted token: %w", err)
	}
	return t, nil
}

// Add inserts a whitelist entry.
func (r *WhitelistRepo) Add(ctx context.Context, t *domain.WhitelistedToken) error {
	query := `INSERT INTO whitelisted_tokens (mint, decimals, precision, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, t.Mint, t.Decimals, t.Precision, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert whitelisted token: %w", err)
	}
	return nil
}

// Remove deletes a whitelist entry.
func (r *WhitelistRepo) Remove(ctx context.Context, mint string) error {
	query := `DELETE FROM whitelisted_tokens WHERE mint = $1`

	tag, err := r.pool.Exec(ctx, query, mint)
	if err != nil {
		return fmt.Errorf("delete whitelisted token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("whitelisted token not found: %s", mint)
	}
	return nil
}
