package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Get fetches a ledger by its token pair.
func (r *LedgerRepo) Get(ctx context.Context, underlyingToken, strikeToken string) (*domain.Ledger, error) {
	query := `SELECT underlying_token, strike_token, underlying_multiplier, strike_multiplier, created_at
		FROM ledgers WHERE underlying_token = $1 AND strike_token = $2`

	l := &domain.Ledger{}
	err := r.pool.QueryRow(ctx, query, underlyingToken, strikeToken).Scan(
		&l.UnderlyingToken, &l.StrikeToken,
		&l.UnderlyingMultiplier, &l.StrikeMultiplier, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger: %w", err)
	}
	return l, nil
}

// Create inserts a ledger.
func (r *LedgerRepo) Create(ctx context.Context, l *domain.Ledger) error {
	query := `INSERT INTO ledgers (underlying_token, strike_token, underlying_multiplier, strike_multiplier, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		l.UnderlyingToken, l.StrikeToken,
		l.UnderlyingMultiplier, l.StrikeMultiplier, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger: %w", err)
	}
	return nil
}
