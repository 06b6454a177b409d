package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// FundlockRepo implements ports.FundlockRepository. The configuration is a
// single row; durations are stored as nanoseconds.
type FundlockRepo struct {
	pool Pool
}

// NewFundlockRepo creates a new FundlockRepo.
func NewFundlockRepo(pool Pool) *FundlockRepo {
	return &FundlockRepo{pool: pool}
}

// Get fetches the lock configuration, or nil when it was never initialized.
func (r *FundlockRepo) Get(ctx context.Context) (*domain.Fundlock, error) {
	query := `SELECT trade_lock_ns, release_lock_ns, created_at FROM fundlock_config WHERE id = 1`

	var tradeNS, releaseNS int64
	fl := &domain.Fundlock{}
	err := r.pool.QueryRow(ctx, query).Scan(&tradeNS, &releaseNS, &fl.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get fundlock: %w", err)
	}
	fl.TradeLock = time.Duration(tradeNS)
	fl.ReleaseLock = time.Duration(releaseNS)
	return fl, nil
}

// Create inserts the configuration row. Fails if it already exists.
func (r *FundlockRepo) Create(ctx context.Context, f *domain.Fundlock) error {
	query := `INSERT INTO fundlock_config (id, trade_lock_ns, release_lock_ns, created_at)
		VALUES (1, $1, $2, $3)`

	_, err := r.pool.Exec(ctx, query, int64(f.TradeLock), int64(f.ReleaseLock), f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fundlock: %w", err)
	}
	return nil
}
