package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SettlementRepo implements ports.SettlementRepository.
type SettlementRepo struct {
	pool Pool
}

// NewSettlementRepo creates a new SettlementRepo.
func NewSettlementRepo(pool Pool) *SettlementRepo {
	return &SettlementRepo{pool: pool}
}

// GetReceipt fetches the receipt for a processed batch, or nil if the batch
// was never settled.
func (r *SettlementRepo) GetReceipt(ctx context.Context, backendID uint64, kind string) (*domain.SettlementReceipt, error) {
	query := `SELECT backend_id, kind, leg_count, created_at
		FROM settlement_receipts WHERE backend_id = $1 AND kind = $2`

	rec := &domain.SettlementReceipt{}
	err := r.pool.QueryRow(ctx, query, backendID, kind).Scan(
		&rec.BackendID, &rec.Kind, &rec.LegCount, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement receipt: %w", err)
	}
	return rec, nil
}

// CreateReceipt inserts a receipt within the settlement transaction. The
// primary key doubles as the replay guard: a concurrent duplicate batch
// fails here and rolls back.
func (r *SettlementRepo) CreateReceipt(ctx context.Context, tx pgx.Tx, rec *domain.SettlementReceipt) error {
	query := `INSERT INTO settlement_receipts (backend_id, kind, leg_count, created_at)
		VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, rec.BackendID, rec.Kind, rec.LegCount, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert settlement receipt: %w", err)
	}
	return nil
}
