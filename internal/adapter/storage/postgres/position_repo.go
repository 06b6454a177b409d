package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PositionRepo implements ports.PositionRepository.
type PositionRepo struct {
	pool Pool
}

// NewPositionRepo creates a new PositionRepo.
func NewPositionRepo(pool Pool) *PositionRepo {
	return &PositionRepo{pool: pool}
}

// EnsureContract registers the contract if it does not exist yet.
func (r *PositionRepo) EnsureContract(ctx context.Context, tx pgx.Tx, c *domain.Contract) error {
	query := `INSERT INTO contracts (contract_id, underlying_token, strike_token, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contract_id) DO NOTHING`

	_, err := tx.Exec(ctx, query, c.ContractID, c.UnderlyingToken, c.StrikeToken, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("ensure contract: %w", err)
	}
	return nil
}

// GetForUpdate fetches a position with pessimistic locking.
// This MUST be called within a transaction.
func (r *PositionRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, contractID uint64, client uuid.UUID) (*domain.Position, error) {
	query := `SELECT contract_id, client, size, updated_at
		FROM positions WHERE contract_id = $1 AND client = $2 FOR UPDATE`

	p := &domain.Position{}
	err := tx.QueryRow(ctx, query, contractID, client).Scan(
		&p.ContractID, &p.Client, &p.Size, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get position for update: %w", err)
	}
	return p, nil
}

// Upsert writes a position within a transaction.
func (r *PositionRepo) Upsert(ctx context.Context, tx pgx.Tx, p *domain.Position) error {
	query := `INSERT INTO positions (contract_id, client, size, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contract_id, client)
		DO UPDATE SET size = EXCLUDED.size, updated_at = EXCLUDED.updated_at`

	_, err := tx.Exec(ctx, query, p.ContractID, p.Client, p.Size, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert position: %w", err)
	}
	return nil
}
