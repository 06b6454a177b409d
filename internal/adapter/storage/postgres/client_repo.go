package postgres

import (
	"context"
	"errors"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ClientRepo implements ports.ClientRepository.
type ClientRepo struct {
	pool Pool
}

// NewClientRepo creates a new ClientRepo.
func NewClientRepo(pool Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

const clientColumns = `id, name, access_key, secret_hash, status, created_at`

func scanClient(row pgx.Row) (*domain.Client, error) {
	c := &domain.Client{}
	err := row.Scan(&c.ID, &c.Name, &c.AccessKey, &c.SecretHash, &c.Status, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

// Create inserts a new client account.
func (r *ClientRepo) Create(ctx context.Context, c *domain.Client) error {
	query := `INSERT INTO clients (id, name, access_key, secret_hash, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query, c.ID, c.Name, c.AccessKey, c.SecretHash, c.Status, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

// GetByID fetches a client by its UUID.
func (r *ClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	c, err := scanClient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get client by id: %w", err)
	}
	return c, nil
}

// GetByAccessKey fetches a client by its access key.
func (r *ClientRepo) GetByAccessKey(ctx context.Context, accessKey string) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE access_key = $1`

	c, err := scanClient(r.pool.QueryRow(ctx, query, accessKey))
	if err != nil {
		return nil, fmt.Errorf("get client by access key: %w", err)
	}
	return c, nil
}
