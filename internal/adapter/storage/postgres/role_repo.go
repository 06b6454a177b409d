package postgres

import (
	"context"
	"fmt"

	"custody-engine/internal/core/domain"

	"github.com/google/uuid"
)

// RoleRepo implements ports.RoleRepository.
type RoleRepo struct {
	pool Pool
}

// NewRoleRepo creates a new RoleRepo.
func NewRoleRepo(pool Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

// Grant records a role membership. Re-granting an existing membership keeps
// the original grant time.
func (r *RoleRepo) Grant(ctx context.Context, m *domain.Member) error {
	query := `INSERT INTO role_members (role, client, granted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (role, client) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, string(m.Role), m.Client, m.GrantedAt)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}

// Renounce removes a role membership.
func (r *RoleRepo) Renounce(ctx context.Context, role domain.Role, client uuid.UUID) error {
	query := `DELETE FROM role_members WHERE role = $1 AND client = $2`

	tag, err := r.pool.Exec(ctx, query, string(role), client)
	if err != nil {
		return fmt.Errorf("renounce role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("role membership not found: %s", role)
	}
	return nil
}

// Has reports whether client holds role.
func (r *RoleRepo) Has(ctx context.Context, role domain.Role, client uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM role_members WHERE role = $1 AND client = $2)`

	var has bool
	if err := r.pool.QueryRow(ctx, query, string(role), client).Scan(&has); err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return has, nil
}

// CountMembers returns the number of clients holding role.
func (r *RoleRepo) CountMembers(ctx context.Context, role domain.Role) (int64, error) {
	query := `SELECT COUNT(*) FROM role_members WHERE role = $1`

	var count int64
	if err := r.pool.QueryRow(ctx, query, string(role)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count role members: %w", err)
	}
	return count, nil
}
