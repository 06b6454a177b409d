package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names the capability sets recognized by the access control directory.
type Role string

const (
	RoleAdmin          Role = "DEFAULT_ADMIN_ROLE"
	RoleUtilityAccount Role = "UTILITY_ACCOUNT_ROLE"
	RoleLiquidator     Role = "LIQUIDATOR_ROLE"
)

// Valid reports whether the role is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUtilityAccount, RoleLiquidator:
		return true
	}
	return false
}

// Member records one client holding one role.
type Member struct {
	Role      Role      `json:"role"`
	Client    uuid.UUID `json:"client"`
	GrantedAt time.Time `json:"granted_at"`
}

// ClientStatus is the lifecycle state of a platform client account.
type ClientStatus string

const (
	ClientStatusActive    ClientStatus = "ACTIVE"
	ClientStatusSuspended ClientStatus = "SUSPENDED"
)

// Client is a platform account (trader or backend service) that can hold
// balances and, via role grants, invoke privileged operations.
type Client struct {
	ID         uuid.UUID    `json:"id"`
	Name       string       `json:"name"`
	AccessKey  string       `json:"access_key"`
	SecretHash string       `json:"-"` // Argon2id hash, never exposed
	Status     ClientStatus `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
}

// IsActive returns true if the client may authenticate.
func (c *Client) IsActive() bool {
	return c.Status == ClientStatusActive
}
