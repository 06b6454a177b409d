package ports

import (
	"context"
	"time"

	"custody-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BalanceRepository persists client balances. Records are addressed by the
// composite key (token, client token account), so any component can compute
// where a balance lives without a lookup table. Methods accepting pgx.Tx are
// used inside transaction blocks for pessimistic locking.
type BalanceRepository interface {
	Get(ctx context.Context, token, clientATA string) (*domain.ClientBalance, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, token, clientATA string) (*domain.ClientBalance, error)
	Upsert(ctx context.Context, tx pgx.Tx, b *domain.ClientBalance) error
}

// WithdrawalRepository persists withdrawal queues, addressed like balances.
// Save rewrites the bounded entry list atomically within the transaction.
type WithdrawalRepository interface {
	Get(ctx context.Context, token, clientATA string) (*domain.WithdrawalQueue, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, token, clientATA string) (*domain.WithdrawalQueue, error)
	Save(ctx context.Context, tx pgx.Tx, q *domain.WithdrawalQueue) error
}

// VaultRepository persists per-token custody vault holdings.
type VaultRepository interface {
	Get(ctx context.Context, token string) (*domain.Vault, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, token string) (*domain.Vault, error)
	Upsert(ctx context.Context, tx pgx.Tx, v *domain.Vault) error
}

// FundlockRepository persists the vault-wide lock configuration (a single
// immutable record).
type FundlockRepository interface {
	Get(ctx context.Context) (*domain.Fundlock, error)
	Create(ctx context.Context, f *domain.Fundlock) error
}

// WhitelistRepository persists the approved token registry.
type WhitelistRepository interface {
	Get(ctx context.Context, mint string) (*domain.WhitelistedToken, error)
	Add(ctx context.Context, t *domain.WhitelistedToken) error
	Remove(ctx context.Context, mint string) error
}

// RoleRepository persists role membership.
type RoleRepository interface {
	Grant(ctx context.Context, m *domain.Member) error
	Renounce(ctx context.Context, role domain.Role, client uuid.UUID) error
	Has(ctx context.Context, role domain.Role, client uuid.UUID) (bool, error)
	CountMembers(ctx context.Context, role domain.Role) (int64, error)
}

// LedgerRepository persists ledgers, keyed by their token pair.
type LedgerRepository interface {
	Get(ctx context.Context, underlyingToken, strikeToken string) (*domain.Ledger, error)
	Create(ctx context.Context, l *domain.Ledger) error
}

// PositionRepository persists derivative contracts and per-client positions.
type PositionRepository interface {
	EnsureContract(ctx context.Context, tx pgx.Tx, c *domain.Contract) error
	GetForUpdate(ctx context.Context, tx pgx.Tx, contractID uint64, client uuid.UUID) (*domain.Position, error)
	Upsert(ctx context.Context, tx pgx.Tx, p *domain.Position) error
}

// ClientRepository persists platform client accounts.
type ClientRepository interface {
	Create(ctx context.Context, c *domain.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*domain.Client, error)
}

// SettlementRepository persists settlement receipts (durable idempotency
// backup behind the Redis cache).
type SettlementRepository interface {
	GetReceipt(ctx context.Context, backendID uint64, kind string) (*domain.SettlementReceipt, error)
	CreateReceipt(ctx context.Context, tx pgx.Tx, r *domain.SettlementReceipt) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettlementCache is the fast idempotency layer for settlement batches.
type SettlementCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
