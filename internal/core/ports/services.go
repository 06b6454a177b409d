package ports

import (
	"context"
	"time"

	"custody-engine/internal/core/domain"

	"github.com/google/uuid"
)

// DepositRequest funds a client balance from an external transfer.
type DepositRequest struct {
	Client    uuid.UUID
	Token     string
	ClientATA string
	Amount    uint64
}

// WithdrawRequest moves funds from the free balance into the withdrawal queue.
type WithdrawRequest struct {
	Client    uuid.UUID
	Token     string
	ClientATA string
	Amount    uint64
}

// ReleaseRequest pays out the queued withdrawal at Index.
type ReleaseRequest struct {
	Client    uuid.UUID
	Token     string
	ClientATA string
	Index     int
}

// ReleaseResult reports the paid-out entry and the queue left behind.
type ReleaseResult struct {
	Amount       uint64 `json:"amount"`
	Remaining    int    `json:"remaining_entries"`
	ActiveAmount uint64 `json:"active_amount"`
}

// BalanceSheet is the combined view of one client balance: the free amount
// plus every pending withdrawal, with a human-readable rendering of the total.
type BalanceSheet struct {
	Token        string                   `json:"token"`
	Client       uuid.UUID                `json:"client"`
	ClientATA    string                   `json:"client_ata"`
	FreeAmount   uint64                   `json:"free_amount"`
	ActiveAmount uint64                   `json:"active_withdrawals"`
	TotalDisplay string                   `json:"total_display"`
	Withdrawals  []domain.WithdrawalEntry `json:"withdrawals"`
}

// CustodyService handles client-facing fund operations.
type CustodyService interface {
	// InitFundlock installs the vault-wide lock configuration. Admin only,
	// once per deployment.
	InitFundlock(ctx context.Context, caller uuid.UUID, tradeLock, releaseLock time.Duration) (*domain.Fundlock, error)
	Deposit(ctx context.Context, req DepositRequest) (*domain.ClientBalance, error)
	Withdraw(ctx context.Context, req WithdrawRequest) (*domain.WithdrawalQueue, error)
	Release(ctx context.Context, req ReleaseRequest) (*ReleaseResult, error)
	BalanceSheet(ctx context.Context, client uuid.UUID, token, clientATA string) (*BalanceSheet, error)
}

// LegAccountRef names the balance record the backend asserts belongs to one
// movement leg. Legs are matched to refs by position, in movement order.
type LegAccountRef struct {
	ClientATA string `json:"client_ata"`
}

// SettleFundMovementsRequest is one backend settlement batch.
type SettleFundMovementsRequest struct {
	Caller          uuid.UUID
	UnderlyingToken string
	StrikeToken     string
	Movements       []domain.FundMovement
	Accounts        []LegAccountRef
	BackendID       uint64
}

// SettlePositionsRequest overwrites position sizes for one contract.
type SettlePositionsRequest struct {
	Caller          uuid.UUID
	UnderlyingToken string
	StrikeToken     string
	ContractID      uint64
	Positions       []domain.PositionUpdate
	BackendID       uint64
}

// SettlementResult reports a processed (or replayed) batch.
type SettlementResult struct {
	BackendID uint64 `json:"backend_id"`
	Kind      string `json:"kind"`
	LegCount  int    `json:"leg_count"`
	Replayed  bool   `json:"replayed"`
}

// SettlementService applies backend batches atomically. Utility account only.
type SettlementService interface {
	SettleFundMovements(ctx context.Context, req SettleFundMovementsRequest) (*SettlementResult, error)
	SettlePositions(ctx context.Context, req SettlePositionsRequest) (*SettlementResult, error)
}

// AccessControlService manages the role directory.
type AccessControlService interface {
	// Bootstrap grants the admin role to the given client, allowed only
	// while the admin role has no members.
	Bootstrap(ctx context.Context, admin uuid.UUID) error
	Grant(ctx context.Context, caller uuid.UUID, role domain.Role, member uuid.UUID) error
	Renounce(ctx context.Context, caller uuid.UUID, role domain.Role, member uuid.UUID) error
	Check(ctx context.Context, role domain.Role, member uuid.UUID) (bool, error)
	// Require resolves to nil only when member holds role.
	Require(ctx context.Context, role domain.Role, member uuid.UUID) error
}

// TokenRegistryService manages the token whitelist. Admin only.
type TokenRegistryService interface {
	Add(ctx context.Context, caller uuid.UUID, mint string, decimals, precision uint8) (*domain.WhitelistedToken, error)
	Remove(ctx context.Context, caller uuid.UUID, mint string) error
	Get(ctx context.Context, mint string) (*domain.WhitelistedToken, error)
}

// LedgerService initializes ledgers over whitelisted token pairs. Admin only.
type LedgerService interface {
	Init(ctx context.Context, caller uuid.UUID, underlyingToken, strikeToken string) (*domain.Ledger, error)
}

// RegisterResult carries the generated credentials; the secret is shown once.
type RegisterResult struct {
	ClientID  uuid.UUID `json:"client_id"`
	AccessKey string    `json:"access_key"`
	SecretKey string    `json:"secret_key"`
}

// AuthService handles client onboarding and login.
type AuthService interface {
	Register(ctx context.Context, name string) (*RegisterResult, error)
	Login(ctx context.Context, accessKey, secretKey string) (string, time.Time, error)
}

// HashService hashes and verifies client secrets.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) (bool, error)
}

// TokenClaims is the validated identity carried by an access token.
type TokenClaims struct {
	ClientID  uuid.UUID
	AccessKey string
}

// TokenService issues and validates access tokens.
type TokenService interface {
	Generate(clientID uuid.UUID, accessKey string) (string, time.Time, error)
	Validate(token string) (*TokenClaims, error)
}
