// Package dto defines the HTTP request/response shapes for the custody API.
package dto

import (
	"time"

	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"

	"github.com/google/uuid"
)

// ---- Auth ----

type RegisterRequest struct {
	Name string `json:"name" binding:"required,min=3,max=128"`
}

type RegisterResponse struct {
	ClientID  string `json:"client_id"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

type LoginRequest struct {
	AccessKey string `json:"access_key" binding:"required"`
	SecretKey string `json:"secret_key" binding:"required"`
}

type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"`
}

// ---- Custody ----

type DepositRequest struct {
	Token     string `json:"token" binding:"required"`
	ClientATA string `json:"client_ata" binding:"required"`
	Amount    uint64 `json:"amount"`
}

type WithdrawRequest struct {
	Token     string `json:"token" binding:"required"`
	ClientATA string `json:"client_ata" binding:"required"`
	Amount    uint64 `json:"amount"`
}

// Index is a pointer so position 0 survives required-field validation.
type ReleaseRequest struct {
	Token     string `json:"token" binding:"required"`
	ClientATA string `json:"client_ata" binding:"required"`
	Index     *int   `json:"index" binding:"required"`
}

type BalanceResponse struct {
	Token     string    `json:"token"`
	Client    string    `json:"client"`
	ClientATA string    `json:"client_ata"`
	Amount    uint64    `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WithdrawalEntryResponse struct {
	Amount    uint64    `json:"amount"`
	LockStart time.Time `json:"lock_start"`
}

type QueueResponse struct {
	Token        string                    `json:"token"`
	ClientATA    string                    `json:"client_ata"`
	ActiveAmount uint64                    `json:"active_amount"`
	Entries      []WithdrawalEntryResponse `json:"entries"`
}

// ---- Admin ----

type BootstrapRequest struct {
	Admin string `json:"admin" binding:"required,uuid"`
}

type RoleRequest struct {
	Role   string `json:"role" binding:"required"`
	Client string `json:"client" binding:"required,uuid"`
}

type WhitelistTokenRequest struct {
	Mint      string `json:"mint" binding:"required"`
	Decimals  uint8  `json:"decimals"`
	Precision uint8  `json:"precision"`
}

type InitFundlockRequest struct {
	TradeLockSeconds   uint64 `json:"trade_lock_seconds" binding:"required"`
	ReleaseLockSeconds uint64 `json:"release_lock_seconds" binding:"required"`
}

type InitLedgerRequest struct {
	UnderlyingToken string `json:"underlying_token" binding:"required"`
	StrikeToken     string `json:"strike_token" binding:"required"`
}

// ---- Settlement ----

type FundMovementRequest struct {
	Client           string `json:"client" binding:"required,uuid"`
	UnderlyingAmount int64  `json:"underlying_amount"`
	StrikeAmount     int64  `json:"strike_amount"`
}

type SettleFundMovementsRequest struct {
	UnderlyingToken string                `json:"underlying_token" binding:"required"`
	StrikeToken     string                `json:"strike_token" binding:"required"`
	BackendID       uint64                `json:"backend_id" binding:"required"`
	Movements       []FundMovementRequest `json:"movements" binding:"required"`
	Accounts        []string              `json:"accounts" binding:"required"`
}

type PositionUpdateRequest struct {
	Client string `json:"client" binding:"required,uuid"`
	Size   uint64 `json:"size"`
}

type SettlePositionsRequest struct {
	UnderlyingToken string                  `json:"underlying_token" binding:"required"`
	StrikeToken     string                  `json:"strike_token" binding:"required"`
	ContractID      uint64                  `json:"contract_id" binding:"required"`
	BackendID       uint64                  `json:"backend_id" binding:"required"`
	Positions       []PositionUpdateRequest `json:"positions" binding:"required"`
}

// ---- Mapping helpers ----

func ToBalanceResponse(b *domain.ClientBalance) BalanceResponse {
	return BalanceResponse{
		Token:     b.Token,
		Client:    b.Client.String(),
		ClientATA: b.ClientATA,
		Amount:    b.Amount,
		UpdatedAt: b.UpdatedAt,
	}
}

func ToQueueResponse(q *domain.WithdrawalQueue) QueueResponse {
	entries := make([]WithdrawalEntryResponse, len(q.Entries))
	for i, e := range q.Entries {
		entries[i] = WithdrawalEntryResponse{Amount: e.Amount, LockStart: e.LockStart}
	}
	return QueueResponse{
		Token:        q.Token,
		ClientATA:    q.ClientATA,
		ActiveAmount: q.ActiveAmount,
		Entries:      entries,
	}
}

// ToFundMovements converts the wire movements; client IDs are validated by
// binding before this runs.
func ToFundMovements(reqs []FundMovementRequest) []domain.FundMovement {
	movements := make([]domain.FundMovement, len(reqs))
	for i, m := range reqs {
		movements[i] = domain.FundMovement{
			Client:           uuid.MustParse(m.Client),
			UnderlyingAmount: m.UnderlyingAmount,
			StrikeAmount:     m.StrikeAmount,
		}
	}
	return movements
}

func ToLegAccountRefs(atas []string) []ports.LegAccountRef {
	refs := make([]ports.LegAccountRef, len(atas))
	for i, ata := range atas {
		refs[i] = ports.LegAccountRef{ClientATA: ata}
	}
	return refs
}

func ToPositionUpdates(reqs []PositionUpdateRequest) []domain.PositionUpdate {
	updates := make([]domain.PositionUpdate, len(reqs))
	for i, p := range reqs {
		updates[i] = domain.PositionUpdate{Client: uuid.MustParse(p.Client), Size: p.Size}
	}
	return updates
}
