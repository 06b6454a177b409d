package service

import (
	"context"
	"testing"
	"time"

	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settlementFixture struct {
	svc      *SettlementServiceImpl
	balances *fakeBalanceRepo
	queues   *fakeWithdrawalRepo
	ledgers  *fakeLedgerRepo
	receipts *fakeSettlementRepo
	cache    *fakeSettlementCache
	utility  uuid.UUID
	trader   uuid.UUID
}

// newSettlementFixture wires a ledger over SOL (9 decimals, precision 6,
// multiplier 1000) and USDC (6 decimals, precision 6, multiplier 1) plus an
// initialized fundlock.
func newSettlementFixture(t *testing.T) *settlementFixture {
	t.Helper()
	ctx := context.Background()

	roles := newFakeRoleRepo()
	access := NewAccessControlService(roles, zerolog.Nop())
	admin := uuid.New()
	require.NoError(t, access.Bootstrap(ctx, admin))

	f := &settlementFixture{
		balances: newFakeBalanceRepo(),
		queues:   newFakeWithdrawalRepo(),
		ledgers:  newFakeLedgerRepo(),
		receipts: newFakeSettlementRepo(),
		cache:    newFakeSettlementCache(),
		utility:  uuid.New(),
		trader:   uuid.New(),
	}
	require.NoError(t, access.Grant(ctx, admin, domain.RoleUtilityAccount, f.utility))

	fundlocks := newFakeFundlockRepo()
	require.NoError(t, fundlocks.Create(ctx, &domain.Fundlock{
		TradeLock:   tradeLockCfg,
		ReleaseLock: releaseLockCfg,
		CreatedAt:   time.Now().UTC(),
	}))

	sol, err := domain.NewWhitelistedToken("SOL-mint", 9, 6)
	require.NoError(t, err)
	usdc, err := domain.NewWhitelistedToken("USDC-mint", 6, 6)
	require.NoError(t, err)
	ledger, err := domain.NewLedger(sol, usdc)
	require.NoError(t, err)
	require.NoError(t, f.ledgers.Create(ctx, ledger))

	f.svc = NewSettlementService(
		f.ledgers, f.balances, f.queues, fundlocks,
		newFakePositionRepo(), f.receipts, f.cache, access,
		newFakeTransactor(), zerolog.Nop(),
	)
	return f
}

func (f *settlementFixture) setBalance(t *testing.T, token, ata string, amount uint64) {
	t.Helper()
	require.NoError(t, f.balances.Upsert(context.Background(), nil, &domain.ClientBalance{
		Token: token, Client: f.trader, ClientATA: ata, Amount: amount,
	}))
}

func fundMovementsRequest(f *settlementFixture, backendID uint64) ports.SettleFundMovementsRequest {
	return ports.SettleFundMovementsRequest{
		Caller:          f.utility,
		UnderlyingToken: "SOL-mint",
		StrikeToken:     "USDC-mint",
		// -5 underlying, +200 strike: the trader gains 5000 SOL units and
		// owes 200 USDC units after scaling and negation.
		Movements: []domain.FundMovement{
			{Client: f.trader, UnderlyingAmount: -5, StrikeAmount: 200},
		},
		Accounts:  []ports.LegAccountRef{{ClientATA: "ata-sol"}, {ClientATA: "ata-usdc"}},
		BackendID: backendID,
	}
}

func TestSettleFundMovements(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	f.setBalance(t, "USDC-mint", "ata-usdc", 1_000)

	res, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, res.LegCount)
	assert.False(t, res.Replayed)

	sol, err := f.balances.Get(ctx, "SOL-mint", "ata-sol")
	require.NoError(t, err)
	assert.Equal(t, uint64(15_000), sol.Amount)

	usdc, err := f.balances.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(800), usdc.Amount)
}

func TestSettleFundMovements_RequiresUtilityRole(t *testing.T) {
	f := newSettlementFixture(t)

	req := fundMovementsRequest(f, 1)
	req.Caller = uuid.New()

	_, err := f.svc.SettleFundMovements(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, "ACL_001", appCode(t, err))
}

func TestSettleFundMovements_ShortfallClawback(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	// USDC free balance 150, queue holds 100 inside its trade lock.
	// A 200 debit takes 150 from the balance and 50 from the queue.
	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	f.setBalance(t, "USDC-mint", "ata-usdc", 150)
	require.NoError(t, f.queues.Save(ctx, nil, &domain.WithdrawalQueue{
		Token: "USDC-mint", Client: f.trader, ClientATA: "ata-usdc",
		Entries:      []domain.WithdrawalEntry{{Amount: 100, LockStart: time.Now()}},
		ActiveAmount: 100,
	}))

	_, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 7))
	require.NoError(t, err)

	usdc, err := f.balances.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), usdc.Amount)

	queue, err := f.queues.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	require.Len(t, queue.Entries, 1)
	assert.Equal(t, uint64(50), queue.Entries[0].Amount)
	assert.Equal(t, uint64(50), queue.ActiveAmount)
}

func TestSettleFundMovements_UnfundableBatchLeavesStateUntouched(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	f.setBalance(t, "USDC-mint", "ata-usdc", 100) // cannot cover the 200 debit

	_, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 2))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrInsufficientFunds().Code, appCode(t, err))

	sol, err := f.balances.Get(ctx, "SOL-mint", "ata-sol")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), sol.Amount)
	usdc, err := f.balances.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), usdc.Amount)
}

func TestSettleFundMovements_DuplicateAccountLegsAccumulate(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.setBalance(t, "USDC-mint", "ata-usdc", 1_000)

	// Two movements debit the same USDC account. Both legs must land on one
	// shared record so the batch settles the combined 200, not just the
	// last leg's 100.
	req := ports.SettleFundMovementsRequest{
		Caller:          f.utility,
		UnderlyingToken: "SOL-mint",
		StrikeToken:     "USDC-mint",
		Movements: []domain.FundMovement{
			{Client: f.trader, StrikeAmount: 100},
			{Client: f.trader, StrikeAmount: 100},
		},
		Accounts:  []ports.LegAccountRef{{ClientATA: "ata-usdc"}, {ClientATA: "ata-usdc"}},
		BackendID: 30,
	}

	res, err := f.svc.SettleFundMovements(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LegCount)

	usdc, err := f.balances.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(800), usdc.Amount)
}

func TestSettleFundMovements_DuplicateAccountLegsShareClawback(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	// Free balance 150, queue holds 100. The first 100 debit drains free
	// balance to 50; the second takes that 50 and claws 50 from the queue.
	f.setBalance(t, "USDC-mint", "ata-usdc", 150)
	require.NoError(t, f.queues.Save(ctx, nil, &domain.WithdrawalQueue{
		Token: "USDC-mint", Client: f.trader, ClientATA: "ata-usdc",
		Entries:      []domain.WithdrawalEntry{{Amount: 100, LockStart: time.Now()}},
		ActiveAmount: 100,
	}))

	req := ports.SettleFundMovementsRequest{
		Caller:          f.utility,
		UnderlyingToken: "SOL-mint",
		StrikeToken:     "USDC-mint",
		Movements: []domain.FundMovement{
			{Client: f.trader, StrikeAmount: 100},
			{Client: f.trader, StrikeAmount: 100},
		},
		Accounts:  []ports.LegAccountRef{{ClientATA: "ata-usdc"}, {ClientATA: "ata-usdc"}},
		BackendID: 31,
	}

	_, err := f.svc.SettleFundMovements(ctx, req)
	require.NoError(t, err)

	usdc, err := f.balances.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), usdc.Amount)

	queue, err := f.queues.Get(ctx, "USDC-mint", "ata-usdc")
	require.NoError(t, err)
	require.Len(t, queue.Entries, 1)
	assert.Equal(t, uint64(50), queue.Entries[0].Amount)
	assert.Equal(t, uint64(50), queue.ActiveAmount)
}

func TestSettleFundMovements_AccountMismatch(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	// The USDC record belongs to another client.
	require.NoError(t, f.balances.Upsert(ctx, nil, &domain.ClientBalance{
		Token: "USDC-mint", Client: uuid.New(), ClientATA: "ata-usdc", Amount: 1_000,
	}))

	_, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 3))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrAccountOrderViolated().Code, appCode(t, err))

	sol, err := f.balances.Get(ctx, "SOL-mint", "ata-sol")
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), sol.Amount)
}

func TestSettleFundMovements_AccountCountMismatch(t *testing.T) {
	f := newSettlementFixture(t)

	req := fundMovementsRequest(f, 4)
	req.Accounts = req.Accounts[:1]

	_, err := f.svc.SettleFundMovements(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrInvalidAccountsAmount().Code, appCode(t, err))
}

func TestSettleFundMovements_MissingBalance(t *testing.T) {
	f := newSettlementFixture(t)
	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	// No USDC balance record exists for ata-usdc.

	_, err := f.svc.SettleFundMovements(context.Background(), fundMovementsRequest(f, 5))
	require.Error(t, err)
	assert.Equal(t, apperror.ErrInvalidAccountsAmount().Code, appCode(t, err))
}

func TestSettleFundMovements_UnknownLedger(t *testing.T) {
	f := newSettlementFixture(t)

	req := fundMovementsRequest(f, 6)
	req.StrikeToken = "DOGE-mint"

	_, err := f.svc.SettleFundMovements(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrLedgerNotFound().Code, appCode(t, err))
}

func TestSettleFundMovements_ReplayFromCache(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	f.setBalance(t, "USDC-mint", "ata-usdc", 1_000)

	first, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 9))
	require.NoError(t, err)
	require.False(t, first.Replayed)

	second, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 9))
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.LegCount, second.LegCount)

	// Balances moved exactly once.
	sol, err := f.balances.Get(ctx, "SOL-mint", "ata-sol")
	require.NoError(t, err)
	assert.Equal(t, uint64(15_000), sol.Amount)
}

func TestSettleFundMovements_ReplayFromReceipt(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	f.setBalance(t, "SOL-mint", "ata-sol", 10_000)
	f.setBalance(t, "USDC-mint", "ata-usdc", 1_000)

	_, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 11))
	require.NoError(t, err)

	// Simulate a cache wipe; the durable receipt still answers the replay.
	f.cache.entries = map[string][]byte{}

	res, err := f.svc.SettleFundMovements(ctx, fundMovementsRequest(f, 11))
	require.NoError(t, err)
	assert.True(t, res.Replayed)

	sol, err := f.balances.Get(ctx, "SOL-mint", "ata-sol")
	require.NoError(t, err)
	assert.Equal(t, uint64(15_000), sol.Amount)
}

func TestSettlePositions(t *testing.T) {
	f := newSettlementFixture(t)
	ctx := context.Background()

	req := ports.SettlePositionsRequest{
		Caller:          f.utility,
		UnderlyingToken: "SOL-mint",
		StrikeToken:     "USDC-mint",
		ContractID:      42,
		Positions: []domain.PositionUpdate{
			{Client: f.trader, Size: 7},
			{Client: uuid.New(), Size: 3},
		},
		BackendID: 20,
	}

	res, err := f.svc.SettlePositions(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LegCount)
	assert.False(t, res.Replayed)

	replay, err := f.svc.SettlePositions(ctx, req)
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
}

func TestSettlePositions_EmptyBatch(t *testing.T) {
	f := newSettlementFixture(t)

	_, err := f.svc.SettlePositions(context.Background(), ports.SettlePositionsRequest{
		Caller:          f.utility,
		UnderlyingToken: "SOL-mint",
		StrikeToken:     "USDC-mint",
		ContractID:      42,
		BackendID:       21,
	})
	require.Error(t, err)
	assert.Equal(t, apperror.ErrEmptyPositions().Code, appCode(t, err))
}
