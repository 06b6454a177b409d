package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	settlementCacheTTL = 24 * time.Hour

	kindFundMovements = "fund_movements"
	kindPositions     = "positions"
)

// SettlementServiceImpl implements ports.SettlementService. Batches are
// idempotent on their backend-assigned identifier: a Redis cache answers fast
// replays, a durable receipt row catches replays the cache has lost.
type SettlementServiceImpl struct {
	ledgerRepo     ports.LedgerRepository
	balanceRepo    ports.BalanceRepository
	withdrawalRepo ports.WithdrawalRepository
	fundlockRepo   ports.FundlockRepository
	positionRepo   ports.PositionRepository
	settlementRepo ports.SettlementRepository
	cache          ports.SettlementCache
	access         ports.AccessControlService
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	ledgerRepo ports.LedgerRepository,
	balanceRepo ports.BalanceRepository,
	withdrawalRepo ports.WithdrawalRepository,
	fundlockRepo ports.FundlockRepository,
	positionRepo ports.PositionRepository,
	settlementRepo ports.SettlementRepository,
	cache ports.SettlementCache,
	access ports.AccessControlService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		ledgerRepo:     ledgerRepo,
		balanceRepo:    balanceRepo,
		withdrawalRepo: withdrawalRepo,
		fundlockRepo:   fundlockRepo,
		positionRepo:   positionRepo,
		settlementRepo: settlementRepo,
		cache:          cache,
		access:         access,
		transactor:     transactor,
		log:            log,
	}
}

// SettleFundMovements applies one backend batch of per-client fund movements
// atomically. Every leg is cross-checked against its caller-supplied account
// reference before any balance changes; a debit the free balance cannot cover
// is clawed back from that client's withdrawal queue.
func (s *SettlementServiceImpl) SettleFundMovements(ctx context.Context, req ports.SettleFundMovementsRequest) (*ports.SettlementResult, error) {
	if err := s.access.Require(ctx, domain.RoleUtilityAccount, req.Caller); err != nil {
		return nil, err
	}

	if replayed, err := s.checkReplay(ctx, req.BackendID, kindFundMovements); err != nil {
		return nil, err
	} else if replayed != nil {
		return replayed, nil
	}

	ledger, err := s.ledgerRepo.Get(ctx, req.UnderlyingToken, req.StrikeToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get ledger: %w", err))
	}
	if ledger == nil {
		return nil, apperror.ErrLedgerNotFound()
	}

	legSpecs, err := ledger.Legs(req.Movements)
	if err != nil {
		return nil, err
	}
	if len(req.Accounts) != len(legSpecs) {
		return nil, apperror.ErrInvalidAccountsAmount()
	}

	fl, err := s.fundlockRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get fundlock: %w", err))
	}
	if fl == nil {
		return nil, apperror.ErrFundlockNotInitialized()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	// Lock every referenced balance and queue row, in batch order. Legs that
	// reference the same (token, account) pair must share one loaded record:
	// separate copies would each apply only their own delta and the last
	// write would erase the rest of the batch.
	type lockedRecords struct {
		balance *domain.ClientBalance
		queue   *domain.WithdrawalQueue
	}
	locked := make(map[string]*lockedRecords, len(legSpecs))
	lockOrder := make([]string, 0, len(legSpecs))
	legs := make([]domain.SettlementLeg, len(legSpecs))
	for i, spec := range legSpecs {
		ref := req.Accounts[i]
		key := spec.Token + "|" + ref.ClientATA
		rec, ok := locked[key]
		if !ok {
			balance, err := s.balanceRepo.GetForUpdate(ctx, dbTx, spec.Token, ref.ClientATA)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
			}
			queue, err := s.withdrawalRepo.GetForUpdate(ctx, dbTx, spec.Token, ref.ClientATA)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("lock queue: %w", err))
			}
			if queue == nil && balance != nil {
				queue = domain.NewWithdrawalQueue(spec.Token, balance.Client, ref.ClientATA)
			}
			rec = &lockedRecords{balance: balance, queue: queue}
			locked[key] = rec
			lockOrder = append(lockOrder, key)
		}
		legs[i] = domain.SettlementLeg{Spec: spec, Balance: rec.balance, Queue: rec.queue}
	}

	if err := domain.ApplyLegs(legs, fl.TradeLock, now); err != nil {
		return nil, err
	}

	// Persist each record once, carrying the accumulated effect of all its legs.
	for _, key := range lockOrder {
		rec := locked[key]
		rec.balance.UpdatedAt = now
		if err := s.balanceRepo.Upsert(ctx, dbTx, rec.balance); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save balance: %w", err))
		}
		if err := s.withdrawalRepo.Save(ctx, dbTx, rec.queue); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save queue: %w", err))
		}
	}

	result := &ports.SettlementResult{
		BackendID: req.BackendID,
		Kind:      kindFundMovements,
		LegCount:  len(legs),
	}
	if err := s.finishBatch(ctx, dbTx, result); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("backend_id", req.BackendID).
		Int("movements", len(req.Movements)).
		Int("legs", len(legs)).
		Msg("fund movements settled")
	return result, nil
}

// SettlePositions overwrites position sizes for one contract on the ledger.
func (s *SettlementServiceImpl) SettlePositions(ctx context.Context, req ports.SettlePositionsRequest) (*ports.SettlementResult, error) {
	if err := s.access.Require(ctx, domain.RoleUtilityAccount, req.Caller); err != nil {
		return nil, err
	}
	if len(req.Positions) == 0 {
		return nil, apperror.ErrEmptyPositions()
	}

	if replayed, err := s.checkReplay(ctx, req.BackendID, kindPositions); err != nil {
		return nil, err
	} else if replayed != nil {
		return replayed, nil
	}

	ledger, err := s.ledgerRepo.Get(ctx, req.UnderlyingToken, req.StrikeToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get ledger: %w", err))
	}
	if ledger == nil {
		return nil, apperror.ErrLedgerNotFound()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	contract := &domain.Contract{
		ContractID:      req.ContractID,
		UnderlyingToken: req.UnderlyingToken,
		StrikeToken:     req.StrikeToken,
		CreatedAt:       now,
	}
	if err := s.positionRepo.EnsureContract(ctx, dbTx, contract); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ensure contract: %w", err))
	}

	for _, update := range req.Positions {
		position, err := s.positionRepo.GetForUpdate(ctx, dbTx, req.ContractID, update.Client)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock position: %w", err))
		}
		if position == nil {
			position = &domain.Position{ContractID: req.ContractID, Client: update.Client}
		}
		position.Size = update.Size
		position.UpdatedAt = now
		if err := s.positionRepo.Upsert(ctx, dbTx, position); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("save position: %w", err))
		}
	}

	result := &ports.SettlementResult{
		BackendID: req.BackendID,
		Kind:      kindPositions,
		LegCount:  len(req.Positions),
	}
	if err := s.finishBatch(ctx, dbTx, result); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("backend_id", req.BackendID).
		Uint64("contract_id", req.ContractID).
		Int("positions", len(req.Positions)).
		Msg("positions settled")
	return result, nil
}

// checkReplay consults the two idempotency layers. A non-nil result means
// this batch was already processed.
func (s *SettlementServiceImpl) checkReplay(ctx context.Context, backendID uint64, kind string) (*ports.SettlementResult, error) {
	key := settlementCacheKey(backendID, kind)

	cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("redis replay check failed, falling through to DB")
	}
	if cached != nil {
		var result ports.SettlementResult
		if err := json.Unmarshal(cached, &result); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("unmarshal cached batch: %w", err))
		}
		result.Replayed = true
		return &result, nil
	}

	receipt, err := s.settlementRepo.GetReceipt(ctx, backendID, kind)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db replay check: %w", err))
	}
	if receipt != nil {
		return &ports.SettlementResult{
			BackendID: receipt.BackendID,
			Kind:      receipt.Kind,
			LegCount:  receipt.LegCount,
			Replayed:  true,
		}, nil
	}
	return nil, nil
}

// finishBatch records the receipt, commits, and caches the result. The Redis
// write is best-effort; the receipt row is the durable replay record.
func (s *SettlementServiceImpl) finishBatch(ctx context.Context, dbTx pgx.Tx, result *ports.SettlementResult) error {
	receipt := &domain.SettlementReceipt{
		BackendID: result.BackendID,
		Kind:      result.Kind,
		LegCount:  result.LegCount,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.settlementRepo.CreateReceipt(ctx, dbTx, receipt); err != nil {
		return apperror.InternalError(fmt.Errorf("save receipt: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil
	}
	key := settlementCacheKey(result.BackendID, result.Kind)
	if err := s.cache.Set(ctx, key, payload, settlementCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache settlement result")
	}
	return nil
}

func settlementCacheKey(backendID uint64, kind string) string {
	return fmt.Sprintf("settlement:%s:%d", kind, backendID)
}
