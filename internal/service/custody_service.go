package service

import (
	"context"
	"fmt"
	"time"

	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CustodyServiceImpl implements ports.CustodyService with pessimistic
// row locking: every mutation locks the affected balance, queue, and vault
// rows inside one database transaction.
type CustodyServiceImpl struct {
	balanceRepo    ports.BalanceRepository
	withdrawalRepo ports.WithdrawalRepository
	vaultRepo      ports.VaultRepository
	fundlockRepo   ports.FundlockRepository
	whitelistRepo  ports.WhitelistRepository
	access         ports.AccessControlService
	transactor     ports.DBTransactor
	withdrawalCap  int
	log            zerolog.Logger
}

// NewCustodyService creates a new CustodyServiceImpl.
func NewCustodyService(
	balanceRepo ports.BalanceRepository,
	withdrawalRepo ports.WithdrawalRepository,
	vaultRepo ports.VaultRepository,
	fundlockRepo ports.FundlockRepository,
	whitelistRepo ports.WhitelistRepository,
	access ports.AccessControlService,
	transactor ports.DBTransactor,
	withdrawalCap int,
	log zerolog.Logger,
) *CustodyServiceImpl {
	if withdrawalCap <= 0 {
		withdrawalCap = domain.DefaultWithdrawalLimit
	}
	return &CustodyServiceImpl{
		balanceRepo:    balanceRepo,
		withdrawalRepo: withdrawalRepo,
		vaultRepo:      vaultRepo,
		fundlockRepo:   fundlockRepo,
		whitelistRepo:  whitelistRepo,
		access:         access,
		transactor:     transactor,
		withdrawalCap:  withdrawalCap,
		log:            log,
	}
}

// InitFundlock installs the vault-wide lock configuration. Admin only; the
// configuration is immutable once written.
func (s *CustodyServiceImpl) InitFundlock(ctx context.Context, caller uuid.UUID, tradeLock, releaseLock time.Duration) (*domain.Fundlock, error) {
	if err := s.access.Require(ctx, domain.RoleAdmin, caller); err != nil {
		return nil, err
	}

	existing, err := s.fundlockRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check fundlock: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrFundlockExists()
	}

	fl := &domain.Fundlock{
		TradeLock:   tradeLock,
		ReleaseLock: releaseLock,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.fundlockRepo.Create(ctx, fl); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create fundlock: %w", err))
	}

	s.log.Info().
		Dur("trade_lock", tradeLock).
		Dur("release_lock", releaseLock).
		Msg("fundlock configuration initialized")
	return fl, nil
}

// Deposit credits a client balance and the token vault.
func (s *CustodyServiceImpl) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.ClientBalance, error) {
	if req.Amount == 0 {
		return nil, apperror.ErrAmountZero()
	}
	if err := s.requireWhitelisted(ctx, req.Token); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	balance, err := s.balanceRepo.GetForUpdate(ctx, dbTx, req.Token, req.ClientATA)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if balance == nil {
		balance = &domain.ClientBalance{
			Token:     req.Token,
			Client:    req.Client,
			ClientATA: req.ClientATA,
		}
	} else if balance.Client != req.Client {
		return nil, apperror.ErrAccountOrderViolated()
	}
	balance.Amount += req.Amount
	balance.UpdatedAt = now

	vault, err := s.vaultRepo.GetForUpdate(ctx, dbTx, req.Token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}
	if vault == nil {
		vault = &domain.Vault{Token: req.Token}
	}
	vault.Amount += req.Amount
	vault.UpdatedAt = now

	if err := s.balanceRepo.Upsert(ctx, dbTx, balance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save balance: %w", err))
	}
	if err := s.vaultRepo.Upsert(ctx, dbTx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save vault: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("client", req.Client.String()).
		Str("token", req.Token).
		Uint64("amount", req.Amount).
		Uint64("balance", balance.Amount).
		Msg("deposit processed")
	return balance, nil
}

// Withdraw moves funds out of the free balance into the withdrawal queue,
// where they sit through the trade and release locks.
func (s *CustodyServiceImpl) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.WithdrawalQueue, error) {
	if req.Amount == 0 {
		return nil, apperror.ErrAmountZero()
	}
	if err := s.requireWhitelisted(ctx, req.Token); err != nil {
		return nil, err
	}
	if _, err := s.requireFundlock(ctx); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	balance, err := s.balanceRepo.GetForUpdate(ctx, dbTx, req.Token, req.ClientATA)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock balance: %w", err))
	}
	if balance == nil || balance.Amount < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}
	if balance.Client != req.Client {
		return nil, apperror.ErrAccountOrderViolated()
	}

	queue, err := s.withdrawalRepo.GetForUpdate(ctx, dbTx, req.Token, req.ClientATA)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock queue: %w", err))
	}
	if queue == nil {
		queue = domain.NewWithdrawalQueue(req.Token, req.Client, req.ClientATA)
	}
	if err := queue.Push(req.Amount, now, s.withdrawalCap); err != nil {
		return nil, err
	}

	balance.Amount -= req.Amount
	balance.UpdatedAt = now

	if err := s.balanceRepo.Upsert(ctx, dbTx, balance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save balance: %w", err))
	}
	if err := s.withdrawalRepo.Save(ctx, dbTx, queue); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save queue: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("client", req.Client.String()).
		Str("token", req.Token).
		Uint64("amount", req.Amount).
		Int("queued", len(queue.Entries)).
		Msg("withdrawal queued")
	return queue, nil
}

// Release pays out the queued withdrawal at the given index once its release
// lock has elapsed, debiting the token vault.
func (s *CustodyServiceImpl) Release(ctx context.Context, req ports.ReleaseRequest) (*ports.ReleaseResult, error) {
	fl, err := s.requireFundlock(ctx)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	queue, err := s.withdrawalRepo.GetForUpdate(ctx, dbTx, req.Token, req.ClientATA)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock queue: %w", err))
	}
	if queue == nil {
		return nil, apperror.ErrInvalidIndex()
	}
	if queue.Client != req.Client {
		return nil, apperror.ErrAccountOrderViolated()
	}

	entry, err := queue.Release(req.Index, now, fl.ReleaseLock)
	if err != nil {
		return nil, err
	}

	vault, err := s.vaultRepo.GetForUpdate(ctx, dbTx, req.Token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}
	if vault == nil || vault.Amount < entry.Amount {
		return nil, apperror.ErrInsufficientFundsInVault()
	}
	vault.Amount -= entry.Amount
	vault.UpdatedAt = now

	if err := s.withdrawalRepo.Save(ctx, dbTx, queue); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save queue: %w", err))
	}
	if err := s.vaultRepo.Upsert(ctx, dbTx, vault); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("save vault: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("client", req.Client.String()).
		Str("token", req.Token).
		Uint64("amount", entry.Amount).
		Int("index", req.Index).
		Msg("withdrawal released")
	return &ports.ReleaseResult{
		Amount:       entry.Amount,
		Remaining:    len(queue.Entries),
		ActiveAmount: queue.ActiveAmount,
	}, nil
}

// BalanceSheet returns the combined free and queued holdings for one client
// balance. Missing records read as zero.
func (s *CustodyServiceImpl) BalanceSheet(ctx context.Context, client uuid.UUID, token, clientATA string) (*ports.BalanceSheet, error) {
	wlToken, err := s.whitelistRepo.Get(ctx, token)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get token: %w", err))
	}
	if wlToken == nil {
		return nil, apperror.ErrTokenNotWhitelisted()
	}

	sheet := &ports.BalanceSheet{
		Token:       token,
		Client:      client,
		ClientATA:   clientATA,
		Withdrawals: []domain.WithdrawalEntry{},
	}

	balance, err := s.balanceRepo.Get(ctx, token, clientATA)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get balance: %w", err))
	}
	if balance != nil {
		if balance.Client != client {
			return nil, apperror.ErrAccountOrderViolated()
		}
		sheet.FreeAmount = balance.Amount
	}

	queue, err := s.withdrawalRepo.Get(ctx, token, clientATA)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get queue: %w", err))
	}
	if queue != nil {
		sheet.ActiveAmount = queue.ActiveAmount
		sheet.Withdrawals = queue.Entries
	}

	sheet.TotalDisplay = wlToken.FormatAmount(sheet.FreeAmount + sheet.ActiveAmount)
	return sheet, nil
}

func (s *CustodyServiceImpl) requireWhitelisted(ctx context.Context, token string) error {
	wl, err := s.whitelistRepo.Get(ctx, token)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check whitelist: %w", err))
	}
	if wl == nil {
		return apperror.ErrTokenNotWhitelisted()
	}
	return nil
}

func (s *CustodyServiceImpl) requireFundlock(ctx context.Context) (*domain.Fundlock, error) {
	fl, err := s.fundlockRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get fundlock: %w", err))
	}
	if fl == nil {
		return nil, apperror.ErrFundlockNotInitialized()
	}
	return fl, nil
}
