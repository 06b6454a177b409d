package service

import (
	"context"
	"fmt"

	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerServiceImpl implements ports.LedgerService.
type LedgerServiceImpl struct {
	ledgerRepo    ports.LedgerRepository
	whitelistRepo ports.WhitelistRepository
	access        ports.AccessControlService
	log           zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	ledgerRepo ports.LedgerRepository,
	whitelistRepo ports.WhitelistRepository,
	access ports.AccessControlService,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		ledgerRepo:    ledgerRepo,
		whitelistRepo: whitelistRepo,
		access:        access,
		log:           log,
	}
}

// Init derives and persists the ledger for a whitelisted token pair. The
// multipliers are fixed here, once, from the tokens' decimals and precision.
func (s *LedgerServiceImpl) Init(ctx context.Context, caller uuid.UUID, underlyingToken, strikeToken string) (*domain.Ledger, error) {
	if err := s.access.Require(ctx, domain.RoleAdmin, caller); err != nil {
		return nil, err
	}

	existing, err := s.ledgerRepo.Get(ctx, underlyingToken, strikeToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check ledger: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrLedgerExists()
	}

	underlying, err := s.whitelistRepo.Get(ctx, underlyingToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get underlying token: %w", err))
	}
	strike, err := s.whitelistRepo.Get(ctx, strikeToken)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get strike token: %w", err))
	}
	if underlying == nil || strike == nil {
		return nil, apperror.ErrTokenNotWhitelisted()
	}

	ledger, err := domain.NewLedger(underlying, strike)
	if err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Create(ctx, ledger); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger: %w", err))
	}

	s.log.Info().
		Str("underlying", underlyingToken).
		Str("strike", strikeToken).
		Int64("underlying_multiplier", ledger.UnderlyingMultiplier).
		Int64("strike_multiplier", ledger.StrikeMultiplier).
		Msg("ledger initialized")
	return ledger, nil
}
