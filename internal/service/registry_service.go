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

// TokenRegistryServiceImpl implements ports.TokenRegistryService.
type TokenRegistryServiceImpl struct {
	whitelistRepo ports.WhitelistRepository
	access        ports.AccessControlService
	log           zerolog.Logger
}

// NewTokenRegistryService creates a new TokenRegistryServiceImpl.
func NewTokenRegistryService(
	whitelistRepo ports.WhitelistRepository,
	access ports.AccessControlService,
	log zerolog.Logger,
) *TokenRegistryServiceImpl {
	return &TokenRegistryServiceImpl{
		whitelistRepo: whitelistRepo,
		access:        access,
		log:           log,
	}
}

// Add whitelists a token mint for custody.
func (s *TokenRegistryServiceImpl) Add(ctx context.Context, caller uuid.UUID, mint string, decimals, precision uint8) (*domain.WhitelistedToken, error) {
	if err := s.access.Require(ctx, domain.RoleAdmin, caller); err != nil {
		return nil, err
	}

	existing, err := s.whitelistRepo.Get(ctx, mint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check whitelist: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrTokenAlreadyWhitelisted()
	}

	token, err := domain.NewWhitelistedToken(mint, decimals, precision)
	if err != nil {
		return nil, err
	}
	if err := s.whitelistRepo.Add(ctx, token); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("add token: %w", err))
	}

	s.log.Info().
		Str("mint", mint).
		Uint8("decimals", decimals).
		Uint8("precision", precision).
		Msg("token whitelisted")
	return token, nil
}

// Remove delists a token mint.
func (s *TokenRegistryServiceImpl) Remove(ctx context.Context, caller uuid.UUID, mint string) error {
	if err := s.access.Require(ctx, domain.RoleAdmin, caller); err != nil {
		return err
	}

	existing, err := s.whitelistRepo.Get(ctx, mint)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check whitelist: %w", err))
	}
	if existing == nil {
		return apperror.ErrTokenNotWhitelisted()
	}

	if err := s.whitelistRepo.Remove(ctx, mint); err != nil {
		return apperror.InternalError(fmt.Errorf("remove token: %w", err))
	}

	s.log.Info().Str("mint", mint).Msg("token delisted")
	return nil
}

// Get returns the whitelist entry for mint, or ErrTokenNotWhitelisted.
func (s *TokenRegistryServiceImpl) Get(ctx context.Context, mint string) (*domain.WhitelistedToken, error) {
	token, err := s.whitelistRepo.Get(ctx, mint)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get token: %w", err))
	}
	if token == nil {
		return nil, apperror.ErrTokenNotWhitelisted()
	}
	return token, nil
}
