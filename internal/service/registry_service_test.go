package service

import (
	"context"
	"testing"

	"custody-engine/internal/core/domain"
	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistryService(t *testing.T) (*TokenRegistryServiceImpl, uuid.UUID) {
	t.Helper()
	access := NewAccessControlService(newFakeRoleRepo(), zerolog.Nop())
	admin := uuid.New()
	require.NoError(t, access.Bootstrap(context.Background(), admin))
	svc := NewTokenRegistryService(newFakeWhitelistRepo(), access, zerolog.Nop())
	return svc, admin
}

func TestTokenRegistry_AddGetRemove(t *testing.T) {
	svc, admin := newRegistryService(t)
	ctx := context.Background()

	token, err := svc.Add(ctx, admin, "SOL-mint", 9, 6)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), token.Multiplier())

	got, err := svc.Get(ctx, "SOL-mint")
	require.NoError(t, err)
	assert.Equal(t, uint8(9), got.Decimals)

	require.NoError(t, svc.Remove(ctx, admin, "SOL-mint"))

	_, err = svc.Get(ctx, "SOL-mint")
	require.Error(t, err)
	assert.Equal(t, apperror.ErrTokenNotWhitelisted().Code, appCode(t, err))
}

func TestTokenRegistry_AdminOnly(t *testing.T) {
	svc, _ := newRegistryService(t)
	ctx := context.Background()
	stranger := uuid.New()

	_, err := svc.Add(ctx, stranger, "SOL-mint", 9, 6)
	require.Error(t, err)
	assert.Equal(t, "ACL_001", appCode(t, err))

	err = svc.Remove(ctx, stranger, "SOL-mint")
	require.Error(t, err)
	assert.Equal(t, "ACL_001", appCode(t, err))
}

func TestTokenRegistry_Duplicate(t *testing.T) {
	svc, admin := newRegistryService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, admin, "SOL-mint", 9, 6)
	require.NoError(t, err)

	_, err = svc.Add(ctx, admin, "SOL-mint", 9, 6)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrTokenAlreadyWhitelisted().Code, appCode(t, err))
}

func TestTokenRegistry_RejectsInvalidTokens(t *testing.T) {
	svc, admin := newRegistryService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, admin, "nft-mint", 0, 0)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrNonFungibleToken().Code, appCode(t, err))

	_, err = svc.Add(ctx, admin, "bad-mint", 6, 9)
	require.Error(t, err)
	assert.Equal(t, apperror.ErrInvalidTokenPrecision().Code, appCode(t, err))
}

func TestTokenRegistry_RemoveUnknown(t *testing.T) {
	svc, admin := newRegistryService(t)

	err := svc.Remove(context.Background(), admin, "ghost-mint")
	require.Error(t, err)
	assert.Equal(t, apperror.ErrTokenNotWhitelisted().Code, appCode(t, err))
}

func TestLedgerInit(t *testing.T) {
	access := NewAccessControlService(newFakeRoleRepo(), zerolog.Nop())
	admin := uuid.New()
	ctx := context.Background()
	require.NoError(t, access.Bootstrap(ctx, admin))

	whitelist := newFakeWhitelistRepo()
	sol, err := domain.NewWhitelistedToken("SOL-mint", 9, 6)
	require.NoError(t, err)
	usdc, err := domain.NewWhitelistedToken("USDC-mint", 6, 4)
	require.NoError(t, err)
	require.NoError(t, whitelist.Add(ctx, sol))
	require.NoError(t, whitelist.Add(ctx, usdc))

	svc := NewLedgerService(newFakeLedgerRepo(), whitelist, access, zerolog.Nop())

	// Non-admin rejected.
	_, err = svc.Init(ctx, uuid.New(), "SOL-mint", "USDC-mint")
	require.Error(t, err)
	assert.Equal(t, "ACL_001", appCode(t, err))

	ledger, err := svc.Init(ctx, admin, "SOL-mint", "USDC-mint")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), ledger.UnderlyingMultiplier)
	assert.Equal(t, int64(100), ledger.StrikeMultiplier)

	// Same pair cannot be initialized twice.
	_, err = svc.Init(ctx, admin, "SOL-mint", "USDC-mint")
	require.Error(t, err)
	assert.Equal(t, apperror.ErrLedgerExists().Code, appCode(t, err))

	// Both tokens must be whitelisted.
	_, err = svc.Init(ctx, admin, "SOL-mint", "DOGE-mint")
	require.Error(t, err)
	assert.Equal(t, apperror.ErrTokenNotWhitelisted().Code, appCode(t, err))
}
