package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"

	"github.com/google/uuid"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	clientRepo ports.ClientRepository
	hashSvc    ports.HashService
	tokenSvc   ports.TokenService
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	clientRepo ports.ClientRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		clientRepo: clientRepo,
		hashSvc:    hashSvc,
		tokenSvc:   tokenSvc,
	}
}

// Register creates a client account and returns its generated key pair.
// The secret key is shown exactly once; only its Argon2id hash is stored.
func (s *AuthServiceImpl) Register(ctx context.Context, name string) (*ports.RegisterResult, error) {
	if name == "" {
		return nil, apperror.Validation("client name is required")
	}

	accessKey, err := generateRandomHex(32) // 64 hex chars
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate access key: %w", err))
	}
	secretKey, err := generateRandomHex(32)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate secret key: %w", err))
	}

	secretHash, err := s.hashSvc.Hash(secretKey)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash secret key: %w", err))
	}

	client := &domain.Client{
		ID:         uuid.New(),
		Name:       name,
		AccessKey:  accessKey,
		SecretHash: secretHash,
		Status:     domain.ClientStatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create client: %w", err))
	}

	return &ports.RegisterResult{
		ClientID:  client.ID,
		AccessKey: accessKey,
		SecretKey: secretKey,
	}, nil
}

// Login validates a key pair and returns a signed access token.
func (s *AuthServiceImpl) Login(ctx context.Context, accessKey, secretKey string) (string, time.Time, error) {
	client, err := s.clientRepo.GetByAccessKey(ctx, accessKey)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("find client: %w", err))
	}
	if client == nil {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(secretKey, client.SecretHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify secret key: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	if !client.IsActive() {
		return "", time.Time{}, apperror.ErrClientSuspended()
	}

	token, expiry, err := s.tokenSvc.Generate(client.ID, client.AccessKey)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiry, nil
}

// generateRandomHex generates a random hex string of n bytes.
func generateRandomHex(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
