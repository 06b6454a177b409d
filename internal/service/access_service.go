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

// AccessControlServiceImpl implements ports.AccessControlService.
type AccessControlServiceImpl struct {
	roleRepo ports.RoleRepository
	log      zerolog.Logger
}

// NewAccessControlService creates a new AccessControlServiceImpl.
func NewAccessControlService(roleRepo ports.RoleRepository, log zerolog.Logger) *AccessControlServiceImpl {
	return &AccessControlServiceImpl{roleRepo: roleRepo, log: log}
}

// Bootstrap grants the admin role to the given client. It only succeeds while
// the admin role has no members, so a deployed directory cannot be hijacked.
func (s *AccessControlServiceImpl) Bootstrap(ctx context.Context, admin uuid.UUID) error {
	count, err := s.roleRepo.CountMembers(ctx, domain.RoleAdmin)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("count admins: %w", err))
	}
	if count > 0 {
		return apperror.ErrUnauthorizedRole(string(domain.RoleAdmin))
	}

	m := &domain.Member{Role: domain.RoleAdmin, Client: admin, GrantedAt: time.Now().UTC()}
	if err := s.roleRepo.Grant(ctx, m); err != nil {
		return apperror.InternalError(fmt.Errorf("grant admin: %w", err))
	}

	s.log.Info().Str("client", admin.String()).Msg("access control bootstrapped")
	return nil
}

// Grant assigns role to member. Caller must hold the admin role.
func (s *AccessControlServiceImpl) Grant(ctx context.Context, caller uuid.UUID, role domain.Role, member uuid.UUID) error {
	if !role.Valid() {
		return apperror.ErrInvalidRole(string(role))
	}
	if err := s.Require(ctx, domain.RoleAdmin, caller); err != nil {
		return err
	}

	m := &domain.Member{Role: role, Client: member, GrantedAt: time.Now().UTC()}
	if err := s.roleRepo.Grant(ctx, m); err != nil {
		return apperror.InternalError(fmt.Errorf("grant role: %w", err))
	}

	s.log.Info().
		Str("role", string(role)).
		Str("member", member.String()).
		Str("granted_by", caller.String()).
		Msg("role granted")
	return nil
}

// Renounce removes role from member. A member may renounce its own role;
// removing someone else's requires the admin role. The last admin can never
// be removed, or the directory would lock itself out.
func (s *AccessControlServiceImpl) Renounce(ctx context.Context, caller uuid.UUID, role domain.Role, member uuid.UUID) error {
	if !role.Valid() {
		return apperror.ErrInvalidRole(string(role))
	}
	if caller != member {
		if err := s.Require(ctx, domain.RoleAdmin, caller); err != nil {
			return err
		}
	}

	has, err := s.roleRepo.Has(ctx, role, member)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check role: %w", err))
	}
	if !has {
		return apperror.ErrNoRole()
	}

	if role == domain.RoleAdmin {
		count, err := s.roleRepo.CountMembers(ctx, domain.RoleAdmin)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("count admins: %w", err))
		}
		if count <= 1 {
			return apperror.ErrLastMember()
		}
	}

	if err := s.roleRepo.Renounce(ctx, role, member); err != nil {
		return apperror.InternalError(fmt.Errorf("renounce role: %w", err))
	}

	s.log.Info().
		Str("role", string(role)).
		Str("member", member.String()).
		Msg("role renounced")
	return nil
}

// Check reports whether member holds role.
func (s *AccessControlServiceImpl) Check(ctx context.Context, role domain.Role, member uuid.UUID) (bool, error) {
	if !role.Valid() {
		return false, apperror.ErrInvalidRole(string(role))
	}
	has, err := s.roleRepo.Has(ctx, role, member)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("check role: %w", err))
	}
	return has, nil
}

// Require resolves to nil only when member holds role.
func (s *AccessControlServiceImpl) Require(ctx context.Context, role domain.Role, member uuid.UUID) error {
	has, err := s.roleRepo.Has(ctx, role, member)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("check role: %w", err))
	}
	if !has {
		return apperror.ErrUnauthorizedRole(string(role))
	}
	return nil
}
