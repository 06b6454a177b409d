package handler

import (
	"time"

	"custody-engine/internal/adapter/http/dto"
	"custody-engine/internal/adapter/http/middleware"
	"custody-engine/internal/core/domain"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"
	"custody-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles privileged platform configuration endpoints.
type AdminHandler struct {
	accessSvc   ports.AccessControlService
	registrySvc ports.TokenRegistryService
	custodySvc  ports.CustodyService
	ledgerSvc   ports.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	accessSvc ports.AccessControlService,
	registrySvc ports.TokenRegistryService,
	custodySvc ports.CustodyService,
	ledgerSvc ports.LedgerService,
) *AdminHandler {
	return &AdminHandler{
		accessSvc:   accessSvc,
		registrySvc: registrySvc,
		custodySvc:  custodySvc,
		ledgerSvc:   ledgerSvc,
	}
}

// Bootstrap handles POST /api/v1/admin/bootstrap. It seeds the first admin
// and is open until the admin role has a member, then locks itself.
func (h *AdminHandler) Bootstrap(c *gin.Context) {
	var req dto.BootstrapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	admin := uuid.MustParse(req.Admin)
	if err := h.accessSvc.Bootstrap(c.Request.Context(), admin); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"admin": admin.String(), "role": string(domain.RoleAdmin)})
}

// GrantRole handles POST /api/v1/admin/roles/grant.
func (h *AdminHandler) GrantRole(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	member := uuid.MustParse(req.Client)
	if err := h.accessSvc.Grant(c.Request.Context(), caller, domain.Role(req.Role), member); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"role": req.Role, "client": member.String()})
}

// RenounceRole handles POST /api/v1/admin/roles/renounce.
func (h *AdminHandler) RenounceRole(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	member := uuid.MustParse(req.Client)
	if err := h.accessSvc.Renounce(c.Request.Context(), caller, domain.Role(req.Role), member); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"role": req.Role, "client": member.String()})
}

// CheckRole handles GET /api/v1/admin/roles/check. Read-only, open to any
// authenticated caller.
func (h *AdminHandler) CheckRole(c *gin.Context) {
	role := c.Query("role")
	clientStr := c.Query("client")
	client, err := uuid.Parse(clientStr)
	if role == "" || err != nil {
		response.Error(c, apperror.Validation("role and client query parameters are required"))
		return
	}

	has, err := h.accessSvc.Check(c.Request.Context(), domain.Role(role), client)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"role": role, "client": client.String(), "has_role": has})
}

// WhitelistToken handles POST /api/v1/admin/tokens.
func (h *AdminHandler) WhitelistToken(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WhitelistTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	token, err := h.registrySvc.Add(c.Request.Context(), caller, req.Mint, req.Decimals, req.Precision)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, token)
}

// DelistToken handles DELETE /api/v1/admin/tokens/:mint.
func (h *AdminHandler) DelistToken(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	mint := c.Param("mint")
	if err := h.registrySvc.Remove(c.Request.Context(), caller, mint); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"mint": mint, "removed": true})
}

// InitFundlock handles POST /api/v1/admin/fundlock.
func (h *AdminHandler) InitFundlock(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InitFundlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	tradeLock := time.Duration(req.TradeLockSeconds) * time.Second
	releaseLock := time.Duration(req.ReleaseLockSeconds) * time.Second
	fl, err := h.custodySvc.InitFundlock(c.Request.Context(), caller, tradeLock, releaseLock)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, fl)
}

// InitLedger handles POST /api/v1/admin/ledgers.
func (h *AdminHandler) InitLedger(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InitLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	ledger, err := h.ledgerSvc.Init(c.Request.Context(), caller, req.UnderlyingToken, req.StrikeToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, ledger)
}
