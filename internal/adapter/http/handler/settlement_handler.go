package handler

import (
	"custody-engine/internal/adapter/http/dto"
	"custody-engine/internal/adapter/http/middleware"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"
	"custody-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// SettlementHandler handles backend batch settlement endpoints.
type SettlementHandler struct {
	settlementSvc ports.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementSvc ports.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// SettleFundMovements handles POST /api/v1/settlement/fund-movements.
func (h *SettlementHandler) SettleFundMovements(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SettleFundMovementsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.SettleFundMovements(c.Request.Context(), ports.SettleFundMovementsRequest{
		Caller:          caller,
		UnderlyingToken: req.UnderlyingToken,
		StrikeToken:     req.StrikeToken,
		Movements:       dto.ToFundMovements(req.Movements),
		Accounts:        dto.ToLegAccountRefs(req.Accounts),
		BackendID:       req.BackendID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// SettlePositions handles POST /api/v1/settlement/positions.
func (h *SettlementHandler) SettlePositions(c *gin.Context) {
	caller, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.SettlePositionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.settlementSvc.SettlePositions(c.Request.Context(), ports.SettlePositionsRequest{
		Caller:          caller,
		UnderlyingToken: req.UnderlyingToken,
		StrikeToken:     req.StrikeToken,
		ContractID:      req.ContractID,
		Positions:       dto.ToPositionUpdates(req.Positions),
		BackendID:       req.BackendID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}
