package handler

import (
	"custody-engine/internal/adapter/http/dto"
	"custody-engine/internal/adapter/http/middleware"
	"custody-engine/internal/core/ports"
	"custody-engine/pkg/apperror"
	"custody-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// CustodyHandler handles client fund endpoints.
type CustodyHandler struct {
	custodySvc ports.CustodyService
}

// NewCustodyHandler creates a new CustodyHandler.
func NewCustodyHandler(custodySvc ports.CustodyService) *CustodyHandler {
	return &CustodyHandler{custodySvc: custodySvc}
}

// Deposit handles POST /api/v1/custody/deposit.
func (h *CustodyHandler) Deposit(c *gin.Context) {
	clientID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	balance, err := h.custodySvc.Deposit(c.Request.Context(), ports.DepositRequest{
		Client:    clientID,
		Token:     req.Token,
		ClientATA: req.ClientATA,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToBalanceResponse(balance))
}

// Withdraw handles POST /api/v1/custody/withdraw.
func (h *CustodyHandler) Withdraw(c *gin.Context) {
	clientID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	queue, err := h.custodySvc.Withdraw(c.Request.Context(), ports.WithdrawRequest{
		Client:    clientID,
		Token:     req.Token,
		ClientATA: req.ClientATA,
		Amount:    req.Amount,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.ToQueueResponse(queue))
}

// Release handles POST /api/v1/custody/release.
func (h *CustodyHandler) Release(c *gin.Context) {
	clientID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.custodySvc.Release(c.Request.Context(), ports.ReleaseRequest{
		Client:    clientID,
		Token:     req.Token,
		ClientATA: req.ClientATA,
		Index:     *req.Index,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, result)
}

// BalanceSheet handles GET /api/v1/custody/balance-sheet.
func (h *CustodyHandler) BalanceSheet(c *gin.Context) {
	clientID, ok := middleware.CallerID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	token := c.Query("token")
	clientATA := c.Query("client_ata")
	if token == "" || clientATA == "" {
		response.Error(c, apperror.Validation("token and client_ata query parameters are required"))
		return
	}

	sheet, err := h.custodySvc.BalanceSheet(c.Request.Context(), clientID, token, clientATA)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, sheet)
}
