package handler

import (
	"usdt-custody/internal/adapter/http/dto"
	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ports"
	"usdt-custody/pkg/apperror"
	"usdt-custody/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WithdrawHandler handles the withdrawal request lifecycle.
type WithdrawHandler struct {
	withdrawSvc ports.WithdrawService
}

// NewWithdrawHandler creates a new WithdrawHandler.
func NewWithdrawHandler(withdrawSvc ports.WithdrawService) *WithdrawHandler {
	return &WithdrawHandler{withdrawSvc: withdrawSvc}
}

// Submit handles POST /api/v1/withdrawals.
func (h *WithdrawHandler) Submit(c *gin.Context) {
	var req dto.SubmitWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	amount, ok := dto.ParseAmount(req.Amount)
	if !ok {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	withdrawal, err := h.withdrawSvc.Submit(c.Request.Context(), currentUserID(c), ports.SubmitWithdrawalRequest{
		Amount:        amount,
		WalletAddress: req.WalletAddress,
		Password:      req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, withdrawal)
}

// ListMine handles GET /api/v1/withdrawals/my.
func (h *WithdrawHandler) ListMine(c *gin.Context) {
	withdrawals, err := h.withdrawSvc.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, withdrawals)
}

// ListPending handles GET /api/v1/admin/withdrawals/pending.
func (h *WithdrawHandler) ListPending(c *gin.Context) {
	withdrawals, err := h.withdrawSvc.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, withdrawals)
}

// Resolve handles POST /api/v1/admin/withdrawals/:id/resolve.
func (h *WithdrawHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	withdrawal, err := h.withdrawSvc.Resolve(c.Request.Context(), id, domain.ResolveAction(req.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, withdrawal)
}
