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

// TopUpHandler handles the top-up request lifecycle.
type TopUpHandler struct {
	topupSvc ports.TopUpService
}

// NewTopUpHandler creates a new TopUpHandler.
func NewTopUpHandler(topupSvc ports.TopUpService) *TopUpHandler {
	return &TopUpHandler{topupSvc: topupSvc}
}

// Submit handles POST /api/v1/topups.
func (h *TopUpHandler) Submit(c *gin.Context) {
	var req dto.SubmitTopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	amount, ok := dto.ParseAmount(req.Amount)
	if !ok {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	topup, err := h.topupSvc.Submit(c.Request.Context(), currentUserID(c), ports.SubmitTopUpRequest{
		Amount:        amount,
		TxReference:   req.TxReference,
		ScreenshotURL: req.ScreenshotURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, topup)
}

// ListMine handles GET /api/v1/topups/my.
func (h *TopUpHandler) ListMine(c *gin.Context) {
	topups, err := h.topupSvc.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topups)
}

// ListPending handles GET /api/v1/admin/topups/pending.
func (h *TopUpHandler) ListPending(c *gin.Context) {
	topups, err := h.topupSvc.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topups)
}

// Resolve handles POST /api/v1/admin/topups/:id/resolve.
func (h *TopUpHandler) Resolve(c *gin.Context) {
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

	topup, err := h.topupSvc.Resolve(c.Request.Context(), id, domain.ResolveAction(req.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, topup)
}
