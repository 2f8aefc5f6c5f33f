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

// SellHandler handles the sell request lifecycle.
type SellHandler struct {
	sellSvc ports.SellService
}

// NewSellHandler creates a new SellHandler.
func NewSellHandler(sellSvc ports.SellService) *SellHandler {
	return &SellHandler{sellSvc: sellSvc}
}

// Submit handles POST /api/v1/sells.
func (h *SellHandler) Submit(c *gin.Context) {
	var req dto.SubmitSellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	unitPrice, ok := dto.ParseAmount(req.UnitPrice)
	if !ok {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}
	units, ok := dto.ParseAmount(req.Units)
	if !ok {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	sell, err := h.sellSvc.Submit(c.Request.Context(), currentUserID(c), ports.SubmitSellRequest{
		Country:        req.Country,
		UnitPrice:      unitPrice,
		Units:          units,
		PaymentDetails: req.PaymentDetails,
		Password:       req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, sell)
}

// ListMine handles GET /api/v1/sells/my.
func (h *SellHandler) ListMine(c *gin.Context) {
	sells, err := h.sellSvc.ListMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sells)
}

// ListPending handles GET /api/v1/admin/sells/pending.
func (h *SellHandler) ListPending(c *gin.Context) {
	sells, err := h.sellSvc.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sells)
}

// Resolve handles POST /api/v1/admin/sells/:id/resolve.
func (h *SellHandler) Resolve(c *gin.Context) {
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

	sell, err := h.sellSvc.Resolve(c.Request.Context(), id, domain.ResolveAction(req.Action))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sell)
}
