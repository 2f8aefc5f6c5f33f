package handler

import (
	"usdt-custody/internal/adapter/http/dto"
	"usdt-custody/internal/core/ports"
	"usdt-custody/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles balance queries.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Get handles GET /api/v1/wallet.
func (h *WalletHandler) Get(c *gin.Context) {
	wallet, err := h.walletSvc.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(wallet))
}
