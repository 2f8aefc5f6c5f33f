package handler

import (
	"usdt-custody/internal/adapter/http/dto"
	"usdt-custody/internal/adapter/http/middleware"
	"usdt-custody/internal/core/ports"
	"usdt-custody/pkg/apperror"
	"usdt-custody/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthHandler handles authentication and user endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Register(c.Request.Context(), ports.RegisterRequest{
		Email:    req.Email,
		Username: req.Username,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.AuthResponse{
		User:      dto.NewUserResponse(result.User),
		Wallet:    dto.NewWalletResponse(result.Wallet),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Unix(),
	})
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.AuthResponse{
		User:      dto.NewUserResponse(result.User),
		Wallet:    dto.NewWalletResponse(result.Wallet),
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.Unix(),
	})
}

// Me handles GET /api/v1/users/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUserID(c)

	user, err := h.authSvc.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewUserResponse(user))
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AuthHandler) ListUsers(c *gin.Context) {
	users, err := h.authSvc.ListUsers(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	response.OK(c, out)
}

// currentUserID reads the authenticated user ID set by the JWT middleware.
func currentUserID(c *gin.Context) uuid.UUID {
	v, _ := c.Get(middleware.CtxUserID)
	id, _ := v.(uuid.UUID)
	return id
}
