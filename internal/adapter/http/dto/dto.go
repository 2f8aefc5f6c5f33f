package dto

import (
	"encoding/json"
	"time"

	"usdt-custody/internal/core/domain"
)

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email,max=254"`
	Username string  `json:"username" binding:"required,min=3,max=50"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,max=32"`
	Password string  `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is the response body for successful registration or login.
type AuthResponse struct {
	User      UserResponse    `json:"user"`
	Wallet    *WalletResponse `json:"wallet,omitempty"`
	Token     string          `json:"token"`
	ExpiresAt int64           `json:"expires_at"` // Unix timestamp
}

// UserResponse is the public view of a user account.
type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Phone     *string `json:"phone,omitempty"`
	IsAdmin   bool    `json:"is_admin"`
	CreatedAt string  `json:"created_at"`
}

// WalletResponse is the response body for balance queries.
type WalletResponse struct {
	UserID           string `json:"user_id"`
	BalanceAvailable string `json:"balance_available"`
	BalanceFrozen    string `json:"balance_frozen"`
	BalanceTotal     string `json:"balance_total"`
	UpdatedAt        string `json:"updated_at"`
}

// SubmitTopUpRequest is the request body for a top-up claim.
// Amount travels as a string so fractional units survive intact.
type SubmitTopUpRequest struct {
	Amount        string `json:"amount" binding:"required"`
	TxReference   string `json:"tx_reference" binding:"required,max=100"`
	ScreenshotURL string `json:"screenshot_url,omitempty" binding:"omitempty,safe_url,max=500"`
}

// SubmitSellRequest is the request body for a sell submission.
type SubmitSellRequest struct {
	Country        string          `json:"country" binding:"required,min=2,max=56"`
	UnitPrice      string          `json:"unit_price" binding:"required"`
	Units          string          `json:"units" binding:"required"`
	PaymentDetails json.RawMessage `json:"payment_details" binding:"required"`
	Password       string          `json:"password" binding:"required"`
}

// SubmitWithdrawalRequest is the request body for a withdrawal submission.
type SubmitWithdrawalRequest struct {
	Amount        string `json:"amount" binding:"required"`
	WalletAddress string `json:"wallet_address" binding:"required,safe_id,min=20,max=128"`
	Password      string `json:"password" binding:"required"`
}

// ResolveRequest is the admin decision body.
type ResolveRequest struct {
	Action string `json:"action" binding:"required,oneof=APPROVE REJECT"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		Phone:     u.Phone,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// NewWalletResponse maps a domain wallet.
func NewWalletResponse(w *domain.Wallet) *WalletResponse {
	if w == nil {
		return nil
	}
	return &WalletResponse{
		UserID:           w.UserID.String(),
		BalanceAvailable: w.Available.String(),
		BalanceFrozen:    w.Frozen.String(),
		BalanceTotal:     w.Total.String(),
		UpdatedAt:        w.UpdatedAt.Format(time.RFC3339),
	}
}
