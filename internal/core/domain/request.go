package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RequestVariant identifies the kind of balance request.
type RequestVariant string

const (
	VariantTopUp      RequestVariant = "TOPUP"
	VariantSell       RequestVariant = "SELL"
	VariantWithdrawal RequestVariant = "WITHDRAWAL"
)

// RequestStatus is the lifecycle state of a request.
// Every request starts PROCESSING and moves to exactly one terminal
// state exactly once, via an admin compare-and-set.
type RequestStatus string

const (
	StatusProcessing RequestStatus = "PROCESSING"
	StatusCompleted  RequestStatus = "COMPLETED"
	StatusFailed     RequestStatus = "FAILED"
)

// IsTerminal returns true for COMPLETED and FAILED.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResolveAction is the admin decision on a PROCESSING request.
type ResolveAction string

const (
	ActionApprove ResolveAction = "APPROVE"
	ActionReject  ResolveAction = "REJECT"
)

// TopUp is a user's claim of an external bank transfer, pending admin review.
// It has no reservation phase: the funds do not exist in the system until
// approval.
type TopUp struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	OrderNo       string          `json:"order_no"`
	TxReference   string          `json:"tx_reference"`
	ScreenshotURL string          `json:"screenshot_url,omitempty"`
	Status        RequestStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// Sell is a request to sell frozen units for local fiat.
type Sell struct {
	ID                uuid.UUID       `json:"id"`
	UserID            uuid.UUID       `json:"user_id"`
	Units             decimal.Decimal `json:"units"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	Country           string          `json:"country"`
	TotalLocal        decimal.Decimal `json:"total_amount_local"`
	PaymentDetailsEnc string          `json:"-"` // AES-256 encrypted, never expose raw
	Status            RequestStatus   `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
}

// Withdrawal is a request to move units to an external address.
type Withdrawal struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	OrderNo       string          `json:"order_no"`
	WalletAddress string          `json:"wallet_address"`
	Status        RequestStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
}

// NewOrderNo builds an external reference like "ORD-1714650000123-042".
func NewOrderNo(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, now.UnixMilli(), rand.Intn(1000))
}
