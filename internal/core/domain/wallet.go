package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's custody balances in USDT units.
// Invariant: Total == Available + Frozen, all three non-negative.
// Only the ledger engine computes new balance values; the wallet row is
// mutated exclusively through WalletRepository.ApplyDelta.
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Available decimal.Decimal `json:"balance_available"`
	Frozen    decimal.Decimal `json:"balance_frozen"`
	Total     decimal.Decimal `json:"balance_total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewWallet returns a zeroed wallet for a freshly registered user.
func NewWallet(userID uuid.UUID, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Available: decimal.Zero,
		Frozen:    decimal.Zero,
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Consistent reports whether the balance invariant holds.
func (w *Wallet) Consistent() bool {
	return w.Total.Equal(w.Available.Add(w.Frozen)) &&
		!w.Available.IsNegative() &&
		!w.Frozen.IsNegative() &&
		!w.Total.IsNegative()
}
