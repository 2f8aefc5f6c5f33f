package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventBalanceChanged is emitted once per committed wallet transition.
const EventBalanceChanged = "balance.changed"

// OutboxEvent is a pending notification written in the same database
// transaction as the wallet/request mutation it describes. A dispatcher
// publishes it after commit; delivery is best-effort.
type OutboxEvent struct {
	ID          int64           `json:"id"`
	Aggregate   string          `json:"aggregate"`
	AggregateID uuid.UUID       `json:"aggregate_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	Processed   bool            `json:"processed"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty"`
}

// BalanceChangedPayload is the body of a balance.changed event.
type BalanceChangedPayload struct {
	UserID           uuid.UUID       `json:"user_id"`
	BalanceAvailable decimal.Decimal `json:"balance_available"`
}

// NewBalanceChangedEvent builds an unsaved balance.changed outbox event.
func NewBalanceChangedEvent(userID uuid.UUID, available decimal.Decimal, now time.Time) (*OutboxEvent, error) {
	payload, err := json.Marshal(BalanceChangedPayload{
		UserID:           userID,
		BalanceAvailable: available,
	})
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		Aggregate:   "wallet",
		AggregateID: userID,
		EventType:   EventBalanceChanged,
		Payload:     payload,
		CreatedAt:   now,
	}, nil
}
