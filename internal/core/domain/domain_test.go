package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet_StartsZeroed(t *testing.T) {
	w := NewWallet(uuid.New(), time.Now().UTC())

	assert.True(t, w.Available.IsZero())
	assert.True(t, w.Frozen.IsZero())
	assert.True(t, w.Total.IsZero())
	assert.True(t, w.Consistent())
}

func TestWallet_Consistent(t *testing.T) {
	w := &Wallet{
		Available: decimal.NewFromInt(60),
		Frozen:    decimal.NewFromInt(40),
		Total:     decimal.NewFromInt(100),
	}
	assert.True(t, w.Consistent())

	w.Total = decimal.NewFromInt(99)
	assert.False(t, w.Consistent())

	w.Total = decimal.NewFromInt(100)
	w.Available = decimal.NewFromInt(-1)
	assert.False(t, w.Consistent())
}

func TestRequestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusProcessing.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
}

func TestNewOrderNo_Format(t *testing.T) {
	now := time.Now()
	no := NewOrderNo("WTH", now)

	assert.True(t, strings.HasPrefix(no, "WTH-"))
	assert.Len(t, strings.Split(no, "-"), 3)
}

func TestNewBalanceChangedEvent(t *testing.T) {
	userID := uuid.New()
	now := time.Now().UTC()

	evt, err := NewBalanceChangedEvent(userID, decimal.NewFromInt(100), now)
	require.NoError(t, err)

	assert.Equal(t, "wallet", evt.Aggregate)
	assert.Equal(t, userID, evt.AggregateID)
	assert.Equal(t, EventBalanceChanged, evt.EventType)
	assert.False(t, evt.Processed)

	var payload BalanceChangedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &payload))
	assert.Equal(t, userID, payload.UserID)
	assert.True(t, payload.BalanceAvailable.Equal(decimal.NewFromInt(100)))
}

func TestSell_PaymentDetailsNeverSerialized(t *testing.T) {
	s := Sell{PaymentDetailsEnc: "ciphertext"}
	raw, err := json.Marshal(s)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ciphertext")
}
