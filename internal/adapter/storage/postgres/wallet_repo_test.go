package postgres

import (
	"context"
	"testing"
	"time"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ledger"
	"usdt-custody/internal/core/ports"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWallet(userID uuid.UUID) *domain.Wallet {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Available: decimal.NewFromInt(100),
		Frozen:    decimal.Zero,
		Total:     decimal.NewFromInt(100),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func walletColumnNames() []string {
	return []string{"id", "user_id", "balance_available", "balance_frozen", "balance_total", "created_at", "updated_at"}
}

func walletRow(w *domain.Wallet) *pgxmock.Rows {
	return pgxmock.NewRows(walletColumnNames()).AddRow(
		w.ID, w.UserID, w.Available, w.Frozen, w.Total,
		w.CreatedAt, w.UpdatedAt,
	)
}

func TestWalletRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO wallets").
		WithArgs(w.ID, w.UserID, w.Available, w.Frozen, w.Total, w.CreatedAt, w.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), tx, w)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	w := newTestWallet(uuid.New())

	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE user_id").
		WithArgs(w.UserID).
		WillReturnRows(walletRow(w))

	got, err := repo.GetByUserID(context.Background(), w.UserID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, w.ID, got.ID)
	assert.True(t, got.Available.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_GetByUserID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	userID := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM wallets WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(walletColumnNames()))

	got, err := repo.GetByUserID(context.Background(), userID)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestWalletRepo_ApplyDelta(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	userID := uuid.New()
	delta := ledger.Delta{
		Available: decimal.NewFromInt(-40),
		Frozen:    decimal.NewFromInt(40),
		Total:     decimal.Zero,
	}

	after := newTestWallet(userID)
	after.Available = decimal.NewFromInt(60)
	after.Frozen = decimal.NewFromInt(40)

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	mock.ExpectQuery("UPDATE wallets").
		WithArgs(delta.Available, delta.Frozen, delta.Total, userID).
		WillReturnRows(walletRow(after))

	got, err := repo.ApplyDelta(context.Background(), tx, userID, delta)
	require.NoError(t, err)
	assert.True(t, got.Available.Equal(decimal.NewFromInt(60)))
	assert.True(t, got.Frozen.Equal(decimal.NewFromInt(40)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletRepo_ApplyDelta_GuardRejects(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewWalletRepo(mock)
	userID := uuid.New()
	delta := ledger.Delta{
		Available: decimal.NewFromInt(-50),
		Frozen:    decimal.NewFromInt(50),
		Total:     decimal.Zero,
	}

	mock.ExpectBegin()
	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	// The WHERE guard filters the row out: no rows returned.
	mock.ExpectQuery("UPDATE wallets").
		WithArgs(delta.Available, delta.Frozen, delta.Total, userID).
		WillReturnRows(pgxmock.NewRows(walletColumnNames()))

	_, err = repo.ApplyDelta(context.Background(), tx, userID, delta)
	assert.ErrorIs(t, err, ports.ErrInsufficientFunds)
}
