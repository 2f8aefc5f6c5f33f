package service

import (
	"context"
	"strings"
	"testing"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ledger"
	"usdt-custody/internal/core/ports"
	"usdt-custody/internal/core/ports/mocks"
	"usdt-custody/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type withdrawTestDeps struct {
	svc            *WithdrawServiceImpl
	withdrawalRepo *mocks.MockWithdrawalRepository
	walletRepo     *mocks.MockWalletRepository
	outboxRepo     *mocks.MockOutboxRepository
	verifier       *mocks.MockSecretVerifier
	transactor     *mocks.MockDBTransactor
	ctrl           *gomock.Controller
}

func setupWithdrawService(t *testing.T) *withdrawTestDeps {
	ctrl := gomock.NewController(t)
	d := &withdrawTestDeps{
		withdrawalRepo: mocks.NewMockWithdrawalRepository(ctrl),
		walletRepo:     mocks.NewMockWalletRepository(ctrl),
		outboxRepo:     mocks.NewMockOutboxRepository(ctrl),
		verifier:       mocks.NewMockSecretVerifier(ctrl),
		transactor:     mocks.NewMockDBTransactor(ctrl),
		ctrl:           ctrl,
	}
	d.svc = NewWithdrawService(
		d.withdrawalRepo, d.walletRepo, d.outboxRepo, d.verifier, d.transactor, zerolog.Nop(),
	)
	return d
}

func TestWithdrawService_Submit_ReservesAmount(t *testing.T) {
	d := setupWithdrawService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}
	req := ports.SubmitWithdrawalRequest{
		Amount:        decimal.NewFromInt(30),
		WalletAddress: "TLa2f6VPqF9ZcVXfQ5nWbMYZ6fJ4mA2k9q",
		Password:      "hunter2hunter2",
	}
	wallet := &domain.Wallet{
		UserID:    userID,
		Available: decimal.NewFromInt(100),
		Frozen:    decimal.Zero,
		Total:     decimal.NewFromInt(100),
	}

	d.verifier.EXPECT().VerifySecret(ctx, userID, req.Password).Return(nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.walletRepo.EXPECT().GetByUserIDForUpdate(ctx, tx, userID).Return(wallet, nil)
	d.walletRepo.EXPECT().ApplyDelta(ctx, tx, userID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, _ uuid.UUID, delta ledger.Delta) (*domain.Wallet, error) {
			assert.True(t, delta.Available.Equal(decimal.NewFromInt(-30)))
			assert.True(t, delta.Frozen.Equal(decimal.NewFromInt(30)))
			assert.True(t, delta.Total.IsZero())
			return &domain.Wallet{
				UserID:    userID,
				Available: decimal.NewFromInt(70),
				Frozen:    decimal.NewFromInt(30),
				Total:     decimal.NewFromInt(100),
			}, nil
		})
	d.withdrawalRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.outboxRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, evt *domain.OutboxEvent) error {
			assert.Equal(t, domain.EventBalanceChanged, evt.EventType)
			assert.Equal(t, userID, evt.AggregateID)
			return nil
		})

	withdrawal, err := d.svc.Submit(ctx, userID, req)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, withdrawal.Status)
	assert.True(t, strings.HasPrefix(withdrawal.OrderNo, "WTH-"))
}

func TestWithdrawService_Submit_InvalidAmount(t *testing.T) {
	d := setupWithdrawService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	req := ports.SubmitWithdrawalRequest{
		Amount:   decimal.Zero,
		Password: "hunter2hunter2",
	}

	d.verifier.EXPECT().VerifySecret(ctx, userID, req.Password).Return(nil)

	_, err := d.svc.Submit(ctx, userID, req)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_006", appErr.Code)
}

func TestWithdrawService_Resolve_Approve_BurnsFrozen(t *testing.T) {
	d := setupWithdrawService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	userID := uuid.New()
	tx := &mockTx{}
	withdrawal := &domain.Withdrawal{
		ID:     id,
		UserID: userID,
		Amount: decimal.NewFromInt(30),
		Status: domain.StatusProcessing,
	}
	after := &domain.Wallet{
		UserID:    userID,
		Available: decimal.NewFromInt(70),
		Frozen:    decimal.Zero,
		Total:     decimal.NewFromInt(70),
	}

	d.withdrawalRepo.EXPECT().GetByID(ctx, id).Return(withdrawal, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.withdrawalRepo.EXPECT().UpdateStatus(ctx, tx, id, domain.StatusProcessing, domain.StatusCompleted).Return(nil)
	d.walletRepo.EXPECT().ApplyDelta(ctx, tx, userID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, _ uuid.UUID, delta ledger.Delta) (*domain.Wallet, error) {
			assert.True(t, delta.Available.IsZero())
			assert.True(t, delta.Frozen.Equal(decimal.NewFromInt(-30)))
			assert.True(t, delta.Total.Equal(decimal.NewFromInt(-30)))
			return after, nil
		})
	d.outboxRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	resolved, err := d.svc.Resolve(ctx, id, domain.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resolved.Status)
}

func TestWithdrawService_Resolve_LostCASRace(t *testing.T) {
	d := setupWithdrawService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	tx := &mockTx{}
	withdrawal := &domain.Withdrawal{
		ID:     id,
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(30),
		Status: domain.StatusProcessing,
	}

	d.withdrawalRepo.EXPECT().GetByID(ctx, id).Return(withdrawal, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.withdrawalRepo.EXPECT().UpdateStatus(ctx, tx, id, domain.StatusProcessing, domain.StatusFailed).
		Return(ports.ErrStatusConflict)

	_, err := d.svc.Resolve(ctx, id, domain.ActionReject)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)
}
