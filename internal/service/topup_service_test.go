package service

import (
	"context"
	"strings"
	"testing"
	"time"

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

type topupTestDeps struct {
	svc        *TopUpServiceImpl
	topupRepo  *mocks.MockTopUpRepository
	walletRepo *mocks.MockWalletRepository
	outboxRepo *mocks.MockOutboxRepository
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupTopUpService(t *testing.T) *topupTestDeps {
	ctrl := gomock.NewController(t)
	d := &topupTestDeps{
		topupRepo:  mocks.NewMockTopUpRepository(ctrl),
		walletRepo: mocks.NewMockWalletRepository(ctrl),
		outboxRepo: mocks.NewMockOutboxRepository(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewTopUpService(
		d.topupRepo, d.walletRepo, d.outboxRepo, d.transactor, zerolog.Nop(),
	)
	return d
}

func TestTopUpService_Submit_Success(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.topupRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	topup, err := d.svc.Submit(ctx, userID, ports.SubmitTopUpRequest{
		Amount:      decimal.NewFromInt(500),
		TxReference: "bank-ref-1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, topup.Status)
	assert.True(t, strings.HasPrefix(topup.OrderNo, "ORD-"))
	assert.True(t, topup.Amount.Equal(decimal.NewFromInt(500)))
}

func TestTopUpService_Submit_NonPositiveAmount(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	for _, amt := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := d.svc.Submit(context.Background(), uuid.New(), ports.SubmitTopUpRequest{Amount: amt})

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "LED_006", appErr.Code)
	}
}

func TestTopUpService_Resolve_Approve_CreditsWallet(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	userID := uuid.New()
	tx := &mockTx{}
	topup := &domain.TopUp{
		ID:     id,
		UserID: userID,
		Amount: decimal.NewFromInt(100),
		Status: domain.StatusProcessing,
	}
	after := &domain.Wallet{
		UserID:    userID,
		Available: decimal.NewFromInt(100),
		Frozen:    decimal.Zero,
		Total:     decimal.NewFromInt(100),
	}

	d.topupRepo.EXPECT().GetByID(ctx, id).Return(topup, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.topupRepo.EXPECT().UpdateStatus(ctx, tx, id, domain.StatusProcessing, domain.StatusCompleted).Return(nil)
	d.walletRepo.EXPECT().ApplyDelta(ctx, tx, userID, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, _ uuid.UUID, delta ledger.Delta) (*domain.Wallet, error) {
			assert.True(t, delta.Available.Equal(decimal.NewFromInt(100)))
			assert.True(t, delta.Frozen.IsZero())
			assert.True(t, delta.Total.Equal(decimal.NewFromInt(100)))
			return after, nil
		})
	d.outboxRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, evt *domain.OutboxEvent) error {
			assert.Equal(t, domain.EventBalanceChanged, evt.EventType)
			assert.Equal(t, userID, evt.AggregateID)
			return nil
		})

	resolved, err := d.svc.Resolve(ctx, id, domain.ActionApprove)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, resolved.Status)
	require.NotNil(t, resolved.ProcessedAt)
}

func TestTopUpService_Resolve_Reject_NoWalletEffect(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	tx := &mockTx{}
	topup := &domain.TopUp{
		ID:     id,
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(100),
		Status: domain.StatusProcessing,
	}

	d.topupRepo.EXPECT().GetByID(ctx, id).Return(topup, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.topupRepo.EXPECT().UpdateStatus(ctx, tx, id, domain.StatusProcessing, domain.StatusFailed).Return(nil)
	// No ApplyDelta and no outbox event: a rejected claim never touches balances.

	resolved, err := d.svc.Resolve(ctx, id, domain.ActionReject)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, resolved.Status)
}

func TestTopUpService_Resolve_AlreadyTerminal(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	topup := &domain.TopUp{ID: id, Status: domain.StatusCompleted}

	d.topupRepo.EXPECT().GetByID(ctx, id).Return(topup, nil)

	_, err := d.svc.Resolve(ctx, id, domain.ActionApprove)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)
}

func TestTopUpService_Resolve_LostCASRace(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	tx := &mockTx{}
	topup := &domain.TopUp{
		ID:     id,
		UserID: uuid.New(),
		Amount: decimal.NewFromInt(100),
		Status: domain.StatusProcessing,
	}

	d.topupRepo.EXPECT().GetByID(ctx, id).Return(topup, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.topupRepo.EXPECT().UpdateStatus(ctx, tx, id, domain.StatusProcessing, domain.StatusCompleted).
		Return(ports.ErrStatusConflict)

	_, err := d.svc.Resolve(ctx, id, domain.ActionApprove)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_003", appErr.Code)
}

func TestTopUpService_Resolve_NotFound(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()
	d.topupRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	_, err := d.svc.Resolve(ctx, id, domain.ActionApprove)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LED_002", appErr.Code)
}

func TestTopUpService_ListPending(t *testing.T) {
	d := setupTopUpService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Now().UTC()
	d.topupRepo.EXPECT().ListByStatus(ctx, domain.StatusProcessing).
		Return([]domain.TopUp{{ID: uuid.New(), CreatedAt: now}}, nil)

	topups, err := d.svc.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, topups, 1)
}
