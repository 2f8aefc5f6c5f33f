package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ledger"
	"usdt-custody/internal/core/ports"
	"usdt-custody/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TopUpServiceImpl implements ports.TopUpService.
//
// A top-up has no reservation phase. Submission only records the claim;
// the wallet is credited atomically with the approval.
type TopUpServiceImpl struct {
	topupRepo  ports.TopUpRepository
	walletRepo ports.WalletRepository
	outboxRepo ports.OutboxRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewTopUpService creates a new TopUpServiceImpl.
func NewTopUpService(
	topupRepo ports.TopUpRepository,
	walletRepo ports.WalletRepository,
	outboxRepo ports.OutboxRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TopUpServiceImpl {
	return &TopUpServiceImpl{
		topupRepo:  topupRepo,
		walletRepo: walletRepo,
		outboxRepo: outboxRepo,
		transactor: transactor,
		log:        log,
	}
}

// Submit records a top-up claim in PROCESSING. No balance field moves here.
func (s *TopUpServiceImpl) Submit(ctx context.Context, userID uuid.UUID, req ports.SubmitTopUpRequest) (*domain.TopUp, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	now := time.Now().UTC()
	topup := &domain.TopUp{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        req.Amount,
		OrderNo:       domain.NewOrderNo("ORD", now),
		TxReference:   req.TxReference,
		ScreenshotURL: req.ScreenshotURL,
		Status:        domain.StatusProcessing,
		CreatedAt:     now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.topupRepo.Create(ctx, dbTx, topup); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create topup: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("topup_id", topup.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", req.Amount.String()).
		Msg("topup submitted")

	return topup, nil
}

// Resolve applies an admin decision. The status compare-and-set and the
// wallet credit commit together or not at all; a lost CAS race surfaces as
// ErrAlreadyProcessed and leaves the wallet untouched.
func (s *TopUpServiceImpl) Resolve(ctx context.Context, id uuid.UUID, action domain.ResolveAction) (*domain.TopUp, error) {
	topup, err := s.topupRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find topup: %w", err))
	}
	if topup == nil {
		return nil, apperror.ErrNotFound("topup")
	}
	if topup.Status.IsTerminal() {
		return nil, apperror.ErrAlreadyProcessed()
	}

	delta, nextStatus, err := ledger.Resolve(domain.VariantTopUp, action, topup.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAction()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.topupRepo.UpdateStatus(ctx, dbTx, id, domain.StatusProcessing, nextStatus); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, apperror.ErrAlreadyProcessed()
		}
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	if !delta.IsZero() {
		wallet, err := s.walletRepo.ApplyDelta(ctx, dbTx, topup.UserID, delta)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("apply delta: %w", err))
		}
		evt, err := domain.NewBalanceChangedEvent(topup.UserID, wallet.Available, time.Now().UTC())
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
		}
		if err := s.outboxRepo.Create(ctx, dbTx, evt); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("enqueue event: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	topup.Status = nextStatus
	topup.ProcessedAt = &now

	s.log.Info().
		Str("topup_id", id.String()).
		Str("action", string(action)).
		Str("status", string(nextStatus)).
		Msg("topup resolved")

	return topup, nil
}

// ListPending returns all PROCESSING top-ups for the admin queue.
func (s *TopUpServiceImpl) ListPending(ctx context.Context) ([]domain.TopUp, error) {
	topups, err := s.topupRepo.ListByStatus(ctx, domain.StatusProcessing)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending topups: %w", err))
	}
	return topups, nil
}

// ListMine returns the caller's top-up history.
func (s *TopUpServiceImpl) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.TopUp, error) {
	topups, err := s.topupRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list user topups: %w", err))
	}
	return topups, nil
}
