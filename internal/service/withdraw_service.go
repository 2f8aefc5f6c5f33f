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

// WithdrawServiceImpl implements ports.WithdrawService.
type WithdrawServiceImpl struct {
	withdrawalRepo ports.WithdrawalRepository
	walletRepo     ports.WalletRepository
	outboxRepo     ports.OutboxRepository
	verifier       ports.SecretVerifier
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewWithdrawService creates a new WithdrawServiceImpl.
func NewWithdrawService(
	withdrawalRepo ports.WithdrawalRepository,
	walletRepo ports.WalletRepository,
	outboxRepo ports.OutboxRepository,
	verifier ports.SecretVerifier,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WithdrawServiceImpl {
	return &WithdrawServiceImpl{
		withdrawalRepo: withdrawalRepo,
		walletRepo:     walletRepo,
		outboxRepo:     outboxRepo,
		verifier:       verifier,
		transactor:     transactor,
		log:            log,
	}
}

// Submit reserves the amount and records the withdrawal in PROCESSING.
func (s *WithdrawServiceImpl) Submit(ctx context.Context, userID uuid.UUID, req ports.SubmitWithdrawalRequest) (*domain.Withdrawal, error) {
	if err := s.verifier.VerifySecret(ctx, userID, req.Password); err != nil {
		return nil, err
	}

	delta, err := ledger.Reserve(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	now := time.Now().UTC()
	withdrawal := &domain.Withdrawal{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        req.Amount,
		OrderNo:       domain.NewOrderNo("WTH", now),
		WalletAddress: req.WalletAddress,
		Status:        domain.StatusProcessing,
		CreatedAt:     now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	wallet, err = s.walletRepo.ApplyDelta(ctx, dbTx, userID, delta)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientFunds) {
			return nil, apperror.ErrInsufficientFunds()
		}
		return nil, apperror.InternalError(fmt.Errorf("reserve amount: %w", err))
	}
	if err := s.withdrawalRepo.Create(ctx, dbTx, withdrawal); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}
	evt, err := domain.NewBalanceChangedEvent(userID, wallet.Available, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.outboxRepo.Create(ctx, dbTx, evt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("enqueue event: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", withdrawal.ID.String()).
		Str("user_id", userID.String()).
		Str("amount", req.Amount.String()).
		Msg("withdrawal submitted")

	return withdrawal, nil
}

// Resolve applies an admin decision. Approval burns the frozen amount;
// rejection releases it back to available.
func (s *WithdrawServiceImpl) Resolve(ctx context.Context, id uuid.UUID, action domain.ResolveAction) (*domain.Withdrawal, error) {
	withdrawal, err := s.withdrawalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find withdrawal: %w", err))
	}
	if withdrawal == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if withdrawal.Status.IsTerminal() {
		return nil, apperror.ErrAlreadyProcessed()
	}

	delta, nextStatus, err := ledger.Resolve(domain.VariantWithdrawal, action, withdrawal.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAction()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.withdrawalRepo.UpdateStatus(ctx, dbTx, id, domain.StatusProcessing, nextStatus); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, apperror.ErrAlreadyProcessed()
		}
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	wallet, err := s.walletRepo.ApplyDelta(ctx, dbTx, withdrawal.UserID, delta)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply delta: %w", err))
	}
	evt, err := domain.NewBalanceChangedEvent(withdrawal.UserID, wallet.Available, time.Now().UTC())
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build event: %w", err))
	}
	if err := s.outboxRepo.Create(ctx, dbTx, evt); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("enqueue event: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	now := time.Now().UTC()
	withdrawal.Status = nextStatus
	withdrawal.ProcessedAt = &now

	s.log.Info().
		Str("withdrawal_id", id.String()).
		Str("action", string(action)).
		Str("status", string(nextStatus)).
		Msg("withdrawal resolved")

	return withdrawal, nil
}

// ListPending returns all PROCESSING withdrawals for the admin queue.
func (s *WithdrawServiceImpl) ListPending(ctx context.Context) ([]domain.Withdrawal, error) {
	withdrawals, err := s.withdrawalRepo.ListByStatus(ctx, domain.StatusProcessing)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending withdrawals: %w", err))
	}
	return withdrawals, nil
}

// ListMine returns the caller's withdrawal history.
func (s *WithdrawServiceImpl) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.Withdrawal, error) {
	withdrawals, err := s.withdrawalRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list user withdrawals: %w", err))
	}
	return withdrawals, nil
}
