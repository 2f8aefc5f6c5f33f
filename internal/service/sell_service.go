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
	"github.com/shopspring/decimal"
)

// SellServiceImpl implements ports.SellService.
type SellServiceImpl struct {
	sellRepo     ports.SellRepository
	walletRepo   ports.WalletRepository
	outboxRepo   ports.OutboxRepository
	verifier     ports.SecretVerifier
	encSvc       ports.EncryptionService
	transactor   ports.DBTransactor
	maxUnitPrice decimal.Decimal
	log          zerolog.Logger
}

// NewSellService creates a new SellServiceImpl.
func NewSellService(
	sellRepo ports.SellRepository,
	walletRepo ports.WalletRepository,
	outboxRepo ports.OutboxRepository,
	verifier ports.SecretVerifier,
	encSvc ports.EncryptionService,
	transactor ports.DBTransactor,
	maxUnitPrice decimal.Decimal,
	log zerolog.Logger,
) *SellServiceImpl {
	return &SellServiceImpl{
		sellRepo:     sellRepo,
		walletRepo:   walletRepo,
		outboxRepo:   outboxRepo,
		verifier:     verifier,
		encSvc:       encSvc,
		transactor:   transactor,
		maxUnitPrice: maxUnitPrice,
		log:          log,
	}
}

// Submit reserves the units and records the sell in PROCESSING.
// The reservation, the request row, and the balance event commit in one
// transaction.
func (s *SellServiceImpl) Submit(ctx context.Context, userID uuid.UUID, req ports.SubmitSellRequest) (*domain.Sell, error) {
	if !req.UnitPrice.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.UnitPrice.GreaterThan(s.maxUnitPrice) {
		return nil, apperror.ErrUnitPriceTooHigh(s.maxUnitPrice.String())
	}
	if err := s.verifier.VerifySecret(ctx, userID, req.Password); err != nil {
		return nil, err
	}

	delta, err := ledger.Reserve(req.Units)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	detailsEnc, err := s.encSvc.Encrypt(string(req.PaymentDetails))
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt payment details: %w", err))
	}

	now := time.Now().UTC()
	sell := &domain.Sell{
		ID:                uuid.New(),
		UserID:            userID,
		Units:             req.Units,
		UnitPrice:         req.UnitPrice,
		Country:           req.Country,
		TotalLocal:        req.Units.Mul(req.UnitPrice),
		PaymentDetailsEnc: detailsEnc,
		Status:            domain.StatusProcessing,
		CreatedAt:         now,
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
		return nil, apperror.InternalError(fmt.Errorf("reserve units: %w", err))
	}
	if err := s.sellRepo.Create(ctx, dbTx, sell); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create sell: %w", err))
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
		Str("sell_id", sell.ID.String()).
		Str("user_id", userID.String()).
		Str("units", req.Units.String()).
		Str("unit_price", req.UnitPrice.String()).
		Msg("sell submitted")

	return sell, nil
}

// Resolve applies an admin decision. Approval burns the frozen units;
// rejection releases them back to available.
func (s *SellServiceImpl) Resolve(ctx context.Context, id uuid.UUID, action domain.ResolveAction) (*domain.Sell, error) {
	sell, err := s.sellRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find sell: %w", err))
	}
	if sell == nil {
		return nil, apperror.ErrNotFound("sell")
	}
	if sell.Status.IsTerminal() {
		return nil, apperror.ErrAlreadyProcessed()
	}

	delta, nextStatus, err := ledger.Resolve(domain.VariantSell, action, sell.Units)
	if err != nil {
		return nil, apperror.ErrInvalidAction()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.sellRepo.UpdateStatus(ctx, dbTx, id, domain.StatusProcessing, nextStatus); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, apperror.ErrAlreadyProcessed()
		}
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	wallet, err := s.walletRepo.ApplyDelta(ctx, dbTx, sell.UserID, delta)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply delta: %w", err))
	}
	evt, err := domain.NewBalanceChangedEvent(sell.UserID, wallet.Available, time.Now().UTC())
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
	sell.Status = nextStatus
	sell.ProcessedAt = &now

	s.log.Info().
		Str("sell_id", id.String()).
		Str("action", string(action)).
		Str("status", string(nextStatus)).
		Msg("sell resolved")

	return sell, nil
}

// ListPending returns all PROCESSING sells for the admin queue.
func (s *SellServiceImpl) ListPending(ctx context.Context) ([]domain.Sell, error) {
	sells, err := s.sellRepo.ListByStatus(ctx, domain.StatusProcessing)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending sells: %w", err))
	}
	return sells, nil
}

// ListMine returns the caller's sell history.
func (s *SellServiceImpl) ListMine(ctx context.Context, userID uuid.UUID) ([]domain.Sell, error) {
	sells, err := s.sellRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list user sells: %w", err))
	}
	return sells, nil
}
