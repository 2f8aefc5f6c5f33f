package ports

import (
	"context"
	"errors"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ledger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInsufficientFunds is returned by ApplyDelta when the movement would
// drive any balance component negative. The store enforces non-negativity
// so the check and the write share one atomic statement.
var ErrInsufficientFunds = errors.New("wallet: insufficient funds for delta")

// ErrStatusConflict is returned by UpdateStatus when the stored status no
// longer matches the expected one. This is the race-safe "already processed"
// signal, not a fatal error.
var ErrStatusConflict = errors.New("request: status compare-and-set failed")

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, tx pgx.Tx, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the atomic unit of a Phase A/B
// transition; ApplyDelta is the only write path for balance fields.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error)
	GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error)
	// ApplyDelta applies the delta in one guarded UPDATE and returns the
	// resulting wallet. Returns ErrInsufficientFunds if any component would
	// go negative.
	ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, d ledger.Delta) (*domain.Wallet, error)
}

// TopUpRepository defines persistence operations for top-up requests.
type TopUpRepository interface {
	Create(ctx context.Context, tx pgx.Tx, t *domain.TopUp) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TopUp, error)
	// UpdateStatus transitions id from expected to next. Returns
	// ErrStatusConflict if the stored status is no longer expected.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.TopUp, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TopUp, error)
}

// SellRepository defines persistence operations for sell requests.
type SellRepository interface {
	Create(ctx context.Context, tx pgx.Tx, s *domain.Sell) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sell, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Sell, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Sell, error)
}

// WithdrawalRepository defines persistence operations for withdrawal requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Withdrawal, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Withdrawal, error)
}

// OutboxRepository defines persistence for pending notification events.
type OutboxRepository interface {
	Create(ctx context.Context, tx pgx.Tx, evt *domain.OutboxEvent) error
	ListUnprocessed(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id int64) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
