package postgres

import (
	"context"
	"errors"
	"fmt"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ledger"
	"usdt-custody/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, user_id, balance_available, balance_frozen, balance_total, created_at, updated_at`

// Create inserts a new wallet within a database transaction.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, balance_available, balance_frozen, balance_total, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.Available, w.Frozen, w.Total,
		w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByUserID fetches a wallet by owner (non-locking read).
func (r *WalletRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	return scanWallet(r.pool.QueryRow(ctx, query, userID))
}

// GetByUserIDForUpdate fetches a wallet by owner with pessimistic locking.
// This MUST be called within a transaction; it serializes concurrent
// Phase A/B transitions against the same wallet.
func (r *WalletRepo) GetByUserIDForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1 FOR UPDATE`
	return scanWallet(tx.QueryRow(ctx, query, userID))
}

// ApplyDelta moves the three balance components in a single guarded UPDATE.
// The non-negativity check and the write share one statement so a stale
// read can never overdraw the wallet. Returns ports.ErrInsufficientFunds
// when the guard rejects the movement.
func (r *WalletRepo) ApplyDelta(ctx context.Context, tx pgx.Tx, userID uuid.UUID, d ledger.Delta) (*domain.Wallet, error) {
	query := `UPDATE wallets
		SET balance_available = balance_available + $1,
			balance_frozen = balance_frozen + $2,
			balance_total = balance_total + $3,
			updated_at = NOW()
		WHERE user_id = $4
			AND balance_available + $1 >= 0
			AND balance_frozen + $2 >= 0
			AND balance_total + $3 >= 0
		RETURNING ` + walletColumns

	w, err := scanWallet(tx.QueryRow(ctx, query, d.Available, d.Frozen, d.Total, userID))
	if err != nil {
		return nil, fmt.Errorf("apply wallet delta: %w", err)
	}
	if w == nil {
		return nil, ports.ErrInsufficientFunds
	}
	return w, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Available, &w.Frozen, &w.Total,
		&w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
