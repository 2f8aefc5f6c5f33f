package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"usdt-custody/internal/core/domain"
	"usdt-custody/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WithdrawalRepo implements ports.WithdrawalRepository.
type WithdrawalRepo struct {
	pool Pool
}

// NewWithdrawalRepo creates a new WithdrawalRepo.
func NewWithdrawalRepo(pool Pool) *WithdrawalRepo {
	return &WithdrawalRepo{pool: pool}
}

const withdrawalColumns = `id, user_id, amount, order_no, wallet_address, status, created_at, processed_at`

// Create inserts a new withdrawal request within a database transaction.
func (r *WithdrawalRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Withdrawal) error {
	query := `INSERT INTO withdrawals (id, user_id, amount, order_no, wallet_address, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.UserID, w.Amount, w.OrderNo, w.WalletAddress,
		w.Status, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetByID fetches a withdrawal request by UUID.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	return scanWithdrawal(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus transitions id from expected to next via compare-and-set.
func (r *WithdrawalRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error {
	query := `UPDATE withdrawals SET status = $1, processed_at = $2 WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, next, time.Now().UTC(), id, expected)
	if err != nil {
		return fmt.Errorf("update withdrawal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStatusConflict
	}
	return nil
}

// ListByStatus fetches withdrawals in the given status, newest first.
func (r *WithdrawalRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals by status: %w", err)
	}
	return collectWithdrawals(rows)
}

// ListByUser fetches a user's withdrawals, newest first.
func (r *WithdrawalRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals by user: %w", err)
	}
	return collectWithdrawals(rows)
}

func collectWithdrawals(rows pgx.Rows) ([]domain.Withdrawal, error) {
	defer rows.Close()

	var withdrawals []domain.Withdrawal
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.Amount, &w.OrderNo, &w.WalletAddress,
			&w.Status, &w.CreatedAt, &w.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan withdrawal row: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate withdrawal rows: %w", err)
	}
	return withdrawals, nil
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	w := &domain.Withdrawal{}
	err := row.Scan(
		&w.ID, &w.UserID, &w.Amount, &w.OrderNo, &w.WalletAddress,
		&w.Status, &w.CreatedAt, &w.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan withdrawal: %w", err)
	}
	return w, nil
}
