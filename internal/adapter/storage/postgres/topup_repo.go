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

// TopUpRepo implements ports.TopUpRepository.
type TopUpRepo struct {
	pool Pool
}

// NewTopUpRepo creates a new TopUpRepo.
func NewTopUpRepo(pool Pool) *TopUpRepo {
	return &TopUpRepo{pool: pool}
}

const topupColumns = `id, user_id, amount, order_no, tx_reference, screenshot_url, status, created_at, processed_at`

// Create inserts a new top-up request within a database transaction.
func (r *TopUpRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.TopUp) error {
	query := `INSERT INTO topups (id, user_id, amount, order_no, tx_reference, screenshot_url, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.UserID, t.Amount, t.OrderNo, t.TxReference,
		t.ScreenshotURL, t.Status, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert topup: %w", err)
	}
	return nil
}

// GetByID fetches a top-up request by UUID.
func (r *TopUpRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TopUp, error) {
	query := `SELECT ` + topupColumns + ` FROM topups WHERE id = $1`
	return scanTopUp(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus transitions id from expected to next via compare-and-set.
// Zero rows affected means a concurrent resolver won the race.
func (r *TopUpRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error {
	query := `UPDATE topups SET status = $1, processed_at = $2 WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, next, time.Now().UTC(), id, expected)
	if err != nil {
		return fmt.Errorf("update topup status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStatusConflict
	}
	return nil
}

// ListByStatus fetches top-ups in the given status, newest first.
func (r *TopUpRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.TopUp, error) {
	query := `SELECT ` + topupColumns + ` FROM topups WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list topups by status: %w", err)
	}
	return collectTopUps(rows)
}

// ListByUser fetches a user's top-ups, newest first.
func (r *TopUpRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.TopUp, error) {
	query := `SELECT ` + topupColumns + ` FROM topups WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list topups by user: %w", err)
	}
	return collectTopUps(rows)
}

func collectTopUps(rows pgx.Rows) ([]domain.TopUp, error) {
	defer rows.Close()

	var topups []domain.TopUp
	for rows.Next() {
		var t domain.TopUp
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.OrderNo, &t.TxReference,
			&t.ScreenshotURL, &t.Status, &t.CreatedAt, &t.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan topup row: %w", err)
		}
		topups = append(topups, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topup rows: %w", err)
	}
	return topups, nil
}

func scanTopUp(row pgx.Row) (*domain.TopUp, error) {
	t := &domain.TopUp{}
	err := row.Scan(
		&t.ID, &t.UserID, &t.Amount, &t.OrderNo, &t.TxReference,
		&t.ScreenshotURL, &t.Status, &t.CreatedAt, &t.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan topup: %w", err)
	}
	return t, nil
}
