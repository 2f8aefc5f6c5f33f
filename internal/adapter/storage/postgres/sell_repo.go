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

// SellRepo implements ports.SellRepository.
type SellRepo struct {
	pool Pool
}

// NewSellRepo creates a new SellRepo.
func NewSellRepo(pool Pool) *SellRepo {
	return &SellRepo{pool: pool}
}

const sellColumns = `id, user_id, units, unit_price, country, total_local, payment_details_enc, status, created_at, processed_at`

// Create inserts a new sell request within a database transaction. The
// caller reserves the wallet funds in the same transaction.
func (r *SellRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Sell) error {
	query := `INSERT INTO sells (id, user_id, units, unit_price, country, total_local, payment_details_enc, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		s.ID, s.UserID, s.Units, s.UnitPrice, s.Country,
		s.TotalLocal, s.PaymentDetailsEnc, s.Status, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sell: %w", err)
	}
	return nil
}

// GetByID fetches a sell request by UUID.
func (r *SellRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sell, error) {
	query := `SELECT ` + sellColumns + ` FROM sells WHERE id = $1`
	return scanSell(r.pool.QueryRow(ctx, query, id))
}

// UpdateStatus transitions id from expected to next via compare-and-set.
func (r *SellRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, expected, next domain.RequestStatus) error {
	query := `UPDATE sells SET status = $1, processed_at = $2 WHERE id = $3 AND status = $4`

	tag, err := tx.Exec(ctx, query, next, time.Now().UTC(), id, expected)
	if err != nil {
		return fmt.Errorf("update sell status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStatusConflict
	}
	return nil
}

// ListByStatus fetches sells in the given status, newest first.
func (r *SellRepo) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]domain.Sell, error) {
	query := `SELECT ` + sellColumns + ` FROM sells WHERE status = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("list sells by status: %w", err)
	}
	return collectSells(rows)
}

// ListByUser fetches a user's sells, newest first.
func (r *SellRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Sell, error) {
	query := `SELECT ` + sellColumns + ` FROM sells WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list sells by user: %w", err)
	}
	return collectSells(rows)
}

func collectSells(rows pgx.Rows) ([]domain.Sell, error) {
	defer rows.Close()

	var sells []domain.Sell
	for rows.Next() {
		var s domain.Sell
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Units, &s.UnitPrice, &s.Country,
			&s.TotalLocal, &s.PaymentDetailsEnc, &s.Status, &s.CreatedAt, &s.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sell row: %w", err)
		}
		sells = append(sells, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sell rows: %w", err)
	}
	return sells, nil
}

func scanSell(row pgx.Row) (*domain.Sell, error) {
	s := &domain.Sell{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.Units, &s.UnitPrice, &s.Country,
		&s.TotalLocal, &s.PaymentDetailsEnc, &s.Status, &s.CreatedAt, &s.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan sell: %w", err)
	}
	return s, nil
}
