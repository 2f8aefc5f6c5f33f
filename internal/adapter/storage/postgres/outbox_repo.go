package postgres

import (
	"context"
	"fmt"
	"time"

	"usdt-custody/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// OutboxRepo implements ports.OutboxRepository.
type OutboxRepo struct {
	pool Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(pool Pool) *OutboxRepo {
	return &OutboxRepo{pool: pool}
}

// Create appends an event within the same transaction as the wallet and
// request writes it describes.
func (r *OutboxRepo) Create(ctx context.Context, tx pgx.Tx, evt *domain.OutboxEvent) error {
	query := `INSERT INTO event_outbox (aggregate, aggregate_id, event_type, payload, created_at, processed)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		RETURNING id`

	err := tx.QueryRow(ctx, query,
		evt.Aggregate, evt.AggregateID, evt.EventType, evt.Payload, evt.CreatedAt,
	).Scan(&evt.ID)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// ListUnprocessed fetches up to limit undispatched events, oldest first.
func (r *OutboxRepo) ListUnprocessed(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	query := `SELECT id, aggregate, aggregate_id, event_type, payload, created_at, processed, processed_at
		FROM event_outbox WHERE processed = FALSE ORDER BY id ASC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(
			&e.ID, &e.Aggregate, &e.AggregateID, &e.EventType,
			&e.Payload, &e.CreatedAt, &e.Processed, &e.ProcessedAt,
		); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return events, nil
}

// MarkProcessed flags an event as dispatched.
func (r *OutboxRepo) MarkProcessed(ctx context.Context, id int64) error {
	query := `UPDATE event_outbox SET processed = TRUE, processed_at = $1 WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("outbox event not found: %d", id)
	}
	return nil
}
