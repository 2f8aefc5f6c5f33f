package service

import (
	"context"
	"time"

	"usdt-custody/internal/core/ports"

	"github.com/rs/zerolog"
)

// NotifierService drains the event outbox into the message broker.
//
// Delivery is best effort: an event is marked processed whether or not the
// publish succeeded, so a dead broker degrades notifications but never
// blocks or retries balance work. Failures are logged and dropped.
type NotifierService struct {
	outboxRepo ports.OutboxRepository
	publisher  ports.EventPublisher
	interval   time.Duration
	batch      int
	log        zerolog.Logger
}

// NewNotifierService creates a new NotifierService.
func NewNotifierService(
	outboxRepo ports.OutboxRepository,
	publisher ports.EventPublisher,
	interval time.Duration,
	batch int,
	log zerolog.Logger,
) *NotifierService {
	return &NotifierService{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		interval:   interval,
		batch:      batch,
		log:        log,
	}
}

// Run polls until ctx is cancelled.
func (s *NotifierService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.interval).
		Int("batch", s.batch).
		Msg("notifier started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("notifier stopped")
			return ctx.Err()
		case <-ticker.C:
			s.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch dispatches one batch of unprocessed events.
func (s *NotifierService) ProcessBatch(ctx context.Context) {
	events, err := s.outboxRepo.ListUnprocessed(ctx, s.batch)
	if err != nil {
		s.log.Error().Err(err).Msg("poll outbox failed")
		return
	}

	for i := range events {
		evt := &events[i]
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.log.Error().
				Err(err).
				Int64("event_id", evt.ID).
				Str("event_type", evt.EventType).
				Msg("publish failed, dropping event")
		}
		if err := s.outboxRepo.MarkProcessed(ctx, evt.ID); err != nil {
			s.log.Error().Err(err).Int64("event_id", evt.ID).Msg("mark processed failed")
			continue
		}
		s.log.Debug().Int64("event_id", evt.ID).Msg("event dispatched")
	}
}
