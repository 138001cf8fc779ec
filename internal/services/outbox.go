package services

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/queue"
	"github.com/viddhana/pool-ledger/internal/types"
)

// RelayOutbox publishes unpublished events in creation order. It stops at the
// first publishing failure so that consumers never see events out of order;
// the remaining events are picked up on the next run.
func (s *Service) RelayOutbox(ctx context.Context) error {
	if s.publisher == nil {
		return nil
	}

	events, err := s.db.FindUnpublishedEvents(ctx, s.cfg.Poller.OutboxBatchLimit)
	if err != nil {
		return translateError(err)
	}

	published := 0
	defer func() {
		metrics.RecordOutboxUnpublished(len(events) - published)
	}()

	for _, ev := range events {
		msg := queue.Message{
			ID:        ev.ID,
			Type:      ev.Type.String(),
			PoolID:    ev.PoolID,
			Body:      []byte(ev.Payload),
			CreatedAt: ev.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("event_id", ev.ID).
				Stringer("type", ev.Type).
				Msg("failed to publish event, will retry")
			return types.NewTransientError(err)
		}
		if err := s.db.MarkEventPublished(ctx, ev.ID, s.now()); err != nil {
			// the event will be published again, consumers dedupe on id
			return translateError(err)
		}
		published++
	}

	if published > 0 {
		log.Ctx(ctx).Debug().Int("published", published).Msg("outbox events relayed")
	}
	return nil
}
