package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/internal/utils"
)

const conflictRetryDelay = 10 * time.Millisecond

// runAtomic runs fn in a store transaction. Documents are written with their
// expected version, so a concurrent writer makes the commit fail with a
// ConflictError; the whole of fn is then replayed against fresh state.
func (s *Service) runAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	operation := utils.CallerName(1)
	start := time.Now()
	attempts := 0
	maxAttempts := s.cfg.Db.MaxConflictRetries
	if maxAttempts == 0 {
		// retry-go treats zero as unlimited
		maxAttempts = 1
	}

	err := retry.Do(
		func() error {
			attempts++
			return s.db.WithTransaction(ctx, fn)
		},
		retry.Context(ctx),
		retry.Attempts(maxAttempts),
		retry.Delay(conflictRetryDelay),
		retry.MaxJitter(conflictRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.LastErrorOnly(true),
		retry.RetryIf(db.IsConflictError),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Str("operation", operation).
				Uint("attempt", n+1).
				Err(err).
				Msg("concurrent update detected, replaying operation")
		}),
	)
	metrics.RecordOperationDuration(time.Since(start), operation, attempts-1, err != nil)

	if err != nil {
		return translateError(err)
	}
	return nil
}

// translateError keeps typed business errors and turns everything else into
// an internal error.
func translateError(err error) error {
	if _, ok := types.AsError(err); ok {
		return err
	}
	if db.IsConflictError(err) {
		return types.NewStateConflictError(types.ReasonConcurrentUpdate, "%s", err.Error())
	}
	return types.NewInternalServiceError(err)
}

// emit appends an event to the outbox. It must run inside the transaction of
// the state change it describes.
func (s *Service) emit(ctx context.Context, eventType types.EventType, poolID string, payload any) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate event id: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	return s.db.SaveOutboxEvent(ctx, &model.OutboxEventDocument{
		ID:        id.String(),
		Type:      eventType,
		PoolID:    poolID,
		Payload:   string(body),
		CreatedAt: s.now(),
	})
}

func (s *Service) loadPool(ctx context.Context, poolID string) (*model.PoolDocument, error) {
	pool, err := s.db.GetPool(ctx, poolID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("pool %s not found", poolID)
		}
		return nil, fmt.Errorf("failed to get pool %s: %w", poolID, err)
	}
	return pool, nil
}

// loadBalance returns a fresh, unsaved balance for unknown participants.
func (s *Service) loadBalance(ctx context.Context, poolID, participant string) (*model.ParticipantBalanceDocument, error) {
	bal, err := s.db.GetParticipantBalance(ctx, poolID, participant)
	if err != nil {
		if db.IsNotFoundError(err) {
			return model.NewParticipantBalanceDocument(poolID, participant), nil
		}
		return nil, fmt.Errorf("failed to get balance of %s: %w", participant, err)
	}
	return bal, nil
}

func (s *Service) loadPayout(ctx context.Context, id string) (*model.PayoutDocument, error) {
	payout, err := s.db.GetPayoutByID(ctx, id)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("payout %s not found", id)
		}
		return nil, fmt.Errorf("failed to get payout %s: %w", id, err)
	}
	return payout, nil
}
