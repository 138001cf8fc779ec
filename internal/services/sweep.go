package services

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/internal/utils"
)

// maxStuckPayouts bounds a single stuck payout scan.
const maxStuckPayouts = 1000

type sweepOutcome int

const (
	sweepSkipped sweepOutcome = iota
	sweepQueued
)

// RunAutoSweep queues a payout for every participant whose pending rewards
// reached their threshold, then processes the pending payouts.
func (s *Service) RunAutoSweep(ctx context.Context) error {
	pools, err := s.db.ListPools(ctx)
	if err != nil {
		return translateError(err)
	}

	var queued, failed int
	for _, pool := range pools {
		breaker, err := s.circuitBreaker(ctx, pool.ID)
		if err != nil {
			return translateError(err)
		}
		if breaker.Active {
			log.Ctx(ctx).Debug().Str("pool_id", pool.ID).Msg("circuit breaker active, pool skipped by sweep")
			continue
		}

		afterID := ""
		for {
			thresholds, err := s.db.ListPayoutThresholds(ctx, pool.ID, afterID, s.cfg.Payout.SweepPageSize)
			if err != nil {
				return translateError(err)
			}
			for _, th := range thresholds {
				outcome, err := s.sweepParticipant(ctx, th)
				if err != nil {
					failed++
					logSweepError(ctx, err, th)
					continue
				}
				if outcome == sweepQueued {
					queued++
				}
			}
			if int64(len(thresholds)) < s.cfg.Payout.SweepPageSize {
				break
			}
			afterID = thresholds[len(thresholds)-1].ID
		}
	}

	log.Ctx(ctx).Info().Int("queued", queued).Int("failed", failed).Msg("automatic sweep finished")
	return s.processPending(ctx)
}

func logSweepError(ctx context.Context, err error, th *model.PayoutThresholdDocument) {
	event := log.Ctx(ctx).Error()
	if isBusinessError(err) {
		event = log.Ctx(ctx).Warn()
	}
	event.Err(err).
		Str("pool_id", th.PoolID).
		Str("participant", th.Participant).
		Msg("failed to sweep participant")
}

// sweepParticipant claims and queues in one transaction, so a claimed amount
// is never left without a payout.
func (s *Service) sweepParticipant(ctx context.Context, th *model.PayoutThresholdDocument) (sweepOutcome, error) {
	outcome := sweepSkipped
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		outcome = sweepSkipped

		outstanding, err := s.db.HasOutstandingPayout(ctx, th.PoolID, th.Participant)
		if err != nil {
			return err
		}
		if outstanding {
			return nil
		}

		pool, err := s.loadPool(ctx, th.PoolID)
		if err != nil {
			return err
		}

		now := s.now()
		pending, err := s.pendingAt(ctx, pool, th.Participant, now)
		if err != nil {
			return err
		}
		if pending.LT(th.Threshold) {
			return nil
		}

		amount, err := s.claim(ctx, pool, th.Participant, now)
		if err != nil {
			return err
		}

		req := QueuePayoutRequest{
			PoolID:      th.PoolID,
			Participant: th.Participant,
			Recipient:   th.Recipient,
			Amount:      amount,
			ReferenceID: fmt.Sprintf("sweep-%s-%d", th.ID, now.Unix()),
		}
		if err := s.validatePayout(req); err != nil {
			return err
		}
		if _, _, err := s.queuePayout(ctx, req, model.PayoutSourceSweep); err != nil {
			return err
		}
		outcome = sweepQueued
		return nil
	})
	if err == nil && outcome == sweepQueued {
		metrics.IncPayoutStatus(types.PayoutStatusPending.String())
	}
	return outcome, err
}

func (s *Service) pendingAt(
	ctx context.Context, pool *model.PoolDocument, participant string, now time.Time,
) (sdkmath.Int, error) {
	bal, err := s.loadBalance(ctx, pool.ID, participant)
	if err != nil {
		return sdkmath.Int{}, err
	}
	r, err := s.loadRewards(ctx, pool.ID, now)
	if err != nil {
		return sdkmath.Int{}, err
	}
	r.accrue(pool.TotalShares, now)
	return s.pending(ctx, r, bal)
}

// processPending runs the oldest pending payouts through ProcessPayout in
// batches.
func (s *Service) processPending(ctx context.Context) error {
	pending, err := s.db.FindPayoutsByStatus(ctx, types.PayoutStatusPending, s.cfg.Payout.SweepPageSize)
	if err != nil {
		return translateError(err)
	}

	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
	}

	for len(ids) > 0 {
		n := min(len(ids), s.cfg.Payout.MaxBatchSize)
		result, err := s.ProcessBatchPayout(ctx, ids[:n])
		if err != nil {
			return err
		}
		for id, err := range result.Errors {
			if isBusinessError(err) {
				log.Ctx(ctx).Debug().Err(err).Str("payout_id", id).Msg("pending payout not processed")
				continue
			}
			log.Ctx(ctx).Error().Err(err).Str("payout_id", id).Msg("failed to process pending payout")
		}
		ids = ids[n:]
	}
	return nil
}

// RunRetrySweep moves recently failed payouts back to pending and processes
// them again. Payouts that failed before the retry window, or were already
// retried max-sweep-retries times, are left for an operator.
func (s *Service) RunRetrySweep(ctx context.Context) error {
	since := s.now().Add(-s.cfg.Payout.RetryWindow)
	payouts, err := s.db.FindRetryablePayouts(ctx, since, s.cfg.Payout.MaxSweepRetries, s.cfg.Payout.SweepPageSize)
	if err != nil {
		return translateError(err)
	}

	var retried int
	for _, p := range payouts {
		err := s.runAtomic(ctx, func(ctx context.Context) error {
			_, err := s.db.UpdatePayoutStatus(ctx, p.ID,
				types.QualifiedStatesForRetry(), types.PayoutStatusPending,
				db.WithClearedFailure(),
				db.WithRetryIncrement(),
			)
			if db.IsNotFoundError(err) {
				// already moved on by someone else
				return nil
			}
			return err
		})
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("payout_id", p.ID).Msg("failed to requeue payout")
			continue
		}

		retried++
		metrics.IncPayoutStatus(types.PayoutStatusPending.String())
		if _, err := s.ProcessPayout(ctx, p.ID); err != nil {
			log.Ctx(ctx).Warn().Err(err).
				Str("payout_id", p.ID).
				Int("retry", p.RetryCount+1).
				Msg("retried payout not processed")
		}
	}

	if len(payouts) > 0 {
		log.Ctx(ctx).Info().Int("retried", retried).Msg("retry sweep finished")
	}
	return nil
}

// RunStuckCheck reports payouts that have been processing for too long. They
// need an operator to reconcile them with the transfer service.
func (s *Service) RunStuckCheck(ctx context.Context) error {
	before := s.now().Add(-s.cfg.Poller.StuckPayoutAlertAfter)
	stuck, err := s.db.FindStuckPayouts(ctx, before, maxStuckPayouts)
	if err != nil {
		return translateError(err)
	}

	for _, p := range stuck {
		log.Ctx(ctx).Error().
			Str("payout_id", p.ID).
			Str("pool_id", p.PoolID).
			Time("processed_at", utils.Deref(p.ProcessedAt)).
			Msg("payout stuck in processing")
	}
	metrics.RecordStuckPayoutsCount(len(stuck))
	return nil
}

