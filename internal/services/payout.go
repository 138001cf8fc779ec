package services

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"

	"github.com/viddhana/pool-ledger/internal/clients/transferclient"
	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/types"
	"github.com/viddhana/pool-ledger/internal/utils/state"
	"github.com/viddhana/pool-ledger/pkg"
)

type QueuePayoutRequest struct {
	PoolID      string
	Participant string
	Recipient   string
	Amount      sdkmath.Int
	// ReferenceID identifies the logical payout. Queuing the same request
	// twice returns the payout created the first time, reusing the reference
	// for a different request is a state conflict.
	ReferenceID string
}

// matchExisting returns p if it was queued by a request equal to req.
func matchExisting(p *model.PayoutDocument, req QueuePayoutRequest) (*model.PayoutDocument, error) {
	if p.PoolID != req.PoolID || p.Participant != req.Participant ||
		p.Recipient != req.Recipient || !p.Amount.Equal(req.Amount) {
		return nil, types.NewStateConflictError(types.ReasonReferenceReused,
			"reference %s is already used by payout %s with different parameters", req.ReferenceID, p.ID)
	}
	return p, nil
}

type BatchResult struct {
	Payouts map[string]*model.PayoutDocument
	Errors  map[string]error
}

// CalculateFee returns the fee and the net amount for a payout of amount:
// min(base + amount*rate, amount*capRate), never negative.
func (s *Service) CalculateFee(amount sdkmath.Int) (fee, net sdkmath.Int) {
	fee = s.fees.BaseFee.Add(s.fees.FeeRate.MulInt(amount).TruncateInt())
	capped := s.fees.FeeCapRate.MulInt(amount).TruncateInt()
	if fee.GT(capped) {
		fee = capped
	}
	if fee.IsNegative() {
		fee = sdkmath.ZeroInt()
	}
	return fee, amount.Sub(fee)
}

func (s *Service) validatePayout(req QueuePayoutRequest) error {
	if req.Amount.IsNil() || !req.Amount.IsPositive() {
		return types.NewValidationError(types.ReasonInvalidAmount, "payout amount must be positive")
	}
	if err := pkg.ValidateRecipientAddress(req.Recipient, s.btcParams); err != nil {
		return types.NewValidationError(types.ReasonInvalidRecipient, "invalid recipient: %s", err)
	}
	if req.ReferenceID == "" {
		return types.NewValidationError(types.ReasonInvalidReference, "reference id is required")
	}
	if req.Participant == "" {
		return types.NewValidationError(types.ReasonInvalidParticipant, "participant is required")
	}
	if req.Amount.LT(s.fees.MinPayout) {
		return types.NewValidationError(types.ReasonBelowMinimumPayout,
			"payout of %s is below the minimum of %s", req.Amount, s.fees.MinPayout)
	}
	if _, net := s.CalculateFee(req.Amount); !net.IsPositive() {
		return types.NewValidationError(types.ReasonAmountTooSmall,
			"payout of %s does not cover its fee", req.Amount)
	}
	return nil
}

// QueuePayout records a pending payout. It is idempotent on ReferenceID.
func (s *Service) QueuePayout(ctx context.Context, req QueuePayoutRequest) (*model.PayoutDocument, error) {
	if err := s.validatePayout(req); err != nil {
		return nil, err
	}

	var payout *model.PayoutDocument
	var created bool
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		var err error
		payout, created, err = s.queuePayout(ctx, req, model.PayoutSourceRequest)
		return err
	})
	if err != nil {
		// lost the race against a concurrent request with the same reference
		if db.IsDuplicateKeyError(err) {
			existing, getErr := s.db.GetPayoutByReferenceID(ctx, req.ReferenceID)
			if getErr == nil {
				return matchExisting(existing, req)
			}
		}
		return nil, err
	}

	if created {
		metrics.IncPayoutStatus(types.PayoutStatusPending.String())
		log.Ctx(ctx).Info().
			Str("payout_id", payout.ID).
			Str("reference_id", payout.ReferenceID).
			Stringer("amount", payout.Amount).
			Msg("payout queued")
	}
	return payout, nil
}

// queuePayout must run inside a transaction.
func (s *Service) queuePayout(
	ctx context.Context, req QueuePayoutRequest, source string,
) (*model.PayoutDocument, bool, error) {
	existing, err := s.db.GetPayoutByReferenceID(ctx, req.ReferenceID)
	if err == nil {
		existing, err = matchExisting(existing, req)
		return existing, false, err
	}
	if !db.IsNotFoundError(err) {
		return nil, false, fmt.Errorf("failed to look up payout reference %s: %w", req.ReferenceID, err)
	}

	if _, err := s.loadPool(ctx, req.PoolID); err != nil {
		return nil, false, err
	}
	breaker, err := s.circuitBreaker(ctx, req.PoolID)
	if err != nil {
		return nil, false, err
	}
	if breaker.Active {
		return nil, false, breakerError(breaker)
	}

	now := s.now()
	fee, net := s.CalculateFee(req.Amount)
	payout := &model.PayoutDocument{
		ID:          uuid.NewString(),
		ReferenceID: req.ReferenceID,
		PoolID:      req.PoolID,
		Participant: req.Participant,
		Recipient:   req.Recipient,
		Amount:      req.Amount,
		Fee:         fee,
		NetAmount:   net,
		Status:      types.PayoutStatusPending,
		Source:      source,
		CreatedAt:   now,
	}
	if err := s.db.SaveNewPayout(ctx, payout); err != nil {
		return nil, false, err
	}

	return payout, true, s.emit(ctx, types.EventPayoutQueued, req.PoolID, PayoutQueuedEvent{
		PayoutID:    payout.ID,
		ReferenceID: payout.ReferenceID,
		PoolID:      payout.PoolID,
		Participant: payout.Participant,
		Recipient:   payout.Recipient,
		Amount:      payout.Amount,
		Source:      source,
		Timestamp:   now,
	})
}

// ProcessPayout submits a pending payout for transfer. Payouts already in a
// final state are returned unchanged. A payout whose transfer outcome is
// unknown stays in processing and is reported as a transient error.
func (s *Service) ProcessPayout(ctx context.Context, id string) (*model.PayoutDocument, error) {
	payout, err := s.beginProcessing(ctx, id)
	if err != nil {
		return nil, err
	}
	if payout.Status != types.PayoutStatusProcessing {
		return payout, nil
	}

	transferRef, err := s.transfer.SubmitTransfer(ctx, payout.Recipient, payout.NetAmount, transferReference(payout))
	if err != nil {
		return s.failProcessing(ctx, payout, err)
	}
	return s.completeProcessing(ctx, payout, transferRef)
}

// transferReference changes with every retry so that a new attempt is not
// deduplicated against the failed one by the transfer service.
func transferReference(p *model.PayoutDocument) string {
	return fmt.Sprintf("%s-%d", p.ID, p.RetryCount)
}

// beginProcessing reserves daily quota and moves the payout to processing in
// one transaction. Only one caller can win the pending -> processing update.
func (s *Service) beginProcessing(ctx context.Context, id string) (*model.PayoutDocument, error) {
	var result *model.PayoutDocument
	var dailyTotal sdkmath.Int
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		p, err := s.loadPayout(ctx, id)
		if err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			result = p
			return nil
		}
		if p.Status == types.PayoutStatusProcessing {
			return types.NewStateConflictError(types.ReasonPayoutInProgress, "payout %s is already processing", id)
		}

		breaker, err := s.circuitBreaker(ctx, p.PoolID)
		if err != nil {
			return err
		}
		if breaker.Active {
			return breakerError(breaker)
		}

		now := s.now()
		params, err := s.riskParameters(ctx, p.PoolID)
		if err != nil {
			return err
		}
		dw, err := s.dailyWithdrawal(ctx, p.PoolID, now)
		if err != nil {
			return err
		}
		if params.MaxDailyWithdrawal != nil && dw.Total.Add(p.Amount).GT(*params.MaxDailyWithdrawal) {
			return types.NewStateConflictError(types.ReasonDailyLimitExceeded,
				"payout of %s exceeds the remaining daily limit of %s",
				p.Amount, params.MaxDailyWithdrawal.Sub(dw.Total))
		}
		dw.Total = dw.Total.Add(p.Amount)
		if err := s.db.SaveDailyWithdrawal(ctx, dw); err != nil {
			return err
		}
		dailyTotal = dw.Total

		fee, net := s.CalculateFee(p.Amount)
		result, err = s.db.UpdatePayoutStatus(ctx, id,
			types.QualifiedStatesForProcessing(), types.PayoutStatusProcessing,
			db.WithFee(fee, net),
			db.WithQuotaWindow(dw.WindowStart),
			db.WithProcessedAt(now),
		)
		if err != nil {
			if db.IsNotFoundError(err) {
				return types.NewStateConflictError(types.ReasonPayoutInProgress,
					"payout %s was picked up by another worker", id)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Status == types.PayoutStatusProcessing {
		metrics.IncPayoutStatus(types.PayoutStatusProcessing.String())
		metrics.RecordDailyWithdrawn(result.PoolID, unitsFloat(dailyTotal))
	}
	return result, nil
}

func (s *Service) completeProcessing(
	ctx context.Context, p *model.PayoutDocument, transferRef string,
) (*model.PayoutDocument, error) {
	var result *model.PayoutDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		now := s.now()
		var err error
		result, err = s.db.UpdatePayoutStatus(ctx, p.ID,
			types.QualifiedStatesForCompletion(), types.PayoutStatusCompleted,
			db.WithTransferRef(transferRef),
			db.WithConfirmedAt(now),
		)
		if err != nil {
			return err
		}

		treasury, err := s.db.GetTreasury(ctx, p.PoolID)
		if err != nil {
			if !db.IsNotFoundError(err) {
				return err
			}
			treasury = model.NewTreasuryDocument(p.PoolID)
		}
		treasury.FeesCollected = treasury.FeesCollected.Add(result.Fee)
		treasury.UpdatedAt = now
		if err := s.db.SaveTreasury(ctx, treasury); err != nil {
			return err
		}

		return s.emit(ctx, types.EventPayoutProcessed, p.PoolID, PayoutProcessedEvent{
			PayoutID:    p.ID,
			PoolID:      p.PoolID,
			Participant: p.Participant,
			Status:      types.PayoutStatusCompleted,
			Amount:      result.Amount,
			Fee:         result.Fee,
			NetAmount:   result.NetAmount,
			TransferRef: transferRef,
			Timestamp:   now,
		})
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).
			Str("payout_id", p.ID).
			Str("transfer_ref", transferRef).
			Msg("transfer submitted but payout could not be completed")
		return nil, err
	}

	metrics.IncPayoutStatus(types.PayoutStatusCompleted.String())
	log.Ctx(ctx).Info().
		Str("payout_id", p.ID).
		Str("transfer_ref", transferRef).
		Stringer("net_amount", result.NetAmount).
		Msg("payout completed")
	return result, nil
}

func (s *Service) failProcessing(
	ctx context.Context, p *model.PayoutDocument, transferErr error,
) (*model.PayoutDocument, error) {
	var kind types.FailureKind
	switch {
	case transferclient.IsRejected(transferErr):
		kind = types.FailureKindPermanent
	case transferclient.IsUnavailable(transferErr):
		kind = types.FailureKindTransient
	default:
		// the transfer may have gone through, an operator has to reconcile
		log.Ctx(ctx).Error().Err(transferErr).
			Str("payout_id", p.ID).
			Str("reference", transferReference(p)).
			Msg("transfer outcome unknown, payout left in processing")
		return p, types.NewTransientError(
			fmt.Errorf("transfer outcome of payout %s is unknown: %w", p.ID, transferErr))
	}

	var result *model.PayoutDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		now := s.now()
		dw, err := s.dailyWithdrawal(ctx, p.PoolID, now)
		if err != nil {
			return err
		}
		// quota reserved in an earlier window has already expired with it
		if p.QuotaWindow != nil && dw.WindowStart.Equal(*p.QuotaWindow) {
			dw.Total = dw.Total.Sub(p.Amount)
			if dw.Total.IsNegative() {
				dw.Total = sdkmath.ZeroInt()
			}
			if err := s.db.SaveDailyWithdrawal(ctx, dw); err != nil {
				return err
			}
		}

		result, err = s.db.UpdatePayoutStatus(ctx, p.ID,
			types.QualifiedStatesForCompletion(), types.PayoutStatusFailed,
			db.WithFailure(kind, transferErr.Error(), now),
			db.WithoutQuotaWindow(),
		)
		if err != nil {
			return err
		}

		return s.emit(ctx, types.EventPayoutProcessed, p.PoolID, PayoutProcessedEvent{
			PayoutID:     p.ID,
			PoolID:       p.PoolID,
			Participant:  p.Participant,
			Status:       types.PayoutStatusFailed,
			Amount:       result.Amount,
			Fee:          result.Fee,
			NetAmount:    result.NetAmount,
			ErrorMessage: transferErr.Error(),
			Timestamp:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayoutStatus(types.PayoutStatusFailed.String())
	log.Ctx(ctx).Warn().Err(transferErr).
		Str("payout_id", p.ID).
		Stringer("failure_kind", kind).
		Msg("payout failed")
	return result, nil
}

// ProcessBatchPayout processes up to MaxBatchSize payouts concurrently. A
// failing payout does not affect the others; its error is reported per id.
func (s *Service) ProcessBatchPayout(ctx context.Context, ids []string) (*BatchResult, error) {
	if len(ids) > s.cfg.Payout.MaxBatchSize {
		return nil, types.NewStateConflictError(types.ReasonBatchTooLarge,
			"batch of %d payouts exceeds the maximum of %d", len(ids), s.cfg.Payout.MaxBatchSize)
	}

	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	type outcome struct {
		payout *model.PayoutDocument
		err    error
	}
	mapper := iter.Mapper[string, outcome]{MaxGoroutines: s.cfg.Payout.BatchConcurrency}
	outcomes := mapper.Map(unique, func(id *string) outcome {
		p, err := s.ProcessPayout(ctx, *id)
		return outcome{payout: p, err: err}
	})

	result := &BatchResult{
		Payouts: make(map[string]*model.PayoutDocument, len(unique)),
		Errors:  make(map[string]error),
	}
	statuses := make(map[types.PayoutStatus]int)
	for i, o := range outcomes {
		id := unique[i]
		if o.payout != nil {
			result.Payouts[id] = o.payout
			statuses[o.payout.Status]++
		}
		if o.err != nil {
			result.Errors[id] = o.err
		}
	}

	err := s.runAtomic(ctx, func(ctx context.Context) error {
		return s.emit(ctx, types.EventPayoutBatchProcessed, "", PayoutBatchProcessedEvent{
			Requested: len(unique),
			Statuses:  statuses,
			Errors:    len(result.Errors),
			Timestamp: s.now(),
		})
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to record batch summary")
	}

	log.Ctx(ctx).Info().
		Int("requested", len(unique)).
		Int("errors", len(result.Errors)).
		Msg("payout batch processed")
	return result, nil
}

// CancelPayout is only possible while the payout is pending.
func (s *Service) CancelPayout(ctx context.Context, id string) (*model.PayoutDocument, error) {
	var result *model.PayoutDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		now := s.now()
		var err error
		result, err = s.db.UpdatePayoutStatus(ctx, id,
			types.QualifiedStatesForCancel(), types.PayoutStatusCancelled,
			db.WithCancelledAt(now),
		)
		if err != nil {
			if !db.IsNotFoundError(err) {
				return err
			}
			p, loadErr := s.loadPayout(ctx, id)
			if loadErr != nil {
				return loadErr
			}
			return cancelRejection(p)
		}

		return s.emit(ctx, types.EventPayoutCancelled, result.PoolID, PayoutCancelledEvent{
			PayoutID:  id,
			PoolID:    result.PoolID,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayoutStatus(types.PayoutStatusCancelled.String())
	log.Ctx(ctx).Info().Str("payout_id", id).Msg("payout cancelled")
	return result, nil
}

func cancelRejection(p *model.PayoutDocument) error {
	if state.IsQualifiedStateForPayoutStatusChange(p.Status, types.PayoutStatusCancelled) {
		// status changed between the update and the read
		return types.NewStateConflictError(types.ReasonConcurrentUpdate, "payout %s changed concurrently", p.ID)
	}
	if p.Status == types.PayoutStatusProcessing {
		return types.NewStateConflictError(types.ReasonPayoutInProgress, "payout %s is processing", p.ID)
	}
	return types.NewStateConflictError(types.ReasonPayoutNotCancellable,
		"payout %s is %s and can no longer be cancelled", p.ID, p.Status)
}

func (s *Service) GetPayout(ctx context.Context, id string) (*model.PayoutDocument, error) {
	p, err := s.loadPayout(ctx, id)
	if err != nil {
		return nil, translateError(err)
	}
	return p, nil
}

func (s *Service) ListPayouts(ctx context.Context, poolID, participant string) ([]*model.PayoutDocument, error) {
	payouts, err := s.db.ListPayoutsByParticipant(ctx, poolID, participant)
	if err != nil {
		return nil, translateError(err)
	}
	return payouts, nil
}

// isBusinessError reports whether err is an expected rejection rather than an
// infrastructure fault.
func isBusinessError(err error) bool {
	code := types.CodeOf(err)
	return code != types.InternalServiceError && code != types.TransientError && !errors.Is(err, context.Canceled)
}
