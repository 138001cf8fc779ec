package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/access"
	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/types"
)

// systemActor is recorded when the risk controller trips the breaker itself.
const systemActor = "risk-controller"

const thresholdTripReason = "withdrawal threshold exceeded"

// RiskStatus is the read model of a pool's risk controls.
type RiskStatus struct {
	Parameters      *model.RiskParametersDocument
	CircuitBreaker  *model.CircuitBreakerDocument
	DailyWithdrawal *model.DailyWithdrawalDocument
	// DailyRemaining is nil when the daily withdrawal cap is unlimited.
	DailyRemaining *sdkmath.Int
}

// breakerTripError rejects a withdrawal that must also trip the breaker. The
// trip is persisted after the rejected transaction has rolled back.
type breakerTripError struct {
	poolID string
	err    *types.Error
}

func (e *breakerTripError) Error() string {
	return e.err.Error()
}

func (e *breakerTripError) Unwrap() error {
	return e.err
}

func (s *Service) riskParameters(ctx context.Context, poolID string) (*model.RiskParametersDocument, error) {
	params, err := s.db.GetRiskParameters(ctx, poolID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return &model.RiskParametersDocument{PoolID: poolID}, nil
		}
		return nil, fmt.Errorf("failed to get risk parameters of %s: %w", poolID, err)
	}
	return params, nil
}

func (s *Service) circuitBreaker(ctx context.Context, poolID string) (*model.CircuitBreakerDocument, error) {
	breaker, err := s.db.GetCircuitBreaker(ctx, poolID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return &model.CircuitBreakerDocument{PoolID: poolID}, nil
		}
		return nil, fmt.Errorf("failed to get circuit breaker of %s: %w", poolID, err)
	}
	return breaker, nil
}

// dailyWithdrawal returns the accumulator for the window containing now. A
// window that has rolled over is reset in memory; the caller persists it.
func (s *Service) dailyWithdrawal(ctx context.Context, poolID string, now time.Time) (*model.DailyWithdrawalDocument, error) {
	dw, err := s.db.GetDailyWithdrawal(ctx, poolID)
	if err != nil {
		if db.IsNotFoundError(err) {
			return model.NewDailyWithdrawalDocument(poolID, s.windowMode.OpenWindow(now)), nil
		}
		return nil, fmt.Errorf("failed to get daily withdrawals of %s: %w", poolID, err)
	}

	if s.windowMode.Expired(dw.WindowStart, now) {
		log.Ctx(ctx).Debug().
			Str("pool_id", poolID).
			Time("previous_window", dw.WindowStart).
			Msg("daily withdrawal window rolled over")
		dw.WindowStart = s.windowMode.OpenWindow(now)
		dw.Total = sdkmath.ZeroInt()
	}
	return dw, nil
}

func breakerError(breaker *model.CircuitBreakerDocument) error {
	return types.NewStateConflictError(types.ReasonCircuitBreakerActive,
		"circuit breaker of pool %s is active: %s", breaker.PoolID, breaker.Reason)
}

// checkDeposit approves a deposit of amount by bal into pool.
func (s *Service) checkDeposit(
	ctx context.Context, pool *model.PoolDocument, bal *model.ParticipantBalanceDocument, amount sdkmath.Int,
) error {
	breaker, err := s.circuitBreaker(ctx, pool.ID)
	if err != nil {
		return err
	}
	if breaker.Active {
		return breakerError(breaker)
	}

	params, err := s.riskParameters(ctx, pool.ID)
	if err != nil {
		return err
	}

	if params.MaxTVL != nil && pool.TVL.Add(amount).GT(*params.MaxTVL) {
		return types.NewStateConflictError(types.ReasonTVLCapExceeded,
			"deposit of %s would bring TVL to %s, above the cap of %s",
			amount, pool.TVL.Add(amount), *params.MaxTVL)
	}

	if params.MaxDeposit != nil {
		if amount.GT(*params.MaxDeposit) {
			return types.NewStateConflictError(types.ReasonDepositCapExceeded,
				"deposit of %s exceeds the per participant cap of %s", amount, *params.MaxDeposit)
		}
		position := types.ValueOfShares(bal.Shares, pool.ExchangeRate).Add(amount)
		if position.GT(*params.MaxDeposit) {
			return types.NewStateConflictError(types.ReasonDepositCapExceeded,
				"position of %s would reach %s, above the per participant cap of %s",
				bal.Participant, position, *params.MaxDeposit)
		}
	}
	return nil
}

// checkWithdrawal approves moving value out of pool. It does not reserve
// daily quota, that happens when the value is paid out.
func (s *Service) checkWithdrawal(ctx context.Context, pool *model.PoolDocument, value sdkmath.Int, now time.Time) error {
	breaker, err := s.circuitBreaker(ctx, pool.ID)
	if err != nil {
		return err
	}
	if breaker.Active {
		return breakerError(breaker)
	}

	params, err := s.riskParameters(ctx, pool.ID)
	if err != nil {
		return err
	}

	if params.BreakerThreshold != nil && pool.TVL.IsPositive() {
		limit := params.BreakerThreshold.MulInt(pool.TVL).TruncateInt()
		if value.GT(limit) {
			return &breakerTripError{
				poolID: pool.ID,
				err: types.NewStateConflictError(types.ReasonCircuitBreakerActive,
					"withdrawal of %s exceeds %s of TVL, circuit breaker tripped", value, *params.BreakerThreshold),
			}
		}
	}

	if params.MaxDailyWithdrawal != nil {
		dw, err := s.dailyWithdrawal(ctx, pool.ID, now)
		if err != nil {
			return err
		}
		if dw.Total.Add(value).GT(*params.MaxDailyWithdrawal) {
			return types.NewStateConflictError(types.ReasonDailyLimitExceeded,
				"withdrawal of %s exceeds the remaining daily limit of %s",
				value, params.MaxDailyWithdrawal.Sub(dw.Total))
		}
	}
	return nil
}

// CheckDeposit reports whether a deposit would currently be approved.
func (s *Service) CheckDeposit(ctx context.Context, poolID, participant string, amount sdkmath.Int) error {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return translateError(err)
	}
	bal, err := s.loadBalance(ctx, poolID, participant)
	if err != nil {
		return translateError(err)
	}
	if err := s.checkDeposit(ctx, pool, bal, amount); err != nil {
		return translateError(err)
	}
	return nil
}

// CheckWithdrawal reports whether moving value out of the pool would
// currently be approved.
func (s *Service) CheckWithdrawal(ctx context.Context, poolID string, value sdkmath.Int) error {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return translateError(err)
	}
	if err := s.checkWithdrawal(ctx, pool, value, s.now()); err != nil {
		var trip *breakerTripError
		if errors.As(err, &trip) {
			return trip.err
		}
		return translateError(err)
	}
	return nil
}

// TriggerCircuitBreaker stops every value moving operation on the pool.
// Triggering an active breaker is a no-op.
func (s *Service) TriggerCircuitBreaker(
	ctx context.Context, actor, poolID, reason string,
) (*model.CircuitBreakerDocument, error) {
	if err := access.Require(s.access, actor, types.RoleCircuitBreaker); err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, types.NewValidationError(types.ReasonNone, "a reason is required to trigger the circuit breaker")
	}
	return s.tripBreaker(ctx, poolID, actor, reason)
}

func (s *Service) tripBreaker(ctx context.Context, poolID, actor, reason string) (*model.CircuitBreakerDocument, error) {
	var result *model.CircuitBreakerDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.loadPool(ctx, poolID); err != nil {
			return err
		}
		breaker, err := s.circuitBreaker(ctx, poolID)
		if err != nil {
			return err
		}
		result = breaker
		if breaker.Active {
			return nil
		}

		now := s.now()
		breaker.Active = true
		breaker.Reason = reason
		breaker.TriggeredAt = &now
		breaker.TriggeredBy = actor
		if err := s.db.SaveCircuitBreaker(ctx, breaker); err != nil {
			return err
		}
		return s.emit(ctx, types.EventCircuitBreakerTriggered, poolID, CircuitBreakerEvent{
			PoolID:    poolID,
			Active:    true,
			Reason:    reason,
			Actor:     actor,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCircuitBreaker(poolID, true)
	log.Ctx(ctx).Warn().
		Str("pool_id", poolID).
		Str("actor", actor).
		Str("reason", result.Reason).
		Msg("circuit breaker active")
	return result, nil
}

// ResetCircuitBreaker clears the breaker. Only an admin may reset, holding
// the circuit-breaker role is not enough.
func (s *Service) ResetCircuitBreaker(ctx context.Context, actor, poolID string) (*model.CircuitBreakerDocument, error) {
	if err := access.Require(s.access, actor, types.RoleAdmin); err != nil {
		return nil, err
	}

	var result *model.CircuitBreakerDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.loadPool(ctx, poolID); err != nil {
			return err
		}
		breaker, err := s.circuitBreaker(ctx, poolID)
		if err != nil {
			return err
		}
		result = breaker
		if !breaker.Active {
			return nil
		}

		now := s.now()
		breaker.Active = false
		breaker.ResetAt = &now
		breaker.ResetBy = actor
		if err := s.db.SaveCircuitBreaker(ctx, breaker); err != nil {
			return err
		}
		return s.emit(ctx, types.EventCircuitBreakerReset, poolID, CircuitBreakerEvent{
			PoolID:    poolID,
			Active:    false,
			Reason:    breaker.Reason,
			Actor:     actor,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCircuitBreaker(poolID, false)
	log.Ctx(ctx).Info().Str("pool_id", poolID).Str("actor", actor).Msg("circuit breaker reset")
	return result, nil
}

// UpdateRiskParameters replaces the pool limits. A nil limit is unlimited.
func (s *Service) UpdateRiskParameters(
	ctx context.Context, actor, poolID string, limits *config.RiskLimits,
) (*model.RiskParametersDocument, error) {
	if err := access.Require(s.access, actor, types.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validateLimits(limits); err != nil {
		return nil, err
	}

	var result *model.RiskParametersDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		if _, err := s.loadPool(ctx, poolID); err != nil {
			return err
		}
		params, err := s.riskParameters(ctx, poolID)
		if err != nil {
			return err
		}

		now := s.now()
		params.MaxTVL = limits.MaxTVL
		params.MaxDeposit = limits.MaxDeposit
		params.MaxDailyWithdrawal = limits.MaxDailyWithdrawal
		params.BreakerThreshold = limits.BreakerThreshold
		params.UpdatedAt = now
		params.UpdatedBy = actor
		if err := s.db.SaveRiskParameters(ctx, params); err != nil {
			return err
		}
		result = params

		return s.emit(ctx, types.EventRiskParametersUpdated, poolID, RiskParametersUpdatedEvent{
			PoolID:             poolID,
			MaxTVL:             limits.MaxTVL,
			MaxDeposit:         limits.MaxDeposit,
			MaxDailyWithdrawal: limits.MaxDailyWithdrawal,
			BreakerThreshold:   limits.BreakerThreshold,
			UpdatedBy:          actor,
			Timestamp:          now,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func validateLimits(limits *config.RiskLimits) error {
	if limits == nil {
		return types.NewValidationError(types.ReasonInvalidAmount, "risk limits are required")
	}
	for name, v := range map[string]*sdkmath.Int{
		"max tvl":              limits.MaxTVL,
		"max deposit":          limits.MaxDeposit,
		"max daily withdrawal": limits.MaxDailyWithdrawal,
	} {
		if v != nil && v.IsNegative() {
			return types.NewValidationError(types.ReasonInvalidAmount, "%s must not be negative", name)
		}
	}
	if th := limits.BreakerThreshold; th != nil && (!th.IsPositive() || th.GT(sdkmath.LegacyOneDec())) {
		return types.NewValidationError(types.ReasonInvalidRate, "breaker threshold must be in (0, 1], got %s", th)
	}
	return nil
}

func (s *Service) GetRiskStatus(ctx context.Context, poolID string) (*RiskStatus, error) {
	if _, err := s.loadPool(ctx, poolID); err != nil {
		return nil, translateError(err)
	}
	params, err := s.riskParameters(ctx, poolID)
	if err != nil {
		return nil, translateError(err)
	}
	breaker, err := s.circuitBreaker(ctx, poolID)
	if err != nil {
		return nil, translateError(err)
	}
	dw, err := s.dailyWithdrawal(ctx, poolID, s.now())
	if err != nil {
		return nil, translateError(err)
	}

	status := &RiskStatus{
		Parameters:      params,
		CircuitBreaker:  breaker,
		DailyWithdrawal: dw,
	}
	if params.MaxDailyWithdrawal != nil {
		remaining := params.MaxDailyWithdrawal.Sub(dw.Total)
		if remaining.IsNegative() {
			remaining = sdkmath.ZeroInt()
		}
		status.DailyRemaining = &remaining
	}
	return status, nil
}
