package services

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/access"
	"github.com/viddhana/pool-ledger/internal/config"
	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/types"
)

type Balance struct {
	Shares sdkmath.Int
	Value  sdkmath.Int
}

type DepositResult struct {
	SharesIssued sdkmath.Int
	Balance      Balance
}

type WithdrawResult struct {
	ValueOut sdkmath.Int
	Balance  Balance
}

// RePriceOptions must be set to lower the exchange rate.
type RePriceOptions struct {
	// AllowDecrease flags the repricing as a loss socialization event.
	AllowDecrease bool
	// SignedOffBy is the operator approving a decrease. It must differ from
	// the admin performing the repricing.
	SignedOffBy string
}

// CreatePool initializes a pool and all of its per pool state atomically.
func (s *Service) CreatePool(
	ctx context.Context, actor, poolID, asset string, limits *config.RiskLimits,
) (*model.PoolDocument, error) {
	if err := access.Require(s.access, actor, types.RoleAdmin); err != nil {
		return nil, err
	}
	if poolID == "" || asset == "" {
		return nil, types.NewValidationError(types.ReasonNone, "pool id and asset are required")
	}
	if limits == nil {
		limits = &config.RiskLimits{}
	}
	if err := validateLimits(limits); err != nil {
		return nil, err
	}

	var pool *model.PoolDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		_, err := s.db.GetPool(ctx, poolID)
		if err == nil {
			return types.NewStateConflictError(types.ReasonPoolExists, "pool %s already exists", poolID)
		}
		if !db.IsNotFoundError(err) {
			return err
		}

		now := s.now()
		pool = model.NewPoolDocument(poolID, asset, now)
		if err := s.db.SavePool(ctx, pool); err != nil {
			return err
		}
		if err := s.db.SaveRewardState(ctx, model.NewRewardStateDocument(poolID, now)); err != nil {
			return err
		}
		if err := s.db.SaveRiskParameters(ctx, &model.RiskParametersDocument{
			PoolID:             poolID,
			MaxTVL:             limits.MaxTVL,
			MaxDeposit:         limits.MaxDeposit,
			MaxDailyWithdrawal: limits.MaxDailyWithdrawal,
			BreakerThreshold:   limits.BreakerThreshold,
			UpdatedAt:          now,
			UpdatedBy:          actor,
		}); err != nil {
			return err
		}
		if err := s.db.SaveCircuitBreaker(ctx, &model.CircuitBreakerDocument{PoolID: poolID}); err != nil {
			return err
		}
		if err := s.db.SaveDailyWithdrawal(ctx, model.NewDailyWithdrawalDocument(poolID, s.windowMode.OpenWindow(now))); err != nil {
			return err
		}
		if err := s.db.SaveTreasury(ctx, model.NewTreasuryDocument(poolID)); err != nil {
			return err
		}

		return s.emit(ctx, types.EventPoolCreated, poolID, PoolCreatedEvent{
			PoolID:    poolID,
			Asset:     asset,
			CreatedBy: actor,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("pool_id", poolID).Str("asset", asset).Msg("pool created")
	metrics.RecordCircuitBreaker(poolID, false)
	return pool, nil
}

func (s *Service) PausePool(ctx context.Context, actor, poolID string) (*model.PoolDocument, error) {
	return s.setPoolStatus(ctx, actor, poolID, types.PoolStatusPaused)
}

func (s *Service) ResumePool(ctx context.Context, actor, poolID string) (*model.PoolDocument, error) {
	return s.setPoolStatus(ctx, actor, poolID, types.PoolStatusActive)
}

func (s *Service) setPoolStatus(
	ctx context.Context, actor, poolID string, status types.PoolStatus,
) (*model.PoolDocument, error) {
	if err := access.Require(s.access, actor, types.RoleAdmin); err != nil {
		return nil, err
	}

	var pool *model.PoolDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		var err error
		pool, err = s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}
		if pool.Status == status {
			return nil
		}

		now := s.now()
		pool.Status = status
		pool.UpdatedAt = now
		if err := s.db.SavePool(ctx, pool); err != nil {
			return err
		}
		return s.emit(ctx, types.EventPoolStatusChanged, poolID, PoolStatusChangedEvent{
			PoolID:    poolID,
			Status:    status,
			ChangedBy: actor,
			Timestamp: now,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("pool_id", poolID).Stringer("status", status).Msg("pool status changed")
	return pool, nil
}

// Deposit converts amount into shares at the current exchange rate, rounding
// down.
func (s *Service) Deposit(
	ctx context.Context, poolID, participant string, amount sdkmath.Int, assetTag string,
) (*DepositResult, error) {
	if participant == "" {
		return nil, types.NewValidationError(types.ReasonInvalidParticipant, "participant is required")
	}
	if amount.IsNil() || !amount.IsPositive() {
		return nil, types.NewValidationError(types.ReasonInvalidAmount, "deposit amount must be positive")
	}

	var result *DepositResult
	var tvl sdkmath.Int
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		pool, err := s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}
		if pool.Asset != assetTag {
			return types.NewValidationError(types.ReasonAssetMismatch,
				"pool %s holds %s, got %s", poolID, pool.Asset, assetTag)
		}
		if pool.Status == types.PoolStatusPaused {
			return types.NewStateConflictError(types.ReasonPoolPaused, "pool %s is paused", poolID)
		}

		bal, err := s.loadBalance(ctx, poolID, participant)
		if err != nil {
			return err
		}

		if err := s.checkDeposit(ctx, pool, bal, amount); err != nil {
			return err
		}

		shares := types.SharesForValue(amount, pool.ExchangeRate)
		if !shares.IsPositive() {
			return types.NewValidationError(types.ReasonAmountTooSmall,
				"deposit of %s is worth less than one share at rate %s", amount, pool.ExchangeRate)
		}

		now := s.now()
		if err := s.checkpointRewards(ctx, pool, bal, now, func() {
			bal.Shares = bal.Shares.Add(shares)
			pool.TotalShares = pool.TotalShares.Add(shares)
		}); err != nil {
			return err
		}

		pool.TVL = pool.TVL.Add(amount)
		pool.UpdatedAt = now
		bal.LastDepositAt = &now
		bal.UpdatedAt = now

		if err := s.db.SaveParticipantBalance(ctx, bal); err != nil {
			return err
		}
		if err := s.db.SavePool(ctx, pool); err != nil {
			return err
		}

		result = &DepositResult{
			SharesIssued: shares,
			Balance: Balance{
				Shares: bal.Shares,
				Value:  types.ValueOfShares(bal.Shares, pool.ExchangeRate),
			},
		}
		tvl = pool.TVL

		return s.emit(ctx, types.EventDeposited, poolID, DepositedEvent{
			PoolID:       poolID,
			Participant:  participant,
			Amount:       amount,
			SharesIssued: shares,
			ExchangeRate: pool.ExchangeRate,
			Timestamp:    now,
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPoolTVL(poolID, unitsFloat(tvl))
	log.Ctx(ctx).Debug().
		Str("pool_id", poolID).
		Str("participant", participant).
		Stringer("amount", amount).
		Stringer("shares", result.SharesIssued).
		Msg("deposit recorded")
	return result, nil
}

// Withdraw burns shareAmount shares and returns their value, rounded down.
// The value is handed back to the caller, typically for a payout.
func (s *Service) Withdraw(
	ctx context.Context, poolID, participant string, shareAmount sdkmath.Int,
) (*WithdrawResult, error) {
	if participant == "" {
		return nil, types.NewValidationError(types.ReasonInvalidParticipant, "participant is required")
	}
	if shareAmount.IsNil() || !shareAmount.IsPositive() {
		return nil, types.NewValidationError(types.ReasonInvalidAmount, "share amount must be positive")
	}

	var result *WithdrawResult
	var tvl sdkmath.Int
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		pool, err := s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}
		if pool.Status == types.PoolStatusPaused {
			return types.NewStateConflictError(types.ReasonPoolPaused, "pool %s is paused", poolID)
		}

		bal, err := s.loadBalance(ctx, poolID, participant)
		if err != nil {
			return err
		}
		if shareAmount.GT(bal.Shares) {
			return types.NewStateConflictError(types.ReasonInsufficientBalance,
				"participant %s holds %s shares, cannot withdraw %s", participant, bal.Shares, shareAmount)
		}

		now := s.now()
		valueOut := types.ValueOfShares(shareAmount, pool.ExchangeRate)
		if err := s.checkWithdrawal(ctx, pool, valueOut, now); err != nil {
			return err
		}

		if err := s.checkpointRewards(ctx, pool, bal, now, func() {
			bal.Shares = bal.Shares.Sub(shareAmount)
			pool.TotalShares = pool.TotalShares.Sub(shareAmount)
		}); err != nil {
			return err
		}

		pool.TVL = pool.TVL.Sub(valueOut)
		if pool.TVL.IsNegative() {
			pool.TVL = sdkmath.ZeroInt()
		}
		pool.UpdatedAt = now
		bal.UpdatedAt = now

		if err := s.db.SaveParticipantBalance(ctx, bal); err != nil {
			return err
		}
		if err := s.db.SavePool(ctx, pool); err != nil {
			return err
		}

		result = &WithdrawResult{
			ValueOut: valueOut,
			Balance: Balance{
				Shares: bal.Shares,
				Value:  types.ValueOfShares(bal.Shares, pool.ExchangeRate),
			},
		}
		tvl = pool.TVL

		return s.emit(ctx, types.EventWithdrawn, poolID, WithdrawnEvent{
			PoolID:       poolID,
			Participant:  participant,
			SharesBurned: shareAmount,
			ValueOut:     valueOut,
			ExchangeRate: pool.ExchangeRate,
			Timestamp:    now,
		})
	})
	if err != nil {
		var trip *breakerTripError
		if errors.As(err, &trip) {
			if _, tripErr := s.tripBreaker(ctx, trip.poolID, systemActor, thresholdTripReason); tripErr != nil {
				log.Ctx(ctx).Error().Err(tripErr).Str("pool_id", trip.poolID).Msg("failed to trip circuit breaker")
			}
			return nil, trip.err
		}
		return nil, err
	}

	metrics.RecordPoolTVL(poolID, unitsFloat(tvl))
	return result, nil
}

// GetBalance never fails for an unknown participant, it reports zero.
func (s *Service) GetBalance(ctx context.Context, poolID, participant string) (*Balance, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return nil, translateError(err)
	}
	bal, err := s.loadBalance(ctx, poolID, participant)
	if err != nil {
		return nil, translateError(err)
	}
	return &Balance{
		Shares: bal.Shares,
		Value:  types.ValueOfShares(bal.Shares, pool.ExchangeRate),
	}, nil
}

func (s *Service) GetPool(ctx context.Context, poolID string) (*model.PoolDocument, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return nil, translateError(err)
	}
	return pool, nil
}

// RePrice sets a new exchange rate and recomputes TVL from the outstanding
// shares. Lowering the rate needs opts.AllowDecrease and an operator sign-off.
func (s *Service) RePrice(
	ctx context.Context, actor, poolID string, rate sdkmath.LegacyDec, opts RePriceOptions,
) (*model.PoolDocument, error) {
	if err := access.Require(s.access, actor, types.RoleAdmin); err != nil {
		return nil, err
	}
	if rate.IsNil() || !rate.IsPositive() {
		return nil, types.NewValidationError(types.ReasonInvalidRate, "exchange rate must be positive")
	}

	var pool *model.PoolDocument
	var lossSocialization bool
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		var err error
		pool, err = s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}

		previous := pool.ExchangeRate
		lossSocialization = rate.LT(previous)
		if lossSocialization {
			if err := s.approveDecrease(actor, opts); err != nil {
				return err
			}
		}

		now := s.now()
		pool.ExchangeRate = rate
		pool.TVL = types.ValueOfShares(pool.TotalShares, rate)
		pool.UpdatedAt = now
		if err := s.db.SavePool(ctx, pool); err != nil {
			return err
		}

		return s.emit(ctx, types.EventPoolRepriced, poolID, PoolRepricedEvent{
			PoolID:            poolID,
			PreviousRate:      previous,
			NewRate:           rate,
			LossSocialization: lossSocialization,
			RepricedBy:        actor,
			SignedOffBy:       opts.SignedOffBy,
			Timestamp:         now,
		})
	})
	if err != nil {
		return nil, err
	}

	level := zerolog.InfoLevel
	if lossSocialization {
		level = zerolog.WarnLevel
	}
	log.Ctx(ctx).WithLevel(level).
		Str("pool_id", poolID).
		Str("signed_off_by", opts.SignedOffBy).
		Stringer("rate", rate).
		Bool("loss_socialization", lossSocialization).
		Msg("pool repriced")
	metrics.RecordPoolTVL(poolID, unitsFloat(pool.TVL))
	return pool, nil
}

func (s *Service) approveDecrease(actor string, opts RePriceOptions) error {
	if !opts.AllowDecrease {
		return types.NewStateConflictError(types.ReasonRateDecrease,
			"lowering the exchange rate requires an explicit loss socialization flag")
	}
	if opts.SignedOffBy == "" || opts.SignedOffBy == actor {
		return types.NewStateConflictError(types.ReasonRateDecrease,
			"lowering the exchange rate requires sign-off by a second operator")
	}
	return access.Require(s.access, opts.SignedOffBy, types.RoleOperator)
}

// unitsFloat is for gauges only.
func unitsFloat(v sdkmath.Int) float64 {
	f, err := sdkmath.LegacyNewDecFromIntWithPrec(v, types.AmountDecimals).Float64()
	if err != nil {
		return 0
	}
	return f
}
