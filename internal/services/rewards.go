package services

import (
	"context"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/viddhana/pool-ledger/internal/access"
	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

// poolRewards is the accumulator of a pool together with its open epoch, if
// any, as loaded inside one transaction. Closed epochs are loaded on demand.
type poolRewards struct {
	state  *model.RewardStateDocument
	epoch  *model.RewardEpochDocument
	closed map[uint64]*model.RewardEpochDocument
}

func (s *Service) loadRewards(ctx context.Context, poolID string, now time.Time) (*poolRewards, error) {
	state, err := s.db.GetRewardState(ctx, poolID)
	if err != nil {
		if !db.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get reward state of %s: %w", poolID, err)
		}
		state = model.NewRewardStateDocument(poolID, now)
	}

	r := &poolRewards{state: state}
	if state.CurrentEpoch == nil {
		return r, nil
	}

	if _, err := s.epochOf(ctx, r, *state.CurrentEpoch); err != nil {
		return nil, err
	}
	return r, nil
}

// epochOf returns epoch number of r's pool, loading it at most once per
// transaction.
func (s *Service) epochOf(ctx context.Context, r *poolRewards, number uint64) (*model.RewardEpochDocument, error) {
	if r.epoch != nil && r.epoch.Number == number {
		return r.epoch, nil
	}
	if e, ok := r.closed[number]; ok {
		return e, nil
	}

	e, err := s.db.GetRewardEpoch(ctx, r.state.PoolID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to get epoch %d of %s: %w", number, r.state.PoolID, err)
	}
	if e.IsOpen() {
		r.epoch = e
		return e, nil
	}
	if r.closed == nil {
		r.closed = make(map[uint64]*model.RewardEpochDocument)
	}
	r.closed[number] = e
	return e, nil
}

// accrue credits the open epoch's rate for the whole seconds elapsed since the
// last accrual. Rewards for time with no shares outstanding are not
// distributed.
func (r *poolRewards) accrue(totalShares sdkmath.Int, now time.Time) {
	state := r.state
	if r.epoch == nil {
		if now.After(state.LastAccrualAt) {
			state.LastAccrualAt = now
		}
		return
	}

	elapsed := int64(now.Sub(state.LastAccrualAt) / time.Second)
	if elapsed <= 0 {
		return
	}
	state.LastAccrualAt = state.LastAccrualAt.Add(time.Duration(elapsed) * time.Second)
	if !totalShares.IsPositive() {
		return
	}

	inc := r.epoch.Rate.MulRaw(elapsed).Mul(types.AccScale()).Quo(totalShares)
	if inc.IsZero() {
		return
	}
	// never above rate*elapsed since inc is rounded down
	distributed := types.CeilQuo(inc.Mul(totalShares), types.AccScale())

	state.AccRewardPerShare = state.AccRewardPerShare.Add(inc)
	state.TotalDistributed = state.TotalDistributed.Add(distributed)
	r.epoch.Distributed = r.epoch.Distributed.Add(distributed)
}

func (s *Service) saveRewards(ctx context.Context, r *poolRewards) error {
	if err := s.db.SaveRewardState(ctx, r.state); err != nil {
		return err
	}
	if r.epoch != nil {
		return s.db.SaveRewardEpoch(ctx, r.epoch)
	}
	return nil
}

// earned splits what bal earned since its checkpoint by epoch. Each part is
// rounded down on its own, so the parts of all participants in an epoch never
// add up to more than the epoch's rate times its duration. The cost grows with
// the epochs since the checkpoint, never with the number of participants.
func (s *Service) earned(
	ctx context.Context, r *poolRewards, bal *model.ParticipantBalanceDocument,
) ([]model.EpochReward, error) {
	acc := r.state.AccRewardPerShare
	from := types.OrZero(bal.CheckpointAcc)
	if !bal.Shares.IsPositive() || r.state.CurrentEpoch == nil || !acc.GT(from) {
		return nil, nil
	}

	first := uint64(0)
	if bal.CheckpointEpoch != nil {
		first = *bal.CheckpointEpoch
	}

	var parts []model.EpochReward
	for n := first; n <= *r.state.CurrentEpoch; n++ {
		e, err := s.epochOf(ctx, r, n)
		if err != nil {
			return nil, err
		}
		lo := sdkmath.MaxInt(from, types.OrZero(e.AccAtStart))
		hi := acc
		if e.AccAtEnd != nil && e.AccAtEnd.LT(hi) {
			hi = *e.AccAtEnd
		}
		if !hi.GT(lo) {
			continue
		}
		amount := bal.Shares.Mul(hi.Sub(lo)).Quo(types.AccScale())
		if amount.IsPositive() {
			parts = append(parts, model.EpochReward{Epoch: n, Amount: amount})
		}
	}
	return parts, nil
}

// pending is everything bal could claim at r's accumulator.
func (s *Service) pending(
	ctx context.Context, r *poolRewards, bal *model.ParticipantBalanceDocument,
) (sdkmath.Int, error) {
	parts, err := s.earned(ctx, r, bal)
	if err != nil {
		return sdkmath.Int{}, err
	}
	total := types.OrZero(bal.AccruedRewards)
	for _, p := range parts {
		total = total.Add(p.Amount)
	}
	return total, nil
}

// settle moves what bal earned since its checkpoint into its accrued rewards
// and moves the checkpoint to r's accumulator. Share changes must happen after
// settle returns.
func (s *Service) settle(ctx context.Context, r *poolRewards, bal *model.ParticipantBalanceDocument) error {
	parts, err := s.earned(ctx, r, bal)
	if err != nil {
		return err
	}

	bal.AccruedRewards = types.OrZero(bal.AccruedRewards)
	for _, p := range parts {
		bal.AccruedRewards = bal.AccruedRewards.Add(p.Amount)
		merged := false
		for i := range bal.AccruedByEpoch {
			if bal.AccruedByEpoch[i].Epoch == p.Epoch {
				bal.AccruedByEpoch[i].Amount = bal.AccruedByEpoch[i].Amount.Add(p.Amount)
				merged = true
				break
			}
		}
		if !merged {
			bal.AccruedByEpoch = append(bal.AccruedByEpoch, p)
		}
	}

	bal.CheckpointAcc = r.state.AccRewardPerShare
	bal.CheckpointEpoch = nil
	if r.state.CurrentEpoch != nil {
		current := *r.state.CurrentEpoch
		bal.CheckpointEpoch = &current
	}
	return nil
}

// checkpointRewards accrues the pool, settles bal and then applies a share
// change. It saves the reward state but not bal or pool.
func (s *Service) checkpointRewards(
	ctx context.Context, pool *model.PoolDocument, bal *model.ParticipantBalanceDocument,
	now time.Time, changeShares func(),
) error {
	r, err := s.loadRewards(ctx, pool.ID, now)
	if err != nil {
		return err
	}

	r.accrue(pool.TotalShares, now)
	if err := s.settle(ctx, r, bal); err != nil {
		return err
	}
	if changeShares != nil {
		changeShares()
	}

	return s.saveRewards(ctx, r)
}

// StartEpoch closes the open epoch at now and opens the next one with rate,
// in base units per second.
func (s *Service) StartEpoch(
	ctx context.Context, actor, poolID string, rate sdkmath.Int,
) (*model.RewardEpochDocument, error) {
	if err := access.Require(s.access, actor, types.RoleAdmin); err != nil {
		return nil, err
	}
	if rate.IsNil() || rate.IsNegative() {
		return nil, types.NewValidationError(types.ReasonInvalidRate, "reward rate must not be negative")
	}

	var epoch *model.RewardEpochDocument
	var closed *uint64
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		pool, err := s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}

		now := s.now()
		r, err := s.loadRewards(ctx, poolID, now)
		if err != nil {
			return err
		}
		r.accrue(pool.TotalShares, now)

		closed = nil
		number := uint64(0)
		if r.state.CurrentEpoch != nil {
			number = *r.state.CurrentEpoch + 1
		}
		acc := r.state.AccRewardPerShare
		if r.epoch != nil {
			r.epoch.Close(now, acc)
			if err := s.db.SaveRewardEpoch(ctx, r.epoch); err != nil {
				return err
			}
			closed = &r.epoch.Number
		}

		epoch = model.NewRewardEpochDocument(poolID, number, rate, now, actor)
		epoch.AccAtStart = acc
		if err := s.db.SaveRewardEpoch(ctx, epoch); err != nil {
			return err
		}

		r.state.CurrentEpoch = &number
		r.state.LastAccrualAt = now
		if err := s.db.SaveRewardState(ctx, r.state); err != nil {
			return err
		}

		return s.emit(ctx, types.EventEpochStarted, poolID, EpochStartedEvent{
			PoolID:      poolID,
			Number:      number,
			Rate:        rate,
			StartTime:   now,
			ClosedEpoch: closed,
			StartedBy:   actor,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().
		Str("pool_id", poolID).
		Uint64("epoch", epoch.Number).
		Stringer("rate", epoch.Rate).
		Msg("reward epoch started")
	return epoch, nil
}

// PendingRewards is what ClaimRewards would return now. Nothing is written.
func (s *Service) PendingRewards(ctx context.Context, poolID, participant string) (sdkmath.Int, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return sdkmath.Int{}, translateError(err)
	}
	bal, err := s.loadBalance(ctx, poolID, participant)
	if err != nil {
		return sdkmath.Int{}, translateError(err)
	}

	now := s.now()
	r, err := s.loadRewards(ctx, poolID, now)
	if err != nil {
		return sdkmath.Int{}, translateError(err)
	}
	r.accrue(pool.TotalShares, now)

	pending, err := s.pending(ctx, r, bal)
	if err != nil {
		return sdkmath.Int{}, translateError(err)
	}
	return pending, nil
}

// ClaimRewards zeroes the participant's pending rewards and returns them.
// Claiming nothing is not an error.
func (s *Service) ClaimRewards(ctx context.Context, poolID, participant string) (sdkmath.Int, error) {
	if participant == "" {
		return sdkmath.Int{}, types.NewValidationError(types.ReasonInvalidParticipant, "participant is required")
	}

	var claimed sdkmath.Int
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		pool, err := s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}
		claimed, err = s.claim(ctx, pool, participant, s.now())
		return err
	})
	if err != nil {
		return sdkmath.Int{}, err
	}

	if claimed.IsPositive() {
		log.Ctx(ctx).Debug().
			Str("pool_id", poolID).
			Str("participant", participant).
			Stringer("amount", claimed).
			Msg("rewards claimed")
	}
	return claimed, nil
}

// claim must run inside a transaction. Each part of the claimed amount is
// booked as paid on the epoch it was earned in.
func (s *Service) claim(
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
	if err := s.settle(ctx, r, bal); err != nil {
		return sdkmath.Int{}, err
	}

	amount := bal.AccruedRewards
	if !amount.IsPositive() {
		return sdkmath.ZeroInt(), nil
	}

	for _, part := range bal.AccruedByEpoch {
		e, err := s.epochOf(ctx, r, part.Epoch)
		if err != nil {
			return sdkmath.Int{}, err
		}
		e.Paid = e.Paid.Add(part.Amount)
		if e.IsOpen() {
			// saved with the accumulator below
			continue
		}
		if err := s.db.SaveEpochPaid(ctx, e); err != nil {
			return sdkmath.Int{}, err
		}
	}
	byEpoch := bal.AccruedByEpoch

	bal.AccruedRewards = sdkmath.ZeroInt()
	bal.AccruedByEpoch = nil
	bal.ClaimedToDate = bal.ClaimedToDate.Add(amount)
	bal.UpdatedAt = now

	if err := s.saveRewards(ctx, r); err != nil {
		return sdkmath.Int{}, err
	}
	if err := s.db.SaveParticipantBalance(ctx, bal); err != nil {
		return sdkmath.Int{}, err
	}

	return amount, s.emit(ctx, types.EventRewardsClaimed, pool.ID, RewardsClaimedEvent{
		PoolID:      pool.ID,
		Participant: participant,
		Amount:      amount,
		Epochs:      byEpoch,
		Timestamp:   now,
	})
}

func (s *Service) GetEpoch(ctx context.Context, poolID string, number uint64) (*model.RewardEpochDocument, error) {
	epoch, err := s.db.GetRewardEpoch(ctx, poolID, number)
	if err != nil {
		if db.IsNotFoundError(err) {
			return nil, types.NewNotFoundError("epoch %d of pool %s not found", number, poolID)
		}
		return nil, translateError(err)
	}
	return epoch, nil
}

func (s *Service) ListEpochs(ctx context.Context, poolID string) ([]*model.RewardEpochDocument, error) {
	if _, err := s.loadPool(ctx, poolID); err != nil {
		return nil, translateError(err)
	}
	epochs, err := s.db.ListRewardEpochs(ctx, poolID)
	if err != nil {
		return nil, translateError(err)
	}
	return epochs, nil
}

// APY is rate * units per year / TVL for the open epoch. It is nil when the
// pool holds no value.
func (s *Service) APY(ctx context.Context, poolID string) (*sdkmath.LegacyDec, error) {
	pool, err := s.loadPool(ctx, poolID)
	if err != nil {
		return nil, translateError(err)
	}
	r, err := s.loadRewards(ctx, poolID, s.now())
	if err != nil {
		return nil, translateError(err)
	}
	return apy(r.epoch, pool.TVL, s.cfg.Rewards.UnitsPerYear), nil
}

func apy(epoch *model.RewardEpochDocument, tvl sdkmath.Int, unitsPerYear int64) *sdkmath.LegacyDec {
	if !tvl.IsPositive() {
		return nil
	}
	rate := sdkmath.ZeroInt()
	if epoch != nil {
		rate = epoch.Rate
	}
	v := sdkmath.LegacyNewDecFromInt(rate.MulRaw(unitsPerYear)).QuoInt(tvl)
	return &v
}

// TakeRewardSnapshots checkpoints the accumulator of every pool and records a
// snapshot of it. A failing pool does not stop the others.
func (s *Service) TakeRewardSnapshots(ctx context.Context) error {
	pools, err := s.db.ListPools(ctx)
	if err != nil {
		return translateError(err)
	}

	var failed int
	for _, p := range pools {
		if err := s.snapshotPool(ctx, p.ID); err != nil {
			failed++
			log.Ctx(ctx).Error().Err(err).Str("pool_id", p.ID).Msg("failed to snapshot rewards")
		}
	}
	if failed > 0 {
		return types.NewInternalServiceError(fmt.Errorf("reward snapshot failed for %d of %d pools", failed, len(pools)))
	}
	return nil
}

func (s *Service) snapshotPool(ctx context.Context, poolID string) error {
	var snapshot *model.RewardSnapshotDocument
	err := s.runAtomic(ctx, func(ctx context.Context) error {
		pool, err := s.loadPool(ctx, poolID)
		if err != nil {
			return err
		}
		now := s.now()
		r, err := s.loadRewards(ctx, poolID, now)
		if err != nil {
			return err
		}
		r.accrue(pool.TotalShares, now)
		if err := s.saveRewards(ctx, r); err != nil {
			return err
		}

		snapshot = &model.RewardSnapshotDocument{
			ID:                fmt.Sprintf("%s/%d", poolID, now.Unix()),
			PoolID:            poolID,
			TakenAt:           now,
			EpochNumber:       r.state.CurrentEpoch,
			AccRewardPerShare: r.state.AccRewardPerShare,
			TVL:               pool.TVL,
			TotalShares:       pool.TotalShares,
			APY:               apy(r.epoch, pool.TVL, s.cfg.Rewards.UnitsPerYear),
		}
		return s.db.SaveRewardSnapshot(ctx, snapshot)
	})
	if err != nil {
		return err
	}

	log.Ctx(ctx).Debug().
		Str("pool_id", poolID).
		Stringer("acc_reward_per_share", snapshot.AccRewardPerShare).
		Msg("reward snapshot taken")
	return nil
}
