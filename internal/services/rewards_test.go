package services

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viddhana/pool-ledger/internal/types"
)

func (h *harness) startEpoch(t *testing.T, perDay string) {
	t.Helper()
	rate, err := types.RatePerSecond(amt(perDay), 24*time.Hour)
	require.NoError(t, err)
	_, err = h.svc.StartEpoch(t.Context(), testAdmin, testPool, rate)
	require.NoError(t, err)
}

func TestRewardsSplitByShares(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "100")
	h.deposit(t, "dave", "600")
	h.deposit(t, "erin", "400")

	h.clock.Advance(24 * time.Hour)

	daveReward, err := h.svc.PendingRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	withinUnits(t, "60", daveReward, "1")

	erinReward, err := h.svc.PendingRewards(ctx, testPool, "erin")
	require.NoError(t, err)
	withinUnits(t, "40", erinReward, "1")

	claimed, err := h.svc.ClaimRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	assert.Equal(t, daveReward, claimed)

	again, err := h.svc.ClaimRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	assert.True(t, again.IsZero())
}

func TestClaimsNeverExceedDistribution(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "7.77")

	participants := []string{"dave", "erin", "frank"}
	h.deposit(t, "dave", "3.333333333333333333")
	total := sdkmath.ZeroInt()
	for i := 0; i < 12; i++ {
		h.clock.Advance(time.Duration(997+i*131) * time.Second)
		if i == 5 {
			h.startEpoch(t, "3.1")
		}
		p := participants[i%3]
		switch i % 4 {
		case 0, 1:
			h.deposit(t, p, "1.000000000000000007")
		case 2:
			claimed, err := h.svc.ClaimRewards(ctx, testPool, p)
			require.NoError(t, err)
			total = total.Add(claimed)
		case 3:
			bal, err := h.svc.GetBalance(ctx, testPool, p)
			require.NoError(t, err)
			if bal.Shares.IsPositive() {
				_, err = h.svc.Withdraw(ctx, testPool, p, bal.Shares.QuoRaw(3))
				require.NoError(t, err)
			}
		}
	}
	h.clock.Advance(time.Hour)
	for _, p := range participants {
		claimed, err := h.svc.ClaimRewards(ctx, testPool, p)
		require.NoError(t, err)
		total = total.Add(claimed)
	}

	state, err := h.store.GetRewardState(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, total.LTE(state.TotalDistributed), "claimed %s, distributed %s", total, state.TotalDistributed)

	epochs, err := h.svc.ListEpochs(ctx, testPool)
	require.NoError(t, err)
	require.Len(t, epochs, 2)
	paid := sdkmath.ZeroInt()
	for _, epoch := range epochs {
		assert.True(t, epoch.Paid.IsPositive(), "epoch %d", epoch.Number)
		assert.True(t, epoch.Paid.LTE(epoch.Distributed), "epoch %d paid %s, distributed %s", epoch.Number, epoch.Paid, epoch.Distributed)
		assert.True(t, epoch.Distributed.LTE(epoch.Budget(h.clock.Now())), "epoch %d", epoch.Number)
		paid = paid.Add(epoch.Paid)
	}
	assert.Equal(t, total, paid)
}

func TestClaimAfterRolloverIsPaidByEarningEpoch(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "100")
	h.deposit(t, "dave", "600")

	h.clock.Advance(24 * time.Hour)
	h.startEpoch(t, "0")
	h.clock.Advance(time.Hour)

	claimed, err := h.svc.ClaimRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	withinUnits(t, "100", claimed, "0.000001")

	closed, err := h.svc.GetEpoch(ctx, testPool, 0)
	require.NoError(t, err)
	assert.Equal(t, claimed, closed.Paid)
	assert.True(t, closed.Paid.LTE(closed.Budget(h.clock.Now())))

	open, err := h.svc.GetEpoch(ctx, testPool, 1)
	require.NoError(t, err)
	assert.True(t, open.Paid.IsZero())
	assert.True(t, open.Budget(h.clock.Now()).IsZero())

	bal, err := h.svc.GetBalance(ctx, testPool, "dave")
	require.NoError(t, err)
	assert.Equal(t, claimed, bal.ClaimedToDate)
}

func TestSettledRewardsKeepTheirEpoch(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "24")
	h.deposit(t, "dave", "100")

	// the deposit in epoch 1 settles what dave earned in epoch 0
	h.clock.Advance(time.Hour)
	h.startEpoch(t, "48")
	h.clock.Advance(time.Hour)
	h.deposit(t, "dave", "100")
	h.clock.Advance(time.Hour)

	claimed, err := h.svc.ClaimRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	withinUnits(t, "5", claimed, "0.000001")

	first, err := h.svc.GetEpoch(ctx, testPool, 0)
	require.NoError(t, err)
	withinUnits(t, "1", first.Paid, "0.000001")

	second, err := h.svc.GetEpoch(ctx, testPool, 1)
	require.NoError(t, err)
	withinUnits(t, "4", second.Paid, "0.000001")
	assert.Equal(t, claimed, first.Paid.Add(second.Paid))
}

func TestStartEpochIsNotRetroactive(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "24")
	h.deposit(t, "dave", "100")

	h.clock.Advance(time.Hour)
	before, err := h.svc.PendingRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	withinUnits(t, "1", before, "0.001")

	h.startEpoch(t, "240")
	after, err := h.svc.PendingRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	h.clock.Advance(time.Hour)
	later, err := h.svc.PendingRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	withinUnits(t, "11", later, "0.001")

	epochs, err := h.svc.ListEpochs(ctx, testPool)
	require.NoError(t, err)
	require.Len(t, epochs, 2)
	require.NotNil(t, epochs[0].EndTime)
	assert.True(t, baseTime.Add(time.Hour).Equal(*epochs[0].EndTime))
	assert.Nil(t, epochs[1].EndTime)
}

func TestNoRewardsWithoutShares(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "100")

	h.clock.Advance(12 * time.Hour)
	h.deposit(t, "dave", "1")
	h.clock.Advance(12 * time.Hour)

	pending, err := h.svc.PendingRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	withinUnits(t, "50", pending, "0.001")
}

func TestStartEpochValidation(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)

	_, err := h.svc.StartEpoch(ctx, testOperator, testPool, sdkmath.OneInt())
	requireCode(t, err, types.Forbidden)

	_, err = h.svc.StartEpoch(ctx, testAdmin, testPool, sdkmath.NewInt(-1))
	requireReason(t, err, types.ReasonInvalidRate)

	_, err = h.svc.StartEpoch(ctx, testAdmin, "missing", sdkmath.OneInt())
	requireCode(t, err, types.NotFound)

	_, err = h.svc.GetEpoch(ctx, testPool, 3)
	requireCode(t, err, types.NotFound)
}

func TestZeroClaimIsNoop(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)

	claimed, err := h.svc.ClaimRewards(ctx, testPool, "dave")
	require.NoError(t, err)
	assert.True(t, claimed.IsZero())
	assert.NotContains(t, outboxTypes(t, h), types.EventRewardsClaimed)

	_, err = h.svc.ClaimRewards(ctx, testPool, "")
	requireReason(t, err, types.ReasonInvalidParticipant)
}

func TestAPY(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)

	apy, err := h.svc.APY(ctx, testPool)
	require.NoError(t, err)
	assert.Nil(t, apy)

	_, err = h.svc.StartEpoch(ctx, testAdmin, testPool, amt("1"))
	require.NoError(t, err)
	h.deposit(t, "dave", "1000")

	apy, err = h.svc.APY(ctx, testPool)
	require.NoError(t, err)
	require.NotNil(t, apy)
	assert.True(t, apy.Equal(sdkmath.LegacyNewDec(31536)), apy.String())
}

func TestTakeRewardSnapshots(t *testing.T) {
	ctx := t.Context()
	h := newHarness(t)
	h.createPool(t, nil)
	h.startEpoch(t, "100")
	h.deposit(t, "dave", "10")
	h.clock.Advance(time.Hour)

	require.NoError(t, h.svc.TakeRewardSnapshots(ctx))

	snapshot, err := h.store.GetLatestRewardSnapshot(ctx, testPool)
	require.NoError(t, err)
	assert.True(t, h.clock.Now().Equal(snapshot.TakenAt))
	assert.True(t, snapshot.AccRewardPerShare.IsPositive())
	assert.Equal(t, amt("10"), snapshot.TVL)
	require.NotNil(t, snapshot.EpochNumber)
	assert.Equal(t, uint64(0), *snapshot.EpochNumber)
}
