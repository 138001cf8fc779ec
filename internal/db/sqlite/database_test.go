package sqlite

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viddhana/pool-ledger/internal/db"
	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *Database {
	t.Helper()
	d, err := New("")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func TestVersionedSave(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	pool := model.NewPoolDocument("main", "BTC", baseTime)
	require.NoError(t, d.SavePool(ctx, pool))
	assert.EqualValues(t, 1, pool.Version)
	assert.Equal(t, model.SchemaVersion, pool.SchemaVersion)

	t.Run("insert twice conflicts", func(t *testing.T) {
		dup := model.NewPoolDocument("main", "BTC", baseTime)
		err := d.SavePool(ctx, dup)
		require.Error(t, err)
		assert.True(t, db.IsConflictError(err))
		assert.EqualValues(t, 0, dup.Version)
	})

	t.Run("update with expected version", func(t *testing.T) {
		stored, err := d.GetPool(ctx, "main")
		require.NoError(t, err)
		stored.TVL = sdkmath.NewInt(500)
		require.NoError(t, d.SavePool(ctx, stored))
		assert.EqualValues(t, 2, stored.Version)

		reloaded, err := d.GetPool(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, "500", reloaded.TVL.String())
		assert.True(t, reloaded.ExchangeRate.Equal(sdkmath.LegacyOneDec()))
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		// pool still carries version 1
		pool.TVL = sdkmath.NewInt(1)
		err := d.SavePool(ctx, pool)
		require.Error(t, err)
		assert.True(t, db.IsConflictError(err))
		assert.EqualValues(t, 1, pool.Version)

		reloaded, err := d.GetPool(ctx, "main")
		require.NoError(t, err)
		assert.Equal(t, "500", reloaded.TVL.String())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := d.GetPool(ctx, "missing")
		require.Error(t, err)
		assert.True(t, db.IsNotFoundError(err))
	})
}

func TestTransactionRollback(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	err := d.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, d.SavePool(ctx, model.NewPoolDocument("a", "BTC", baseTime)))
		// nested calls join the outer transaction
		return d.WithTransaction(ctx, func(ctx context.Context) error {
			if err := d.SaveTreasury(ctx, model.NewTreasuryDocument("a")); err != nil {
				return err
			}
			return d.SavePool(ctx, model.NewPoolDocument("a", "BTC", baseTime))
		})
	})
	require.Error(t, err)

	_, err = d.GetPool(ctx, "a")
	assert.True(t, db.IsNotFoundError(err))
	_, err = d.GetTreasury(ctx, "a")
	assert.True(t, db.IsNotFoundError(err))
}

func TestClosedEpochIsImmutable(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	epoch := model.NewRewardEpochDocument("main", 0, sdkmath.NewInt(10), baseTime, "alice")
	require.NoError(t, d.SaveRewardEpoch(ctx, epoch))

	epoch.Paid = sdkmath.NewInt(1)
	err := d.SaveEpochPaid(ctx, epoch)
	assert.True(t, db.IsConflictError(err), "paid of an open epoch goes through SaveRewardEpoch")

	end := baseTime.Add(time.Hour)
	epoch.Close(end, sdkmath.NewInt(99))
	epoch.Distributed = sdkmath.NewInt(36000)
	require.NoError(t, d.SaveRewardEpoch(ctx, epoch))

	epoch.Rate = sdkmath.NewInt(1000)
	err = d.SaveRewardEpoch(ctx, epoch)
	require.Error(t, err)
	assert.True(t, db.IsConflictError(err))

	// only paid is written for a closed epoch
	epoch.Paid = sdkmath.NewInt(500)
	require.NoError(t, d.SaveEpochPaid(ctx, epoch))

	stale := *epoch
	stale.Version--
	assert.True(t, db.IsConflictError(d.SaveEpochPaid(ctx, &stale)))

	stored, err := d.GetRewardEpoch(ctx, "main", 0)
	require.NoError(t, err)
	assert.Equal(t, "10", stored.Rate.String())
	assert.Equal(t, "500", stored.Paid.String())
	require.NotNil(t, stored.AccAtEnd)
	assert.Equal(t, "99", stored.AccAtEnd.String())
	require.NotNil(t, stored.EndTime)
	assert.True(t, end.Equal(*stored.EndTime))

	epochs, err := d.ListRewardEpochs(ctx, "main")
	require.NoError(t, err)
	assert.Len(t, epochs, 1)
}

func newPayout(pool, participant, ref string) *model.PayoutDocument {
	return &model.PayoutDocument{
		ID:          uuid.NewString(),
		ReferenceID: ref,
		PoolID:      pool,
		Participant: participant,
		Recipient:   "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",
		Amount:      sdkmath.NewInt(100),
		Fee:         sdkmath.ZeroInt(),
		NetAmount:   sdkmath.NewInt(100),
		Status:      types.PayoutStatusPending,
		Source:      model.PayoutSourceRequest,
		CreatedAt:   baseTime,
	}
}

func TestPayoutStatusTransitions(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	p := newPayout("main", "alice", "ref-1")
	require.NoError(t, d.SaveNewPayout(ctx, p))

	t.Run("duplicate reference", func(t *testing.T) {
		err := d.SaveNewPayout(ctx, newPayout("main", "alice", "ref-1"))
		require.Error(t, err)
		assert.True(t, db.IsDuplicateKeyError(err))
	})

	outstanding, err := d.HasOutstandingPayout(ctx, "main", "alice")
	require.NoError(t, err)
	assert.True(t, outstanding)

	updated, err := d.UpdatePayoutStatus(ctx, p.ID, types.QualifiedStatesForProcessing(), types.PayoutStatusProcessing,
		db.WithFee(sdkmath.NewInt(2), sdkmath.NewInt(98)),
		db.WithQuotaWindow(baseTime),
		db.WithProcessedAt(baseTime),
	)
	require.NoError(t, err)
	assert.Equal(t, types.PayoutStatusProcessing, updated.Status)
	assert.Equal(t, "98", updated.NetAmount.String())

	t.Run("second transition from pending fails", func(t *testing.T) {
		_, err := d.UpdatePayoutStatus(ctx, p.ID, types.QualifiedStatesForProcessing(), types.PayoutStatusProcessing)
		require.Error(t, err)
		assert.True(t, db.IsNotFoundError(err))
	})

	stuck, err := d.FindStuckPayouts(ctx, baseTime.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stuck, 1)

	failedAt := baseTime.Add(time.Minute)
	updated, err = d.UpdatePayoutStatus(ctx, p.ID, types.QualifiedStatesForCompletion(), types.PayoutStatusFailed,
		db.WithFailure(types.FailureKindPermanent, "rejected", failedAt),
		db.WithoutQuotaWindow(),
	)
	require.NoError(t, err)
	assert.Nil(t, updated.QuotaWindow)
	require.NotNil(t, updated.ErrorMessage)
	assert.Equal(t, "rejected", *updated.ErrorMessage)

	retryable, err := d.FindRetryablePayouts(ctx, baseTime, 3, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)

	retryable, err = d.FindRetryablePayouts(ctx, failedAt.Add(time.Second), 3, 10)
	require.NoError(t, err)
	assert.Empty(t, retryable)

	updated, err = d.UpdatePayoutStatus(ctx, p.ID, types.QualifiedStatesForRetry(), types.PayoutStatusPending,
		db.WithClearedFailure(), db.WithRetryIncrement())
	require.NoError(t, err)
	assert.Equal(t, 1, updated.RetryCount)
	assert.Nil(t, updated.ErrorMessage)

	byRef, err := d.GetPayoutByReferenceID(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byRef.ID)

	list, err := d.ListPayoutsByParticipant(ctx, "main", "alice")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestThresholdPaging(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	for _, participant := range []string{"a", "b", "c"} {
		require.NoError(t, d.SavePayoutThreshold(ctx, &model.PayoutThresholdDocument{
			ID:          model.ParticipantKey("main", participant),
			PoolID:      "main",
			Participant: participant,
			Threshold:   sdkmath.NewInt(10),
			UpdatedAt:   baseTime,
		}))
	}

	page, err := d.ListPayoutThresholds(ctx, "main", "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].Participant)

	page, err = d.ListPayoutThresholds(ctx, "main", page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "c", page[0].Participant)
}

func TestOutbox(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := uuid.NewV7()
		require.NoError(t, err)
		ids = append(ids, id.String())
		require.NoError(t, d.SaveOutboxEvent(ctx, &model.OutboxEventDocument{
			ID:        id.String(),
			Type:      types.EventDeposited,
			PoolID:    "main",
			Payload:   "{}",
			CreatedAt: baseTime,
		}))
	}

	events, err := d.FindUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, e := range events {
		assert.Equal(t, ids[i], e.ID)
	}

	require.NoError(t, d.MarkEventPublished(ctx, ids[0], baseTime))
	err = d.MarkEventPublished(ctx, ids[0], baseTime)
	assert.True(t, db.IsNotFoundError(err))

	events, err = d.FindUnpublishedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRewardSnapshots(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	_, err := d.GetLatestRewardSnapshot(ctx, "main")
	assert.True(t, db.IsNotFoundError(err))

	for i := 0; i < 2; i++ {
		at := baseTime.Add(time.Duration(i) * time.Hour)
		require.NoError(t, d.SaveRewardSnapshot(ctx, &model.RewardSnapshotDocument{
			ID:                "main/" + at.Format(time.RFC3339),
			PoolID:            "main",
			TakenAt:           at,
			AccRewardPerShare: sdkmath.NewInt(int64(i)),
			TVL:               sdkmath.NewInt(100),
			TotalShares:       sdkmath.NewInt(100),
		}))
	}

	latest, err := d.GetLatestRewardSnapshot(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, "1", latest.AccRewardPerShare.String())
	assert.Nil(t, latest.APY)
}

func TestRiskDocumentsWithUnlimitedLimits(t *testing.T) {
	ctx := t.Context()
	d := newTestDB(t)

	maxTVL := sdkmath.NewInt(1_000_000)
	require.NoError(t, d.SaveRiskParameters(ctx, &model.RiskParametersDocument{PoolID: "main", MaxTVL: &maxTVL}))

	params, err := d.GetRiskParameters(ctx, "main")
	require.NoError(t, err)
	require.NotNil(t, params.MaxTVL)
	assert.Equal(t, "1000000", params.MaxTVL.String())
	assert.Nil(t, params.MaxDeposit)
	assert.Nil(t, params.BreakerThreshold)
}
