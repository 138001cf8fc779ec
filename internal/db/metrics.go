package db

import (
	"context"
	"time"

	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/observability/metrics"
	"github.com/viddhana/pool-ledger/internal/types"
)

type DbWithMetrics struct {
	db DbInterface
}

func NewDbWithMetrics(db DbInterface) *DbWithMetrics {
	return &DbWithMetrics{db: db}
}

func (d *DbWithMetrics) Ping(ctx context.Context) error {
	return d.db.Ping(ctx)
}

func (d *DbWithMetrics) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return d.run("WithTransaction", func() error {
		return d.db.WithTransaction(ctx, fn)
	})
}

func (d *DbWithMetrics) GetPool(ctx context.Context, poolID string) (result *model.PoolDocument, err error) {
	//nolint:errcheck
	d.run("GetPool", func() error {
		result, err = d.db.GetPool(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) ListPools(ctx context.Context) (result []*model.PoolDocument, err error) {
	//nolint:errcheck
	d.run("ListPools", func() error {
		result, err = d.db.ListPools(ctx)
		return err
	})
	return
}

func (d *DbWithMetrics) SavePool(ctx context.Context, doc *model.PoolDocument) error {
	return d.run("SavePool", func() error {
		return d.db.SavePool(ctx, doc)
	})
}

func (d *DbWithMetrics) GetParticipantBalance(ctx context.Context, poolID, participant string) (result *model.ParticipantBalanceDocument, err error) {
	//nolint:errcheck
	d.run("GetParticipantBalance", func() error {
		result, err = d.db.GetParticipantBalance(ctx, poolID, participant)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveParticipantBalance(ctx context.Context, doc *model.ParticipantBalanceDocument) error {
	return d.run("SaveParticipantBalance", func() error {
		return d.db.SaveParticipantBalance(ctx, doc)
	})
}

func (d *DbWithMetrics) GetTreasury(ctx context.Context, poolID string) (result *model.TreasuryDocument, err error) {
	//nolint:errcheck
	d.run("GetTreasury", func() error {
		result, err = d.db.GetTreasury(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveTreasury(ctx context.Context, doc *model.TreasuryDocument) error {
	return d.run("SaveTreasury", func() error {
		return d.db.SaveTreasury(ctx, doc)
	})
}

func (d *DbWithMetrics) GetRewardState(ctx context.Context, poolID string) (result *model.RewardStateDocument, err error) {
	//nolint:errcheck
	d.run("GetRewardState", func() error {
		result, err = d.db.GetRewardState(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveRewardState(ctx context.Context, doc *model.RewardStateDocument) error {
	return d.run("SaveRewardState", func() error {
		return d.db.SaveRewardState(ctx, doc)
	})
}

func (d *DbWithMetrics) GetRewardEpoch(ctx context.Context, poolID string, number uint64) (result *model.RewardEpochDocument, err error) {
	//nolint:errcheck
	d.run("GetRewardEpoch", func() error {
		result, err = d.db.GetRewardEpoch(ctx, poolID, number)
		return err
	})
	return
}

func (d *DbWithMetrics) ListRewardEpochs(ctx context.Context, poolID string) (result []*model.RewardEpochDocument, err error) {
	//nolint:errcheck
	d.run("ListRewardEpochs", func() error {
		result, err = d.db.ListRewardEpochs(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveRewardEpoch(ctx context.Context, doc *model.RewardEpochDocument) error {
	return d.run("SaveRewardEpoch", func() error {
		return d.db.SaveRewardEpoch(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveEpochPaid(ctx context.Context, doc *model.RewardEpochDocument) error {
	return d.run("SaveEpochPaid", func() error {
		return d.db.SaveEpochPaid(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveRewardSnapshot(ctx context.Context, doc *model.RewardSnapshotDocument) error {
	return d.run("SaveRewardSnapshot", func() error {
		return d.db.SaveRewardSnapshot(ctx, doc)
	})
}

func (d *DbWithMetrics) GetLatestRewardSnapshot(ctx context.Context, poolID string) (result *model.RewardSnapshotDocument, err error) {
	//nolint:errcheck
	d.run("GetLatestRewardSnapshot", func() error {
		result, err = d.db.GetLatestRewardSnapshot(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) GetRiskParameters(ctx context.Context, poolID string) (result *model.RiskParametersDocument, err error) {
	//nolint:errcheck
	d.run("GetRiskParameters", func() error {
		result, err = d.db.GetRiskParameters(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveRiskParameters(ctx context.Context, doc *model.RiskParametersDocument) error {
	return d.run("SaveRiskParameters", func() error {
		return d.db.SaveRiskParameters(ctx, doc)
	})
}

func (d *DbWithMetrics) GetCircuitBreaker(ctx context.Context, poolID string) (result *model.CircuitBreakerDocument, err error) {
	//nolint:errcheck
	d.run("GetCircuitBreaker", func() error {
		result, err = d.db.GetCircuitBreaker(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveCircuitBreaker(ctx context.Context, doc *model.CircuitBreakerDocument) error {
	return d.run("SaveCircuitBreaker", func() error {
		return d.db.SaveCircuitBreaker(ctx, doc)
	})
}

func (d *DbWithMetrics) GetDailyWithdrawal(ctx context.Context, poolID string) (result *model.DailyWithdrawalDocument, err error) {
	//nolint:errcheck
	d.run("GetDailyWithdrawal", func() error {
		result, err = d.db.GetDailyWithdrawal(ctx, poolID)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveDailyWithdrawal(ctx context.Context, doc *model.DailyWithdrawalDocument) error {
	return d.run("SaveDailyWithdrawal", func() error {
		return d.db.SaveDailyWithdrawal(ctx, doc)
	})
}

func (d *DbWithMetrics) SaveNewPayout(ctx context.Context, doc *model.PayoutDocument) error {
	return d.run("SaveNewPayout", func() error {
		return d.db.SaveNewPayout(ctx, doc)
	})
}

func (d *DbWithMetrics) GetPayoutByID(ctx context.Context, id string) (result *model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("GetPayoutByID", func() error {
		result, err = d.db.GetPayoutByID(ctx, id)
		return err
	})
	return
}

func (d *DbWithMetrics) GetPayoutByReferenceID(ctx context.Context, referenceID string) (result *model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("GetPayoutByReferenceID", func() error {
		result, err = d.db.GetPayoutByReferenceID(ctx, referenceID)
		return err
	})
	return
}

func (d *DbWithMetrics) UpdatePayoutStatus(ctx context.Context, id string, qualifiedStatuses []types.PayoutStatus, newStatus types.PayoutStatus, opts ...UpdateOption) (result *model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("UpdatePayoutStatus", func() error {
		result, err = d.db.UpdatePayoutStatus(ctx, id, qualifiedStatuses, newStatus, opts...)
		return err
	})
	return
}

func (d *DbWithMetrics) ListPayoutsByParticipant(ctx context.Context, poolID, participant string) (result []*model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("ListPayoutsByParticipant", func() error {
		result, err = d.db.ListPayoutsByParticipant(ctx, poolID, participant)
		return err
	})
	return
}

func (d *DbWithMetrics) HasOutstandingPayout(ctx context.Context, poolID, participant string) (result bool, err error) {
	//nolint:errcheck
	d.run("HasOutstandingPayout", func() error {
		result, err = d.db.HasOutstandingPayout(ctx, poolID, participant)
		return err
	})
	return
}

func (d *DbWithMetrics) FindRetryablePayouts(ctx context.Context, since time.Time, maxRetries int, limit int64) (result []*model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("FindRetryablePayouts", func() error {
		result, err = d.db.FindRetryablePayouts(ctx, since, maxRetries, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) FindPayoutsByStatus(ctx context.Context, status types.PayoutStatus, limit int64) (result []*model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("FindPayoutsByStatus", func() error {
		result, err = d.db.FindPayoutsByStatus(ctx, status, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) FindStuckPayouts(ctx context.Context, before time.Time, limit int64) (result []*model.PayoutDocument, err error) {
	//nolint:errcheck
	d.run("FindStuckPayouts", func() error {
		result, err = d.db.FindStuckPayouts(ctx, before, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) GetPayoutThreshold(ctx context.Context, poolID, participant string) (result *model.PayoutThresholdDocument, err error) {
	//nolint:errcheck
	d.run("GetPayoutThreshold", func() error {
		result, err = d.db.GetPayoutThreshold(ctx, poolID, participant)
		return err
	})
	return
}

func (d *DbWithMetrics) SavePayoutThreshold(ctx context.Context, doc *model.PayoutThresholdDocument) error {
	return d.run("SavePayoutThreshold", func() error {
		return d.db.SavePayoutThreshold(ctx, doc)
	})
}

func (d *DbWithMetrics) ListPayoutThresholds(ctx context.Context, poolID, afterID string, limit int64) (result []*model.PayoutThresholdDocument, err error) {
	//nolint:errcheck
	d.run("ListPayoutThresholds", func() error {
		result, err = d.db.ListPayoutThresholds(ctx, poolID, afterID, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) SaveOutboxEvent(ctx context.Context, doc *model.OutboxEventDocument) error {
	return d.run("SaveOutboxEvent", func() error {
		return d.db.SaveOutboxEvent(ctx, doc)
	})
}

func (d *DbWithMetrics) FindUnpublishedEvents(ctx context.Context, limit int64) (result []*model.OutboxEventDocument, err error) {
	//nolint:errcheck
	d.run("FindUnpublishedEvents", func() error {
		result, err = d.db.FindUnpublishedEvents(ctx, limit)
		return err
	})
	return
}

func (d *DbWithMetrics) MarkEventPublished(ctx context.Context, id string, at time.Time) error {
	return d.run("MarkEventPublished", func() error {
		return d.db.MarkEventPublished(ctx, id, at)
	})
}

// run is private method that executes passed lambda function and send metrics data with spent time, method name
// and an error if any. It returns the error from the lambda function for convenience
func (d *DbWithMetrics) run(method string, f func() error) error {
	startTime := time.Now()
	err := f()
	duration := time.Since(startTime)

	metrics.RecordDbLatency(duration, method, err != nil)
	return err
}
