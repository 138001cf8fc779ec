package db

import (
	"context"
	"time"

	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

// DbInterface is the durable store behind the ledger core. Every entity is
// addressable by its natural key. Versioned documents are written with Save*
// methods: Version 0 inserts, any other value is the expected current version
// and a mismatch returns a ConflictError. On success the document carries the
// new version.
type DbInterface interface {
	Ping(ctx context.Context) error
	// WithTransaction runs fn atomically. Nested calls join the outer transaction.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Pools
	GetPool(ctx context.Context, poolID string) (*model.PoolDocument, error)
	ListPools(ctx context.Context) ([]*model.PoolDocument, error)
	SavePool(ctx context.Context, doc *model.PoolDocument) error

	// Participant balances
	GetParticipantBalance(ctx context.Context, poolID, participant string) (*model.ParticipantBalanceDocument, error)
	SaveParticipantBalance(ctx context.Context, doc *model.ParticipantBalanceDocument) error

	// Treasury
	GetTreasury(ctx context.Context, poolID string) (*model.TreasuryDocument, error)
	SaveTreasury(ctx context.Context, doc *model.TreasuryDocument) error

	// Rewards
	GetRewardState(ctx context.Context, poolID string) (*model.RewardStateDocument, error)
	SaveRewardState(ctx context.Context, doc *model.RewardStateDocument) error
	GetRewardEpoch(ctx context.Context, poolID string, number uint64) (*model.RewardEpochDocument, error)
	ListRewardEpochs(ctx context.Context, poolID string) ([]*model.RewardEpochDocument, error)
	// SaveRewardEpoch refuses to modify an epoch that is already closed in the store.
	SaveRewardEpoch(ctx context.Context, doc *model.RewardEpochDocument) error
	// SaveEpochPaid writes only Paid of a closed epoch, at the expected version.
	SaveEpochPaid(ctx context.Context, doc *model.RewardEpochDocument) error
	SaveRewardSnapshot(ctx context.Context, doc *model.RewardSnapshotDocument) error
	GetLatestRewardSnapshot(ctx context.Context, poolID string) (*model.RewardSnapshotDocument, error)

	// Risk
	GetRiskParameters(ctx context.Context, poolID string) (*model.RiskParametersDocument, error)
	SaveRiskParameters(ctx context.Context, doc *model.RiskParametersDocument) error
	GetCircuitBreaker(ctx context.Context, poolID string) (*model.CircuitBreakerDocument, error)
	SaveCircuitBreaker(ctx context.Context, doc *model.CircuitBreakerDocument) error
	GetDailyWithdrawal(ctx context.Context, poolID string) (*model.DailyWithdrawalDocument, error)
	SaveDailyWithdrawal(ctx context.Context, doc *model.DailyWithdrawalDocument) error

	// Payouts
	// SaveNewPayout returns a DuplicateKeyError when the reference id is taken.
	SaveNewPayout(ctx context.Context, doc *model.PayoutDocument) error
	GetPayoutByID(ctx context.Context, id string) (*model.PayoutDocument, error)
	GetPayoutByReferenceID(ctx context.Context, referenceID string) (*model.PayoutDocument, error)
	// UpdatePayoutStatus moves the payout to newStatus only if its current status
	// is one of qualifiedStatuses, otherwise it returns a NotFoundError.
	UpdatePayoutStatus(
		ctx context.Context, id string, qualifiedStatuses []types.PayoutStatus,
		newStatus types.PayoutStatus, opts ...UpdateOption,
	) (*model.PayoutDocument, error)
	ListPayoutsByParticipant(ctx context.Context, poolID, participant string) ([]*model.PayoutDocument, error)
	HasOutstandingPayout(ctx context.Context, poolID, participant string) (bool, error)
	// FindRetryablePayouts returns failed payouts that failed at or after since
	// and were retried fewer than maxRetries times.
	FindRetryablePayouts(ctx context.Context, since time.Time, maxRetries int, limit int64) ([]*model.PayoutDocument, error)
	// FindPayoutsByStatus returns the oldest payouts in the given status.
	FindPayoutsByStatus(ctx context.Context, status types.PayoutStatus, limit int64) ([]*model.PayoutDocument, error)
	// FindStuckPayouts returns payouts processing since before the given time.
	FindStuckPayouts(ctx context.Context, before time.Time, limit int64) ([]*model.PayoutDocument, error)

	// Payout thresholds
	GetPayoutThreshold(ctx context.Context, poolID, participant string) (*model.PayoutThresholdDocument, error)
	SavePayoutThreshold(ctx context.Context, doc *model.PayoutThresholdDocument) error
	// ListPayoutThresholds pages through a pool's thresholds ordered by id,
	// starting after afterID.
	ListPayoutThresholds(ctx context.Context, poolID, afterID string, limit int64) ([]*model.PayoutThresholdDocument, error)

	// Outbox
	SaveOutboxEvent(ctx context.Context, doc *model.OutboxEventDocument) error
	FindUnpublishedEvents(ctx context.Context, limit int64) ([]*model.OutboxEventDocument, error)
	MarkEventPublished(ctx context.Context, id string, at time.Time) error
}
