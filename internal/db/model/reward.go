package model

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

const RewardStateCollection = "reward_states"

// RewardStateDocument is the per pool accumulator. AccRewardPerShare is scaled
// by types.AccScale.
type RewardStateDocument struct {
	PoolID            string      `bson:"_id" gorm:"column:id;primaryKey"`
	AccRewardPerShare sdkmath.Int `bson:"acc_reward_per_share" gorm:"column:acc_reward_per_share;type:text;serializer:json"`
	LastAccrualAt     time.Time   `bson:"last_accrual_at" gorm:"column:last_accrual_at"`
	// CurrentEpoch is nil until the first epoch is started.
	CurrentEpoch     *uint64     `bson:"current_epoch" gorm:"column:current_epoch"`
	TotalDistributed sdkmath.Int `bson:"total_distributed" gorm:"column:total_distributed;type:text;serializer:json"`
	Versioned        `bson:",inline" gorm:"embedded"`
}

func (RewardStateDocument) TableName() string { return RewardStateCollection }

func (d *RewardStateDocument) Key() string { return d.PoolID }

func NewRewardStateDocument(poolID string, now time.Time) *RewardStateDocument {
	return &RewardStateDocument{
		PoolID:            poolID,
		AccRewardPerShare: sdkmath.ZeroInt(),
		LastAccrualAt:     now,
		TotalDistributed:  sdkmath.ZeroInt(),
	}
}

const RewardEpochCollection = "reward_epochs"

type RewardEpochDocument struct {
	ID     string `bson:"_id" gorm:"column:id;primaryKey"`
	PoolID string `bson:"pool_id" gorm:"column:pool_id;index"`
	Number uint64 `bson:"number" gorm:"column:number"`
	// Rate is in base units per second.
	Rate      sdkmath.Int `bson:"rate" gorm:"column:rate;type:text;serializer:json"`
	StartTime time.Time   `bson:"start_time" gorm:"column:start_time"`
	// EndTime is nil while the epoch is open. Once it is set only Paid changes.
	EndTime *time.Time `bson:"end_time" gorm:"column:end_time"`
	// AccAtStart and AccAtEnd bound the accumulator values reached during the
	// epoch. AccAtEnd is nil while the epoch is open.
	AccAtStart sdkmath.Int  `bson:"acc_at_start" gorm:"column:acc_at_start;type:text;serializer:json"`
	AccAtEnd   *sdkmath.Int `bson:"acc_at_end" gorm:"column:acc_at_end;type:text;serializer:json"`
	// Distributed is the reward credited to the accumulator during the epoch,
	// rounded up per accrual.
	Distributed sdkmath.Int `bson:"distributed" gorm:"column:distributed;type:text;serializer:json"`
	// Paid is the reward earned in this epoch that participants have claimed,
	// whenever the claim happened.
	Paid      sdkmath.Int `bson:"paid" gorm:"column:paid;type:text;serializer:json"`
	StartedBy string      `bson:"started_by" gorm:"column:started_by"`
	Versioned `bson:",inline" gorm:"embedded"`
}

func (RewardEpochDocument) TableName() string { return RewardEpochCollection }

func (d *RewardEpochDocument) Key() string { return d.ID }

func (d *RewardEpochDocument) IsOpen() bool { return d.EndTime == nil }

// Close fixes the end of the epoch at the given time and accumulator value.
func (d *RewardEpochDocument) Close(at time.Time, acc sdkmath.Int) {
	d.EndTime = &at
	d.AccAtEnd = &acc
}

// Budget is rate * duration, the most the epoch may ever distribute.
func (d *RewardEpochDocument) Budget(now time.Time) sdkmath.Int {
	end := now
	if d.EndTime != nil {
		end = *d.EndTime
	}
	seconds := int64(end.Sub(d.StartTime) / time.Second)
	if seconds <= 0 {
		return sdkmath.ZeroInt()
	}
	return d.Rate.MulRaw(seconds)
}

func NewRewardEpochDocument(poolID string, number uint64, rate sdkmath.Int, start time.Time, actor string) *RewardEpochDocument {
	return &RewardEpochDocument{
		ID:          EpochKey(poolID, number),
		PoolID:      poolID,
		Number:      number,
		Rate:        rate,
		StartTime:   start,
		AccAtStart:  sdkmath.ZeroInt(),
		Distributed: sdkmath.ZeroInt(),
		Paid:        sdkmath.ZeroInt(),
		StartedBy:   actor,
	}
}

const RewardSnapshotCollection = "reward_snapshots"

type RewardSnapshotDocument struct {
	ID                string      `bson:"_id" gorm:"column:id;primaryKey"`
	PoolID            string      `bson:"pool_id" gorm:"column:pool_id;index"`
	TakenAt           time.Time   `bson:"taken_at" gorm:"column:taken_at"`
	EpochNumber       *uint64     `bson:"epoch_number" gorm:"column:epoch_number"`
	AccRewardPerShare sdkmath.Int `bson:"acc_reward_per_share" gorm:"column:acc_reward_per_share;type:text;serializer:json"`
	TVL               sdkmath.Int `bson:"tvl" gorm:"column:tvl;type:text;serializer:json"`
	TotalShares       sdkmath.Int `bson:"total_shares" gorm:"column:total_shares;type:text;serializer:json"`
	// APY is informational only, nil when TVL is zero.
	APY           *sdkmath.LegacyDec `bson:"apy" gorm:"column:apy;type:text;serializer:json"`
	SchemaVersion string             `bson:"schema_version" gorm:"column:schema_version"`
}

func (RewardSnapshotDocument) TableName() string { return RewardSnapshotCollection }
