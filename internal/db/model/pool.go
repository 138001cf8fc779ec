package model

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/types"
)

const PoolCollection = "pools"

type PoolDocument struct {
	ID           string            `bson:"_id" gorm:"column:id;primaryKey"`
	Asset        string            `bson:"asset" gorm:"column:asset"`
	TotalShares  sdkmath.Int       `bson:"total_shares" gorm:"column:total_shares;type:text;serializer:json"`
	TVL          sdkmath.Int       `bson:"tvl" gorm:"column:tvl;type:text;serializer:json"`
	ExchangeRate sdkmath.LegacyDec `bson:"exchange_rate" gorm:"column:exchange_rate;type:text;serializer:json"`
	Status       types.PoolStatus  `bson:"status" gorm:"column:status"`
	CreatedAt    time.Time         `bson:"created_at" gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt    time.Time         `bson:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
	Versioned    `bson:",inline" gorm:"embedded"`
}

func (PoolDocument) TableName() string { return PoolCollection }

func (d *PoolDocument) Key() string { return d.ID }

func NewPoolDocument(id, asset string, now time.Time) *PoolDocument {
	return &PoolDocument{
		ID:           id,
		Asset:        asset,
		TotalShares:  sdkmath.ZeroInt(),
		TVL:          sdkmath.ZeroInt(),
		ExchangeRate: sdkmath.LegacyOneDec(),
		Status:       types.PoolStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

const ParticipantBalanceCollection = "participant_balances"

type ParticipantBalanceDocument struct {
	ID            string      `bson:"_id" gorm:"column:id;primaryKey"`
	PoolID        string      `bson:"pool_id" gorm:"column:pool_id;index"`
	Participant   string      `bson:"participant" gorm:"column:participant"`
	Shares        sdkmath.Int `bson:"shares" gorm:"column:shares;type:text;serializer:json"`
	LastDepositAt *time.Time  `bson:"last_deposit_at" gorm:"column:last_deposit_at"`
	// ClaimedToDate never decreases.
	ClaimedToDate sdkmath.Int `bson:"claimed_to_date" gorm:"column:claimed_to_date;type:text;serializer:json"`
	// CheckpointAcc is the pool accumulator at the last checkpoint, reached in
	// CheckpointEpoch. Both move on every deposit, withdrawal and claim.
	CheckpointAcc   sdkmath.Int `bson:"checkpoint_acc" gorm:"column:checkpoint_acc;type:text;serializer:json"`
	CheckpointEpoch *uint64     `bson:"checkpoint_epoch" gorm:"column:checkpoint_epoch"`
	// AccruedRewards holds rewards settled at checkpoints and not yet claimed,
	// AccruedByEpoch splits the same amount by the epoch it was earned in.
	AccruedRewards sdkmath.Int   `bson:"accrued_rewards" gorm:"column:accrued_rewards;type:text;serializer:json"`
	AccruedByEpoch []EpochReward `bson:"accrued_by_epoch" gorm:"column:accrued_by_epoch;type:text;serializer:json"`
	UpdatedAt      time.Time     `bson:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
	Versioned      `bson:",inline" gorm:"embedded"`
}

// EpochReward is an amount of reward attributed to one epoch.
type EpochReward struct {
	Epoch  uint64      `bson:"epoch" json:"epoch"`
	Amount sdkmath.Int `bson:"amount" json:"amount"`
}

func (ParticipantBalanceDocument) TableName() string { return ParticipantBalanceCollection }

func (d *ParticipantBalanceDocument) Key() string { return d.ID }

func NewParticipantBalanceDocument(poolID, participant string) *ParticipantBalanceDocument {
	return &ParticipantBalanceDocument{
		ID:             ParticipantKey(poolID, participant),
		PoolID:         poolID,
		Participant:    participant,
		Shares:         sdkmath.ZeroInt(),
		ClaimedToDate:  sdkmath.ZeroInt(),
		CheckpointAcc:  sdkmath.ZeroInt(),
		AccruedRewards: sdkmath.ZeroInt(),
	}
}

const TreasuryCollection = "treasury"

type TreasuryDocument struct {
	PoolID        string      `bson:"_id" gorm:"column:id;primaryKey"`
	FeesCollected sdkmath.Int `bson:"fees_collected" gorm:"column:fees_collected;type:text;serializer:json"`
	UpdatedAt     time.Time   `bson:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
	Versioned     `bson:",inline" gorm:"embedded"`
}

func (TreasuryDocument) TableName() string { return TreasuryCollection }

func (d *TreasuryDocument) Key() string { return d.PoolID }

func NewTreasuryDocument(poolID string) *TreasuryDocument {
	return &TreasuryDocument{PoolID: poolID, FeesCollected: sdkmath.ZeroInt()}
}
