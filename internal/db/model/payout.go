package model

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/types"
)

const PayoutCollection = "payout_requests"

type PayoutDocument struct {
	ID          string             `bson:"_id" gorm:"column:id;primaryKey"`
	ReferenceID string             `bson:"reference_id" gorm:"column:reference_id;uniqueIndex"`
	PoolID      string             `bson:"pool_id" gorm:"column:pool_id;index:idx_payout_participant"`
	Participant string             `bson:"participant" gorm:"column:participant;index:idx_payout_participant"`
	Recipient   string             `bson:"recipient" gorm:"column:recipient"`
	Amount      sdkmath.Int        `bson:"amount" gorm:"column:amount;type:text;serializer:json"`
	Fee         sdkmath.Int        `bson:"fee" gorm:"column:fee;type:text;serializer:json"`
	NetAmount   sdkmath.Int        `bson:"net_amount" gorm:"column:net_amount;type:text;serializer:json"`
	Status      types.PayoutStatus `bson:"status" gorm:"column:status;index"`
	// Source tells who queued the payout: a participant request or the sweep.
	Source       string            `bson:"source" gorm:"column:source"`
	TransferRef  *string           `bson:"transfer_ref" gorm:"column:transfer_ref"`
	ErrorMessage *string           `bson:"error_message" gorm:"column:error_message"`
	FailureKind  types.FailureKind `bson:"failure_kind" gorm:"column:failure_kind"`
	RetryCount   int               `bson:"retry_count" gorm:"column:retry_count"`
	// QuotaWindow is the daily window the amount was reserved in while processing.
	QuotaWindow   *time.Time `bson:"quota_window" gorm:"column:quota_window"`
	CreatedAt     time.Time  `bson:"created_at" gorm:"column:created_at;autoCreateTime:false"`
	ProcessedAt   *time.Time `bson:"processed_at" gorm:"column:processed_at"`
	ConfirmedAt   *time.Time `bson:"confirmed_at" gorm:"column:confirmed_at"`
	FailedAt      *time.Time `bson:"failed_at" gorm:"column:failed_at"`
	CancelledAt   *time.Time `bson:"cancelled_at" gorm:"column:cancelled_at"`
	SchemaVersion string     `bson:"schema_version" gorm:"column:schema_version"`
}

func (PayoutDocument) TableName() string { return PayoutCollection }

const (
	PayoutSourceRequest = "request"
	PayoutSourceSweep   = "sweep"
)

const PayoutThresholdCollection = "payout_thresholds"

type PayoutThresholdDocument struct {
	ID          string      `bson:"_id" gorm:"column:id;primaryKey"`
	PoolID      string      `bson:"pool_id" gorm:"column:pool_id;index"`
	Participant string      `bson:"participant" gorm:"column:participant"`
	Threshold   sdkmath.Int `bson:"threshold" gorm:"column:threshold;type:text;serializer:json"`
	Recipient   string      `bson:"recipient" gorm:"column:recipient"`
	UpdatedAt   time.Time   `bson:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
	Versioned   `bson:",inline" gorm:"embedded"`
}

func (PayoutThresholdDocument) TableName() string { return PayoutThresholdCollection }

func (d *PayoutThresholdDocument) Key() string { return d.ID }
