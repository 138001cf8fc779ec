package model

import (
	"time"

	"github.com/viddhana/pool-ledger/internal/types"
)

const OutboxEventCollection = "outbox_events"

// OutboxEventDocument is appended in the same transaction as the state change
// it describes. IDs are time ordered so sorting by id gives creation order.
type OutboxEventDocument struct {
	ID            string          `bson:"_id" gorm:"column:id;primaryKey"`
	Type          types.EventType `bson:"type" gorm:"column:type"`
	PoolID        string          `bson:"pool_id" gorm:"column:pool_id"`
	Payload       string          `bson:"payload" gorm:"column:payload"`
	CreatedAt     time.Time       `bson:"created_at" gorm:"column:created_at;autoCreateTime:false"`
	PublishedAt   *time.Time      `bson:"published_at" gorm:"column:published_at;index"`
	SchemaVersion string          `bson:"schema_version" gorm:"column:schema_version"`
}

func (OutboxEventDocument) TableName() string { return OutboxEventCollection }
