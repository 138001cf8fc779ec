package model

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

const RiskParametersCollection = "risk_parameters"

// RiskParametersDocument holds the pool limits. A nil limit is unlimited.
type RiskParametersDocument struct {
	PoolID             string       `bson:"_id" gorm:"column:id;primaryKey"`
	MaxTVL             *sdkmath.Int `bson:"max_tvl" gorm:"column:max_tvl;type:text;serializer:json"`
	MaxDeposit         *sdkmath.Int `bson:"max_deposit" gorm:"column:max_deposit;type:text;serializer:json"`
	MaxDailyWithdrawal *sdkmath.Int `bson:"max_daily_withdrawal" gorm:"column:max_daily_withdrawal;type:text;serializer:json"`
	// BreakerThreshold is the fraction of TVL a single withdrawal may move.
	BreakerThreshold *sdkmath.LegacyDec `bson:"breaker_threshold" gorm:"column:breaker_threshold;type:text;serializer:json"`
	UpdatedAt        time.Time          `bson:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
	UpdatedBy        string             `bson:"updated_by" gorm:"column:updated_by"`
	Versioned        `bson:",inline" gorm:"embedded"`
}

func (RiskParametersDocument) TableName() string { return RiskParametersCollection }

func (d *RiskParametersDocument) Key() string { return d.PoolID }

const CircuitBreakerCollection = "circuit_breakers"

type CircuitBreakerDocument struct {
	PoolID      string     `bson:"_id" gorm:"column:id;primaryKey"`
	Active      bool       `bson:"active" gorm:"column:active"`
	Reason      string     `bson:"reason" gorm:"column:reason"`
	TriggeredAt *time.Time `bson:"triggered_at" gorm:"column:triggered_at"`
	TriggeredBy string     `bson:"triggered_by" gorm:"column:triggered_by"`
	ResetAt     *time.Time `bson:"reset_at" gorm:"column:reset_at"`
	ResetBy     string     `bson:"reset_by" gorm:"column:reset_by"`
	Versioned   `bson:",inline" gorm:"embedded"`
}

func (CircuitBreakerDocument) TableName() string { return CircuitBreakerCollection }

func (d *CircuitBreakerDocument) Key() string { return d.PoolID }

const DailyWithdrawalCollection = "daily_withdrawals"

// DailyWithdrawalDocument accumulates value paid out in the current window.
type DailyWithdrawalDocument struct {
	PoolID      string      `bson:"_id" gorm:"column:id;primaryKey"`
	WindowStart time.Time   `bson:"window_start" gorm:"column:window_start"`
	Total       sdkmath.Int `bson:"total" gorm:"column:total;type:text;serializer:json"`
	Versioned   `bson:",inline" gorm:"embedded"`
}

func (DailyWithdrawalDocument) TableName() string { return DailyWithdrawalCollection }

func (d *DailyWithdrawalDocument) Key() string { return d.PoolID }

func NewDailyWithdrawalDocument(poolID string, windowStart time.Time) *DailyWithdrawalDocument {
	return &DailyWithdrawalDocument{PoolID: poolID, WindowStart: windowStart, Total: sdkmath.ZeroInt()}
}
