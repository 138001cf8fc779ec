package services

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

// Outbox payloads. Amounts are base units encoded as decimal strings.

type PoolCreatedEvent struct {
	PoolID    string    `json:"pool_id"`
	Asset     string    `json:"asset"`
	CreatedBy string    `json:"created_by"`
	Timestamp time.Time `json:"timestamp"`
}

type PoolStatusChangedEvent struct {
	PoolID    string           `json:"pool_id"`
	Status    types.PoolStatus `json:"status"`
	ChangedBy string           `json:"changed_by"`
	Timestamp time.Time        `json:"timestamp"`
}

type DepositedEvent struct {
	PoolID       string            `json:"pool_id"`
	Participant  string            `json:"participant"`
	Amount       sdkmath.Int       `json:"amount"`
	SharesIssued sdkmath.Int       `json:"shares_issued"`
	ExchangeRate sdkmath.LegacyDec `json:"exchange_rate"`
	Timestamp    time.Time         `json:"timestamp"`
}

type WithdrawnEvent struct {
	PoolID       string            `json:"pool_id"`
	Participant  string            `json:"participant"`
	SharesBurned sdkmath.Int       `json:"shares_burned"`
	ValueOut     sdkmath.Int       `json:"value_out"`
	ExchangeRate sdkmath.LegacyDec `json:"exchange_rate"`
	Timestamp    time.Time         `json:"timestamp"`
}

type PoolRepricedEvent struct {
	PoolID            string            `json:"pool_id"`
	PreviousRate      sdkmath.LegacyDec `json:"previous_rate"`
	NewRate           sdkmath.LegacyDec `json:"new_rate"`
	LossSocialization bool              `json:"loss_socialization"`
	RepricedBy        string            `json:"repriced_by"`
	SignedOffBy       string            `json:"signed_off_by,omitempty"`
	Timestamp         time.Time         `json:"timestamp"`
}

type EpochStartedEvent struct {
	PoolID      string      `json:"pool_id"`
	Number      uint64      `json:"number"`
	Rate        sdkmath.Int `json:"rate"`
	StartTime   time.Time   `json:"start_time"`
	ClosedEpoch *uint64     `json:"closed_epoch,omitempty"`
	StartedBy   string      `json:"started_by"`
}

type RewardsClaimedEvent struct {
	PoolID      string      `json:"pool_id"`
	Participant string      `json:"participant"`
	Amount      sdkmath.Int `json:"amount"`
	// Epochs splits Amount by the epoch it was earned in.
	Epochs    []model.EpochReward `json:"epochs"`
	Timestamp time.Time           `json:"timestamp"`
}

type PayoutQueuedEvent struct {
	PayoutID    string      `json:"payout_id"`
	ReferenceID string      `json:"reference_id"`
	PoolID      string      `json:"pool_id"`
	Participant string      `json:"participant"`
	Recipient   string      `json:"recipient"`
	Amount      sdkmath.Int `json:"amount"`
	Source      string      `json:"source"`
	Timestamp   time.Time   `json:"timestamp"`
}

type PayoutProcessedEvent struct {
	PayoutID     string             `json:"payout_id"`
	PoolID       string             `json:"pool_id"`
	Participant  string             `json:"participant"`
	Status       types.PayoutStatus `json:"status"`
	Amount       sdkmath.Int        `json:"amount"`
	Fee          sdkmath.Int        `json:"fee"`
	NetAmount    sdkmath.Int        `json:"net_amount"`
	TransferRef  string             `json:"transfer_ref,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

type PayoutCancelledEvent struct {
	PayoutID  string    `json:"payout_id"`
	PoolID    string    `json:"pool_id"`
	Timestamp time.Time `json:"timestamp"`
}

type PayoutBatchProcessedEvent struct {
	Requested int                        `json:"requested"`
	Statuses  map[types.PayoutStatus]int `json:"statuses"`
	Errors    int                        `json:"errors"`
	Timestamp time.Time                  `json:"timestamp"`
}

type CircuitBreakerEvent struct {
	PoolID    string    `json:"pool_id"`
	Active    bool      `json:"active"`
	Reason    string    `json:"reason,omitempty"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

type RiskParametersUpdatedEvent struct {
	PoolID             string             `json:"pool_id"`
	MaxTVL             *sdkmath.Int       `json:"max_tvl,omitempty"`
	MaxDeposit         *sdkmath.Int       `json:"max_deposit,omitempty"`
	MaxDailyWithdrawal *sdkmath.Int       `json:"max_daily_withdrawal,omitempty"`
	BreakerThreshold   *sdkmath.LegacyDec `json:"breaker_threshold,omitempty"`
	UpdatedBy          string             `json:"updated_by"`
	Timestamp          time.Time          `json:"timestamp"`
}
