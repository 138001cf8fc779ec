package db

import (
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/viddhana/pool-ledger/internal/db/model"
	"github.com/viddhana/pool-ledger/internal/types"
)

// PayoutUpdate is the set of fields written together with a payout status change.
type PayoutUpdate struct {
	Fee              *sdkmath.Int
	NetAmount        *sdkmath.Int
	QuotaWindow      *time.Time
	ClearQuotaWindow bool
	TransferRef      *string
	ErrorMessage     *string
	ClearError       bool
	FailureKind      *types.FailureKind
	ProcessedAt      *time.Time
	ConfirmedAt      *time.Time
	FailedAt         *time.Time
	CancelledAt      *time.Time
	IncRetryCount    bool
}

type UpdateOption func(*PayoutUpdate)

func NewPayoutUpdate(opts ...UpdateOption) *PayoutUpdate {
	u := &PayoutUpdate{}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func WithFee(fee, net sdkmath.Int) UpdateOption {
	return func(u *PayoutUpdate) {
		u.Fee = &fee
		u.NetAmount = &net
	}
}

// WithQuotaWindow records the daily window the payout amount was reserved in.
func WithQuotaWindow(window time.Time) UpdateOption {
	return func(u *PayoutUpdate) {
		u.QuotaWindow = &window
	}
}

func WithoutQuotaWindow() UpdateOption {
	return func(u *PayoutUpdate) {
		u.ClearQuotaWindow = true
	}
}

func WithTransferRef(ref string) UpdateOption {
	return func(u *PayoutUpdate) {
		u.TransferRef = &ref
	}
}

func WithFailure(kind types.FailureKind, message string, at time.Time) UpdateOption {
	return func(u *PayoutUpdate) {
		u.FailureKind = &kind
		u.ErrorMessage = &message
		u.FailedAt = &at
	}
}

// WithClearedFailure resets the error fields, used when a failed payout is retried.
func WithClearedFailure() UpdateOption {
	return func(u *PayoutUpdate) {
		u.ClearError = true
	}
}

func WithProcessedAt(at time.Time) UpdateOption {
	return func(u *PayoutUpdate) {
		u.ProcessedAt = &at
	}
}

func WithConfirmedAt(at time.Time) UpdateOption {
	return func(u *PayoutUpdate) {
		u.ConfirmedAt = &at
	}
}

func WithCancelledAt(at time.Time) UpdateOption {
	return func(u *PayoutUpdate) {
		u.CancelledAt = &at
	}
}

func WithRetryIncrement() UpdateOption {
	return func(u *PayoutUpdate) {
		u.IncRetryCount = true
	}
}

// Apply writes the status and the update onto doc.
func (u *PayoutUpdate) Apply(doc *model.PayoutDocument, status types.PayoutStatus) {
	doc.Status = status
	if u.Fee != nil {
		doc.Fee = *u.Fee
		doc.NetAmount = *u.NetAmount
	}
	if u.QuotaWindow != nil {
		doc.QuotaWindow = u.QuotaWindow
	}
	if u.ClearQuotaWindow {
		doc.QuotaWindow = nil
	}
	if u.TransferRef != nil {
		doc.TransferRef = u.TransferRef
	}
	if u.ErrorMessage != nil {
		doc.ErrorMessage = u.ErrorMessage
	}
	if u.FailureKind != nil {
		doc.FailureKind = *u.FailureKind
	}
	if u.ClearError {
		doc.ErrorMessage = nil
		doc.FailureKind = ""
		doc.FailedAt = nil
	}
	if u.ProcessedAt != nil {
		doc.ProcessedAt = u.ProcessedAt
	}
	if u.ConfirmedAt != nil {
		doc.ConfirmedAt = u.ConfirmedAt
	}
	if u.FailedAt != nil {
		doc.FailedAt = u.FailedAt
	}
	if u.CancelledAt != nil {
		doc.CancelledAt = u.CancelledAt
	}
	if u.IncRetryCount {
		doc.RetryCount++
	}
}
