package types

import (
	"fmt"
	"time"
)

// Enum values for Pool Status
type PoolStatus string

const (
	PoolStatusActive PoolStatus = "active"
	PoolStatusPaused PoolStatus = "paused"
)

func (s PoolStatus) String() string {
	return string(s)
}

// Enum values for Payout Status
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
	PayoutStatusCancelled  PayoutStatus = "cancelled"
)

func (s PayoutStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no automatic transition leaves the status.
// failed is terminal for processing purposes, only the retry sweep moves it
// back to pending.
func (s PayoutStatus) IsTerminal() bool {
	switch s {
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusCancelled:
		return true
	default:
		return false
	}
}

func PayoutStatusFromString(s string) (PayoutStatus, error) {
	switch PayoutStatus(s) {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted,
		PayoutStatusFailed, PayoutStatusCancelled:
		return PayoutStatus(s), nil
	default:
		return "", fmt.Errorf("invalid payout status: %s", s)
	}
}

// QualifiedStatesForProcessing returns the qualified current states for the
// pending -> processing transition
func QualifiedStatesForProcessing() []PayoutStatus {
	return []PayoutStatus{PayoutStatusPending}
}

// QualifiedStatesForCompletion returns the qualified current states for the
// processing -> completed and processing -> failed transitions
func QualifiedStatesForCompletion() []PayoutStatus {
	return []PayoutStatus{PayoutStatusProcessing}
}

// QualifiedStatesForCancel returns the qualified current states for cancelling a payout
func QualifiedStatesForCancel() []PayoutStatus {
	return []PayoutStatus{PayoutStatusPending}
}

// QualifiedStatesForRetry returns the qualified current states for the
// failed -> pending transition done by the retry sweep
func QualifiedStatesForRetry() []PayoutStatus {
	return []PayoutStatus{PayoutStatusFailed}
}

// OutstandingPayoutStates are the states that block the automatic sweep from
// queuing another payout for the same participant
func OutstandingPayoutStates() []PayoutStatus {
	return []PayoutStatus{PayoutStatusPending, PayoutStatusProcessing}
}

type FailureKind string

const (
	FailureKindTransient FailureKind = "transient"
	FailureKindPermanent FailureKind = "permanent"
)

func (k FailureKind) String() string {
	return string(k)
}

// WithdrawalWindowMode selects how the daily withdrawal accumulator rolls over.
type WithdrawalWindowMode string

const (
	// WindowModeCalendar resets at UTC midnight.
	WindowModeCalendar WithdrawalWindowMode = "calendar"
	// WindowModeRolling resets 24h after the window was opened.
	WindowModeRolling WithdrawalWindowMode = "rolling"
)

func (m WithdrawalWindowMode) String() string {
	return string(m)
}

func WithdrawalWindowModeFromString(s string) (WithdrawalWindowMode, error) {
	switch WithdrawalWindowMode(s) {
	case WindowModeCalendar, WindowModeRolling:
		return WithdrawalWindowMode(s), nil
	default:
		return "", fmt.Errorf("invalid withdrawal window mode: %s", s)
	}
}

const WithdrawalWindowLength = 24 * time.Hour

// OpenWindow returns the start of a window opened at now.
func (m WithdrawalWindowMode) OpenWindow(now time.Time) time.Time {
	now = now.UTC()
	if m == WindowModeRolling {
		return now
	}
	return now.Truncate(WithdrawalWindowLength)
}

// Expired reports whether a window that started at start has rolled over by now.
func (m WithdrawalWindowMode) Expired(start, now time.Time) bool {
	return !now.Before(start.Add(WithdrawalWindowLength))
}
