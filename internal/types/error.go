package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	ValidationError      ErrorCode = "VALIDATION_ERROR"
	StateConflict        ErrorCode = "STATE_CONFLICT"
	Forbidden            ErrorCode = "FORBIDDEN"
	NotFound             ErrorCode = "NOT_FOUND"
	TransientError       ErrorCode = "TRANSIENT_ERROR"
)

// Reason narrows an ErrorCode down to the business rule that rejected the call.
type Reason string

const (
	ReasonNone                   Reason = ""
	ReasonInvalidAmount          Reason = "INVALID_AMOUNT"
	ReasonAmountTooSmall         Reason = "AMOUNT_TOO_SMALL"
	ReasonInvalidRecipient       Reason = "INVALID_RECIPIENT"
	ReasonInvalidParticipant     Reason = "INVALID_PARTICIPANT"
	ReasonInvalidReference       Reason = "INVALID_REFERENCE"
	ReasonInvalidRate            Reason = "INVALID_RATE"
	ReasonAssetMismatch          Reason = "ASSET_MISMATCH"
	ReasonBelowMinimumPayout     Reason = "BELOW_MINIMUM_PAYOUT"
	ReasonPoolPaused             Reason = "POOL_PAUSED"
	ReasonCircuitBreakerActive   Reason = "CIRCUIT_BREAKER_ACTIVE"
	ReasonTVLCapExceeded         Reason = "TVL_CAP_EXCEEDED"
	ReasonDepositCapExceeded     Reason = "DEPOSIT_CAP_EXCEEDED"
	ReasonDailyLimitExceeded     Reason = "DAILY_LIMIT_EXCEEDED"
	ReasonInsufficientBalance    Reason = "INSUFFICIENT_BALANCE"
	ReasonPayoutAlreadyProcessed Reason = "PAYOUT_ALREADY_PROCESSED"
	ReasonPayoutInProgress       Reason = "PAYOUT_IN_PROGRESS"
	ReasonPayoutNotCancellable   Reason = "PAYOUT_NOT_CANCELLABLE"
	ReasonReferenceReused        Reason = "PAYOUT_REFERENCE_REUSED"
	ReasonBatchTooLarge          Reason = "BATCH_TOO_LARGE"
	ReasonRateDecrease           Reason = "RATE_DECREASE_NOT_ALLOWED"
	ReasonPoolExists             Reason = "POOL_ALREADY_EXISTS"
	ReasonConcurrentUpdate       Reason = "CONCURRENT_UPDATE"
	ReasonMissingRole            Reason = "MISSING_ROLE"
)

// Error is the typed result returned by every service operation for expected
// business failures. Infrastructure faults use InternalServiceError.
type Error struct {
	Err        error
	StatusCode int
	ErrorCode  ErrorCode
	Reason     Reason
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		Err:        err,
		StatusCode: statusCode,
		ErrorCode:  errorCode,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return NewError(statusCode, errorCode, errors.New(msg))
}

func NewInternalServiceError(err error) *Error {
	return NewError(http.StatusInternalServerError, InternalServiceError, err)
}

func NewTransientError(err error) *Error {
	return NewError(http.StatusServiceUnavailable, TransientError, err)
}

func NewValidationError(reason Reason, format string, args ...any) *Error {
	e := NewError(http.StatusBadRequest, ValidationError, fmt.Errorf(format, args...))
	e.Reason = reason
	return e
}

func NewStateConflictError(reason Reason, format string, args ...any) *Error {
	e := NewError(http.StatusConflict, StateConflict, fmt.Errorf(format, args...))
	e.Reason = reason
	return e
}

func NewForbiddenError(format string, args ...any) *Error {
	e := NewError(http.StatusForbidden, Forbidden, fmt.Errorf(format, args...))
	e.Reason = ReasonMissingRole
	return e
}

func NewNotFoundError(format string, args ...any) *Error {
	return NewError(http.StatusNotFound, NotFound, fmt.Errorf(format, args...))
}

// AsError extracts the typed error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ReasonOf returns the business reason of err, or ReasonNone.
func ReasonOf(err error) Reason {
	if e, ok := AsError(err); ok {
		return e.Reason
	}
	return ReasonNone
}

// CodeOf returns the error code of err. Untyped errors are internal.
func CodeOf(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.ErrorCode
	}
	return InternalServiceError
}

func IsReason(err error, reason Reason) bool {
	return err != nil && ReasonOf(err) == reason
}
