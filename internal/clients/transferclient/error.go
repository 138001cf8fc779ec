package transferclient

import (
	"errors"
	"fmt"
)

// RejectedError means the gateway refused the transfer. Nothing was sent and
// resubmitting the same request will not succeed.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("transfer rejected (status %d): %s", e.StatusCode, e.Message)
}

// UnavailableError means the gateway did not accept the transfer: the dial
// failed or it answered 429 or 503. Nothing was sent and the request may be
// retried.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("transfer gateway unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// OutcomeUnknownError means the request may have reached the gateway but no
// usable answer came back, including any 5xx other than 503. The transfer may
// or may not have been made.
type OutcomeUnknownError struct {
	Err error
}

func (e *OutcomeUnknownError) Error() string {
	return fmt.Sprintf("transfer outcome unknown: %v", e.Err)
}

func (e *OutcomeUnknownError) Unwrap() error {
	return e.Err
}

func IsRejected(err error) bool {
	var e *RejectedError
	return errors.As(err, &e)
}

func IsUnavailable(err error) bool {
	var e *UnavailableError
	return errors.As(err, &e)
}

func IsOutcomeUnknown(err error) bool {
	var e *OutcomeUnknownError
	return errors.As(err, &e)
}
