package db

import (
	"errors"
	"fmt"
)

// NotFoundError means no document matched Key.
type NotFoundError struct {
	Key     string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(key, format string, args ...any) error {
	return &NotFoundError{Key: key, Message: fmt.Sprintf(format, args...)}
}

func IsNotFoundError(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// DuplicateKeyError is returned when an insert hits a unique index, e.g. a
// payout reference that was already queued.
type DuplicateKeyError struct {
	Key     string
	Message string
}

func (e *DuplicateKeyError) Error() string { return e.Message }

func NewDuplicateKeyError(key, format string, args ...any) error {
	return &DuplicateKeyError{Key: key, Message: fmt.Sprintf(format, args...)}
}

func IsDuplicateKeyError(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

// ConflictError is returned when a versioned document changed since it was
// read. The caller replays its read-modify-write.
type ConflictError struct {
	Key     string
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(key, format string, args ...any) error {
	return &ConflictError{Key: key, Message: fmt.Sprintf(format, args...)}
}

func IsConflictError(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}
