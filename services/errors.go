package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

type Code string

const (
	CodeValidation      Code = "VALIDATION"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflictPending Code = "CONFLICT_PENDING"
	CodeAlreadyRedeemed Code = "ALREADY_REDEEMED"
	CodeAlreadyResolved Code = "ALREADY_RESOLVED"
	CodeStorageFailure  Code = "STORAGE_FAILURE"
	CodeUnexpected      Code = "UNEXPECTED"
)

// Error is the typed failure returned by every service operation. Message is
// safe to show to clients; Err carries the underlying cause, if any.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func Validation(msg string) *Error { return newError(CodeValidation, msg) }

func NotFound(what string) *Error { return newError(CodeNotFound, what+" not found") }

func storageFailure(err error) *Error {
	return &Error{Code: CodeStorageFailure, Message: "Failed to store file", Err: err}
}

func unexpected(err error) *Error {
	return &Error{Code: CodeUnexpected, Message: "Internal server error", Err: err}
}

var (
	errConflictPending = newError(CodeConflictPending, "You already have a pending submission for this reward")
	errAlreadyRedeemed = newError(CodeAlreadyRedeemed, "This reward can only be redeemed once and you already completed it")
	errAlreadyResolved = newError(CodeAlreadyResolved, "Submission has already been reviewed")
)

// CodeOf returns the code carried by err, or UNEXPECTED for foreign errors.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return CodeUnexpected
}

// asServiceError wraps foreign errors as UNEXPECTED and passes typed ones through.
func asServiceError(err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return unexpected(err)
}

// isUniqueViolation recognises unique-index failures from both drivers,
// with or without gorm's error translation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
