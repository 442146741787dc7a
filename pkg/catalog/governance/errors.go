package governance

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Code is a machine-readable error category.
type Code string

const (
	CodeIllegalEdge        Code = "ILLEGAL_EDGE"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodePreconditionFailed Code = "PRECONDITION_FAILED"
	CodeStaleEntity        Code = "STALE_ENTITY"
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnavailable        Code = "UNAVAILABLE"
)

// Error is returned by every engine operation. Entity and ledger state are
// unchanged whenever an Error is returned.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, ErrStaleEntity).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrIllegalEdge        = &Error{Code: CodeIllegalEdge, Message: "illegal edge"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrPreconditionFailed = &Error{Code: CodePreconditionFailed, Message: "precondition failed"}
	ErrStaleEntity        = &Error{Code: CodeStaleEntity, Message: "stale entity"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrUnavailable        = &Error{Code: CodeUnavailable, Message: "store unavailable"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// classify turns a persistence error into an *Error. Existing *Error values
// and context cancellation pass through unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Code: CodeNotFound, Message: op + ": not found", Err: err}
	}
	return &Error{Code: CodeUnavailable, Message: op, Err: err}
}

// CodeOf returns the code carried by err, or "" if err is not an *Error.
func CodeOf(err error) Code {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return ""
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeIllegalEdge:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodePreconditionFailed:
		return http.StatusUnprocessableEntity
	case CodeStaleEntity:
		return http.StatusPreconditionFailed
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	}
	if errors.Is(err, context.Canceled) {
		// Client went away; the status is never seen.
		return 499
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
