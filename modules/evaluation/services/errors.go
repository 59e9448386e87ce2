package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/authz"
	"github.com/iota-uz/perfeval/pkg/serrors"
)

const (
	CodeNotAuthorized    = "NOT_AUTHORIZED"
	CodeInvalidState     = "INVALID_STATE"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnrecoverable    = "UNRECOVERABLE"
)

// ServiceError is the outcome type returned by every evaluation service. Status is
// the transport status a boundary layer should map it to.
type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

// Is matches another ServiceError by code, so the sentinels below work with errors.Is.
func (e *ServiceError) Is(target error) bool {
	var other *ServiceError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

var (
	ErrNotAuthorized    = newServiceError(http.StatusNotFound, CodeNotAuthorized, "not found or not accessible", nil)
	ErrInvalidState     = newServiceError(http.StatusConflict, CodeInvalidState, "operation not permitted in the current state", nil)
	ErrValidationFailed = newServiceError(http.StatusUnprocessableEntity, CodeValidationFailed, "validation failed", nil)
	ErrUnrecoverable    = newServiceError(http.StatusInternalServerError, CodeUnrecoverable, "storage failure", nil)
)

// notAuthorized deliberately carries no detail: missing and forbidden targets must
// look the same to the caller.
func notAuthorized() *ServiceError {
	return newServiceError(http.StatusNotFound, CodeNotAuthorized, ErrNotAuthorized.Message, nil)
}

func invalidState(format string, args ...any) *ServiceError {
	return newServiceError(http.StatusConflict, CodeInvalidState, fmt.Sprintf(format, args...), nil)
}

func validationFailed(cause error, format string, args ...any) *ServiceError {
	return newServiceError(http.StatusUnprocessableEntity, CodeValidationFailed, fmt.Sprintf(format, args...), cause)
}

func unrecoverable(op string, cause error) *ServiceError {
	return newServiceError(http.StatusInternalServerError, CodeUnrecoverable, op+" failed", cause)
}

// mapStoreError turns adapter errors into service errors. Not-found becomes
// NotAuthorized, a uniqueness conflict InvalidState, and everything else
// Unrecoverable.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if errors.Is(err, domain.ErrNotFound) {
		return notAuthorized()
	}
	if errors.Is(err, domain.ErrConflict) {
		return newServiceError(http.StatusConflict, CodeInvalidState, op+" conflicts with an existing row", err)
	}
	if serrors.HasCode(err, authz.ErrorCodeForbidden) {
		return notAuthorized()
	}
	return unrecoverable(op, err)
}

func isCode(err error, code string) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Code == code
}
