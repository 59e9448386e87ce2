package main

import (
	"github.com/go-faster/errors"

	"github.com/iota-uz/perfeval/modules/evaluation/services"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK            = 0
	exitFailure       = 1
	exitUsage         = 2
	exitNotAuthorized = 3
	exitInvalidState  = 4
	exitValidation    = 5
	exitStorage       = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func usageError(format string, args ...any) error {
	return withCode(exitUsage, errors.Errorf(format, args...))
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	var se *services.ServiceError
	if errors.As(err, &se) {
		switch se.Code {
		case services.CodeNotAuthorized:
			return exitNotAuthorized
		case services.CodeInvalidState:
			return exitInvalidState
		case services.CodeValidationFailed:
			return exitValidation
		case services.CodeUnrecoverable:
			return exitStorage
		}
	}
	return exitFailure
}
