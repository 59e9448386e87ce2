package serrors

import (
	"errors"
	"fmt"
)

// BaseError is a coded error that carries a locale key for presentation layers.
type BaseError struct {
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
}

// NewError constructs a BaseError.
func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithTemplateData returns a copy of the error carrying the given template data.
func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	cp := *e
	cp.TemplateData = make(map[string]string, len(data))
	for k, v := range data {
		cp.TemplateData[k] = v
	}
	return &cp
}

// Is matches any BaseError with the same code.
func (e *BaseError) Is(target error) bool {
	var other *BaseError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// HasCode reports whether err (or anything it wraps) is a BaseError with the given code.
func HasCode(err error, code string) bool {
	var base *BaseError
	if !errors.As(err, &base) {
		return false
	}
	return base.Code == code
}
