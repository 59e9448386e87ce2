package authz

import (
	"fmt"

	"github.com/iota-uz/perfeval/pkg/serrors"
)

const (
	ErrorCodeForbidden = "AUTHZ_FORBIDDEN"
	errorLocaleKey     = "Authorization.PermissionDenied"
)

// ErrForbidden matches every denial returned by Authorize (compare with errors.Is).
var ErrForbidden = serrors.NewError(ErrorCodeForbidden, "permission denied", errorLocaleKey)

// forbiddenError builds a standardized error for denied policies.
func forbiddenError(req Request) *serrors.BaseError {
	return ErrForbidden.WithTemplateData(map[string]string{
		"object":  req.Object,
		"action":  req.Action,
		"subject": req.Subject,
	})
}

// configError standardizes configuration validation errors.
func configError(msg string, args ...any) error {
	return fmt.Errorf("authz: "+msg, args...)
}
