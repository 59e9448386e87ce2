package services

import (
	"context"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/authz"
	"github.com/iota-uz/perfeval/pkg/serrors"
)

// authzModule prefixes every capability object of this module.
const authzModule = "evaluation"

// CapabilityChecker is satisfied by *authz.Service.
type CapabilityChecker interface {
	Authorize(ctx context.Context, req authz.Request) error
}

// CapabilityObject returns the casbin object for a kind, e.g. "evaluation.teams".
func CapabilityObject(kind domain.Kind) string {
	return authz.ObjectName(authzModule, kind.Resource())
}

func authorizeCapability(ctx context.Context, checker CapabilityChecker, p domain.Principal, object, action string) error {
	if !p.Valid() {
		return notAuthorized()
	}
	if checker == nil {
		return nil
	}
	req := authz.NewRequest(authz.SubjectForRole(string(p.Role)), object, action)
	if err := checker.Authorize(ctx, req); err != nil {
		if serrors.HasCode(err, authz.ErrorCodeForbidden) {
			return notAuthorized()
		}
		return unrecoverable("authorize "+object+":"+action, err)
	}
	return nil
}
