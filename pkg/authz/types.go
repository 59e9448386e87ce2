package authz

import (
	"fmt"
	"strings"
)

const (
	rolePrefix            = "role"
	objectSeparator       = "."
	subjectSeparator      = ":"
	defaultActionWildcard = "*"
)

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Object  string
	Action  string
}

// NewRequest constructs a Request with normalized object and action.
func NewRequest(subject, object, action string) Request {
	return Request{
		Subject: strings.TrimSpace(subject),
		Object:  strings.ToLower(strings.TrimSpace(object)),
		Action:  NormalizeAction(action),
	}
}

// SubjectForRole returns the canonical identifier for a role-based subject.
func SubjectForRole(roleSlug string) string {
	roleSlug = strings.TrimSpace(roleSlug)
	if roleSlug == "" {
		roleSlug = "unnamed"
	}
	if strings.HasPrefix(roleSlug, rolePrefix+subjectSeparator) {
		return roleSlug
	}
	return fmt.Sprintf("%s%s%s", rolePrefix, subjectSeparator, strings.ToLower(roleSlug))
}

// ObjectName returns the canonical module.resource string, lowercased.
func ObjectName(module, resource string) string {
	module = strings.ToLower(strings.TrimSpace(module))
	resource = strings.ToLower(strings.TrimSpace(resource))
	if module == "" {
		module = "global"
	}
	if resource == "" {
		resource = "resource"
	}
	return module + objectSeparator + resource
}

// NormalizeAction returns a normalized action string.
func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return defaultActionWildcard
	}
	return action
}
