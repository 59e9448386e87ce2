package services

import (
	"context"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// OwnershipFacts are the attributes of a target entity that access rules look at.
type OwnershipFacts struct {
	TargetID     int64
	EvaluatorID  int64
	EmployeeID   int64
	DepartmentID int64
	TeamID       int64
	Active       bool
}

type ruleKey struct {
	role domain.PrincipalRole
	kind domain.Kind
}

type accessRule func(ctx context.Context, g *AssignmentGraph, p domain.Principal, f OwnershipFacts) (bool, error)

// accessRules is the role/kind decision table for non-admin principals. Pairs that
// are missing deny.
var accessRules = map[ruleKey]accessRule{
	{domain.RoleEvaluator, domain.KindEvaluation}:      evaluatorOwnsOrReaches,
	{domain.RoleEvaluator, domain.KindUser}:            evaluatorOwnsOrReaches,
	{domain.RoleEvaluator, domain.KindComment}:         evaluatorOwnsOrReaches,
	{domain.RoleEvaluator, domain.KindEvaluationScore}: evaluatorOwnsOrReaches,
	{domain.RoleEvaluator, domain.KindTeam}:            evaluatorInTeam,
	{domain.RoleEmployee, domain.KindEvaluation}:       employeeOwns,
	{domain.RoleEmployee, domain.KindUser}:             employeeOwns,
	{domain.RoleEmployee, domain.KindComment}:          employeeOwns,
	{domain.RoleEmployee, domain.KindEvaluationScore}:  employeeOwns,
	{domain.RoleEmployee, domain.KindDepartment}:       sameDepartment,
}

func evaluatorOwnsOrReaches(ctx context.Context, g *AssignmentGraph, p domain.Principal, f OwnershipFacts) (bool, error) {
	if f.EvaluatorID == p.UserID {
		return true, nil
	}
	return g.Reachable(ctx, p.UserID, f.EmployeeID)
}

func evaluatorInTeam(ctx context.Context, g *AssignmentGraph, p domain.Principal, f OwnershipFacts) (bool, error) {
	teams, err := g.TeamsOf(ctx, p.UserID)
	if err != nil {
		return false, err
	}
	for _, id := range teams {
		if id == f.TeamID {
			return true, nil
		}
	}
	return false, nil
}

func employeeOwns(_ context.Context, _ *AssignmentGraph, p domain.Principal, f OwnershipFacts) (bool, error) {
	return f.EmployeeID == p.UserID, nil
}

func sameDepartment(_ context.Context, _ *AssignmentGraph, p domain.Principal, f OwnershipFacts) (bool, error) {
	return p.DepartmentID > 0 && f.DepartmentID == p.DepartmentID, nil
}

// decide walks the decision table in order; the first matching row wins.
func decide(ctx context.Context, g *AssignmentGraph, p domain.Principal, kind domain.Kind, f OwnershipFacts) (bool, error) {
	switch {
	case !p.Valid():
		return false, nil
	case p.Role == domain.RoleAdmin:
		return true, nil
	case kind.IsReferenceData():
		return f.Active, nil
	}
	rule, ok := accessRules[ruleKey{p.Role, kind}]
	if !ok {
		return false, nil
	}
	return rule(ctx, g, p, f)
}
