package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// AccessResolver decides point access and list scope for a principal.
type AccessResolver struct {
	store domain.Store
	graph *AssignmentGraph
	log   *logrus.Entry
}

func NewAccessResolver(store domain.Store, graph *AssignmentGraph, logger *logrus.Logger) *AccessResolver {
	return &AccessResolver{
		store: store,
		graph: graph,
		log:   logger.WithField("component", "evaluation.access"),
	}
}

// CanAccess applies the decision table to already-loaded facts.
func (r *AccessResolver) CanAccess(ctx context.Context, p domain.Principal, kind domain.Kind, facts OwnershipFacts) (bool, error) {
	allowed, err := decide(ctx, r.graph, p, kind, facts)
	if err != nil {
		return false, err
	}
	r.audit(ctx, p, kind, facts.TargetID, allowed)
	return allowed, nil
}

// CanAccessEntity loads the target's facts first. A missing target is a denial,
// not an error.
func (r *AccessResolver) CanAccessEntity(ctx context.Context, p domain.Principal, kind domain.Kind, id int64) (bool, error) {
	if !p.Valid() {
		r.audit(ctx, p, kind, id, false)
		return false, nil
	}
	facts, found, err := r.FactsFor(ctx, kind, id)
	if err != nil {
		return false, err
	}
	if !found {
		r.audit(ctx, p, kind, id, false)
		return false, nil
	}
	return r.CanAccess(ctx, p, kind, facts)
}

// FactsFor derives ownership facts for a stored entity. Scores and comments inherit
// the facts of their evaluation; a user record is owned by that user on both sides.
func (r *AccessResolver) FactsFor(ctx context.Context, kind domain.Kind, id int64) (OwnershipFacts, bool, error) {
	e, err := r.store.FindByID(ctx, kind, id)
	if errors.Is(err, domain.ErrNotFound) {
		return OwnershipFacts{}, false, nil
	}
	if err != nil {
		return OwnershipFacts{}, false, mapStoreError("load "+string(kind), err)
	}

	facts := OwnershipFacts{TargetID: id, Active: e.IsActive()}
	switch v := e.(type) {
	case domain.User:
		facts.EvaluatorID, facts.EmployeeID, facts.DepartmentID = v.ID, v.ID, v.DepartmentID
	case domain.Department:
		facts.DepartmentID = v.ID
	case domain.Team:
		facts.TeamID = v.ID
	case domain.Evaluation:
		facts.EvaluatorID, facts.EmployeeID = v.EvaluatorID, v.EmployeeID
	case domain.EvaluationScore:
		return r.inheritFacts(ctx, facts, v.EvaluationID)
	case domain.Comment:
		score, err := r.store.FindByID(ctx, domain.KindEvaluationScore, v.ScoreID)
		if errors.Is(err, domain.ErrNotFound) {
			return OwnershipFacts{}, false, nil
		}
		if err != nil {
			return OwnershipFacts{}, false, mapStoreError("load score", err)
		}
		return r.inheritFacts(ctx, facts, score.(domain.EvaluationScore).EvaluationID)
	}
	return facts, true, nil
}

func (r *AccessResolver) inheritFacts(ctx context.Context, facts OwnershipFacts, evaluationID int64) (OwnershipFacts, bool, error) {
	ev, err := domain.FindAs[domain.Evaluation](ctx, r.store, domain.KindEvaluation, evaluationID)
	if errors.Is(err, domain.ErrNotFound) {
		return OwnershipFacts{}, false, nil
	}
	if err != nil {
		return OwnershipFacts{}, false, mapStoreError("load evaluation", err)
	}
	facts.EvaluatorID, facts.EmployeeID = ev.EvaluatorID, ev.EmployeeID
	return facts, true, nil
}

// ScopeFilter returns the predicate restricting a list query of kind to what p may see.
func (r *AccessResolver) ScopeFilter(ctx context.Context, p domain.Principal, kind domain.Kind) (domain.Predicate, error) {
	switch {
	case !p.Valid() || !kind.Valid():
		return domain.None(), nil
	case p.Role == domain.RoleAdmin:
		return domain.All(), nil
	case kind.IsReferenceData():
		return domain.ActiveOnly(), nil
	}

	switch p.Role {
	case domain.RoleEvaluator:
		return r.evaluatorScope(ctx, p, kind)
	case domain.RoleEmployee:
		return r.employeeScope(ctx, p, kind)
	default:
		return domain.None(), nil
	}
}

func (r *AccessResolver) evaluatorScope(ctx context.Context, p domain.Principal, kind domain.Kind) (domain.Predicate, error) {
	switch kind {
	case domain.KindEvaluation:
		employees, err := r.graph.EmployeesOf(ctx, p.UserID)
		if err != nil {
			return domain.None(), err
		}
		return domain.Or(domain.Eq("evaluator_id", p.UserID), domain.In("employee_id", employees)), nil
	case domain.KindUser:
		employees, err := r.graph.EmployeesOf(ctx, p.UserID)
		if err != nil {
			return domain.None(), err
		}
		return domain.Or(domain.Eq("id", p.UserID), domain.In("id", employees)), nil
	case domain.KindTeam:
		teams, err := r.graph.TeamsOf(ctx, p.UserID)
		if err != nil {
			return domain.None(), err
		}
		return domain.In("id", teams), nil
	case domain.KindEvaluationScore, domain.KindComment:
		return r.childScope(ctx, p, kind)
	default:
		return domain.None(), nil
	}
}

func (r *AccessResolver) employeeScope(ctx context.Context, p domain.Principal, kind domain.Kind) (domain.Predicate, error) {
	switch kind {
	case domain.KindEvaluation:
		return domain.Eq("employee_id", p.UserID), nil
	case domain.KindUser:
		return domain.Eq("id", p.UserID), nil
	case domain.KindDepartment:
		if p.DepartmentID <= 0 {
			return domain.None(), nil
		}
		return domain.Eq("id", p.DepartmentID), nil
	case domain.KindEvaluationScore, domain.KindComment:
		return r.childScope(ctx, p, kind)
	default:
		return domain.None(), nil
	}
}

// childScope resolves scores and comments through the evaluations p can see.
func (r *AccessResolver) childScope(ctx context.Context, p domain.Principal, kind domain.Kind) (domain.Predicate, error) {
	evalFilter, err := r.ScopeFilter(ctx, p, domain.KindEvaluation)
	if err != nil {
		return domain.None(), err
	}
	evaluations, err := r.store.Query(ctx, domain.KindEvaluation, evalFilter)
	if err != nil {
		return domain.None(), mapStoreError("scope evaluations", err)
	}
	byEvaluation := domain.In("evaluation_id", domain.IDs(evaluations))
	if kind == domain.KindEvaluationScore {
		return byEvaluation, nil
	}

	scores, err := r.store.Query(ctx, domain.KindEvaluationScore, byEvaluation)
	if err != nil {
		return domain.None(), mapStoreError("scope scores", err)
	}
	return domain.In("score_id", domain.IDs(scores)), nil
}

func (r *AccessResolver) audit(ctx context.Context, p domain.Principal, kind domain.Kind, target int64, allowed bool) {
	recordDecision(p, kind, allowed)
	entry := r.log.WithContext(ctx).WithFields(logrus.Fields{
		"subject": p.String(),
		"role":    string(p.Role),
		"kind":    string(kind),
		"target":  target,
		"allowed": allowed,
	})
	if allowed {
		entry.Info("access granted")
		return
	}
	entry.Warn("access denied")
}
