package services

import (
	"context"
	"sort"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// AssignmentGraph answers reachability questions over evaluator assignments.
// Nothing is cached: every call reads the current active rows, and every query is
// scoped by the evaluator id first.
type AssignmentGraph struct {
	store domain.Store
}

func NewAssignmentGraph(store domain.Store) *AssignmentGraph {
	return &AssignmentGraph{store: store}
}

func (g *AssignmentGraph) evaluatorRows(ctx context.Context, evaluatorID int64) ([]domain.EvaluatorAssignment, error) {
	rows, err := domain.QueryAs[domain.EvaluatorAssignment](ctx, g.store, domain.KindEvaluatorAssignment,
		domain.And(domain.Eq("evaluator_id", evaluatorID), domain.ActiveOnly()))
	if err != nil {
		return nil, mapStoreError("assignment lookup", err)
	}
	return rows, nil
}

// TeamsOf returns the ids of teams in which evaluatorID holds an active assignment.
func (g *AssignmentGraph) TeamsOf(ctx context.Context, evaluatorID int64) ([]int64, error) {
	rows, err := g.evaluatorRows(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}
	return teamIDs(rows), nil
}

// IsTeammate reports whether employeeID holds an active employee-side row in any
// of the evaluator's active teams.
func (g *AssignmentGraph) IsTeammate(ctx context.Context, evaluatorID, employeeID int64) (bool, error) {
	teams, err := g.TeamsOf(ctx, evaluatorID)
	if err != nil || len(teams) == 0 {
		return false, err
	}
	rows, err := g.store.Query(ctx, domain.KindEvaluatorAssignment, domain.And(
		domain.Eq("employee_id", employeeID),
		domain.ActiveOnly(),
		domain.In("team_id", teams),
	))
	if err != nil {
		return false, mapStoreError("assignment lookup", err)
	}
	return len(rows) > 0, nil
}

// DirectlyAssigned reports whether an active row links exactly this pair.
func (g *AssignmentGraph) DirectlyAssigned(ctx context.Context, evaluatorID, employeeID int64) (bool, error) {
	rows, err := g.store.Query(ctx, domain.KindEvaluatorAssignment, domain.And(
		domain.Eq("evaluator_id", evaluatorID),
		domain.Eq("employee_id", employeeID),
		domain.ActiveOnly(),
	))
	if err != nil {
		return false, mapStoreError("assignment lookup", err)
	}
	return len(rows) > 0, nil
}

// Reachable is the full edge definition: a shared active team or a direct pair.
func (g *AssignmentGraph) Reachable(ctx context.Context, evaluatorID, employeeID int64) (bool, error) {
	ok, err := g.IsTeammate(ctx, evaluatorID, employeeID)
	if err != nil || ok {
		return ok, err
	}
	return g.DirectlyAssigned(ctx, evaluatorID, employeeID)
}

// EmployeesOf returns every employee reachable from evaluatorID, sorted.
func (g *AssignmentGraph) EmployeesOf(ctx context.Context, evaluatorID int64) ([]int64, error) {
	own, err := g.evaluatorRows(ctx, evaluatorID)
	if err != nil {
		return nil, err
	}
	seen := map[int64]struct{}{}
	for _, r := range own {
		seen[r.EmployeeID] = struct{}{}
	}

	if teams := teamIDs(own); len(teams) > 0 {
		mates, err := domain.QueryAs[domain.EvaluatorAssignment](ctx, g.store, domain.KindEvaluatorAssignment,
			domain.And(domain.In("team_id", teams), domain.ActiveOnly()))
		if err != nil {
			return nil, mapStoreError("assignment lookup", err)
		}
		for _, r := range mates {
			seen[r.EmployeeID] = struct{}{}
		}
	}
	return sortedKeys(seen), nil
}

func teamIDs(rows []domain.EvaluatorAssignment) []int64 {
	seen := map[int64]struct{}{}
	for _, r := range rows {
		if r.TeamID > 0 {
			seen[r.TeamID] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
