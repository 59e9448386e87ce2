package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

func TestDecisionTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		p     domain.Principal
		kind  domain.Kind
		facts OwnershipFacts
		want  bool
	}{
		{"unrecognized role", domain.Principal{UserID: 7, Role: "Manager"}, domain.KindEvaluation, OwnershipFacts{EvaluatorID: 7}, false},
		{"zero id", domain.Principal{Role: domain.RoleAdmin}, domain.KindEvaluation, OwnershipFacts{}, false},
		{"admin any", admin, domain.KindEvaluatorAssignment, OwnershipFacts{}, true},
		{"admin inactive reference", admin, domain.KindCriteria, OwnershipFacts{Active: false}, true},
		{"evaluator active reference", evaluator, domain.KindCriteriaCategory, OwnershipFacts{Active: true}, true},
		{"employee inactive reference", employee, domain.KindRole, OwnershipFacts{Active: false}, false},
		{"employee active description", employee, domain.KindRoleCriteriaDescription, OwnershipFacts{Active: true}, true},
		{"evaluator owns", evaluator, domain.KindEvaluation, OwnershipFacts{EvaluatorID: 7, EmployeeID: 44}, true},
		{"evaluator teammate", evaluator, domain.KindEvaluation, OwnershipFacts{EvaluatorID: 8, EmployeeID: 43}, true},
		{"evaluator direct pair", evaluator, domain.KindEvaluationScore, OwnershipFacts{EvaluatorID: 8, EmployeeID: 45}, true},
		{"evaluator unrelated", evaluator, domain.KindComment, OwnershipFacts{EvaluatorID: 8, EmployeeID: 44}, false},
		{"evaluator inactive link", evaluator, domain.KindUser, OwnershipFacts{EvaluatorID: 46, EmployeeID: 46}, false},
		{"evaluator own team", evaluator, domain.KindTeam, OwnershipFacts{TeamID: teamCore}, true},
		{"evaluator inactive team row", evaluator, domain.KindTeam, OwnershipFacts{TeamID: teamLegacy}, false},
		{"evaluator department", evaluator, domain.KindDepartment, OwnershipFacts{DepartmentID: deptEng}, false},
		{"employee owns", employee, domain.KindEvaluation, OwnershipFacts{EvaluatorID: 7, EmployeeID: 42}, true},
		{"employee other", employee, domain.KindEvaluationScore, OwnershipFacts{EvaluatorID: 8, EmployeeID: 43}, false},
		{"employee department", employee, domain.KindDepartment, OwnershipFacts{DepartmentID: deptEng}, true},
		{"employee other department", employee, domain.KindDepartment, OwnershipFacts{DepartmentID: deptOps}, false},
		{"employee team", employee, domain.KindTeam, OwnershipFacts{TeamID: teamCore}, false},
		{"employee assignment", employee, domain.KindEvaluatorAssignment, OwnershipFacts{EmployeeID: 42}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.access.CanAccess(ctx, tt.p, tt.kind, tt.facts)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// Evaluator 7 and employee 43 are linked through team 10; access must not depend on
// which side's rows are looked at first.
func TestOwnershipSymmetry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvaluation(8, 43, domain.StatusDraft)

	ok, err := f.access.CanAccessEntity(ctx, evaluator, domain.KindEvaluation, ev.ID)
	require.NoError(t, err)
	require.True(t, ok)

	mirrored := f.seedEvaluation(7, 42, domain.StatusDraft)
	ok, err = f.access.CanAccessEntity(ctx, otherEval, domain.KindEvaluation, mirrored.ID)
	require.NoError(t, err)
	require.True(t, ok)

	viaTeam, err := f.graph.IsTeammate(ctx, 7, 43)
	require.NoError(t, err)
	viaTeamReverse, err := f.graph.IsTeammate(ctx, 8, 42)
	require.NoError(t, err)
	require.Equal(t, viaTeam, viaTeamReverse)
}

func TestNoTransitiveEmployeeAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ev := f.seedEvaluation(8, 43, domain.StatusCompleted)
	score := f.seedScore(ev.ID, critQuality, 4)

	for _, kind := range []domain.Kind{domain.KindEvaluation, domain.KindEvaluationScore} {
		id := ev.ID
		if kind == domain.KindEvaluationScore {
			id = score.ID
		}
		ok, err := f.access.CanAccessEntity(ctx, employee, kind, id)
		require.NoError(t, err)
		require.False(t, ok, "employee 42 shares team 10 with 43 but must not see %s", kind)
	}

	ok, err := f.access.CanAccessEntity(ctx, employee, domain.KindUser, 43)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmployeeSeesOwnEvaluation(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvaluation(7, 42, domain.StatusDraft)

	for _, p := range []domain.Principal{
		employee,
		{UserID: 42, Role: domain.RoleEmployee, DepartmentID: deptOps},
	} {
		ok, err := f.access.CanAccessEntity(context.Background(), p, domain.KindEvaluation, ev.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
}

func TestCanAccessEntity_MissingTargetIsDenied(t *testing.T) {
	f := newFixture(t)

	ok, err := f.access.CanAccessEntity(context.Background(), admin, domain.KindEvaluation, 999)
	require.NoError(t, err)
	require.False(t, ok)

	comment := f.store.Seed(domain.Comment{ScoreID: 999, Description: "orphan", Active: true})[0]
	ok, err = f.access.CanAccessEntity(context.Background(), evaluator, domain.KindComment, comment.EntityID())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCanAccessEntity_CommentInheritsEvaluation(t *testing.T) {
	f := newFixture(t)
	ev := f.seedEvaluation(7, 42, domain.StatusInProgress)
	score := f.seedScore(ev.ID, critQuality, 3)
	comment := f.store.Seed(domain.Comment{ScoreID: score.ID, Description: "ok", Active: true})[0]

	ok, err := f.access.CanAccessEntity(context.Background(), employee, domain.KindComment, comment.EntityID())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.access.CanAccessEntity(context.Background(), teammate, domain.KindComment, comment.EntityID())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScopeFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	own := f.seedEvaluation(7, 44, domain.StatusDraft)
	mate := f.seedEvaluation(8, 43, domain.StatusDraft)
	direct := f.seedEvaluation(8, 45, domain.StatusDraft)
	hidden := f.seedEvaluation(8, 46, domain.StatusDraft)
	mine := f.seedEvaluation(8, 42, domain.StatusDraft)

	visible := func(p domain.Principal, kind domain.Kind) []int64 {
		pred, err := f.access.ScopeFilter(ctx, p, kind)
		require.NoError(t, err)
		rows, err := f.store.Query(ctx, kind, pred)
		require.NoError(t, err)
		return domain.IDs(rows)
	}

	require.ElementsMatch(t, []int64{own.ID, mate.ID, direct.ID, mine.ID}, visible(evaluator, domain.KindEvaluation))
	require.NotContains(t, visible(evaluator, domain.KindEvaluation), hidden.ID)
	require.Equal(t, []int64{mine.ID}, visible(employee, domain.KindEvaluation))
	require.Len(t, visible(admin, domain.KindEvaluation), 5)
	require.Empty(t, visible(nobody, domain.KindEvaluation))

	require.Equal(t, []int64{7, 42, 43, 45}, visible(evaluator, domain.KindUser))
	require.Equal(t, []int64{42}, visible(employee, domain.KindUser))
	require.Equal(t, []int64{teamCore}, visible(evaluator, domain.KindTeam))
	require.Empty(t, visible(employee, domain.KindTeam))
	require.Equal(t, []int64{deptEng}, visible(employee, domain.KindDepartment))
	require.Empty(t, visible(evaluator, domain.KindEvaluatorAssignment))

	_, err := f.store.SaveAtomic(ctx, []domain.Entity{domain.Criteria{ID: critSpeed, CategoryID: catDelivery, Name: "Speed", Active: false}})
	require.NoError(t, err)
	require.Equal(t, []int64{critQuality, critHelp}, visible(employee, domain.KindCriteria))
	require.Len(t, visible(admin, domain.KindCriteria), 3)

	s1 := f.seedScore(mine.ID, critQuality, 4)
	s2 := f.seedScore(hidden.ID, critQuality, 2)
	c1 := f.store.Seed(domain.Comment{ScoreID: s1.ID, Description: "a", Active: true})[0]
	f.store.Seed(domain.Comment{ScoreID: s2.ID, Description: "b", Active: true})
	require.Equal(t, []int64{s1.ID}, visible(employee, domain.KindEvaluationScore))
	require.Equal(t, []int64{s1.ID}, visible(evaluator, domain.KindEvaluationScore))
	require.Equal(t, []int64{c1.EntityID()}, visible(employee, domain.KindComment))
}

// Point access and list scope must agree for every seeded evaluation.
func TestScopeFilterAgreesWithCanAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, pair := range [][2]int64{{7, 44}, {8, 43}, {8, 45}, {8, 46}, {8, 42}, {1, 44}} {
		f.seedEvaluation(pair[0], pair[1], domain.StatusDraft)
	}
	all, err := f.store.Query(ctx, domain.KindEvaluation, domain.All())
	require.NoError(t, err)

	for _, p := range []domain.Principal{admin, evaluator, otherEval, employee, teammate, nobody} {
		pred, err := f.access.ScopeFilter(ctx, p, domain.KindEvaluation)
		require.NoError(t, err)
		for _, e := range all {
			point, err := f.access.CanAccessEntity(ctx, p, domain.KindEvaluation, e.EntityID())
			require.NoError(t, err)
			require.Equal(t, point, pred.Match(e.Values()), "principal %s evaluation %d", p, e.EntityID())
		}
	}
}
