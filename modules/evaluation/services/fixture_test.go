package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/modules/evaluation/infrastructure/persistence"
	"github.com/iota-uz/perfeval/pkg/authz"
	"github.com/iota-uz/perfeval/pkg/eventbus"
	"github.com/iota-uz/perfeval/pkg/logging"
)

var (
	admin     = domain.Principal{UserID: 1, Role: domain.RoleAdmin}
	evaluator = domain.Principal{UserID: 7, Role: domain.RoleEvaluator, DepartmentID: 1}
	otherEval = domain.Principal{UserID: 8, Role: domain.RoleEvaluator, DepartmentID: 1}
	employee  = domain.Principal{UserID: 42, Role: domain.RoleEmployee, DepartmentID: 1}
	teammate  = domain.Principal{UserID: 43, Role: domain.RoleEmployee, DepartmentID: 1}
	nobody    = domain.Principal{}
)

const (
	deptEng     int64 = 1
	deptOps     int64 = 2
	teamCore    int64 = 10
	teamLegacy  int64 = 11
	catDelivery int64 = 1
	catTeamwork int64 = 2
	critQuality int64 = 1
	critSpeed   int64 = 2
	critHelp    int64 = 3
	roleAdmin   int64 = 1
	roleAuditor int64 = 4
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

// eventRecorder collects every event published on the bus.
type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) add(e any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

type fixture struct {
	store      *persistence.MemoryStore
	graph      *AssignmentGraph
	access     *AccessResolver
	weights    *WeightValidator
	aggregator *ScoreAggregator
	lifecycle  *EvaluationLifecycle
	cascade    *CascadeDeactivator
	events     *eventRecorder
}

// newFixture seeds a small organisation:
//
//	team 10 (active): evaluator 7 -> employee 42, evaluator 8 -> employee 43
//	team 11 (row inactive): evaluator 7 -> employee 46
//	direct pair: evaluator 7 -> employee 45
//	employee 44 is in department 2 and unreachable from 7
//	categories: Delivery 60 (criteria 1, 2), Teamwork 40 (criterion 3)
func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := persistence.NewMemoryStore()
	store.Seed(
		domain.Department{ID: deptEng, Name: "Engineering", Active: true},
		domain.Department{ID: deptOps, Name: "Operations", Active: true},
		domain.User{ID: 1, DepartmentID: deptEng, Name: "admin", Active: true},
		domain.User{ID: 7, DepartmentID: deptEng, Name: "eve", Active: true},
		domain.User{ID: 8, DepartmentID: deptEng, Name: "oscar", Active: true},
		domain.User{ID: 42, DepartmentID: deptEng, Name: "mia", Active: true},
		domain.User{ID: 43, DepartmentID: deptEng, Name: "ned", Active: true},
		domain.User{ID: 44, DepartmentID: deptOps, Name: "ola", Active: true},
		domain.User{ID: 45, DepartmentID: deptEng, Name: "pat", Active: true},
		domain.User{ID: 46, DepartmentID: deptEng, Name: "rex", Active: true},
		domain.Team{ID: teamCore, Name: "Core", Active: true},
		domain.Team{ID: teamLegacy, Name: "Legacy", Active: true},
		domain.EvaluatorAssignment{ID: 1, EvaluatorID: 7, EmployeeID: 42, TeamID: teamCore, Active: true, AssignedDate: fixedNow},
		domain.EvaluatorAssignment{ID: 2, EvaluatorID: 8, EmployeeID: 43, TeamID: teamCore, Active: true, AssignedDate: fixedNow},
		domain.EvaluatorAssignment{ID: 3, EvaluatorID: 7, EmployeeID: 46, TeamID: teamLegacy, Active: false, AssignedDate: fixedNow},
		domain.EvaluatorAssignment{ID: 4, EvaluatorID: 7, EmployeeID: 45, TeamID: 0, Active: true, AssignedDate: fixedNow},
		domain.Role{ID: roleAdmin, Name: "Admin", Active: true},
		domain.Role{ID: 2, Name: "Evaluator", Active: true},
		domain.Role{ID: 3, Name: "Employee", Active: true},
		domain.Role{ID: roleAuditor, Name: "Auditor", Active: true},
		domain.RoleAssignment{ID: 1, UserID: 1, RoleID: roleAdmin, Active: true},
		domain.RoleAssignment{ID: 2, UserID: 44, RoleID: roleAuditor, Active: true},
		domain.RoleAssignment{ID: 3, UserID: 45, RoleID: roleAuditor, Active: true},
		domain.CriteriaCategory{ID: catDelivery, Name: "Delivery", Weight: decimal.NewFromInt(60), Active: true},
		domain.CriteriaCategory{ID: catTeamwork, Name: "Teamwork", Weight: decimal.NewFromInt(40), Active: true},
		domain.Criteria{ID: critQuality, CategoryID: catDelivery, Name: "Quality", Active: true},
		domain.Criteria{ID: critSpeed, CategoryID: catDelivery, Name: "Speed", Active: true},
		domain.Criteria{ID: critHelp, CategoryID: catTeamwork, Name: "Helpfulness", Active: true},
		domain.RoleCriteriaDescription{ID: 1, CriteriaID: critQuality, RoleID: 2, Description: "judge defects", Active: true},
		domain.RoleCriteriaDescription{ID: 2, CriteriaID: critQuality, RoleID: 3, Description: "self review", Active: true},
	)

	checker, err := authz.NewDefaultService(logging.Discard(), authz.ModeEnforce)
	require.NoError(t, err)

	log := logging.Discard()
	bus := eventbus.NewEventPublisher(log)
	RegisterAuditSubscribers(bus, log)
	rec := &eventRecorder{}
	for _, h := range []any{
		func(e *EvaluationCreated) { rec.add(e) },
		func(e *ScoreRecorded) { rec.add(e) },
		func(e *EvaluationSubmitted) { rec.add(e) },
		func(e *EvaluationApproved) { rec.add(e) },
		func(e *TotalRecalculated) { rec.add(e) },
		func(e *WeightsRebalanced) { rec.add(e) },
		func(e *CascadeApplied) { rec.add(e) },
	} {
		bus.Subscribe(h)
	}

	graph := NewAssignmentGraph(store)
	access := NewAccessResolver(store, graph, log)
	aggregator := NewScoreAggregator(store)
	f := &fixture{
		store:      store,
		graph:      graph,
		access:     access,
		weights:    NewWeightValidator(store, checker, bus, log),
		aggregator: aggregator,
		lifecycle:  NewEvaluationLifecycle(store, access, graph, aggregator, checker, bus, log),
		cascade:    NewCascadeDeactivator(store, checker, bus, log),
		events:     rec,
	}
	clock := func() time.Time { return fixedNow }
	f.weights.now = clock
	f.lifecycle.now = clock
	f.cascade.now = clock
	return f
}

// seedEvaluation stores an evaluation directly, bypassing lifecycle guards.
func (f *fixture) seedEvaluation(evaluatorID, employeeID int64, status domain.Status) domain.Evaluation {
	saved := f.store.Seed(domain.Evaluation{
		EvaluatorID: evaluatorID,
		EmployeeID:  employeeID,
		Status:      status,
		CreatedDate: fixedNow,
		TotalScore:  decimal.Zero,
		Active:      true,
	})
	return saved[0].(domain.Evaluation)
}

func (f *fixture) seedScore(evaluationID, criteriaID int64, score int) domain.EvaluationScore {
	saved := f.store.Seed(domain.EvaluationScore{
		EvaluationID: evaluationID,
		CriteriaID:   criteriaID,
		Score:        score,
		CreatedDate:  fixedNow,
		Active:       true,
	})
	return saved[0].(domain.EvaluationScore)
}

func (f *fixture) evaluation(t *testing.T, id int64) domain.Evaluation {
	t.Helper()
	ev, err := domain.FindAs[domain.Evaluation](context.Background(), f.store, domain.KindEvaluation, id)
	require.NoError(t, err)
	return ev
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, code, svcErr.Code, svcErr.Error())
}
