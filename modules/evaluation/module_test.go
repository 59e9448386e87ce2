package evaluation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/modules/evaluation"
	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/modules/evaluation/infrastructure/persistence"
	"github.com/iota-uz/perfeval/modules/evaluation/services"
	"github.com/iota-uz/perfeval/pkg/authz"
	"github.com/iota-uz/perfeval/pkg/eventbus"
	"github.com/iota-uz/perfeval/pkg/logging"
)

func seededStore() *persistence.MemoryStore {
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	store := persistence.NewMemoryStore()
	store.Seed(
		domain.Department{ID: 1, Name: "Engineering", Active: true},
		domain.User{ID: 1, DepartmentID: 1, Name: "admin", Active: true},
		domain.User{ID: 7, DepartmentID: 1, Name: "eve", Active: true},
		domain.User{ID: 42, DepartmentID: 1, Name: "mia", Active: true},
		domain.Team{ID: 10, Name: "Core", Active: true},
		domain.EvaluatorAssignment{ID: 1, EvaluatorID: 7, EmployeeID: 42, TeamID: 10, Active: true, AssignedDate: now},
		domain.CriteriaCategory{ID: 1, Name: "Delivery", Weight: decimal.NewFromInt(100), Active: true},
		domain.Criteria{ID: 1, CategoryID: 1, Name: "Quality", Active: true},
	)
	return store
}

func TestNew_RegistersAuditSubscribers(t *testing.T) {
	log := logging.Discard()
	bus := eventbus.NewEventPublisher(log)

	m := evaluation.New(seededStore(), nil, bus, log)
	require.Same(t, bus, m.Bus)
	require.Equal(t, 8, bus.SubscribersCount())

	m = evaluation.New(seededStore(), nil, nil, log)
	require.NotNil(t, m.Bus)
	require.Equal(t, 8, m.Bus.SubscribersCount())
}

func TestModule_EndToEnd(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()
	checker, err := authz.NewDefaultService(log, authz.ModeEnforce)
	require.NoError(t, err)
	m := evaluation.New(seededStore(), checker, nil, log)

	evaluator := domain.Principal{UserID: 7, Role: domain.RoleEvaluator, DepartmentID: 1}
	admin := domain.Principal{UserID: 1, Role: domain.RoleAdmin}
	employee := domain.Principal{UserID: 42, Role: domain.RoleEmployee, DepartmentID: 1}

	ev, err := m.Lifecycle.Create(ctx, evaluator, 7, 42)
	require.NoError(t, err)
	_, err = m.Lifecycle.UpdateScore(ctx, evaluator, ev.ID, 1, 4)
	require.NoError(t, err)
	require.NoError(t, m.Lifecycle.Submit(ctx, evaluator, ev.ID))
	require.NoError(t, m.Lifecycle.Approve(ctx, admin, ev.ID))

	total, err := m.Lifecycle.Total(ctx, employee, ev.ID)
	require.NoError(t, err)
	require.True(t, total.Equal(decimal.NewFromInt(4)))

	err = m.Cascade.CascadeDeactivate(ctx, evaluator, domain.KindEvaluation, ev.ID)
	require.ErrorIs(t, err, services.ErrNotAuthorized)
	require.NoError(t, m.Cascade.CascadeDeactivate(ctx, admin, domain.KindEvaluation, ev.ID))

	visible, err := m.Access.ScopeFilter(ctx, employee, domain.KindEvaluationScore)
	require.NoError(t, err)
	scores, err := m.Store.Query(ctx, domain.KindEvaluationScore, visible)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.False(t, scores[0].IsActive())
}

func TestModule_ShadowModeOnlyLogsCapabilityDenials(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()
	checker, err := authz.NewDefaultService(log, authz.ModeShadow)
	require.NoError(t, err)
	m := evaluation.New(seededStore(), checker, nil, log)

	evaluator := domain.Principal{UserID: 7, Role: domain.RoleEvaluator}
	err = m.Weights.Rebalance(ctx, evaluator, []services.WeightRequest{{CategoryID: 1, NewWeight: decimal.NewFromInt(100)}})
	require.NoError(t, err)

	_, err = m.Lifecycle.Create(ctx, domain.Principal{UserID: 42, Role: domain.RoleEmployee}, 7, 42)
	require.ErrorIs(t, err, services.ErrNotAuthorized, "role rules still apply when capabilities only log")
}
