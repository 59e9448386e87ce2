package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/eventbus"
)

// dependency is a child kind and the column pointing at its parent.
type dependency struct {
	kind   domain.Kind
	column string
}

// deactivationDependents are flipped together with their root. Teams are not a
// dependent of departments and scores are not a dependent of criteria.
var deactivationDependents = map[domain.Kind][]dependency{
	domain.KindDepartment: {{domain.KindUser, "department_id"}},
	domain.KindTeam:       {{domain.KindEvaluatorAssignment, "team_id"}},
	domain.KindRole:       {{domain.KindRoleAssignment, "role_id"}},
	domain.KindCriteria:   {{domain.KindRoleCriteriaDescription, "criteria_id"}},
}

// deleteDependents block a hard delete while any row (active or not) refers to the root.
var deleteDependents = map[domain.Kind][]dependency{
	domain.KindDepartment:       {{domain.KindUser, "department_id"}},
	domain.KindTeam:             {{domain.KindEvaluatorAssignment, "team_id"}},
	domain.KindRole:             {{domain.KindRoleAssignment, "role_id"}, {domain.KindRoleCriteriaDescription, "role_id"}},
	domain.KindCriteriaCategory: {{domain.KindCriteria, "category_id"}},
	domain.KindCriteria:         {{domain.KindRoleCriteriaDescription, "criteria_id"}, {domain.KindEvaluationScore, "criteria_id"}},
	domain.KindEvaluation:       {{domain.KindEvaluationScore, "evaluation_id"}},
	domain.KindEvaluationScore:  {{domain.KindComment, "score_id"}},
	domain.KindUser: {
		{domain.KindEvaluatorAssignment, "evaluator_id"},
		{domain.KindEvaluatorAssignment, "employee_id"},
		{domain.KindEvaluation, "evaluator_id"},
		{domain.KindEvaluation, "employee_id"},
		{domain.KindRoleAssignment, "user_id"},
	},
}

// CascadeDeactivator soft-deletes roots together with their dependents.
type CascadeDeactivator struct {
	store   domain.Store
	checker CapabilityChecker
	bus     eventbus.EventBus
	log     *logrus.Entry
	now     func() time.Time
}

func NewCascadeDeactivator(store domain.Store, checker CapabilityChecker, bus eventbus.EventBus, logger *logrus.Logger) *CascadeDeactivator {
	return &CascadeDeactivator{
		store:   store,
		checker: checker,
		bus:     bus,
		log:     logger.WithField("component", "evaluation.cascade"),
		now:     time.Now,
	}
}

func (c *CascadeDeactivator) loadRoot(ctx context.Context, p domain.Principal, kind domain.Kind, id int64, action string) (domain.Entity, error) {
	if !kind.Valid() {
		return nil, validationFailed(nil, "unknown kind %q", kind)
	}
	if err := authorizeCapability(ctx, c.checker, p, CapabilityObject(kind), action); err != nil {
		return nil, err
	}
	root, err := c.store.FindByID(ctx, kind, id)
	if err != nil {
		return nil, mapStoreError("load "+string(kind), err)
	}
	if role, ok := root.(domain.Role); ok && role.Protected() && action != "reactivate" {
		return nil, invalidState("role %q is a protected system role", role.Name)
	}
	return root, nil
}

// CascadeDeactivate deactivates the root and its dependents in one atomic save.
// Dependents come first in the batch and the root last.
func (c *CascadeDeactivator) CascadeDeactivate(ctx context.Context, p domain.Principal, kind domain.Kind, id int64) error {
	root, err := c.loadRoot(ctx, p, kind, id, "deactivate")
	if err != nil {
		return err
	}

	mutations, counts, err := c.collectActiveDependents(ctx, kind, id)
	if err != nil {
		return err
	}
	mutations = append(mutations, root.WithActive(false))

	if _, err := c.store.SaveAtomic(ctx, mutations); err != nil {
		c.log.WithContext(ctx).WithError(err).WithFields(logrus.Fields{
			"kind": kind,
			"id":   id,
			"rows": len(mutations),
		}).Error("cascade aborted")
		return mapStoreError("cascade deactivate", err)
	}
	cascadeRows.WithLabelValues(string(kind), string(CascadeDeactivate)).Add(float64(len(mutations)))
	c.publish(p, CascadeDeactivate, kind, id, counts)
	return nil
}

func (c *CascadeDeactivator) collectActiveDependents(ctx context.Context, kind domain.Kind, id int64) ([]domain.Entity, map[domain.Kind]int, error) {
	var mutations []domain.Entity
	counts := map[domain.Kind]int{}

	add := func(rows []domain.Entity) {
		for _, r := range rows {
			mutations = append(mutations, r.WithActive(false))
			counts[r.Kind()]++
		}
	}

	if kind == domain.KindEvaluation {
		scores, err := c.store.Query(ctx, domain.KindEvaluationScore, domain.Eq("evaluation_id", id))
		if err != nil {
			return nil, nil, mapStoreError("load scores", err)
		}
		comments, err := c.store.Query(ctx, domain.KindComment,
			domain.And(domain.In("score_id", domain.IDs(scores)), domain.ActiveOnly()))
		if err != nil {
			return nil, nil, mapStoreError("load comments", err)
		}
		add(comments)
		add(activeOnly(scores))
		return mutations, counts, nil
	}

	for _, dep := range deactivationDependents[kind] {
		rows, err := c.store.Query(ctx, dep.kind, domain.And(domain.Eq(dep.column, id), domain.ActiveOnly()))
		if err != nil {
			return nil, nil, mapStoreError("load "+string(dep.kind), err)
		}
		add(rows)
	}
	return mutations, counts, nil
}

func activeOnly(rows []domain.Entity) []domain.Entity {
	out := rows[:0:0]
	for _, r := range rows {
		if r.IsActive() {
			out = append(out, r)
		}
	}
	return out
}

// Reactivate flips only the root; dependents stay as they are.
func (c *CascadeDeactivator) Reactivate(ctx context.Context, p domain.Principal, kind domain.Kind, id int64) error {
	root, err := c.loadRoot(ctx, p, kind, id, "reactivate")
	if err != nil {
		return err
	}
	if root.IsActive() {
		return nil
	}
	if _, err := c.store.SaveAtomic(ctx, []domain.Entity{root.WithActive(true)}); err != nil {
		return mapStoreError("reactivate", err)
	}
	cascadeRows.WithLabelValues(string(kind), string(CascadeReactivate)).Inc()
	c.publish(p, CascadeReactivate, kind, id, nil)
	return nil
}

// HardDelete physically removes a row that nothing refers to any more.
func (c *CascadeDeactivator) HardDelete(ctx context.Context, p domain.Principal, kind domain.Kind, id int64) error {
	if _, err := c.loadRoot(ctx, p, kind, id, "delete"); err != nil {
		return err
	}
	for _, dep := range deleteDependents[kind] {
		rows, err := c.store.Query(ctx, dep.kind, domain.Eq(dep.column, id))
		if err != nil {
			return mapStoreError("load "+string(dep.kind), err)
		}
		if len(rows) > 0 {
			return invalidState("%s %d still has %d dependent %s rows", kind, id, len(rows), dep.kind)
		}
	}
	if err := c.store.Delete(ctx, kind, id); err != nil {
		return mapStoreError("delete", err)
	}
	cascadeRows.WithLabelValues(string(kind), string(CascadeDelete)).Inc()
	c.publish(p, CascadeDelete, kind, id, nil)
	return nil
}

func (c *CascadeDeactivator) publish(p domain.Principal, op CascadeOperation, kind domain.Kind, id int64, counts map[domain.Kind]int) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(&CascadeApplied{
		EventMeta:  newEventMeta(p, c.now()),
		Operation:  op,
		RootKind:   kind,
		RootID:     id,
		Dependents: counts,
	})
}
