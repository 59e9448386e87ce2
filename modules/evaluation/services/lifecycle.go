package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/eventbus"
)

// totalScale is the number of decimal places kept on stored totals.
const totalScale = 4

var evaluationsObject = CapabilityObject(domain.KindEvaluation)

// EvaluationLifecycle drives evaluations through Draft, InProgress, Completed and
// Approved.
type EvaluationLifecycle struct {
	store      domain.Store
	access     *AccessResolver
	graph      *AssignmentGraph
	aggregator *ScoreAggregator
	checker    CapabilityChecker
	bus        eventbus.EventBus
	log        *logrus.Entry
	now        func() time.Time
}

func NewEvaluationLifecycle(
	store domain.Store,
	access *AccessResolver,
	graph *AssignmentGraph,
	aggregator *ScoreAggregator,
	checker CapabilityChecker,
	bus eventbus.EventBus,
	logger *logrus.Logger,
) *EvaluationLifecycle {
	return &EvaluationLifecycle{
		store:      store,
		access:     access,
		graph:      graph,
		aggregator: aggregator,
		checker:    checker,
		bus:        bus,
		log:        logger.WithField("component", "evaluation.lifecycle"),
		now:        time.Now,
	}
}

func (l *EvaluationLifecycle) publish(event any) {
	if l.bus != nil {
		l.bus.Publish(event)
	}
}

// loadAccessible returns the evaluation only when p may see it; missing and hidden
// evaluations both yield NotAuthorized.
func (l *EvaluationLifecycle) loadAccessible(ctx context.Context, p domain.Principal, id int64) (domain.Evaluation, error) {
	ok, err := l.access.CanAccessEntity(ctx, p, domain.KindEvaluation, id)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if !ok {
		return domain.Evaluation{}, notAuthorized()
	}
	ev, err := domain.FindAs[domain.Evaluation](ctx, l.store, domain.KindEvaluation, id)
	if err != nil {
		return domain.Evaluation{}, mapStoreError("load evaluation", err)
	}
	return ev, nil
}

// loadMutable additionally requires p to be an Admin or the assigned evaluator and
// the evaluation to be active.
func (l *EvaluationLifecycle) loadMutable(ctx context.Context, p domain.Principal, id int64) (domain.Evaluation, error) {
	ev, err := l.loadAccessible(ctx, p, id)
	if err != nil {
		return domain.Evaluation{}, err
	}
	if !isAssignedOrAdmin(p, ev) {
		return domain.Evaluation{}, notAuthorized()
	}
	if !ev.Active {
		return domain.Evaluation{}, invalidState("evaluation %d is deactivated", ev.ID)
	}
	return ev, nil
}

func isAssignedOrAdmin(p domain.Principal, ev domain.Evaluation) bool {
	if p.IsAdmin() {
		return true
	}
	return p.Valid() && p.Role == domain.RoleEvaluator && ev.EvaluatorID == p.UserID
}

// Create opens a Draft evaluation. Evaluators may only create evaluations they
// conduct themselves, for employees reachable from them.
func (l *EvaluationLifecycle) Create(ctx context.Context, p domain.Principal, evaluatorID, employeeID int64) (domain.Evaluation, error) {
	if err := authorizeCapability(ctx, l.checker, p, evaluationsObject, "create"); err != nil {
		return domain.Evaluation{}, err
	}
	if err := validateInput(createInput{EvaluatorID: evaluatorID, EmployeeID: employeeID}, "evaluation"); err != nil {
		return domain.Evaluation{}, err
	}

	switch {
	case p.IsAdmin():
	case p.Role == domain.RoleEvaluator && p.UserID == evaluatorID:
		ok, err := l.graph.Reachable(ctx, evaluatorID, employeeID)
		if err != nil {
			return domain.Evaluation{}, err
		}
		if !ok {
			return domain.Evaluation{}, notAuthorized()
		}
	default:
		return domain.Evaluation{}, notAuthorized()
	}

	for _, id := range []int64{evaluatorID, employeeID} {
		user, err := domain.FindAs[domain.User](ctx, l.store, domain.KindUser, id)
		if err != nil {
			if mapped := mapStoreError("load user", err); !isCode(mapped, CodeNotAuthorized) {
				return domain.Evaluation{}, mapped
			}
			return domain.Evaluation{}, validationFailed(nil, "user %d does not exist", id)
		}
		if !user.Active {
			return domain.Evaluation{}, validationFailed(nil, "user %d is deactivated", id)
		}
	}

	saved, err := l.store.SaveAtomic(ctx, []domain.Entity{domain.Evaluation{
		EvaluatorID: evaluatorID,
		EmployeeID:  employeeID,
		Status:      domain.StatusDraft,
		CreatedDate: l.now().UTC(),
		TotalScore:  decimal.Zero,
		Active:      true,
	}})
	if err != nil {
		return domain.Evaluation{}, mapStoreError("create evaluation", err)
	}
	ev := saved[0].(domain.Evaluation)
	lifecycleTransitions.WithLabelValues(string(domain.StatusDraft)).Inc()
	l.publish(&EvaluationCreated{EventMeta: newEventMeta(p, l.now()), Evaluation: ev})
	return ev, nil
}

// UpdateScore upserts the score for (evaluation, criteria). The first score written
// to a Draft evaluation moves it to InProgress in the same save; a score changed on a
// Completed evaluation rewrites its stored total in that save.
func (l *EvaluationLifecycle) UpdateScore(ctx context.Context, p domain.Principal, evaluationID, criteriaID int64, score int) (domain.EvaluationScore, error) {
	if err := validateInput(scoreInput{EvaluationID: evaluationID, CriteriaID: criteriaID, Score: score}, "score"); err != nil {
		return domain.EvaluationScore{}, err
	}
	if err := authorizeCapability(ctx, l.checker, p, CapabilityObject(domain.KindEvaluationScore), "write"); err != nil {
		return domain.EvaluationScore{}, err
	}
	ev, err := l.loadMutable(ctx, p, evaluationID)
	if err != nil {
		return domain.EvaluationScore{}, err
	}
	if !ev.Status.Scorable() {
		return domain.EvaluationScore{}, invalidState("evaluation %d is %s; scores are immutable", ev.ID, ev.Status)
	}
	if err := l.requireScorableCriteria(ctx, criteriaID); err != nil {
		return domain.EvaluationScore{}, err
	}

	existing, err := domain.QueryAs[domain.EvaluationScore](ctx, l.store, domain.KindEvaluationScore,
		domain.And(domain.Eq("evaluation_id", evaluationID), domain.Eq("criteria_id", criteriaID)))
	if err != nil {
		return domain.EvaluationScore{}, mapStoreError("load score", err)
	}
	row := domain.EvaluationScore{
		EvaluationID: evaluationID,
		CriteriaID:   criteriaID,
		CreatedDate:  l.now().UTC(),
	}
	if len(existing) > 0 {
		row = existing[0]
	}
	row.Score = score
	row.Active = true

	from := ev.Status
	mutations := []domain.Entity{row}
	switch ev.Status {
	case domain.StatusDraft:
		ev.Status = domain.StatusInProgress
		mutations = append(mutations, ev)
	case domain.StatusCompleted:
		// The stored total of a Completed evaluation must track its scores.
		total, err := l.aggregator.TotalWith(ctx, ev.ID, &row)
		if err != nil {
			return domain.EvaluationScore{}, err
		}
		ev.TotalScore = total.Round(totalScale)
		mutations = append(mutations, ev)
	}
	saved, err := l.store.SaveAtomic(ctx, mutations)
	if err != nil {
		return domain.EvaluationScore{}, mapStoreError("save score", err)
	}
	if from != ev.Status {
		lifecycleTransitions.WithLabelValues(string(ev.Status)).Inc()
	}

	result := saved[0].(domain.EvaluationScore)
	l.publish(&ScoreRecorded{EventMeta: newEventMeta(p, l.now()), Score: result, FromStatus: from, ToStatus: ev.Status})
	return result, nil
}

func (l *EvaluationLifecycle) requireScorableCriteria(ctx context.Context, criteriaID int64) error {
	cr, err := domain.FindAs[domain.Criteria](ctx, l.store, domain.KindCriteria, criteriaID)
	if err != nil {
		if mapped := mapStoreError("load criteria", err); !isCode(mapped, CodeNotAuthorized) {
			return mapped
		}
		return validationFailed(nil, "criteria %d does not exist", criteriaID)
	}
	cat, err := domain.FindAs[domain.CriteriaCategory](ctx, l.store, domain.KindCriteriaCategory, cr.CategoryID)
	if err != nil {
		if mapped := mapStoreError("load category", err); !isCode(mapped, CodeNotAuthorized) {
			return mapped
		}
		return validationFailed(nil, "criteria %d has no category", criteriaID)
	}
	if !cr.Active || !cat.Active {
		return validationFailed(nil, "criteria %d is not active for evaluation", criteriaID)
	}
	return nil
}

// AddComment attaches a comment to a score under the same guards as UpdateScore.
func (l *EvaluationLifecycle) AddComment(ctx context.Context, p domain.Principal, scoreID int64, description string) (domain.Comment, error) {
	if err := validateInput(commentInput{ScoreID: scoreID, Description: description}, "comment"); err != nil {
		return domain.Comment{}, err
	}
	if err := authorizeCapability(ctx, l.checker, p, CapabilityObject(domain.KindComment), "write"); err != nil {
		return domain.Comment{}, err
	}
	score, err := domain.FindAs[domain.EvaluationScore](ctx, l.store, domain.KindEvaluationScore, scoreID)
	if err != nil {
		return domain.Comment{}, mapStoreError("load score", err)
	}
	ev, err := l.loadMutable(ctx, p, score.EvaluationID)
	if err != nil {
		return domain.Comment{}, err
	}
	if !ev.Status.Scorable() {
		return domain.Comment{}, invalidState("evaluation %d is %s; comments are immutable", ev.ID, ev.Status)
	}
	if !score.Active {
		return domain.Comment{}, invalidState("score %d is deactivated", score.ID)
	}

	saved, err := l.store.SaveAtomic(ctx, []domain.Entity{domain.Comment{
		ScoreID:     scoreID,
		Description: description,
		Active:      true,
	}})
	if err != nil {
		return domain.Comment{}, mapStoreError("save comment", err)
	}
	comment := saved[0].(domain.Comment)
	commentsAdded.Inc()
	l.publish(&CommentAdded{EventMeta: newEventMeta(p, l.now()), EvaluationID: ev.ID, Comment: comment})
	return comment, nil
}

// Submit completes an evaluation once every required criterion is scored and stores
// its total. Employees can never submit.
func (l *EvaluationLifecycle) Submit(ctx context.Context, p domain.Principal, evaluationID int64) error {
	if p.Role == domain.RoleEmployee {
		return notAuthorized()
	}
	if err := authorizeCapability(ctx, l.checker, p, evaluationsObject, "submit"); err != nil {
		return err
	}
	ev, err := l.loadMutable(ctx, p, evaluationID)
	if err != nil {
		return err
	}
	if !ev.Status.Submittable() {
		return invalidState("evaluation %d is %s and cannot be submitted", ev.ID, ev.Status)
	}
	missing, err := l.aggregator.MissingCriteria(ctx, ev.ID)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		l.log.WithContext(ctx).WithFields(logrus.Fields{
			"evaluation_id": ev.ID,
			"missing":       missing,
		}).Warn("submit rejected: incomplete scores")
		return invalidState("evaluation %d is missing scores for %d criteria", ev.ID, len(missing))
	}
	total, err := l.aggregator.TotalFor(ctx, ev.ID)
	if err != nil {
		return err
	}

	completed := l.now().UTC()
	ev.Status = domain.StatusCompleted
	ev.CompletedDate = &completed
	ev.TotalScore = total.Round(totalScale)
	if _, err := l.store.SaveAtomic(ctx, []domain.Entity{ev}); err != nil {
		return mapStoreError("submit evaluation", err)
	}
	lifecycleTransitions.WithLabelValues(string(domain.StatusCompleted)).Inc()
	l.publish(&EvaluationSubmitted{EventMeta: newEventMeta(p, completed), EvaluationID: ev.ID, Total: ev.TotalScore})
	return nil
}

// Approve moves a Completed evaluation to Approved. Admin only.
func (l *EvaluationLifecycle) Approve(ctx context.Context, p domain.Principal, evaluationID int64) error {
	if !p.IsAdmin() {
		return notAuthorized()
	}
	if err := authorizeCapability(ctx, l.checker, p, evaluationsObject, "approve"); err != nil {
		return err
	}
	ev, err := l.loadMutable(ctx, p, evaluationID)
	if err != nil {
		return err
	}
	if ev.Status != domain.StatusCompleted {
		return invalidState("evaluation %d is %s; only Completed evaluations can be approved", ev.ID, ev.Status)
	}
	ev.Status = domain.StatusApproved
	if _, err := l.store.SaveAtomic(ctx, []domain.Entity{ev}); err != nil {
		return mapStoreError("approve evaluation", err)
	}
	lifecycleTransitions.WithLabelValues(string(domain.StatusApproved)).Inc()
	l.publish(&EvaluationApproved{EventMeta: newEventMeta(p, l.now()), EvaluationID: ev.ID, Total: ev.TotalScore})
	return nil
}

// Recalculate recomputes and stores the total with the weights in effect now.
// Approved evaluations keep the total they were approved with.
func (l *EvaluationLifecycle) Recalculate(ctx context.Context, p domain.Principal, evaluationID int64) (decimal.Decimal, error) {
	if err := authorizeCapability(ctx, l.checker, p, evaluationsObject, "recalculate"); err != nil {
		return decimal.Zero, err
	}
	ev, err := l.loadMutable(ctx, p, evaluationID)
	if err != nil {
		return decimal.Zero, err
	}
	if ev.Status == domain.StatusApproved {
		return decimal.Zero, invalidState("evaluation %d is Approved; its total is final", ev.ID)
	}
	total, err := l.aggregator.TotalFor(ctx, ev.ID)
	if err != nil {
		return decimal.Zero, err
	}
	previous := ev.TotalScore
	ev.TotalScore = total.Round(totalScale)
	if _, err := l.store.SaveAtomic(ctx, []domain.Entity{ev}); err != nil {
		return decimal.Zero, mapStoreError("recalculate evaluation", err)
	}
	l.publish(&TotalRecalculated{EventMeta: newEventMeta(p, l.now()), EvaluationID: ev.ID, Previous: previous, Total: ev.TotalScore})
	return ev.TotalScore, nil
}

// Total returns the live weighted total of an evaluation p can see, without storing it.
func (l *EvaluationLifecycle) Total(ctx context.Context, p domain.Principal, evaluationID int64) (decimal.Decimal, error) {
	if _, err := l.loadAccessible(ctx, p, evaluationID); err != nil {
		return decimal.Zero, err
	}
	return l.aggregator.TotalFor(ctx, evaluationID)
}
