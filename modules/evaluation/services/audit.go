package services

import (
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/pkg/eventbus"
)

// RegisterAuditSubscribers logs every domain event published by the evaluation services.
func RegisterAuditSubscribers(bus eventbus.EventBus, logger *logrus.Logger) {
	log := logger.WithField("component", "evaluation.audit")
	entry := func(m EventMeta) *logrus.Entry {
		return log.WithFields(logrus.Fields{
			"event_id":  m.EventID.String(),
			"principal": m.Principal.String(),
			"at":        m.At,
		})
	}

	bus.Subscribe(func(e *EvaluationCreated) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"evaluation_id": e.Evaluation.ID,
			"evaluator_id":  e.Evaluation.EvaluatorID,
			"employee_id":   e.Evaluation.EmployeeID,
		}).Info("evaluation created")
	})
	bus.Subscribe(func(e *ScoreRecorded) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"evaluation_id": e.Score.EvaluationID,
			"criteria_id":   e.Score.CriteriaID,
			"score":         e.Score.Score,
			"from":          e.FromStatus,
			"to":            e.ToStatus,
		}).Info("score recorded")
	})
	bus.Subscribe(func(e *EvaluationSubmitted) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"evaluation_id": e.EvaluationID,
			"total":         e.Total.String(),
		}).Info("evaluation submitted")
	})
	bus.Subscribe(func(e *CommentAdded) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"evaluation_id": e.EvaluationID,
			"score_id":      e.Comment.ScoreID,
			"comment_id":    e.Comment.ID,
		}).Info("comment added")
	})
	bus.Subscribe(func(e *EvaluationApproved) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"evaluation_id": e.EvaluationID,
			"total":         e.Total.String(),
		}).Info("evaluation approved")
	})
	bus.Subscribe(func(e *TotalRecalculated) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"evaluation_id": e.EvaluationID,
			"previous":      e.Previous.String(),
			"total":         e.Total.String(),
		}).Info("evaluation total recalculated")
	})
	bus.Subscribe(func(e *WeightsRebalanced) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"categories":   len(e.Requests),
			"total_weight": e.TotalWeight.String(),
		}).Info("category weights rebalanced")
	})
	bus.Subscribe(func(e *CascadeApplied) {
		entry(e.EventMeta).WithFields(logrus.Fields{
			"operation":  e.Operation,
			"root_kind":  e.RootKind,
			"root_id":    e.RootID,
			"dependents": e.Dependents,
		}).Info("cascade applied")
	})
}
