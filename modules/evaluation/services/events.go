package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// EventMeta identifies one published domain event.
type EventMeta struct {
	EventID   uuid.UUID
	Principal domain.Principal
	At        time.Time
}

func newEventMeta(p domain.Principal, at time.Time) EventMeta {
	return EventMeta{EventID: uuid.New(), Principal: p, At: at}
}

type EvaluationCreated struct {
	EventMeta
	Evaluation domain.Evaluation
}

type ScoreRecorded struct {
	EventMeta
	Score      domain.EvaluationScore
	FromStatus domain.Status
	ToStatus   domain.Status
}

type EvaluationSubmitted struct {
	EventMeta
	EvaluationID int64
	Total        decimal.Decimal
}

type CommentAdded struct {
	EventMeta
	EvaluationID int64
	Comment      domain.Comment
}

type EvaluationApproved struct {
	EventMeta
	EvaluationID int64
	Total        decimal.Decimal
}

type TotalRecalculated struct {
	EventMeta
	EvaluationID int64
	Previous     decimal.Decimal
	Total        decimal.Decimal
}

type WeightsRebalanced struct {
	EventMeta
	Requests    []WeightRequest
	TotalWeight decimal.Decimal
}

// CascadeOperation names the kind of cascade applied.
type CascadeOperation string

const (
	CascadeDeactivate CascadeOperation = "deactivate"
	CascadeReactivate CascadeOperation = "reactivate"
	CascadeDelete     CascadeOperation = "delete"
)

type CascadeApplied struct {
	EventMeta
	Operation  CascadeOperation
	RootKind   domain.Kind
	RootID     int64
	Dependents map[domain.Kind]int
}
