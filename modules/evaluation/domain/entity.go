package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entity is implemented by every persisted value type. Implementations are plain
// values: WithID and WithActive return modified copies.
type Entity interface {
	Kind() Kind
	EntityID() int64
	IsActive() bool
	Values() Record
	WithID(id int64) Entity
	WithActive(active bool) Entity
}

// Status is the evaluation lifecycle state.
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusApproved   Status = "Approved"
)

// Scorable reports whether scores and comments may still be written.
func (s Status) Scorable() bool {
	return s == StatusDraft || s == StatusInProgress || s == StatusCompleted
}

// Submittable reports whether the evaluation may transition to Completed.
func (s Status) Submittable() bool {
	return s == StatusDraft || s == StatusInProgress
}

type User struct {
	ID           int64
	DepartmentID int64
	Name         string
	Active       bool
}

func (e User) Kind() Kind                    { return KindUser }
func (e User) EntityID() int64               { return e.ID }
func (e User) IsActive() bool                { return e.Active }
func (e User) WithID(id int64) Entity        { e.ID = id; return e }
func (e User) WithActive(active bool) Entity { e.Active = active; return e }
func (e User) Values() Record {
	return Record{"id": e.ID, "department_id": e.DepartmentID, "name": e.Name, "active": e.Active}
}

type Department struct {
	ID     int64
	Name   string
	Active bool
}

func (e Department) Kind() Kind                    { return KindDepartment }
func (e Department) EntityID() int64               { return e.ID }
func (e Department) IsActive() bool                { return e.Active }
func (e Department) WithID(id int64) Entity        { e.ID = id; return e }
func (e Department) WithActive(active bool) Entity { e.Active = active; return e }
func (e Department) Values() Record {
	return Record{"id": e.ID, "name": e.Name, "active": e.Active}
}

type Team struct {
	ID     int64
	Name   string
	Active bool
}

func (e Team) Kind() Kind                    { return KindTeam }
func (e Team) EntityID() int64               { return e.ID }
func (e Team) IsActive() bool                { return e.Active }
func (e Team) WithID(id int64) Entity        { e.ID = id; return e }
func (e Team) WithActive(active bool) Entity { e.Active = active; return e }
func (e Team) Values() Record {
	return Record{"id": e.ID, "name": e.Name, "active": e.Active}
}

// EvaluatorAssignment links an evaluator to an employee. TeamID 0 marks a direct
// (team-less) pair.
type EvaluatorAssignment struct {
	ID           int64
	EvaluatorID  int64
	EmployeeID   int64
	TeamID       int64
	Active       bool
	AssignedDate time.Time
}

func (e EvaluatorAssignment) Kind() Kind                    { return KindEvaluatorAssignment }
func (e EvaluatorAssignment) EntityID() int64               { return e.ID }
func (e EvaluatorAssignment) IsActive() bool                { return e.Active }
func (e EvaluatorAssignment) WithID(id int64) Entity        { e.ID = id; return e }
func (e EvaluatorAssignment) WithActive(active bool) Entity { e.Active = active; return e }
func (e EvaluatorAssignment) Values() Record {
	return Record{
		"id": e.ID, "evaluator_id": e.EvaluatorID, "employee_id": e.EmployeeID, "team_id": e.TeamID,
		"active": e.Active, "assigned_date": e.AssignedDate,
	}
}

type Role struct {
	ID     int64
	Name   string
	Active bool
}

func (e Role) Kind() Kind                    { return KindRole }
func (e Role) EntityID() int64               { return e.ID }
func (e Role) IsActive() bool                { return e.Active }
func (e Role) WithID(id int64) Entity        { e.ID = id; return e }
func (e Role) WithActive(active bool) Entity { e.Active = active; return e }
func (e Role) Values() Record {
	return Record{"id": e.ID, "name": e.Name, "active": e.Active}
}

// Protected reports the built-in system roles, which can never be deactivated or deleted.
func (e Role) Protected() bool {
	_, ok := ParseRole(e.Name)
	return ok
}

type RoleAssignment struct {
	ID     int64
	UserID int64
	RoleID int64
	Active bool
}

func (e RoleAssignment) Kind() Kind                    { return KindRoleAssignment }
func (e RoleAssignment) EntityID() int64               { return e.ID }
func (e RoleAssignment) IsActive() bool                { return e.Active }
func (e RoleAssignment) WithID(id int64) Entity        { e.ID = id; return e }
func (e RoleAssignment) WithActive(active bool) Entity { e.Active = active; return e }
func (e RoleAssignment) Values() Record {
	return Record{"id": e.ID, "user_id": e.UserID, "role_id": e.RoleID, "active": e.Active}
}

type CriteriaCategory struct {
	ID     int64
	Name   string
	Weight decimal.Decimal
	Active bool
}

func (e CriteriaCategory) Kind() Kind                    { return KindCriteriaCategory }
func (e CriteriaCategory) EntityID() int64               { return e.ID }
func (e CriteriaCategory) IsActive() bool                { return e.Active }
func (e CriteriaCategory) WithID(id int64) Entity        { e.ID = id; return e }
func (e CriteriaCategory) WithActive(active bool) Entity { e.Active = active; return e }
func (e CriteriaCategory) Values() Record {
	return Record{"id": e.ID, "name": e.Name, "weight": e.Weight, "active": e.Active}
}

type Criteria struct {
	ID         int64
	CategoryID int64
	Name       string
	Active     bool
}

func (e Criteria) Kind() Kind                    { return KindCriteria }
func (e Criteria) EntityID() int64               { return e.ID }
func (e Criteria) IsActive() bool                { return e.Active }
func (e Criteria) WithID(id int64) Entity        { e.ID = id; return e }
func (e Criteria) WithActive(active bool) Entity { e.Active = active; return e }
func (e Criteria) Values() Record {
	return Record{"id": e.ID, "category_id": e.CategoryID, "name": e.Name, "active": e.Active}
}

type RoleCriteriaDescription struct {
	ID          int64
	CriteriaID  int64
	RoleID      int64
	Description string
	Active      bool
}

func (e RoleCriteriaDescription) Kind() Kind                    { return KindRoleCriteriaDescription }
func (e RoleCriteriaDescription) EntityID() int64               { return e.ID }
func (e RoleCriteriaDescription) IsActive() bool                { return e.Active }
func (e RoleCriteriaDescription) WithID(id int64) Entity        { e.ID = id; return e }
func (e RoleCriteriaDescription) WithActive(active bool) Entity { e.Active = active; return e }
func (e RoleCriteriaDescription) Values() Record {
	return Record{
		"id": e.ID, "criteria_id": e.CriteriaID, "role_id": e.RoleID, "description": e.Description,
		"active": e.Active,
	}
}

type Evaluation struct {
	ID            int64
	EvaluatorID   int64
	EmployeeID    int64
	Status        Status
	CreatedDate   time.Time
	CompletedDate *time.Time
	TotalScore    decimal.Decimal
	Active        bool
}

func (e Evaluation) Kind() Kind                    { return KindEvaluation }
func (e Evaluation) EntityID() int64               { return e.ID }
func (e Evaluation) IsActive() bool                { return e.Active }
func (e Evaluation) WithID(id int64) Entity        { e.ID = id; return e }
func (e Evaluation) WithActive(active bool) Entity { e.Active = active; return e }
func (e Evaluation) Values() Record {
	var completed any
	if e.CompletedDate != nil {
		completed = *e.CompletedDate
	}
	return Record{
		"id": e.ID, "evaluator_id": e.EvaluatorID, "employee_id": e.EmployeeID, "status": string(e.Status),
		"created_date": e.CreatedDate, "completed_date": completed, "total_score": e.TotalScore,
		"active": e.Active,
	}
}

type EvaluationScore struct {
	ID           int64
	EvaluationID int64
	CriteriaID   int64
	Score        int
	CreatedDate  time.Time
	Active       bool
}

func (e EvaluationScore) Kind() Kind                    { return KindEvaluationScore }
func (e EvaluationScore) EntityID() int64               { return e.ID }
func (e EvaluationScore) IsActive() bool                { return e.Active }
func (e EvaluationScore) WithID(id int64) Entity        { e.ID = id; return e }
func (e EvaluationScore) WithActive(active bool) Entity { e.Active = active; return e }
func (e EvaluationScore) Values() Record {
	return Record{
		"id": e.ID, "evaluation_id": e.EvaluationID, "criteria_id": e.CriteriaID, "score": int64(e.Score),
		"created_date": e.CreatedDate, "active": e.Active,
	}
}

type Comment struct {
	ID          int64
	ScoreID     int64
	Description string
	Active      bool
}

func (e Comment) Kind() Kind                    { return KindComment }
func (e Comment) EntityID() int64               { return e.ID }
func (e Comment) IsActive() bool                { return e.Active }
func (e Comment) WithID(id int64) Entity        { e.ID = id; return e }
func (e Comment) WithActive(active bool) Entity { e.Active = active; return e }
func (e Comment) Values() Record {
	return Record{"id": e.ID, "score_id": e.ScoreID, "description": e.Description, "active": e.Active}
}
