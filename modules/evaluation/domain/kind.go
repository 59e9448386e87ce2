package domain

import (
	"fmt"
	"strings"
)

// Kind names a persisted entity type.
type Kind string

const (
	KindUser                    Kind = "user"
	KindDepartment              Kind = "department"
	KindTeam                    Kind = "team"
	KindEvaluatorAssignment     Kind = "evaluator_assignment"
	KindRole                    Kind = "role"
	KindRoleAssignment          Kind = "role_assignment"
	KindCriteriaCategory        Kind = "criteria_category"
	KindCriteria                Kind = "criteria"
	KindRoleCriteriaDescription Kind = "role_criteria_description"
	KindEvaluation              Kind = "evaluation"
	KindEvaluationScore         Kind = "evaluation_score"
	KindComment                 Kind = "comment"
)

// ColumnType is the canonical Go representation of a column value inside a Record.
type ColumnType int

const (
	ColumnInt ColumnType = iota + 1
	ColumnString
	ColumnBool
	ColumnDecimal
	ColumnTime
	ColumnNullableTime
)

type Column struct {
	Name string
	Type ColumnType
}

type schema struct {
	table    string
	resource string
	columns  []Column
}

var schemas = map[Kind]schema{
	KindUser: {"users", "users", []Column{
		{"id", ColumnInt}, {"department_id", ColumnInt}, {"name", ColumnString}, {"active", ColumnBool},
	}},
	KindDepartment: {"departments", "departments", []Column{
		{"id", ColumnInt}, {"name", ColumnString}, {"active", ColumnBool},
	}},
	KindTeam: {"teams", "teams", []Column{
		{"id", ColumnInt}, {"name", ColumnString}, {"active", ColumnBool},
	}},
	KindEvaluatorAssignment: {"evaluator_assignments", "assignments", []Column{
		{"id", ColumnInt}, {"evaluator_id", ColumnInt}, {"employee_id", ColumnInt}, {"team_id", ColumnInt},
		{"active", ColumnBool}, {"assigned_date", ColumnTime},
	}},
	KindRole: {"roles", "roles", []Column{
		{"id", ColumnInt}, {"name", ColumnString}, {"active", ColumnBool},
	}},
	KindRoleAssignment: {"role_assignments", "role_assignments", []Column{
		{"id", ColumnInt}, {"user_id", ColumnInt}, {"role_id", ColumnInt}, {"active", ColumnBool},
	}},
	KindCriteriaCategory: {"criteria_categories", "categories", []Column{
		{"id", ColumnInt}, {"name", ColumnString}, {"weight", ColumnDecimal}, {"active", ColumnBool},
	}},
	KindCriteria: {"criteria", "criteria", []Column{
		{"id", ColumnInt}, {"category_id", ColumnInt}, {"name", ColumnString}, {"active", ColumnBool},
	}},
	KindRoleCriteriaDescription: {"role_criteria_descriptions", "criteria_descriptions", []Column{
		{"id", ColumnInt}, {"criteria_id", ColumnInt}, {"role_id", ColumnInt}, {"description", ColumnString},
		{"active", ColumnBool},
	}},
	KindEvaluation: {"evaluations", "evaluations", []Column{
		{"id", ColumnInt}, {"evaluator_id", ColumnInt}, {"employee_id", ColumnInt}, {"status", ColumnString},
		{"created_date", ColumnTime}, {"completed_date", ColumnNullableTime}, {"total_score", ColumnDecimal},
		{"active", ColumnBool},
	}},
	KindEvaluationScore: {"evaluation_scores", "scores", []Column{
		{"id", ColumnInt}, {"evaluation_id", ColumnInt}, {"criteria_id", ColumnInt}, {"score", ColumnInt},
		{"created_date", ColumnTime}, {"active", ColumnBool},
	}},
	KindComment: {"comments", "comments", []Column{
		{"id", ColumnInt}, {"score_id", ColumnInt}, {"description", ColumnString}, {"active", ColumnBool},
	}},
}

// Kinds lists every known kind in dependency order (parents before children).
func Kinds() []Kind {
	return []Kind{
		KindDepartment, KindUser, KindTeam, KindEvaluatorAssignment, KindRole, KindRoleAssignment,
		KindCriteriaCategory, KindCriteria, KindRoleCriteriaDescription,
		KindEvaluation, KindEvaluationScore, KindComment,
	}
}

// ParseKind accepts a kind name or its table/resource alias.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, sc := range schemas {
		if s == string(k) || s == sc.table || s == sc.resource {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) Valid() bool {
	_, ok := schemas[k]
	return ok
}

// Table is the relational table (or document collection) backing the kind.
func (k Kind) Table() string {
	return schemas[k].table
}

// Resource is the object suffix used in capability checks ("evaluation.<resource>").
func (k Kind) Resource() string {
	return schemas[k].resource
}

// Columns returns the kind's columns with id first.
func (k Kind) Columns() []Column {
	return append([]Column(nil), schemas[k].columns...)
}

// Column looks a column up by name.
func (k Kind) Column(name string) (Column, bool) {
	for _, c := range schemas[k].columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IsReferenceData reports kinds shared by everyone as long as they are active.
func (k Kind) IsReferenceData() bool {
	switch k {
	case KindCriteriaCategory, KindCriteria, KindRole, KindRoleCriteriaDescription:
		return true
	default:
		return false
	}
}
