package domain

import "fmt"

// Hydrate rebuilds an entity of the given kind from a record produced by a storage adapter.
func Hydrate(kind Kind, r Record) (Entity, error) {
	rd := &recordReader{r: r}
	var e Entity
	switch kind {
	case KindUser:
		e = User{ID: rd.int64("id"), DepartmentID: rd.int64("department_id"), Name: rd.str("name"), Active: rd.boolean("active")}
	case KindDepartment:
		e = Department{ID: rd.int64("id"), Name: rd.str("name"), Active: rd.boolean("active")}
	case KindTeam:
		e = Team{ID: rd.int64("id"), Name: rd.str("name"), Active: rd.boolean("active")}
	case KindEvaluatorAssignment:
		e = EvaluatorAssignment{
			ID:           rd.int64("id"),
			EvaluatorID:  rd.int64("evaluator_id"),
			EmployeeID:   rd.int64("employee_id"),
			TeamID:       rd.int64("team_id"),
			Active:       rd.boolean("active"),
			AssignedDate: rd.time("assigned_date"),
		}
	case KindRole:
		e = Role{ID: rd.int64("id"), Name: rd.str("name"), Active: rd.boolean("active")}
	case KindRoleAssignment:
		e = RoleAssignment{ID: rd.int64("id"), UserID: rd.int64("user_id"), RoleID: rd.int64("role_id"), Active: rd.boolean("active")}
	case KindCriteriaCategory:
		e = CriteriaCategory{ID: rd.int64("id"), Name: rd.str("name"), Weight: rd.dec("weight"), Active: rd.boolean("active")}
	case KindCriteria:
		e = Criteria{ID: rd.int64("id"), CategoryID: rd.int64("category_id"), Name: rd.str("name"), Active: rd.boolean("active")}
	case KindRoleCriteriaDescription:
		e = RoleCriteriaDescription{
			ID:          rd.int64("id"),
			CriteriaID:  rd.int64("criteria_id"),
			RoleID:      rd.int64("role_id"),
			Description: rd.str("description"),
			Active:      rd.boolean("active"),
		}
	case KindEvaluation:
		e = Evaluation{
			ID:            rd.int64("id"),
			EvaluatorID:   rd.int64("evaluator_id"),
			EmployeeID:    rd.int64("employee_id"),
			Status:        Status(rd.str("status")),
			CreatedDate:   rd.time("created_date"),
			CompletedDate: rd.timePtr("completed_date"),
			TotalScore:    rd.dec("total_score"),
			Active:        rd.boolean("active"),
		}
	case KindEvaluationScore:
		e = EvaluationScore{
			ID:           rd.int64("id"),
			EvaluationID: rd.int64("evaluation_id"),
			CriteriaID:   rd.int64("criteria_id"),
			Score:        int(rd.int64("score")),
			CreatedDate:  rd.time("created_date"),
			Active:       rd.boolean("active"),
		}
	case KindComment:
		e = Comment{ID: rd.int64("id"), ScoreID: rd.int64("score_id"), Description: rd.str("description"), Active: rd.boolean("active")}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if rd.err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", kind, rd.err)
	}
	return e, nil
}
