package services

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// WeightRequest asks for one category's weight to be set.
type WeightRequest struct {
	CategoryID int64           `json:"categoryId" validate:"gt=0"`
	NewWeight  decimal.Decimal `json:"newWeight"`
}

type rebalanceInput struct {
	Requests []WeightRequest `validate:"required,min=1,dive"`
}

type scoreInput struct {
	EvaluationID int64 `validate:"gt=0"`
	CriteriaID   int64 `validate:"gt=0"`
	Score        int   `validate:"min=1,max=5"`
}

type commentInput struct {
	ScoreID     int64  `validate:"gt=0"`
	Description string `validate:"required,max=4000"`
}

type createInput struct {
	EvaluatorID int64 `validate:"gt=0"`
	EmployeeID  int64 `validate:"gt=0,nefield=EvaluatorID"`
}

func validateInput(v any, what string) error {
	if err := validate.Struct(v); err != nil {
		return validationFailed(err, "invalid %s", what)
	}
	return nil
}
