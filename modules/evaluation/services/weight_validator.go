package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
	"github.com/iota-uz/perfeval/pkg/eventbus"
)

var (
	fullWeight      = decimal.NewFromInt(100)
	weightTolerance = decimal.RequireFromString("0.01")
)

// WeightValidation is the outcome of Validate.
type WeightValidation struct {
	IsValid     bool            `json:"isValid"`
	TotalWeight decimal.Decimal `json:"totalWeight"`
}

// WeightValidator checks and rebalances active criteria-category weights.
type WeightValidator struct {
	store   domain.Store
	checker CapabilityChecker
	bus     eventbus.EventBus
	log     *logrus.Entry
	now     func() time.Time
}

func NewWeightValidator(store domain.Store, checker CapabilityChecker, bus eventbus.EventBus, logger *logrus.Logger) *WeightValidator {
	return &WeightValidator{
		store:   store,
		checker: checker,
		bus:     bus,
		log:     logger.WithField("component", "evaluation.weights"),
		now:     time.Now,
	}
}

// weightsValid reports whether total is within tolerance of 100.
func weightsValid(total decimal.Decimal) bool {
	return total.Sub(fullWeight).Abs().LessThan(weightTolerance)
}

func sumActiveWeights(categories []domain.CriteriaCategory) decimal.Decimal {
	total := decimal.Zero
	for _, c := range categories {
		if c.Active {
			total = total.Add(c.Weight)
		}
	}
	return total
}

func (v *WeightValidator) categories(ctx context.Context) ([]domain.CriteriaCategory, error) {
	rows, err := domain.QueryAs[domain.CriteriaCategory](ctx, v.store, domain.KindCriteriaCategory, domain.All())
	if err != nil {
		return nil, mapStoreError("load categories", err)
	}
	return rows, nil
}

// TotalActiveWeight sums the weights of active categories.
func (v *WeightValidator) TotalActiveWeight(ctx context.Context) (decimal.Decimal, error) {
	rows, err := v.categories(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return sumActiveWeights(rows), nil
}

// Validate reports the current total; an imbalance is reported, never corrected.
func (v *WeightValidator) Validate(ctx context.Context) (WeightValidation, error) {
	total, err := v.TotalActiveWeight(ctx)
	if err != nil {
		return WeightValidation{}, err
	}
	return WeightValidation{IsValid: weightsValid(total), TotalWeight: total}, nil
}

// Rebalance applies every requested weight in one atomic save, or none of them.
func (v *WeightValidator) Rebalance(ctx context.Context, p domain.Principal, requests []WeightRequest) error {
	if err := authorizeCapability(ctx, v.checker, p, CapabilityObject(domain.KindCriteriaCategory), "rebalance"); err != nil {
		return err
	}
	if err := validateInput(rebalanceInput{Requests: requests}, "rebalance request"); err != nil {
		return err
	}

	seen := make(map[int64]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := seen[req.CategoryID]; dup {
			return validationFailed(nil, "category %d requested more than once", req.CategoryID)
		}
		seen[req.CategoryID] = struct{}{}
		if req.NewWeight.IsNegative() || req.NewWeight.GreaterThan(fullWeight) {
			return validationFailed(nil, "weight %s for category %d is outside [0, 100]", req.NewWeight, req.CategoryID)
		}
	}

	current, err := v.categories(ctx)
	if err != nil {
		return err
	}
	byID := make(map[int64]int, len(current))
	for i, c := range current {
		byID[c.ID] = i
	}

	next := append([]domain.CriteriaCategory(nil), current...)
	mutations := make([]domain.Entity, 0, len(requests))
	for _, req := range requests {
		i, ok := byID[req.CategoryID]
		if !ok {
			return validationFailed(nil, "category %d does not exist", req.CategoryID)
		}
		next[i].Weight = req.NewWeight
		mutations = append(mutations, next[i])
	}

	total := sumActiveWeights(next)
	if !weightsValid(total) {
		v.log.WithContext(ctx).WithFields(logrus.Fields{
			"subject":      p.String(),
			"total_weight": total.String(),
		}).Warn("rebalance rejected")
		return validationFailed(nil, "active category weights would total %s, expected 100", total)
	}

	if _, err := v.store.SaveAtomic(ctx, mutations); err != nil {
		return mapStoreError("rebalance", err)
	}

	if v.bus != nil {
		v.bus.Publish(&WeightsRebalanced{
			EventMeta:   newEventMeta(p, v.now()),
			Requests:    append([]WeightRequest(nil), requests...),
			TotalWeight: total,
		})
	}
	return nil
}
