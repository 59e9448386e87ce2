package services

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// ScoreInput is one raw criterion score joined with its category's current weight.
type ScoreInput struct {
	CriteriaID     int64
	Score          int
	CategoryID     int64
	CategoryWeight decimal.Decimal
}

// CalculateTotal averages scores per category and combines the category means
// weighted by category weight. Only represented categories contribute to the
// denominator, so partially scored evaluations still yield a value on the 1-5
// scale. When every represented weight is zero the plain mean of category means is
// returned. Empty input yields zero.
func CalculateTotal(scores []ScoreInput) decimal.Decimal {
	if len(scores) == 0 {
		return decimal.Zero
	}

	type group struct {
		sum    decimal.Decimal
		count  int64
		weight decimal.Decimal
	}
	groups := map[int64]*group{}
	var order []int64
	for _, s := range scores {
		g, ok := groups[s.CategoryID]
		if !ok {
			g = &group{sum: decimal.Zero, weight: s.CategoryWeight}
			groups[s.CategoryID] = g
			order = append(order, s.CategoryID)
		}
		g.sum = g.sum.Add(decimal.NewFromInt(int64(s.Score)))
		g.count++
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	weighted, weights, means := decimal.Zero, decimal.Zero, decimal.Zero
	for _, id := range order {
		g := groups[id]
		mean := g.sum.Div(decimal.NewFromInt(g.count))
		means = means.Add(mean)
		weighted = weighted.Add(mean.Mul(g.weight))
		weights = weights.Add(g.weight)
	}
	if weights.IsZero() {
		return means.Div(decimal.NewFromInt(int64(len(order))))
	}
	return weighted.Div(weights)
}

// ScoreAggregator loads scores with their current category weights.
type ScoreAggregator struct {
	store domain.Store
}

func NewScoreAggregator(store domain.Store) *ScoreAggregator {
	return &ScoreAggregator{store: store}
}

// scoringCatalog holds the criteria and categories active for evaluation.
type scoringCatalog struct {
	criteria   map[int64]domain.Criteria
	categories map[int64]domain.CriteriaCategory
}

// required lists criteria that are active under an active category.
func (c scoringCatalog) required() []int64 {
	var out []int64
	for id, cr := range c.criteria {
		if cr.Active {
			if cat, ok := c.categories[cr.CategoryID]; ok && cat.Active {
				out = append(out, id)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (c scoringCatalog) activeForEvaluation(criteriaID int64) (domain.CriteriaCategory, bool) {
	cr, ok := c.criteria[criteriaID]
	if !ok || !cr.Active {
		return domain.CriteriaCategory{}, false
	}
	cat, ok := c.categories[cr.CategoryID]
	if !ok || !cat.Active {
		return domain.CriteriaCategory{}, false
	}
	return cat, true
}

func (a *ScoreAggregator) catalog(ctx context.Context) (scoringCatalog, error) {
	criteria, err := domain.QueryAs[domain.Criteria](ctx, a.store, domain.KindCriteria, domain.All())
	if err != nil {
		return scoringCatalog{}, mapStoreError("load criteria", err)
	}
	categories, err := domain.QueryAs[domain.CriteriaCategory](ctx, a.store, domain.KindCriteriaCategory, domain.All())
	if err != nil {
		return scoringCatalog{}, mapStoreError("load categories", err)
	}
	c := scoringCatalog{
		criteria:   make(map[int64]domain.Criteria, len(criteria)),
		categories: make(map[int64]domain.CriteriaCategory, len(categories)),
	}
	for _, cr := range criteria {
		c.criteria[cr.ID] = cr
	}
	for _, cat := range categories {
		c.categories[cat.ID] = cat
	}
	return c, nil
}

func (a *ScoreAggregator) activeScores(ctx context.Context, evaluationID int64) ([]domain.EvaluationScore, error) {
	scores, err := domain.QueryAs[domain.EvaluationScore](ctx, a.store, domain.KindEvaluationScore,
		domain.And(domain.Eq("evaluation_id", evaluationID), domain.ActiveOnly()))
	if err != nil {
		return nil, mapStoreError("load scores", err)
	}
	return scores, nil
}

// HasAllRequiredScores reports whether every criterion active for evaluation has an
// active score on the evaluation.
func (a *ScoreAggregator) HasAllRequiredScores(ctx context.Context, evaluationID int64) (bool, error) {
	missing, err := a.MissingCriteria(ctx, evaluationID)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// MissingCriteria lists required criteria that have no active score yet.
func (a *ScoreAggregator) MissingCriteria(ctx context.Context, evaluationID int64) ([]int64, error) {
	catalog, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := a.activeScores(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	scored := make(map[int64]struct{}, len(scores))
	for _, s := range scores {
		scored[s.CriteriaID] = struct{}{}
	}
	var missing []int64
	for _, id := range catalog.required() {
		if _, ok := scored[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// TotalFor computes the evaluation's total with the weights stored right now.
// Scores on criteria no longer active for evaluation are ignored.
func (a *ScoreAggregator) TotalFor(ctx context.Context, evaluationID int64) (decimal.Decimal, error) {
	return a.TotalWith(ctx, evaluationID, nil)
}

// TotalWith is TotalFor with pending replacing the stored score for its criteria, so
// a total can be saved in the same batch as the score that changes it.
func (a *ScoreAggregator) TotalWith(ctx context.Context, evaluationID int64, pending *domain.EvaluationScore) (decimal.Decimal, error) {
	catalog, err := a.catalog(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	scores, err := a.activeScores(ctx, evaluationID)
	if err != nil {
		return decimal.Zero, err
	}
	if pending != nil && pending.EvaluationID == evaluationID {
		kept := scores[:0]
		for _, s := range scores {
			if s.CriteriaID != pending.CriteriaID {
				kept = append(kept, s)
			}
		}
		scores = kept
		if pending.Active {
			scores = append(scores, *pending)
		}
	}
	inputs := make([]ScoreInput, 0, len(scores))
	for _, s := range scores {
		cat, ok := catalog.activeForEvaluation(s.CriteriaID)
		if !ok {
			continue
		}
		inputs = append(inputs, ScoreInput{
			CriteriaID:     s.CriteriaID,
			Score:          s.Score,
			CategoryID:     cat.ID,
			CategoryWeight: cat.Weight,
		})
	}
	return CalculateTotal(inputs), nil
}
