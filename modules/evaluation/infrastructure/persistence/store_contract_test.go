package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/modules/evaluation/domain"
)

// runStoreContract exercises the behaviour every domain.Store adapter must share.
// The store must be empty.
func runStoreContract(t *testing.T, store domain.Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	saved, err := store.SaveAtomic(ctx, []domain.Entity{
		domain.CriteriaCategory{Name: "Delivery", Weight: decimal.RequireFromString("60.5"), Active: true},
		domain.CriteriaCategory{Name: "Teamwork", Weight: decimal.RequireFromString("39.5"), Active: true},
		domain.Evaluation{EvaluatorID: 7, EmployeeID: 42, Status: domain.StatusDraft, CreatedDate: now, TotalScore: decimal.Zero, Active: true},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	require.NotZero(t, saved[0].EntityID())
	require.NotEqual(t, saved[0].EntityID(), saved[1].EntityID())

	cat, err := domain.FindAs[domain.CriteriaCategory](ctx, store, domain.KindCriteriaCategory, saved[0].EntityID())
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("60.5").Equal(cat.Weight))

	ev, err := domain.FindAs[domain.Evaluation](ctx, store, domain.KindEvaluation, saved[2].EntityID())
	require.NoError(t, err)
	require.Nil(t, ev.CompletedDate)
	require.True(t, now.Equal(ev.CreatedDate))

	completed := now.Add(time.Hour)
	ev.Status = domain.StatusCompleted
	ev.CompletedDate = &completed
	ev.TotalScore = decimal.RequireFromString("4.2")
	_, err = store.SaveAtomic(ctx, []domain.Entity{ev})
	require.NoError(t, err)

	ev, err = domain.FindAs[domain.Evaluation](ctx, store, domain.KindEvaluation, ev.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, ev.Status)
	require.NotNil(t, ev.CompletedDate)
	require.True(t, completed.Equal(*ev.CompletedDate))
	require.True(t, decimal.RequireFromString("4.2").Equal(ev.TotalScore))

	rows, err := domain.QueryAs[domain.CriteriaCategory](ctx, store, domain.KindCriteriaCategory,
		domain.And(domain.ActiveOnly(), domain.In("id", []int64{saved[1].EntityID(), 9999})))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Teamwork", rows[0].Name)

	none, err := store.Query(ctx, domain.KindCriteriaCategory, domain.None())
	require.NoError(t, err)
	require.Empty(t, none)

	_, err = store.FindByID(ctx, domain.KindEvaluation, 424242)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = store.SaveAtomic(ctx, []domain.Entity{
		domain.Team{Name: "ghost-batch", Active: true},
		domain.Team{ID: 424242, Name: "missing", Active: true},
	})
	require.Error(t, err)
	teams, err := store.Query(ctx, domain.KindTeam, domain.Eq("name", "ghost-batch"))
	require.NoError(t, err)
	require.Empty(t, teams, "failed batch must not leave partial inserts")

	scores, err := store.SaveAtomic(ctx, []domain.Entity{
		domain.EvaluationScore{EvaluationID: ev.ID, CriteriaID: 1, Score: 3, CreatedDate: now, Active: true},
	})
	require.NoError(t, err)
	_, err = store.SaveAtomic(ctx, []domain.Entity{
		domain.EvaluationScore{EvaluationID: ev.ID, CriteriaID: 2, Score: 3, CreatedDate: now, Active: true},
		domain.EvaluationScore{EvaluationID: ev.ID, CriteriaID: 1, Score: 4, CreatedDate: now, Active: true},
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	stored, err := domain.QueryAs[domain.EvaluationScore](ctx, store, domain.KindEvaluationScore, domain.Eq("evaluation_id", ev.ID))
	require.NoError(t, err)
	require.Len(t, stored, 1, "the rejected batch must roll back its first insert")
	require.Equal(t, 3, stored[0].Score)

	rescored := scores[0].(domain.EvaluationScore)
	rescored.Score = 5
	_, err = store.SaveAtomic(ctx, []domain.Entity{rescored})
	require.NoError(t, err, "updating the row that owns the pair is not a conflict")

	require.NoError(t, store.Delete(ctx, domain.KindCriteriaCategory, saved[0].EntityID()))
	require.ErrorIs(t, store.Delete(ctx, domain.KindCriteriaCategory, saved[0].EntityID()), domain.ErrNotFound)
}
