// Package storetest runs the record lifecycle contract against any
// bonus.RecordStore implementation.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) bonus.RecordStore

// Run executes every contract test against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Providers", func(t *testing.T) { testProviders(t, newStore(t)) })
	t.Run("EvaluationLifecycle", func(t *testing.T) { testEvaluationLifecycle(t, newStore(t)) })
	t.Run("EvaluationNotFound", func(t *testing.T) { testEvaluationNotFound(t, newStore(t)) })
	t.Run("GlobalLifecycle", func(t *testing.T) { testGlobalLifecycle(t, newStore(t)) })
	t.Run("ListByYear", func(t *testing.T) { testListByYear(t, newStore(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newStore(t)) })
}

func ptr[T any](v T) *T { return &v }

var (
	jan = generic.NewMonth(2025, time.January)
	feb = generic.NewMonth(2025, time.February)
)

func seedProvider(t *testing.T, s bonus.RecordStore, id generic.ProviderID, active bool) {
	t.Helper()
	require.NoError(t, s.SaveProvider(context.Background(), bonus.Provider{
		ID:         id,
		Name:       "Provider " + string(id),
		BaseSalary: decimal.RequireFromString("8500"),
		Active:     active,
	}))
}

// =============================================================================
// PROVIDERS
// =============================================================================

func testProviders(t *testing.T, s bonus.RecordStore) {
	ctx := context.Background()
	seedProvider(t, s, "p2", false)
	seedProvider(t, s, "p1", true)

	p, err := s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Provider p1", p.Name)
	assert.True(t, p.BaseSalary.Equal(decimal.RequireFromString("8500")))
	assert.False(t, p.CreatedAt.IsZero())

	all, err := s.ListProviders(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, generic.ProviderID("p1"), all[0].ID, "ordered by id")

	active, err := s.ListProviders(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, generic.ProviderID("p1"), active[0].ID)

	// Saving again replaces the fields and keeps the creation time.
	created := p.CreatedAt
	require.NoError(t, s.SaveProvider(ctx, bonus.Provider{ID: "p1", Name: "Renamed", BaseSalary: decimal.RequireFromString("9000"), Active: true}))
	p, err = s.GetProvider(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
	assert.True(t, p.BaseSalary.Equal(decimal.RequireFromString("9000")))
	assert.True(t, created.Equal(p.CreatedAt))

	_, err = s.GetProvider(ctx, "missing")
	assert.ErrorIs(t, err, generic.ErrProviderNotFound)

	err = s.SaveProvider(ctx, bonus.Provider{ID: "p3", BaseSalary: decimal.RequireFromString("-1")})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func testEvaluationLifecycle(t *testing.T, s bonus.RecordStore) {
	// GIVEN: a draft evaluation
	// WHEN: it is edited, released and edited again
	// THEN: edits apply until release, after which they are rejected

	ctx := context.Background()
	seedProvider(t, s, "p1", true)

	e, err := s.CreateEvaluation(ctx, "p1", jan)
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Released())
	assert.Zero(t, e.Productivity, "new evaluations start zeroed")

	_, err = s.CreateEvaluation(ctx, "p1", jan)
	assert.ErrorIs(t, err, generic.ErrDuplicateRecord)
	assert.True(t, generic.IsConflict(err))

	_, err = s.CreateEvaluation(ctx, "ghost", jan)
	assert.ErrorIs(t, err, generic.ErrProviderNotFound)

	updated, err := s.UpdateEvaluation(ctx, e.ID, bonus.EvaluationPatch{
		AbsenceDays:  ptr(2),
		Productivity: ptr(1.0),
		NPSProject:   ptr(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.AbsenceDays)
	assert.Equal(t, 1.0, updated.Productivity)
	assert.Equal(t, 0.5, updated.NPSProject)

	_, err = s.UpdateEvaluation(ctx, e.ID, bonus.EvaluationPatch{Quality: ptr(1.2)})
	assert.ErrorIs(t, err, generic.ErrInvalidInput, "out-of-range values are rejected")

	got, err := s.GetEvaluation(ctx, "p1", jan)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Productivity)
	assert.Zero(t, got.Quality, "rejected patch leaves the record untouched")

	released, err := s.ReleaseEvaluation(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, released.ReleasedAt)

	again, err := s.ReleaseEvaluation(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, released.ReleasedAt.Equal(*again.ReleasedAt), "releasing twice keeps the first timestamp")

	_, err = s.UpdateEvaluation(ctx, e.ID, bonus.EvaluationPatch{Quality: ptr(1.0)})
	assert.ErrorIs(t, err, generic.ErrRecordReleased)
	var releasedErr *generic.RecordReleasedError
	require.ErrorAs(t, err, &releasedErr)
	assert.Equal(t, e.ID, releasedErr.ID)

	assert.ErrorIs(t, s.DeleteEvaluation(ctx, e.ID), generic.ErrRecordReleased)

	draft, err := s.CreateEvaluation(ctx, "p1", feb)
	require.NoError(t, err)
	require.NoError(t, s.DeleteEvaluation(ctx, draft.ID))
	_, err = s.GetEvaluationByID(ctx, draft.ID)
	assert.ErrorIs(t, err, generic.ErrEvaluationNotFound)

	_, err = s.CreateEvaluation(ctx, "p1", feb)
	assert.NoError(t, err, "a deleted month can be recreated")
}

func testEvaluationNotFound(t *testing.T, s bonus.RecordStore) {
	ctx := context.Background()
	seedProvider(t, s, "p1", true)

	_, err := s.GetEvaluation(ctx, "p1", jan)
	assert.ErrorIs(t, err, generic.ErrEvaluationNotFound)
	_, err = s.GetEvaluationByID(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrEvaluationNotFound)
	_, err = s.UpdateEvaluation(ctx, "nope", bonus.EvaluationPatch{})
	assert.ErrorIs(t, err, generic.ErrEvaluationNotFound)
	_, err = s.ReleaseEvaluation(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrEvaluationNotFound)
	assert.ErrorIs(t, s.DeleteEvaluation(ctx, "nope"), generic.ErrEvaluationNotFound)
}

// =============================================================================
// GLOBAL INDICATORS
// =============================================================================

func testGlobalLifecycle(t *testing.T, s bonus.RecordStore) {
	ctx := context.Background()

	g, err := s.CreateGlobalIndicators(ctx, jan)
	require.NoError(t, err)
	_, err = s.CreateGlobalIndicators(ctx, jan)
	assert.ErrorIs(t, err, generic.ErrDuplicateRecord)

	updated, err := s.UpdateGlobalIndicators(ctx, g.ID, bonus.GlobalIndicatorsPatch{Churn: ptr(1.0)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, updated.Churn)
	assert.Zero(t, updated.NPSGlobal)

	_, err = s.UpdateGlobalIndicators(ctx, g.ID, bonus.GlobalIndicatorsPatch{NPSGlobal: ptr(-0.5)})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = s.ReleaseGlobalIndicators(ctx, g.ID)
	require.NoError(t, err)

	got, err := s.GetGlobalIndicators(ctx, jan)
	require.NoError(t, err)
	assert.True(t, got.Released())

	_, err = s.UpdateGlobalIndicators(ctx, g.ID, bonus.GlobalIndicatorsPatch{Churn: ptr(0.0)})
	assert.ErrorIs(t, err, generic.ErrRecordReleased)
	assert.ErrorIs(t, s.DeleteGlobalIndicators(ctx, g.ID), generic.ErrRecordReleased)

	_, err = s.GetGlobalIndicators(ctx, feb)
	assert.ErrorIs(t, err, generic.ErrGlobalIndicatorsNotFound)
	_, err = s.GetGlobalIndicatorsByID(ctx, "nope")
	assert.ErrorIs(t, err, generic.ErrGlobalIndicatorsNotFound)
}

// =============================================================================
// LISTING
// =============================================================================

func testListByYear(t *testing.T, s bonus.RecordStore) {
	ctx := context.Background()
	seedProvider(t, s, "p1", true)
	seedProvider(t, s, "p2", true)

	for _, m := range []generic.Month{
		generic.NewMonth(2025, time.March),
		generic.NewMonth(2024, time.December),
		generic.NewMonth(2025, time.January),
	} {
		_, err := s.CreateEvaluation(ctx, "p1", m)
		require.NoError(t, err)
		_, err = s.CreateGlobalIndicators(ctx, m)
		require.NoError(t, err)
	}
	_, err := s.CreateEvaluation(ctx, "p2", jan)
	require.NoError(t, err)

	evals, err := s.ListEvaluations(ctx, "p1", 2025)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, time.January, evals[0].Month.Month)
	assert.Equal(t, time.March, evals[1].Month.Month)

	globals, err := s.ListGlobalIndicators(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, globals, 2)
	assert.Equal(t, time.January, globals[0].Month.Month)

	none, err := s.ListEvaluations(ctx, "p1", 2030)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testReset(t *testing.T, s bonus.RecordStore) {
	ctx := context.Background()
	seedProvider(t, s, "p1", true)
	_, err := s.CreateEvaluation(ctx, "p1", jan)
	require.NoError(t, err)
	_, err = s.CreateGlobalIndicators(ctx, jan)
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	providers, err := s.ListProviders(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, providers)
	_, err = s.GetGlobalIndicators(ctx, jan)
	assert.ErrorIs(t, err, generic.ErrGlobalIndicatorsNotFound)

	seedProvider(t, s, "p1", true)
	_, err = s.CreateEvaluation(ctx, "p1", jan)
	assert.NoError(t, err, "reset clears the uniqueness index")
}
