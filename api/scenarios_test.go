/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario sets up the expected state and that the bonus
	endpoints return the documented figures for it:
	- Providers and records are created
	- Release states match the scenario description
	- Monthly and semester results match hand-computed values

These tests run against the SQLite store and double as integration tests.
*/
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/store/sqlite"
)

func setupScenarioRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	router, _ := newTestRouter(t, store)
	return router
}

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func semesterBonus(t *testing.T, router http.Handler, providerID, sem string) BonusDTO {
	t.Helper()
	rec := do(t, router, http.MethodGet, "/api/providers/"+providerID+"/bonus/semester?semester="+sem, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[BonusDTO](t, rec)
}

func TestScenario_List(t *testing.T) {
	router := setupScenarioRouter(t)

	rec := do(t, router, http.MethodGet, "/api/scenarios/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]ScenarioDTO](t, rec)
	require.Len(t, list, len(scenarioLoaders))
	for _, s := range list {
		_, ok := scenarioLoaders[s.ID]
		assert.True(t, ok, "scenario %s has a loader", s.ID)
	}
}

func TestScenario_FullMarks(t *testing.T) {
	// GIVEN: six released perfect months on a salary of 8500
	// WHEN: computing 2025-H1
	// THEN: the semester pays exactly the semester cap

	router := setupScenarioRouter(t)
	loadScenario(t, router, "full-marks")

	res := semesterBonus(t, router, "prov-001", "2025-H1")
	assert.Equal(t, "semester", res.Kind)
	assert.Equal(t, "2025-H1", res.Period)
	assert.True(t, res.Eligible)
	assert.Equal(t, "3400.00", res.Total.Value)
	assert.Equal(t, "R$ 3.400,00", res.Total.Formatted)
	assert.Len(t, res.Months, 6)
	assert.Len(t, res.Monthly, 6)
	assert.Equal(t, "566.67", res.Monthly[0].Total.Value)

	rec := do(t, router, http.MethodGet, "/api/scenarios/current", nil)
	assert.Equal(t, "full-marks", decode[ScenarioDTO](t, rec).ID)
}

func TestScenario_MixedSemester(t *testing.T) {
	// GIVEN: three perfect months and three months with 3 absences
	// THEN: every tier displays 100% but only three months pay

	router := setupScenarioRouter(t)
	loadScenario(t, router, "mixed-semester")

	res := semesterBonus(t, router, "prov-002", "2025-H1")
	assert.True(t, res.Eligible)
	assert.Equal(t, 9, res.Counters.AbsenceDays)
	assert.Equal(t, "100,0%", res.Tier2.Percentage.Formatted)
	assert.Equal(t, "1200.00", res.Total.Value, "3 x 400.00")
}

func TestScenario_MissingGlobal(t *testing.T) {
	router := setupScenarioRouter(t)
	loadScenario(t, router, "missing-global")

	res := semesterBonus(t, router, "prov-003", "2025-H1")
	assert.Equal(t, []string{"Janeiro/2025", "Fevereiro/2025", "Março/2025"}, res.Months)
	assert.Equal(t, "1440.00", res.Total.Value, "3 x 480.00")
}

func TestScenario_DraftMonth(t *testing.T) {
	// GIVEN: July records that were never released
	// THEN: the monthly preview works and the semester has nothing to aggregate

	router := setupScenarioRouter(t)
	loadScenario(t, router, "draft-month")

	rec := do(t, router, http.MethodGet, "/api/providers/prov-004/bonus/monthly?month=Julho/2025", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[BonusDTO](t, rec)
	assert.Equal(t, "120.00", res.Tier2.Value.Value)
	assert.Equal(t, "80.00", res.Tier3.Value.Value)
	assert.Equal(t, "246.67", res.Total.Value)

	rec = do(t, router, http.MethodGet, "/api/providers/prov-004/bonus/semester?semester=2025-H2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScenario_LoadReplacesPrevious(t *testing.T) {
	router := setupScenarioRouter(t)
	loadScenario(t, router, "full-marks")
	loadScenario(t, router, "draft-month")

	rec := do(t, router, http.MethodGet, "/api/providers/prov-001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "loading resets the store")

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, router, http.MethodGet, "/api/providers", nil)
	assert.Empty(t, decode[[]ProviderDTO](t, rec))
}
