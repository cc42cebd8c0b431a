/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Record lifecycle over HTTP (create, patch, release, delete)
- Error to status mapping (400, 404, 409)
- Monthly and semester bonus responses
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
	"github.com/warp/bonus-engine/metrics"
	"github.com/warp/bonus-engine/store/memory"
	"go.uber.org/zap/zaptest"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestRouter(t *testing.T, store bonus.RecordStore) (*chi.Mux, *Handler) {
	t.Helper()
	formatter, err := bonus.NewFormatter("pt-BR", generic.UnitBRL)
	require.NoError(t, err)

	logger := zaptest.NewLogger(t)
	svc := bonus.NewService(store, bonus.WithLogger(logger))
	h := NewHandler(store, svc, formatter, logger)
	return NewRouter(h, RouterOptions{AllowedOrigins: []string{"*"}, Metrics: metrics.New()}), h
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func createProvider(t *testing.T, router http.Handler, id, salary string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/providers", CreateProviderRequest{ID: id, Name: "Ana", BaseSalary: salary})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func fullMarks() UpdateEvaluationRequest {
	return UpdateEvaluationRequest{
		Productivity: floatPtr(1), Quality: floatPtr(1), Behavior: floatPtr(1),
		Skills: floatPtr(1), Attitude: floatPtr(1), Values: floatPtr(1),
		NPSProject: floatPtr(1), Backlog: floatPtr(1), Priorities: floatPtr(1), SLA: floatPtr(1),
	}
}

// =============================================================================
// PROVIDERS
// =============================================================================

func TestProviders_CreateAndGet(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())

	rec := do(t, router, http.MethodPost, "/api/providers", CreateProviderRequest{ID: "p1", Name: "Ana", BaseSalary: "8500"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[ProviderDTO](t, rec)
	assert.Equal(t, "8500.00", created.BaseSalary)
	assert.True(t, created.Active, "active defaults to true")

	rec = do(t, router, http.MethodGet, "/api/providers/p1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decode[ProviderDTO](t, rec).Name)

	inactive := false
	do(t, router, http.MethodPost, "/api/providers", CreateProviderRequest{ID: "p2", Name: "Bia", BaseSalary: "100", Active: &inactive})
	rec = do(t, router, http.MethodGet, "/api/providers?active=true", nil)
	assert.Len(t, decode[[]ProviderDTO](t, rec), 1)

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/providers/ghost", nil).Code)
}

func TestProviders_RejectsBadSalary(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())

	rec := do(t, router, http.MethodPost, "/api/providers", CreateProviderRequest{ID: "p1", BaseSalary: "lots"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/providers", CreateProviderRequest{ID: "p1", BaseSalary: "-10"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "invalid")
}

// =============================================================================
// EVALUATION LIFECYCLE
// =============================================================================

func TestEvaluation_Lifecycle(t *testing.T) {
	// GIVEN: a provider with an open January evaluation
	// WHEN: it is patched, released, then patched again
	// THEN: the second patch is rejected with 409

	router, _ := newTestRouter(t, memory.New())
	createProvider(t, router, "p1", "8500")

	rec := do(t, router, http.MethodPost, "/api/providers/p1/evaluations", CreateRecordRequest{Month: "Janeiro/2025"})
	require.Equal(t, http.StatusCreated, rec.Code)
	eval := decode[EvaluationDTO](t, rec)
	assert.Equal(t, "Janeiro/2025", eval.Month)
	assert.False(t, eval.Released)

	rec = do(t, router, http.MethodPost, "/api/providers/p1/evaluations", CreateRecordRequest{Month: "Janeiro/2025"})
	assert.Equal(t, http.StatusConflict, rec.Code, "one evaluation per month")

	rec = do(t, router, http.MethodPatch, "/api/evaluations/"+eval.ID, UpdateEvaluationRequest{Quality: floatPtr(1), AbsenceDays: intPtr(1)})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[EvaluationDTO](t, rec)
	assert.Equal(t, 1.0, patched.Quality)
	assert.Equal(t, 1, patched.AbsenceDays)

	rec = do(t, router, http.MethodPatch, "/api/evaluations/"+eval.ID, UpdateEvaluationRequest{Quality: floatPtr(2)})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "values above 1 are rejected, not clamped")

	rec = do(t, router, http.MethodPost, "/api/evaluations/"+eval.ID+"/release", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[EvaluationDTO](t, rec).Released)

	rec = do(t, router, http.MethodPatch, "/api/evaluations/"+eval.ID, UpdateEvaluationRequest{Quality: floatPtr(0)})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodDelete, "/api/evaluations/"+eval.ID, nil).Code)

	rec = do(t, router, http.MethodGet, "/api/providers/p1/evaluations?year=2025", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]EvaluationDTO](t, rec), 1)
}

func TestEvaluation_DeleteDraft(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())
	createProvider(t, router, "p1", "8500")

	eval := decode[EvaluationDTO](t, do(t, router, http.MethodPost, "/api/providers/p1/evaluations", CreateRecordRequest{Month: "Fevereiro/2025"}))

	assert.Equal(t, http.StatusNoContent, do(t, router, http.MethodDelete, "/api/evaluations/"+eval.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodDelete, "/api/evaluations/"+eval.ID, nil).Code)
}

func TestEvaluation_BadInput(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())
	createProvider(t, router, "p1", "8500")

	rec := do(t, router, http.MethodPost, "/api/providers/p1/evaluations", CreateRecordRequest{Month: "January/2025"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/providers/ghost/evaluations", CreateRecordRequest{Month: "Janeiro/2025"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/providers/p1/evaluations?year=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGlobalIndicators_Lifecycle(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())

	rec := do(t, router, http.MethodPost, "/api/global-indicators", CreateRecordRequest{Month: "Março/2025"})
	require.Equal(t, http.StatusCreated, rec.Code)
	g := decode[GlobalIndicatorsDTO](t, rec)

	rec = do(t, router, http.MethodPatch, "/api/global-indicators/"+g.ID, UpdateGlobalIndicatorsRequest{Churn: floatPtr(1)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1.0, decode[GlobalIndicatorsDTO](t, rec).Churn)

	require.Equal(t, http.StatusOK, do(t, router, http.MethodPost, "/api/global-indicators/"+g.ID+"/release", nil).Code)
	assert.Equal(t, http.StatusConflict, do(t, router, http.MethodDelete, "/api/global-indicators/"+g.ID, nil).Code)

	rec = do(t, router, http.MethodGet, "/api/global-indicators?year=2025", nil)
	list := decode[[]GlobalIndicatorsDTO](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Março/2025", list[0].Month)
	assert.True(t, list[0].Released)
}

// =============================================================================
// BONUS
// =============================================================================

func TestMonthlyBonus_FullMarks(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())
	createProvider(t, router, "p1", "8500")

	eval := decode[EvaluationDTO](t, do(t, router, http.MethodPost, "/api/providers/p1/evaluations", CreateRecordRequest{Month: "Janeiro/2025"}))
	do(t, router, http.MethodPatch, "/api/evaluations/"+eval.ID, fullMarks())
	g := decode[GlobalIndicatorsDTO](t, do(t, router, http.MethodPost, "/api/global-indicators", CreateRecordRequest{Month: "Janeiro/2025"}))
	do(t, router, http.MethodPatch, "/api/global-indicators/"+g.ID, UpdateGlobalIndicatorsRequest{NPSGlobal: floatPtr(1), Churn: floatPtr(1), PlatformUsage: floatPtr(1)})

	rec := do(t, router, http.MethodGet, "/api/providers/p1/bonus/monthly?month=Janeiro/2025", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[BonusDTO](t, rec)

	assert.Equal(t, "monthly", res.Kind)
	assert.Equal(t, "Janeiro/2025", res.Period)
	assert.True(t, res.Eligible)
	assert.Equal(t, "566.67", res.Total.Value)
	assert.Equal(t, "R$ 566,67", res.Total.Formatted)
	assert.Equal(t, "BRL", res.Total.Currency)
	assert.Equal(t, "226.67", res.Tier2.Value.Value)
	assert.Equal(t, "113.33", res.Tier4.Value.Value)
	assert.Equal(t, "100,0%", res.Tier3.Percentage.Formatted)
	assert.Equal(t, "3400.00", res.Caps.Semester.Value)
	assert.Len(t, res.Tier2.Criteria, 6)
}

func TestMonthlyBonus_Errors(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())
	createProvider(t, router, "p1", "8500")

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/providers/p1/bonus/monthly?month=Janvier/2025", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/providers/p1/bonus/monthly", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/providers/p1/bonus/monthly?month=Janeiro/2025", nil).Code)
}

func TestSemesterBonus_Errors(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())
	createProvider(t, router, "p1", "8500")

	assert.Equal(t, http.StatusBadRequest, do(t, router, http.MethodGet, "/api/providers/p1/bonus/semester?semester=2025-H3", nil).Code)

	rec := do(t, router, http.MethodGet, "/api/providers/p1/bonus/semester?semester=2025-H1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "no released months")
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "no released months")
}

func TestGetPolicy(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())

	rec := do(t, router, http.MethodGet, "/api/policy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[PolicyDTO](t, rec)
	assert.Equal(t, "default", p.ID)
	assert.Equal(t, "0.4", p.Config.SemesterCapRatio)
	require.NotNil(t, p.Config.Weights)
	assert.Len(t, p.Config.Weights.Tier4, 3)
}

func TestHealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, memory.New())

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", nil).Code)
	do(t, router, http.MethodGet, "/api/providers", nil)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bonus_http_requests_total{method="GET",route="/api/providers`)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&generic.InputError{Field: "quality"}, http.StatusBadRequest},
		{generic.ErrInvalidMonthLabel, http.StatusBadRequest},
		{generic.ErrInvalidSemester, http.StatusBadRequest},
		{generic.ErrProviderNotFound, http.StatusNotFound},
		{generic.ErrNoReleasedMonths, http.StatusNotFound},
		{generic.ErrDuplicateRecord, http.StatusConflict},
		{&generic.RecordReleasedError{Kind: "evaluation", ID: "e1"}, http.StatusConflict},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
