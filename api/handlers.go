/*
handlers.go - HTTP API handlers for the bonus engine

PURPOSE:
  Exposes input-record management and bonus computation over REST. Handles
  HTTP request/response and JSON serialization, and delegates to the
  store (records) and bonus.Service (computation).

ENDPOINTS:
  Providers:
    GET    /api/providers                     List providers (?active=true)
    POST   /api/providers                     Create or replace a provider
    GET    /api/providers/{id}                Get provider

  Evaluations:
    GET    /api/providers/{id}/evaluations    List a year (?year=2025)
    POST   /api/providers/{id}/evaluations    Open a month {"month": "Janeiro/2025"}
    PATCH  /api/evaluations/{id}              Edit an unreleased evaluation
    POST   /api/evaluations/{id}/release      Lock it
    DELETE /api/evaluations/{id}              Delete an unreleased evaluation

  Global indicators:
    GET    /api/global-indicators             List a year (?year=2025)
    POST   /api/global-indicators             Open a month
    PATCH  /api/global-indicators/{id}        Edit
    POST   /api/global-indicators/{id}/release
    DELETE /api/global-indicators/{id}

  Bonus:
    GET    /api/providers/{id}/bonus/monthly?month=Janeiro/2025
    GET    /api/providers/{id}/bonus/semester?semester=2025-H1
    GET    /api/policy                        Active policy

ERROR HANDLING:
  Errors are returned as JSON with an HTTP status derived from the error
  kind (see statusFor):
  - 400: invalid input, month label, semester or policy
  - 404: provider/record not found, no released months
  - 409: duplicate record, record already released
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         bonus.RecordStore
	Service       *bonus.Service
	Formatter     *bonus.Formatter
	PolicyFactory *factory.PolicyFactory
	Logger        *zap.Logger

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. A nil logger is replaced with a no-op one.
func NewHandler(store bonus.RecordStore, svc *bonus.Service, formatter *bonus.Formatter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:         store,
		Service:       svc,
		Formatter:     formatter,
		PolicyFactory: factory.NewPolicyFactory(),
		Logger:        logger,
	}
}

// =============================================================================
// PROVIDER HANDLERS
// =============================================================================

// ListProviders returns all providers, or only active ones with ?active=true.
func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	providers, err := h.Store.ListProviders(r.Context(), activeOnly)
	if err != nil {
		h.writeDomainError(w, "Failed to list providers", err)
		return
	}

	dtos := make([]ProviderDTO, 0, len(providers))
	for _, p := range providers {
		dtos = append(dtos, toProviderDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProvider returns a single provider.
func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	id := generic.ProviderID(chi.URLParam(r, "id"))

	p, err := h.Store.GetProvider(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get provider", err)
		return
	}
	writeJSON(w, http.StatusOK, toProviderDTO(*p))
}

// CreateProvider creates or replaces a provider.
func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req CreateProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	salary, err := decimal.NewFromString(strings.TrimSpace(req.BaseSalary))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid base_salary (use a decimal string)", err)
		return
	}

	p := bonus.Provider{
		ID:         generic.ProviderID(strings.TrimSpace(req.ID)),
		Name:       req.Name,
		Email:      req.Email,
		BaseSalary: salary,
		Active:     req.Active == nil || *req.Active,
	}
	if err := h.Store.SaveProvider(r.Context(), p); err != nil {
		h.writeDomainError(w, "Failed to save provider", err)
		return
	}

	saved, err := h.Store.GetProvider(r.Context(), p.ID)
	if err != nil {
		h.writeDomainError(w, "Failed to get provider", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProviderDTO(*saved))
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// ListEvaluations returns a provider's evaluations for ?year (default: current year).
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	id := generic.ProviderID(chi.URLParam(r, "id"))
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	evals, err := h.Store.ListEvaluations(r.Context(), id, year)
	if err != nil {
		h.writeDomainError(w, "Failed to list evaluations", err)
		return
	}
	dtos := make([]EvaluationDTO, 0, len(evals))
	for _, e := range evals {
		dtos = append(dtos, toEvaluationDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEvaluation opens a provider's evaluation for a month.
func (h *Handler) CreateEvaluation(w http.ResponseWriter, r *http.Request) {
	id := generic.ProviderID(chi.URLParam(r, "id"))

	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := generic.ParseMonthLabel(generic.MonthLabel(req.Month))
	if err != nil {
		h.writeDomainError(w, "Invalid month", err)
		return
	}

	e, err := h.Store.CreateEvaluation(r.Context(), id, month)
	if err != nil {
		h.writeDomainError(w, "Failed to create evaluation", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEvaluationDTO(*e))
}

// UpdateEvaluation edits an unreleased evaluation.
func (h *Handler) UpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))

	var req UpdateEvaluationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	e, err := h.Store.UpdateEvaluation(r.Context(), id, req.toPatch())
	if err != nil {
		h.writeDomainError(w, "Failed to update evaluation", err)
		return
	}
	writeJSON(w, http.StatusOK, toEvaluationDTO(*e))
}

// ReleaseEvaluation locks an evaluation so semester aggregation can use it.
func (h *Handler) ReleaseEvaluation(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))

	e, err := h.Store.ReleaseEvaluation(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to release evaluation", err)
		return
	}
	h.Logger.Info("evaluation released",
		zap.String("id", string(e.ID)),
		zap.String("provider_id", string(e.ProviderID)),
		zap.String("month", e.Month.String()))
	writeJSON(w, http.StatusOK, toEvaluationDTO(*e))
}

// DeleteEvaluation removes an unreleased evaluation.
func (h *Handler) DeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteEvaluation(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete evaluation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// GLOBAL INDICATOR HANDLERS
// =============================================================================

func (h *Handler) ListGlobalIndicators(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}

	globals, err := h.Store.ListGlobalIndicators(r.Context(), year)
	if err != nil {
		h.writeDomainError(w, "Failed to list global indicators", err)
		return
	}
	dtos := make([]GlobalIndicatorsDTO, 0, len(globals))
	for _, g := range globals {
		dtos = append(dtos, toGlobalIndicatorsDTO(g))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateGlobalIndicators(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	month, err := generic.ParseMonthLabel(generic.MonthLabel(req.Month))
	if err != nil {
		h.writeDomainError(w, "Invalid month", err)
		return
	}

	g, err := h.Store.CreateGlobalIndicators(r.Context(), month)
	if err != nil {
		h.writeDomainError(w, "Failed to create global indicators", err)
		return
	}
	writeJSON(w, http.StatusCreated, toGlobalIndicatorsDTO(*g))
}

func (h *Handler) UpdateGlobalIndicators(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))

	var req UpdateGlobalIndicatorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	g, err := h.Store.UpdateGlobalIndicators(r.Context(), id, req.toPatch())
	if err != nil {
		h.writeDomainError(w, "Failed to update global indicators", err)
		return
	}
	writeJSON(w, http.StatusOK, toGlobalIndicatorsDTO(*g))
}

func (h *Handler) ReleaseGlobalIndicators(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))

	g, err := h.Store.ReleaseGlobalIndicators(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to release global indicators", err)
		return
	}
	h.Logger.Info("global indicators released",
		zap.String("id", string(g.ID)),
		zap.String("month", g.Month.String()))
	writeJSON(w, http.StatusOK, toGlobalIndicatorsDTO(*g))
}

func (h *Handler) DeleteGlobalIndicators(w http.ResponseWriter, r *http.Request) {
	id := generic.RecordID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteGlobalIndicators(r.Context(), id); err != nil {
		h.writeDomainError(w, "Failed to delete global indicators", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// BONUS HANDLERS
// =============================================================================

// GetMonthlyBonus scores one month for a provider.
// GET /api/providers/{id}/bonus/monthly?month=Janeiro/2025
func (h *Handler) GetMonthlyBonus(w http.ResponseWriter, r *http.Request) {
	id := generic.ProviderID(chi.URLParam(r, "id"))

	month, err := generic.ParseMonthLabel(generic.MonthLabel(r.URL.Query().Get("month")))
	if err != nil {
		h.writeDomainError(w, "Invalid month", err)
		return
	}

	res, err := h.Service.MonthlyBonus(r.Context(), id, month)
	if err != nil {
		h.writeDomainError(w, "Failed to compute monthly bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toBonusDTO(*res))
}

// GetSemesterBonus aggregates a semester's released months.
// GET /api/providers/{id}/bonus/semester?semester=2025-H1
func (h *Handler) GetSemesterBonus(w http.ResponseWriter, r *http.Request) {
	id := generic.ProviderID(chi.URLParam(r, "id"))

	sem, err := generic.ParseSemester(r.URL.Query().Get("semester"))
	if err != nil {
		h.writeDomainError(w, "Invalid semester", err)
		return
	}

	res, err := h.Service.SemesterBonus(r.Context(), id, sem)
	if err != nil {
		h.writeDomainError(w, "Failed to compute semester bonus", err)
		return
	}
	writeJSON(w, http.StatusOK, h.toBonusDTO(*res))
}

// GetPolicy returns the active policy document.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	p := h.Service.Policy()
	writeJSON(w, http.StatusOK, PolicyDTO{
		ID:     p.ID,
		Name:   p.Name,
		Config: h.PolicyFactory.ToJSON(p),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseYear(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return generic.CurrentMonth().Year, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year <= 0 {
		return 0, &generic.InputError{Field: "year", Value: raw, Reason: "must be a positive integer"}
	}
	return year, nil
}

// statusFor maps a domain error to an HTTP status.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case generic.IsConflict(err):
		return http.StatusConflict
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
	}
	writeError(w, status, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
