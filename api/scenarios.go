/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with providers,
	monthly evaluations and global indicators, so the bonus endpoints can be
	explored without manual data entry.

AVAILABLE SCENARIOS:

	full-marks:     One provider, R$ 8.500 salary, every metric met Jan-Jun 2025
	mixed-semester: Three eligible months and three months lost to absences
	missing-global: Global indicators released for only part of the semester
	draft-month:    Unreleased records, visible only through the monthly preview

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create providers
 3. Create and fill global indicator records, release them
 4. Create and fill evaluations, release them

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mixed-semester"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Record and bonus handlers
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "full-marks",
		Name:        "Full Marks",
		Description: "Every criterion met for six released months (566.67 per month on 8500)",
	},
	{
		ID:          "mixed-semester",
		Name:        "Mixed Semester",
		Description: "Three perfect months and three months with 3 absences: 100% displayed, half the money",
	},
	{
		ID:          "missing-global",
		Name:        "Missing Global Indicators",
		Description: "Only Jan-Mar have released global indicators; the semester uses those months",
	},
	{
		ID:          "draft-month",
		Name:        "Draft Month",
		Description: "Unreleased records: monthly preview works, semester reports no released months",
	},
}

var scenarioLoaders = map[string]func(*Handler, context.Context) error{
	"full-marks":     (*Handler).loadFullMarksScenario,
	"mixed-semester": (*Handler).loadMixedSemesterScenario,
	"missing-global": (*Handler).loadMissingGlobalScenario,
	"draft-month":    (*Handler).loadDraftMonthScenario,
}

// scenarioYear is fixed so demo results are reproducible.
const scenarioYear = 2025

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	loader, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := loader(h, ctx); err != nil {
		h.Logger.Error("scenario load failed", zap.String("scenario", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID
	h.Logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears every record.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadFullMarksScenario(ctx context.Context) error {
	if err := h.seedProvider(ctx, "prov-001", "Ana Souza", "8500"); err != nil {
		return err
	}
	for _, m := range semester(generic.FirstHalf).Months() {
		if err := h.seedGlobal(ctx, m, perfectGlobal(), true); err != nil {
			return err
		}
		if err := h.seedEvaluation(ctx, "prov-001", m, perfectEvaluation(), true); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMixedSemesterScenario(ctx context.Context) error {
	if err := h.seedProvider(ctx, "prov-002", "Bruno Lima", "6000"); err != nil {
		return err
	}
	absent := perfectEvaluation()
	absent.AbsenceDays = intPtr(3)

	for i, m := range semester(generic.FirstHalf).Months() {
		if err := h.seedGlobal(ctx, m, perfectGlobal(), true); err != nil {
			return err
		}
		patch := perfectEvaluation()
		if i%2 == 1 {
			patch = absent
		}
		if err := h.seedEvaluation(ctx, "prov-002", m, patch, true); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadMissingGlobalScenario(ctx context.Context) error {
	if err := h.seedProvider(ctx, "prov-003", "Carla Dias", "7200"); err != nil {
		return err
	}
	for i, m := range semester(generic.FirstHalf).Months() {
		// Apr-Jun globals exist but stay in draft.
		if err := h.seedGlobal(ctx, m, perfectGlobal(), i < 3); err != nil {
			return err
		}
		if err := h.seedEvaluation(ctx, "prov-003", m, perfectEvaluation(), true); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadDraftMonthScenario(ctx context.Context) error {
	if err := h.seedProvider(ctx, "prov-004", "Diego Alves", "5000"); err != nil {
		return err
	}
	m := generic.NewMonth(scenarioYear, time.July)
	global := bonus.GlobalIndicatorsPatch{NPSGlobal: floatPtr(1), Churn: floatPtr(0.8), PlatformUsage: floatPtr(1)}
	if err := h.seedGlobal(ctx, m, global, false); err != nil {
		return err
	}
	eval := perfectEvaluation()
	eval.Behavior = floatPtr(0.5)
	eval.NPSProject = floatPtr(0.9)
	return h.seedEvaluation(ctx, "prov-004", m, eval, false)
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func (h *Handler) seedProvider(ctx context.Context, id, name, salary string) error {
	return h.Store.SaveProvider(ctx, bonus.Provider{
		ID:         generic.ProviderID(id),
		Name:       name,
		Email:      id + "@example.com",
		BaseSalary: decimal.RequireFromString(salary),
		Active:     true,
	})
}

func (h *Handler) seedEvaluation(ctx context.Context, providerID string, m generic.Month, patch bonus.EvaluationPatch, release bool) error {
	e, err := h.Store.CreateEvaluation(ctx, generic.ProviderID(providerID), m)
	if err != nil {
		return err
	}
	if _, err := h.Store.UpdateEvaluation(ctx, e.ID, patch); err != nil {
		return err
	}
	if release {
		_, err = h.Store.ReleaseEvaluation(ctx, e.ID)
	}
	return err
}

func (h *Handler) seedGlobal(ctx context.Context, m generic.Month, patch bonus.GlobalIndicatorsPatch, release bool) error {
	g, err := h.Store.CreateGlobalIndicators(ctx, m)
	if err != nil {
		return err
	}
	if _, err := h.Store.UpdateGlobalIndicators(ctx, g.ID, patch); err != nil {
		return err
	}
	if release {
		_, err = h.Store.ReleaseGlobalIndicators(ctx, g.ID)
	}
	return err
}

func perfectEvaluation() bonus.EvaluationPatch {
	return bonus.EvaluationPatch{
		Productivity: floatPtr(1), Quality: floatPtr(1), Behavior: floatPtr(1),
		Skills: floatPtr(1), Attitude: floatPtr(1), Values: floatPtr(1),
		NPSProject: floatPtr(1), Backlog: floatPtr(1), Priorities: floatPtr(1), SLA: floatPtr(1),
	}
}

func perfectGlobal() bonus.GlobalIndicatorsPatch {
	return bonus.GlobalIndicatorsPatch{NPSGlobal: floatPtr(1), Churn: floatPtr(1), PlatformUsage: floatPtr(1)}
}

func semester(half generic.Half) generic.Semester {
	return generic.Semester{Year: scenarioYear, Half: half}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
