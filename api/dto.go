/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Domain types stay free
  of JSON tags; these types fix the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY AND PERCENTAGES:
  Amounts are sent twice: as a decimal string rounded to cents ("566.67")
  for machines, and formatted for the configured locale ("R$ 566,67") for
  display. Percentages are fractions ("0.7") plus a display string
  in the same locale ("70,0%").

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// PROVIDERS
// =============================================================================

type ProviderDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	BaseSalary string `json:"base_salary"`
	Active     bool   `json:"active"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// CreateProviderRequest creates or replaces a provider. Active defaults to true.
type CreateProviderRequest struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	BaseSalary string `json:"base_salary"`
	Active     *bool  `json:"active,omitempty"`
}

// =============================================================================
// EVALUATIONS AND GLOBAL INDICATORS
// =============================================================================

type EvaluationDTO struct {
	ID         string `json:"id"`
	ProviderID string `json:"provider_id"`
	Month      string `json:"month"`

	AbsenceDays  int `json:"absence_days"`
	PendingItems int `json:"pending_items"`
	Infractions  int `json:"infractions"`

	Productivity float64 `json:"productivity"`
	Quality      float64 `json:"quality"`
	Behavior     float64 `json:"behavior"`
	Skills       float64 `json:"skills"`
	Attitude     float64 `json:"attitude"`
	Values       float64 `json:"values"`

	NPSProject float64 `json:"nps_project"`
	Backlog    float64 `json:"backlog"`
	Priorities float64 `json:"priorities"`
	SLA        float64 `json:"sla"`

	Released   bool   `json:"released"`
	ReleasedAt string `json:"released_at,omitempty"`
	UpdatedAt  string `json:"updated_at"`
}

// CreateRecordRequest opens an evaluation or global record for a month label
// such as "Janeiro/2025".
type CreateRecordRequest struct {
	Month string `json:"month"`
}

// UpdateEvaluationRequest sets only the fields present in the body.
type UpdateEvaluationRequest struct {
	AbsenceDays  *int `json:"absence_days,omitempty"`
	PendingItems *int `json:"pending_items,omitempty"`
	Infractions  *int `json:"infractions,omitempty"`

	Productivity *float64 `json:"productivity,omitempty"`
	Quality      *float64 `json:"quality,omitempty"`
	Behavior     *float64 `json:"behavior,omitempty"`
	Skills       *float64 `json:"skills,omitempty"`
	Attitude     *float64 `json:"attitude,omitempty"`
	Values       *float64 `json:"values,omitempty"`

	NPSProject *float64 `json:"nps_project,omitempty"`
	Backlog    *float64 `json:"backlog,omitempty"`
	Priorities *float64 `json:"priorities,omitempty"`
	SLA        *float64 `json:"sla,omitempty"`
}

func (r UpdateEvaluationRequest) toPatch() bonus.EvaluationPatch {
	return bonus.EvaluationPatch{
		AbsenceDays:  r.AbsenceDays,
		PendingItems: r.PendingItems,
		Infractions:  r.Infractions,
		Productivity: r.Productivity,
		Quality:      r.Quality,
		Behavior:     r.Behavior,
		Skills:       r.Skills,
		Attitude:     r.Attitude,
		Values:       r.Values,
		NPSProject:   r.NPSProject,
		Backlog:      r.Backlog,
		Priorities:   r.Priorities,
		SLA:          r.SLA,
	}
}

type GlobalIndicatorsDTO struct {
	ID            string  `json:"id"`
	Month         string  `json:"month"`
	NPSGlobal     float64 `json:"nps_global"`
	Churn         float64 `json:"churn"`
	PlatformUsage float64 `json:"platform_usage"`
	Released      bool    `json:"released"`
	ReleasedAt    string  `json:"released_at,omitempty"`
	UpdatedAt     string  `json:"updated_at"`
}

type UpdateGlobalIndicatorsRequest struct {
	NPSGlobal     *float64 `json:"nps_global,omitempty"`
	Churn         *float64 `json:"churn,omitempty"`
	PlatformUsage *float64 `json:"platform_usage,omitempty"`
}

func (r UpdateGlobalIndicatorsRequest) toPatch() bonus.GlobalIndicatorsPatch {
	return bonus.GlobalIndicatorsPatch{
		NPSGlobal:     r.NPSGlobal,
		Churn:         r.Churn,
		PlatformUsage: r.PlatformUsage,
	}
}

// =============================================================================
// BONUS RESULTS
// =============================================================================

// MoneyDTO carries an amount in machine and display form.
type MoneyDTO struct {
	Value     string `json:"value"`
	Currency  string `json:"currency"`
	Formatted string `json:"formatted"`
}

type PercentDTO struct {
	Fraction  string `json:"fraction"`
	Formatted string `json:"formatted"`
}

type CriterionDTO struct {
	Metric string `json:"metric"`
	Weight string `json:"weight"`
	Value  string `json:"value"`
	Met    bool   `json:"met"`
}

type TierDTO struct {
	Tier       int            `json:"tier"`
	Percentage PercentDTO     `json:"percentage"`
	MonthlyCap MoneyDTO       `json:"monthly_cap"`
	Value      MoneyDTO       `json:"value"`
	Criteria   []CriterionDTO `json:"criteria"`
}

type CapsDTO struct {
	Semester MoneyDTO `json:"semester"`
	Annual   MoneyDTO `json:"annual"`
}

type CountersDTO struct {
	AbsenceDays  int `json:"absence_days"`
	PendingItems int `json:"pending_items"`
	Infractions  int `json:"infractions"`
}

// BonusDTO is a monthly or semester result.
type BonusDTO struct {
	Kind                    string      `json:"kind"`
	ProviderID              string      `json:"provider_id"`
	Period                  string      `json:"period"`
	Months                  []string    `json:"months"`
	Salary                  MoneyDTO    `json:"salary"`
	Caps                    CapsDTO     `json:"caps"`
	Eligible                bool        `json:"eligible"`
	Counters                CountersDTO `json:"counters"`
	Tier2                   TierDTO     `json:"tier2"`
	Tier3                   TierDTO     `json:"tier3"`
	Tier4                   TierDTO     `json:"tier4"`
	Total                   MoneyDTO    `json:"total"`
	GlobalIndicatorsPresent bool        `json:"global_indicators_present"`
	Monthly                 []BonusDTO  `json:"monthly,omitempty"`
}

// =============================================================================
// POLICY, SCENARIOS, ERRORS
// =============================================================================

// PolicyDTO wraps the active policy document.
type PolicyDTO struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Config factory.PolicyJSON `json:"config"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProviderDTO(p bonus.Provider) ProviderDTO {
	dto := ProviderDTO{
		ID:         string(p.ID),
		Name:       p.Name,
		Email:      p.Email,
		BaseSalary: p.BaseSalary.StringFixed(2),
		Active:     p.Active,
	}
	if !p.CreatedAt.IsZero() {
		dto.CreatedAt = p.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func toEvaluationDTO(e bonus.Evaluation) EvaluationDTO {
	return EvaluationDTO{
		ID:           string(e.ID),
		ProviderID:   string(e.ProviderID),
		Month:        string(e.Month.Label()),
		AbsenceDays:  e.AbsenceDays,
		PendingItems: e.PendingItems,
		Infractions:  e.Infractions,
		Productivity: e.Productivity,
		Quality:      e.Quality,
		Behavior:     e.Behavior,
		Skills:       e.Skills,
		Attitude:     e.Attitude,
		Values:       e.Values,
		NPSProject:   e.NPSProject,
		Backlog:      e.Backlog,
		Priorities:   e.Priorities,
		SLA:          e.SLA,
		Released:     e.Released(),
		ReleasedAt:   formatOptionalTime(e.ReleasedAt),
		UpdatedAt:    e.UpdatedAt.Format(time.RFC3339),
	}
}

func toGlobalIndicatorsDTO(g bonus.GlobalIndicators) GlobalIndicatorsDTO {
	return GlobalIndicatorsDTO{
		ID:            string(g.ID),
		Month:         string(g.Month.Label()),
		NPSGlobal:     g.NPSGlobal,
		Churn:         g.Churn,
		PlatformUsage: g.PlatformUsage,
		Released:      g.Released(),
		ReleasedAt:    formatOptionalTime(g.ReleasedAt),
		UpdatedAt:     g.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) money(a generic.Amount) MoneyDTO {
	return MoneyDTO{
		Value:     a.Cents().Value.StringFixed(2),
		Currency:  string(a.Unit),
		Formatted: h.Formatter.FormatCurrency(a),
	}
}

func (h *Handler) toTierDTO(t bonus.TierResult) TierDTO {
	criteria := make([]CriterionDTO, 0, len(t.Criteria))
	for _, c := range t.Criteria {
		criteria = append(criteria, CriterionDTO{
			Metric: string(c.Metric),
			Weight: c.Weight.String(),
			Value:  c.Value.String(),
			Met:    c.Met,
		})
	}
	return TierDTO{
		Tier: int(t.Tier),
		Percentage: PercentDTO{
			Fraction:  t.Percentage.String(),
			Formatted: h.Formatter.FormatPercent(t.Percentage),
		},
		MonthlyCap: h.money(t.MonthlyCap),
		Value:      h.money(t.Value),
		Criteria:   criteria,
	}
}

func (h *Handler) toBonusDTO(r bonus.Result) BonusDTO {
	months := make([]string, 0, len(r.Months))
	for _, m := range r.Months {
		months = append(months, string(m.Label()))
	}
	dto := BonusDTO{
		Kind:       string(r.Kind),
		ProviderID: string(r.ProviderID),
		Months:     months,
		Salary:     h.money(r.Salary),
		Caps: CapsDTO{
			Semester: h.money(r.Caps.Semester),
			Annual:   h.money(r.Caps.Annual),
		},
		Eligible: r.Eligible,
		Counters: CountersDTO{
			AbsenceDays:  r.Counters.AbsenceDays,
			PendingItems: r.Counters.PendingItems,
			Infractions:  r.Counters.Infractions,
		},
		Tier2:                   h.toTierDTO(r.Tier2),
		Tier3:                   h.toTierDTO(r.Tier3),
		Tier4:                   h.toTierDTO(r.Tier4),
		Total:                   h.money(r.Total),
		GlobalIndicatorsPresent: r.GlobalIndicatorsPresent,
	}
	if len(r.Months) > 0 {
		dto.Period = string(r.Months[0].Label())
		if r.Kind == bonus.PeriodSemester {
			dto.Period = r.Months[0].Semester().String()
		}
	}
	for _, m := range r.Monthly {
		dto.Monthly = append(dto.Monthly, h.toBonusDTO(m))
	}
	return dto
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
