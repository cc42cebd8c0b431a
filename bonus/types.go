/*
Package bonus computes variable-compensation eligibility and payouts for
service providers from monthly evaluations scored across four tiers.

PURPOSE:
  Given a provider's monthly evaluation, the company-wide global indicator
  record for the same month and the provider's base salary, the Engine
  decides whether the month is eligible and converts the tier scores into
  money. It also aggregates a semester (six fixed months) into a single
  result.

TIERS:
  Tier 1: Eligibility gate (absence days, pending items, infractions)
  Tier 2: Individual productivity (productivity, quality, four competencies)
  Tier 3: Client/team outcome (project NPS, priorities, backlog; SLA is informational)
  Tier 4: Company outcome (global NPS, churn, platform usage)

MONEY:
  semester cap  = salary x 0.4          (annual cap = salary x 0.8)
  tier cap/month = semester cap x tier share / 6
  tier value     = tier cap/month x tier percentage
  payout         = eligible ? tier2 + tier3 + tier4 : 0

ENGINE PROPERTIES:
  - Pure: every result is a function of its explicit inputs and the policy
  - Immutable: an Engine never changes after construction
  - Concurrency-safe: no shared mutable state

SEE ALSO:
  - policy.go: Weights, shares, thresholds
  - scoring.go: Per-month scoring
  - aggregate.go: Semester aggregation
  - service.go: Loads records, applies the release filter, calls the engine
*/
package bonus

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// INPUT RECORDS
// =============================================================================

// Provider is a service provider eligible for variable compensation.
type Provider struct {
	ID         generic.ProviderID
	Name       string
	Email      string
	BaseSalary decimal.Decimal // monthly
	Active     bool
	CreatedAt  time.Time
}

// Evaluation is one provider's scored month. Tier 2-3 metrics are 0/1 values.
type Evaluation struct {
	ID         generic.RecordID
	ProviderID generic.ProviderID
	Month      generic.Month

	// Tier 1
	AbsenceDays  int
	PendingItems int
	Infractions  int

	// Tier 2
	Productivity float64
	Quality      float64
	Behavior     float64
	Skills       float64
	Attitude     float64
	Values       float64

	// Tier 3
	NPSProject float64
	Backlog    float64
	Priorities float64
	SLA        float64

	ReleasedAt *time.Time // nil while editable
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (e Evaluation) Released() bool { return e.ReleasedAt != nil }

// GlobalIndicators holds the company-wide Tier 4 inputs for one month.
type GlobalIndicators struct {
	ID            generic.RecordID
	Month         generic.Month
	NPSGlobal     float64
	Churn         float64
	PlatformUsage float64

	ReleasedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (g GlobalIndicators) Released() bool { return g.ReleasedAt != nil }

// =============================================================================
// METRICS - Named raw values addressed by policy weights
// =============================================================================

type Metric string

const (
	MetricProductivity  Metric = "productivity"
	MetricQuality       Metric = "quality"
	MetricBehavior      Metric = "behavior"
	MetricSkills        Metric = "skills"
	MetricAttitude      Metric = "attitude"
	MetricValues        Metric = "values"
	MetricNPSProject    Metric = "nps_project"
	MetricPriorities    Metric = "priorities"
	MetricBacklog       Metric = "backlog"
	MetricSLA           Metric = "sla"
	MetricNPSGlobal     Metric = "nps_global"
	MetricChurn         Metric = "churn"
	MetricPlatformUsage Metric = "platform_usage"
)

// Value returns the raw value of an evaluation metric.
func (e Evaluation) Value(m Metric) (float64, bool) {
	switch m {
	case MetricProductivity:
		return e.Productivity, true
	case MetricQuality:
		return e.Quality, true
	case MetricBehavior:
		return e.Behavior, true
	case MetricSkills:
		return e.Skills, true
	case MetricAttitude:
		return e.Attitude, true
	case MetricValues:
		return e.Values, true
	case MetricNPSProject:
		return e.NPSProject, true
	case MetricPriorities:
		return e.Priorities, true
	case MetricBacklog:
		return e.Backlog, true
	case MetricSLA:
		return e.SLA, true
	}
	return 0, false
}

// Value returns the raw value of a global metric.
func (g GlobalIndicators) Value(m Metric) (float64, bool) {
	switch m {
	case MetricNPSGlobal:
		return g.NPSGlobal, true
	case MetricChurn:
		return g.Churn, true
	case MetricPlatformUsage:
		return g.PlatformUsage, true
	}
	return 0, false
}

// =============================================================================
// RESULT - One tagged shape for monthly and semester results
// =============================================================================

type PeriodKind string

const (
	PeriodMonthly  PeriodKind = "monthly"
	PeriodSemester PeriodKind = "semester"
)

type Tier int

const (
	Tier1 Tier = iota + 1
	Tier2
	Tier3
	Tier4
)

// Criterion is one weighted sub-metric of a tier.
type Criterion struct {
	Metric Metric
	Weight decimal.Decimal
	Value  decimal.Decimal // raw value (monthly) or mean (semester)
	Met    bool
}

// TierResult is the scored breakdown of Tier 2, 3 or 4.
type TierResult struct {
	Tier       Tier
	Criteria   []Criterion
	Percentage decimal.Decimal // fraction in [0,1]
	MonthlyCap generic.Amount
	Value      generic.Amount // monthly value, or the sum of monthly values for a semester
}

// Criterion returns the named criterion, if the tier weighs it.
func (t TierResult) Criterion(m Metric) (Criterion, bool) {
	for _, c := range t.Criteria {
		if c.Metric == m {
			return c, true
		}
	}
	return Criterion{}, false
}

// Counters echoes the Tier 1 inputs (summed for a semester).
type Counters struct {
	AbsenceDays  int
	PendingItems int
	Infractions  int
}

// Caps are the salary-derived ceilings.
type Caps struct {
	Semester     generic.Amount
	Annual       generic.Amount
	Tier2Monthly generic.Amount
	Tier3Monthly generic.Amount
	Tier4Monthly generic.Amount
}

// Result is the output of ScoreMonth and AggregateSemester.
//
// For PeriodSemester, Tier2-4 Value and Total are sums of the monthly
// results while Criteria and Percentage come from the mean of each raw
// metric; the two are allowed to disagree.
type Result struct {
	Kind       PeriodKind
	ProviderID generic.ProviderID
	Months     []generic.Month
	Salary     generic.Amount
	Caps       Caps

	Eligible bool
	Counters Counters

	Tier2 TierResult
	Tier3 TierResult
	Tier4 TierResult

	Total generic.Amount

	// GlobalIndicatorsPresent is false when a month was scored without its
	// global record (Tier 4 then contributes zero). For a semester it is
	// true only when every month had one.
	GlobalIndicatorsPresent bool

	// Monthly holds the per-month results of a semester, in month order.
	Monthly []Result
}

// Tier returns the breakdown for tier 2, 3 or 4.
func (r Result) Tier(t Tier) (TierResult, bool) {
	switch t {
	case Tier2:
		return r.Tier2, true
	case Tier3:
		return r.Tier3, true
	case Tier4:
		return r.Tier4, true
	}
	return TierResult{}, false
}
