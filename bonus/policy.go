/*
policy.go - Compensation rules: caps, tier shares, weights, thresholds

PURPOSE:
  A Policy holds every constant the scoring rules depend on, so the rules
  themselves can stay parameter-free. DefaultPolicy returns the rules the
  business runs today; factory/policy.go loads overrides from JSON or YAML.

DEFAULTS:
  Caps:        semester = salary x 0.4, annual = salary x 0.8, 6 months/semester
  Tier shares: tier2 0.4, tier3 0.4, tier4 0.2 (of the semester cap)
  Gate:        absences < 3, pending == 0, infractions == 0
  Thresholds:  monthly value >= 1, semester mean >= 0.5
  Weights:
    tier2: productivity .30, quality .30, behavior .10, skills .10, attitude .10, values .10
    tier3: nps_project .40, priorities .30, backlog .30, sla 0
    tier4: nps_global .40, churn .30, platform_usage .30

VALIDATION:
  Weights within a tier and the three tier shares must each sum to exactly
  1. Decimal arithmetic makes that check exact.
*/
package bonus

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// Weight assigns a share of a tier's percentage to one metric.
type Weight struct {
	Metric Metric
	Weight decimal.Decimal
}

// Policy is the complete, immutable rule set used by an Engine.
type Policy struct {
	ID   string
	Name string
	Unit generic.Unit

	SemesterCapRatio  decimal.Decimal
	AnnualCapRatio    decimal.Decimal
	MonthsPerSemester int

	Tier2Share decimal.Decimal
	Tier3Share decimal.Decimal
	Tier4Share decimal.Decimal

	// Eligibility gate: absences strictly below MaxAbsenceDays, pending and
	// infractions at most their maximum.
	MaxAbsenceDays  int
	MaxPendingItems int
	MaxInfractions  int

	MonthlyThreshold decimal.Decimal
	AverageThreshold decimal.Decimal

	Tier2Weights []Weight
	Tier3Weights []Weight
	Tier4Weights []Weight
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultPolicy returns the standard compensation rules.
func DefaultPolicy() Policy {
	return Policy{
		ID:   "default",
		Name: "Standard variable compensation",
		Unit: generic.UnitBRL,

		SemesterCapRatio:  dec("0.4"),
		AnnualCapRatio:    dec("0.8"),
		MonthsPerSemester: 6,

		Tier2Share: dec("0.4"),
		Tier3Share: dec("0.4"),
		Tier4Share: dec("0.2"),

		MaxAbsenceDays:  3,
		MaxPendingItems: 0,
		MaxInfractions:  0,

		MonthlyThreshold: dec("1"),
		AverageThreshold: dec("0.5"),

		Tier2Weights: []Weight{
			{MetricProductivity, dec("0.30")},
			{MetricQuality, dec("0.30")},
			{MetricBehavior, dec("0.10")},
			{MetricSkills, dec("0.10")},
			{MetricAttitude, dec("0.10")},
			{MetricValues, dec("0.10")},
		},
		Tier3Weights: []Weight{
			{MetricNPSProject, dec("0.40")},
			{MetricPriorities, dec("0.30")},
			{MetricBacklog, dec("0.30")},
			{MetricSLA, decimal.Zero},
		},
		Tier4Weights: []Weight{
			{MetricNPSGlobal, dec("0.40")},
			{MetricChurn, dec("0.30")},
			{MetricPlatformUsage, dec("0.30")},
		},
	}
}

// Weights returns the weights of tier 2, 3 or 4.
func (p Policy) Weights(t Tier) []Weight {
	switch t {
	case Tier2:
		return p.Tier2Weights
	case Tier3:
		return p.Tier3Weights
	case Tier4:
		return p.Tier4Weights
	}
	return nil
}

// Share returns the fraction of the semester cap allotted to tier 2, 3 or 4.
func (p Policy) Share(t Tier) decimal.Decimal {
	switch t {
	case Tier2:
		return p.Tier2Share
	case Tier3:
		return p.Tier3Share
	case Tier4:
		return p.Tier4Share
	}
	return decimal.Zero
}

// WeightSum returns the sum of a tier's weights.
func (p Policy) WeightSum(t Tier) decimal.Decimal {
	sum := decimal.Zero
	for _, w := range p.Weights(t) {
		sum = sum.Add(w.Weight)
	}
	return sum
}

// Caps derives the salary ceilings.
func (p Policy) Caps(salary generic.Amount) Caps {
	semester := salary.Mul(p.SemesterCapRatio)
	months := decimal.NewFromInt(int64(p.MonthsPerSemester))
	return Caps{
		Semester:     semester,
		Annual:       salary.Mul(p.AnnualCapRatio),
		Tier2Monthly: semester.Mul(p.Tier2Share).Div(months),
		Tier3Monthly: semester.Mul(p.Tier3Share).Div(months),
		Tier4Monthly: semester.Mul(p.Tier4Share).Div(months),
	}
}

// MonthlyCap returns the tier's monthly cap from precomputed caps.
func (c Caps) MonthlyCap(t Tier) generic.Amount {
	switch t {
	case Tier2:
		return c.Tier2Monthly
	case Tier3:
		return c.Tier3Monthly
	case Tier4:
		return c.Tier4Monthly
	}
	return c.Semester.Zero()
}

var evaluationMetrics = map[Metric]bool{
	MetricProductivity: true, MetricQuality: true, MetricBehavior: true,
	MetricSkills: true, MetricAttitude: true, MetricValues: true,
	MetricNPSProject: true, MetricPriorities: true, MetricBacklog: true, MetricSLA: true,
}

var globalMetrics = map[Metric]bool{
	MetricNPSGlobal: true, MetricChurn: true, MetricPlatformUsage: true,
}

// Validate checks the policy for internal consistency.
func (p Policy) Validate() error {
	if p.Unit == "" {
		return fmt.Errorf("%w: unit is required", generic.ErrInvalidPolicy)
	}
	if p.MonthsPerSemester <= 0 {
		return fmt.Errorf("%w: months_per_semester must be positive", generic.ErrInvalidPolicy)
	}
	for name, v := range map[string]decimal.Decimal{
		"semester_cap_ratio": p.SemesterCapRatio,
		"annual_cap_ratio":   p.AnnualCapRatio,
		"monthly_threshold":  p.MonthlyThreshold,
		"average_threshold":  p.AverageThreshold,
		"tier2_share":        p.Tier2Share,
		"tier3_share":        p.Tier3Share,
		"tier4_share":        p.Tier4Share,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", generic.ErrInvalidPolicy, name)
		}
	}
	if p.MaxAbsenceDays < 0 || p.MaxPendingItems < 0 || p.MaxInfractions < 0 {
		return fmt.Errorf("%w: eligibility limits must not be negative", generic.ErrInvalidPolicy)
	}

	shares := p.Tier2Share.Add(p.Tier3Share).Add(p.Tier4Share)
	if !shares.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: tier shares sum to %s, want 1", generic.ErrInvalidPolicy, shares)
	}

	for _, t := range []Tier{Tier2, Tier3, Tier4} {
		known := evaluationMetrics
		if t == Tier4 {
			known = globalMetrics
		}
		seen := make(map[Metric]bool)
		for _, w := range p.Weights(t) {
			if !known[w.Metric] {
				return fmt.Errorf("%w: tier %d cannot weigh metric %q", generic.ErrInvalidPolicy, t, w.Metric)
			}
			if seen[w.Metric] {
				return fmt.Errorf("%w: tier %d weighs %q twice", generic.ErrInvalidPolicy, t, w.Metric)
			}
			seen[w.Metric] = true
			if w.Weight.IsNegative() {
				return fmt.Errorf("%w: weight of %q is negative", generic.ErrInvalidPolicy, w.Metric)
			}
		}
		if sum := p.WeightSum(t); !sum.Equal(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: tier %d weights sum to %s, want 1", generic.ErrInvalidPolicy, t, sum)
		}
	}
	return nil
}
