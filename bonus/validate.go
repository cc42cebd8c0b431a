package bonus

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// INPUT VALIDATION - Reject, never clamp
// =============================================================================
// Salary must be >= 0, Tier 1 counters >= 0 and every raw metric in [0,1].
// The first violation is returned as *generic.InputError.

// ValidateSalary rejects negative salaries.
func ValidateSalary(salary decimal.Decimal) error {
	if salary.IsNegative() {
		return &generic.InputError{Field: "base_salary", Value: salary.String(), Reason: "must not be negative"}
	}
	return nil
}

// ValidateEvaluation checks counters and Tier 2-3 metric ranges.
func ValidateEvaluation(e Evaluation) error {
	counters := []struct {
		field string
		v     int
	}{
		{"absence_days", e.AbsenceDays},
		{"pending_items", e.PendingItems},
		{"infractions", e.Infractions},
	}
	for _, c := range counters {
		if c.v < 0 {
			return &generic.InputError{Field: c.field, Value: c.v, Reason: "must not be negative"}
		}
	}
	for _, m := range []Metric{
		MetricProductivity, MetricQuality, MetricBehavior, MetricSkills, MetricAttitude, MetricValues,
		MetricNPSProject, MetricBacklog, MetricPriorities, MetricSLA,
	} {
		v, _ := e.Value(m)
		if err := checkUnit(m, v); err != nil {
			return err
		}
	}
	return nil
}

// ValidateGlobalIndicators checks Tier 4 metric ranges.
func ValidateGlobalIndicators(g GlobalIndicators) error {
	for _, m := range []Metric{MetricNPSGlobal, MetricChurn, MetricPlatformUsage} {
		v, _ := g.Value(m)
		if err := checkUnit(m, v); err != nil {
			return err
		}
	}
	return nil
}

func checkUnit(m Metric, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &generic.InputError{Field: string(m), Value: v, Reason: "must be a finite number"}
	}
	if v < 0 || v > 1 {
		return &generic.InputError{Field: string(m), Value: v, Reason: "must be between 0 and 1"}
	}
	return nil
}
