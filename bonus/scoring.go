/*
scoring.go - Per-month scoring

ALGORITHM:
  1. Validate salary, evaluation and (if present) global indicators
  2. eligible = absences < 3 AND pending == 0 AND infractions == 0
  3. For each tier 2-4: criterion met iff raw value >= monthly threshold (1);
     percentage = sum of weights of met criteria
  4. tier value = tier monthly cap x percentage
  5. total = eligible ? tier2 + tier3 + tier4 : 0

  Tier percentages and values are reported even for ineligible months; only
  the total is forced to zero. A missing global record scores Tier 4 as 0.

EXAMPLE (salary 8500, every metric 1, global record all 1):
  semester cap = 3400
  tier2 = 3400 x 0.4 / 6 = 226.67
  tier3 = 3400 x 0.4 / 6 = 226.67
  tier4 = 3400 x 0.2 / 6 = 113.33
  total = 566.67
*/
package bonus

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// Engine applies a Policy. It is immutable and safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine validates the policy and returns an engine bound to a private copy.
func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Tier2Weights = append([]Weight(nil), p.Tier2Weights...)
	p.Tier3Weights = append([]Weight(nil), p.Tier3Weights...)
	p.Tier4Weights = append([]Weight(nil), p.Tier4Weights...)
	return &Engine{policy: p}, nil
}

// DefaultEngine returns an engine running DefaultPolicy.
func DefaultEngine() *Engine {
	e, err := NewEngine(DefaultPolicy())
	if err != nil {
		panic(err)
	}
	return e
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy { return e.policy }

// Eligible applies the Tier 1 gate.
func (e *Engine) Eligible(c Counters) bool {
	p := e.policy
	return c.AbsenceDays < p.MaxAbsenceDays &&
		c.PendingItems <= p.MaxPendingItems &&
		c.Infractions <= p.MaxInfractions
}

// ScoreMonth scores one evaluation. global may be nil.
func (e *Engine) ScoreMonth(eval Evaluation, global *GlobalIndicators, salary decimal.Decimal) (Result, error) {
	if err := ValidateSalary(salary); err != nil {
		return Result{}, err
	}
	if err := ValidateEvaluation(eval); err != nil {
		return Result{}, err
	}
	if global != nil {
		if err := ValidateGlobalIndicators(*global); err != nil {
			return Result{}, err
		}
	}
	return e.scoreMonth(eval, global, salary), nil
}

// scoreMonth assumes validated inputs.
func (e *Engine) scoreMonth(eval Evaluation, global *GlobalIndicators, salary decimal.Decimal) Result {
	p := e.policy
	pay := generic.NewAmountFromDecimal(salary, p.Unit)
	caps := p.Caps(pay)

	counters := Counters{
		AbsenceDays:  eval.AbsenceDays,
		PendingItems: eval.PendingItems,
		Infractions:  eval.Infractions,
	}
	eligible := e.Eligible(counters)

	tier2 := e.scoreTier(Tier2, caps, eval.Value)
	tier3 := e.scoreTier(Tier3, caps, eval.Value)
	var tier4 TierResult
	if global != nil {
		tier4 = e.scoreTier(Tier4, caps, global.Value)
	} else {
		tier4 = e.scoreTier(Tier4, caps, func(Metric) (float64, bool) { return 0, true })
	}

	total := pay.Zero()
	if eligible {
		total = generic.SumAmounts(p.Unit, tier2.Value, tier3.Value, tier4.Value)
	}

	return Result{
		Kind:                    PeriodMonthly,
		ProviderID:              eval.ProviderID,
		Months:                  []generic.Month{eval.Month},
		Salary:                  pay,
		Caps:                    caps,
		Eligible:                eligible,
		Counters:                counters,
		Tier2:                   tier2,
		Tier3:                   tier3,
		Tier4:                   tier4,
		Total:                   total,
		GlobalIndicatorsPresent: global != nil,
	}
}

func (e *Engine) scoreTier(t Tier, caps Caps, value func(Metric) (float64, bool)) TierResult {
	values := make(map[Metric]decimal.Decimal)
	for _, w := range e.policy.Weights(t) {
		v, _ := value(w.Metric)
		values[w.Metric] = decimal.NewFromFloat(v)
	}
	return e.weighTier(t, caps, values, e.policy.MonthlyThreshold)
}

// weighTier marks each criterion met when its value reaches threshold and
// prices the resulting percentage against the tier's monthly cap.
func (e *Engine) weighTier(t Tier, caps Caps, values map[Metric]decimal.Decimal, threshold decimal.Decimal) TierResult {
	weights := e.policy.Weights(t)
	criteria := make([]Criterion, 0, len(weights))
	pct := decimal.Zero
	for _, w := range weights {
		v := values[w.Metric]
		met := v.GreaterThanOrEqual(threshold)
		if met {
			pct = pct.Add(w.Weight)
		}
		criteria = append(criteria, Criterion{Metric: w.Metric, Weight: w.Weight, Value: v, Met: met})
	}
	monthlyCap := caps.MonthlyCap(t)
	return TierResult{
		Tier:       t,
		Criteria:   criteria,
		Percentage: pct,
		MonthlyCap: monthlyCap,
		Value:      monthlyCap.Mul(pct),
	}
}
