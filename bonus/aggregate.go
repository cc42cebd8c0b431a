/*
aggregate.go - Semester aggregation

ALGORITHM:
  1. Score every month on its own (ScoreMonth rules, threshold >= 1) and sum
     the tier values, the totals and the Tier 1 counters.
  2. The semester is eligible iff AT LEAST ONE month is eligible.
  3. For display only, recompute each tier's criteria from the arithmetic
     mean of every raw metric across the months, threshold >= 0.5.
     These percentages never replace the summed money.

DIVERGENCE:
  A criterion met in 3 of 6 months has mean 0.5 and shows as met, while a
  criterion met in 2 of 6 shows as not met even though those two months
  were paid. The summed values are the monetary truth.

PRECONDITIONS:
  The caller selects the months (same semester, released evaluation and
  released global record). The engine still rejects an empty list,
  duplicate months and mixed providers.
*/
package bonus

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
)

// AggregateSemester scores each evaluation with its month's global record
// and combines them. globals may contain months not in evals.
func (e *Engine) AggregateSemester(evals []Evaluation, globals []GlobalIndicators, salary decimal.Decimal) (Result, error) {
	if len(evals) == 0 {
		return Result{}, generic.ErrNoMonths
	}
	if err := ValidateSalary(salary); err != nil {
		return Result{}, err
	}

	byMonth := make(map[generic.Month]GlobalIndicators, len(globals))
	for _, g := range globals {
		byMonth[g.Month] = g
	}

	ordered := append([]Evaluation(nil), evals...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Month.Before(ordered[j].Month) })

	providerID := ordered[0].ProviderID
	seen := make(map[generic.Month]bool, len(ordered))
	for _, ev := range ordered {
		if ev.ProviderID != providerID {
			return Result{}, fmt.Errorf("%w: %s and %s", generic.ErrProviderMismatch, providerID, ev.ProviderID)
		}
		if seen[ev.Month] {
			return Result{}, fmt.Errorf("%w: %s", generic.ErrDuplicateMonth, ev.Month)
		}
		seen[ev.Month] = true
		if err := ValidateEvaluation(ev); err != nil {
			return Result{}, fmt.Errorf("%s: %w", ev.Month, err)
		}
		if g, ok := byMonth[ev.Month]; ok {
			if err := ValidateGlobalIndicators(g); err != nil {
				return Result{}, fmt.Errorf("%s: %w", ev.Month, err)
			}
		}
	}

	p := e.policy
	pay := generic.NewAmountFromDecimal(salary, p.Unit)
	caps := p.Caps(pay)

	var (
		monthly    = make([]Result, 0, len(ordered))
		months     = make([]generic.Month, 0, len(ordered))
		counters   Counters
		eligible   bool
		allGlobals = true
		tier2Sum   = pay.Zero()
		tier3Sum   = pay.Zero()
		tier4Sum   = pay.Zero()
		total      = pay.Zero()
		evalSums   = make(map[Metric]decimal.Decimal)
		globalSums = make(map[Metric]decimal.Decimal)
	)

	for _, ev := range ordered {
		var global *GlobalIndicators
		if g, ok := byMonth[ev.Month]; ok {
			global = &g
		}
		r := e.scoreMonth(ev, global, salary)
		monthly = append(monthly, r)
		months = append(months, ev.Month)

		counters.AbsenceDays += r.Counters.AbsenceDays
		counters.PendingItems += r.Counters.PendingItems
		counters.Infractions += r.Counters.Infractions
		eligible = eligible || r.Eligible
		allGlobals = allGlobals && r.GlobalIndicatorsPresent

		tier2Sum = tier2Sum.Add(r.Tier2.Value)
		tier3Sum = tier3Sum.Add(r.Tier3.Value)
		tier4Sum = tier4Sum.Add(r.Tier4.Value)
		total = total.Add(r.Total)

		for _, t := range []Tier{Tier2, Tier3} {
			for _, w := range p.Weights(t) {
				v, _ := ev.Value(w.Metric)
				evalSums[w.Metric] = evalSums[w.Metric].Add(decimal.NewFromFloat(v))
			}
		}
		if global != nil {
			for _, w := range p.Tier4Weights {
				v, _ := global.Value(w.Metric)
				globalSums[w.Metric] = globalSums[w.Metric].Add(decimal.NewFromFloat(v))
			}
		}
	}

	n := decimal.NewFromInt(int64(len(ordered)))
	evalMeans := means(evalSums, n)
	globalMeans := means(globalSums, n)

	tier2 := e.weighTier(Tier2, caps, evalMeans, p.AverageThreshold)
	tier3 := e.weighTier(Tier3, caps, evalMeans, p.AverageThreshold)
	tier4 := e.weighTier(Tier4, caps, globalMeans, p.AverageThreshold)
	tier2.Value = tier2Sum
	tier3.Value = tier3Sum
	tier4.Value = tier4Sum

	return Result{
		Kind:                    PeriodSemester,
		ProviderID:              providerID,
		Months:                  months,
		Salary:                  pay,
		Caps:                    caps,
		Eligible:                eligible,
		Counters:                counters,
		Tier2:                   tier2,
		Tier3:                   tier3,
		Tier4:                   tier4,
		Total:                   total,
		GlobalIndicatorsPresent: allGlobals,
		Monthly:                 monthly,
	}, nil
}

func means(sums map[Metric]decimal.Decimal, n decimal.Decimal) map[Metric]decimal.Decimal {
	out := make(map[Metric]decimal.Decimal, len(sums))
	for m, s := range sums {
		out[m] = s.Div(n)
	}
	return out
}
