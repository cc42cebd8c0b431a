package bonus_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
)

func TestDefaultPolicy_WeightsSumToOne(t *testing.T) {
	p := bonus.DefaultPolicy()
	one := decimal.NewFromInt(1)

	for _, tier := range []bonus.Tier{bonus.Tier2, bonus.Tier3, bonus.Tier4} {
		assert.True(t, p.WeightSum(tier).Equal(one), "tier %d weights sum to %s", tier, p.WeightSum(tier))
	}
	shares := p.Share(bonus.Tier2).Add(p.Share(bonus.Tier3)).Add(p.Share(bonus.Tier4))
	assert.True(t, shares.Equal(one))
	require.NoError(t, p.Validate())
}

func TestPolicy_Caps(t *testing.T) {
	p := bonus.DefaultPolicy()
	caps := p.Caps(generic.NewAmountFromString("9000", generic.UnitBRL))

	assert.Equal(t, "3600.00", caps.Semester.Value.StringFixed(2))
	assert.Equal(t, "7200.00", caps.Annual.Value.StringFixed(2))
	assert.Equal(t, "240.00", caps.MonthlyCap(bonus.Tier2).Value.StringFixed(2))
	assert.Equal(t, "240.00", caps.MonthlyCap(bonus.Tier3).Value.StringFixed(2))
	assert.Equal(t, "120.00", caps.MonthlyCap(bonus.Tier4).Value.StringFixed(2))
	assert.True(t, caps.MonthlyCap(bonus.Tier1).IsZero(), "tier 1 is a gate and has no cap")
}

func TestPolicy_ValidateRejects(t *testing.T) {
	cases := map[string]func(*bonus.Policy){
		"weights not summing to 1": func(p *bonus.Policy) {
			p.Tier2Weights[0].Weight = dec("0.31")
		},
		"shares not summing to 1": func(p *bonus.Policy) {
			p.Tier4Share = dec("0.3")
		},
		"global metric in tier 2": func(p *bonus.Policy) {
			p.Tier2Weights[0].Metric = bonus.MetricChurn
		},
		"evaluation metric in tier 4": func(p *bonus.Policy) {
			p.Tier4Weights[0].Metric = bonus.MetricQuality
		},
		"duplicate metric": func(p *bonus.Policy) {
			p.Tier3Weights[1].Metric = bonus.MetricNPSProject
		},
		"negative weight": func(p *bonus.Policy) {
			p.Tier3Weights[1].Weight = dec("-0.3")
			p.Tier3Weights[2].Weight = dec("0.9")
		},
		"no months": func(p *bonus.Policy) {
			p.MonthsPerSemester = 0
		},
		"no unit": func(p *bonus.Policy) {
			p.Unit = ""
		},
		"negative limit": func(p *bonus.Policy) {
			p.MaxInfractions = -1
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := bonus.DefaultPolicy()
			mutate(&p)
			err := p.Validate()
			assert.ErrorIs(t, err, generic.ErrInvalidPolicy)

			_, err = bonus.NewEngine(p)
			assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
		})
	}
}

func TestNewEngine_CopiesWeights(t *testing.T) {
	// GIVEN: an engine built from a policy
	// WHEN: the caller mutates the policy's weight slice afterwards
	// THEN: the engine is unaffected

	p := bonus.DefaultPolicy()
	engine, err := bonus.NewEngine(p)
	require.NoError(t, err)

	p.Tier2Weights[0].Weight = dec("0.9")

	assert.True(t, engine.Policy().WeightSum(bonus.Tier2).Equal(decimal.NewFromInt(1)))
}

func TestEngine_EligibleWithCustomLimits(t *testing.T) {
	p := bonus.DefaultPolicy()
	p.MaxAbsenceDays = 5
	p.MaxPendingItems = 2
	engine, err := bonus.NewEngine(p)
	require.NoError(t, err)

	assert.True(t, engine.Eligible(bonus.Counters{AbsenceDays: 4, PendingItems: 2}))
	assert.False(t, engine.Eligible(bonus.Counters{AbsenceDays: 5}))
	assert.False(t, engine.Eligible(bonus.Counters{PendingItems: 3}))
	assert.False(t, engine.Eligible(bonus.Counters{Infractions: 1}))
}
