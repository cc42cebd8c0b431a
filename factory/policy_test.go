package factory_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/factory"
	"github.com/warp/bonus-engine/generic"
)

func TestParsePolicy_EmptyDocumentIsDefault(t *testing.T) {
	f := factory.NewPolicyFactory()

	p, err := f.ParsePolicy(`{}`)
	require.NoError(t, err)

	def := bonus.DefaultPolicy()
	assert.Equal(t, def.ID, p.ID)
	assert.True(t, p.SemesterCapRatio.Equal(def.SemesterCapRatio))
	assert.Len(t, p.Tier2Weights, 6)
}

func TestParsePolicy_OverlaysFields(t *testing.T) {
	f := factory.NewPolicyFactory()

	p, err := f.ParsePolicy(`{
		"id": "q3-pilot",
		"name": "Pilot",
		"semester_cap_ratio": "0.5",
		"eligibility": {"max_absence_days": 5},
		"thresholds": {"average": "0.6"},
		"weights": {
			"tier3": [
				{"metric": "nps_project", "weight": "0.5"},
				{"metric": "priorities", "weight": "0.25"},
				{"metric": "backlog", "weight": "0.25"}
			]
		}
	}`)
	require.NoError(t, err)

	assert.Equal(t, "q3-pilot", p.ID)
	assert.True(t, p.SemesterCapRatio.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 5, p.MaxAbsenceDays)
	assert.Equal(t, 0, p.MaxPendingItems, "unset eligibility fields keep defaults")
	assert.True(t, p.AverageThreshold.Equal(decimal.RequireFromString("0.6")))
	assert.True(t, p.MonthlyThreshold.Equal(decimal.NewFromInt(1)))
	require.Len(t, p.Tier3Weights, 3)
	assert.Equal(t, bonus.MetricNPSProject, p.Tier3Weights[0].Metric)
	assert.Len(t, p.Tier2Weights, 6, "tier 2 weights untouched")
}

func TestParsePolicyYAML(t *testing.T) {
	f := factory.NewPolicyFactory()

	p, err := f.ParsePolicyYAML([]byte(`
id: yaml-policy
unit: brl
tier_shares:
  tier2: "0.5"
  tier3: "0.3"
  tier4: "0.2"
`))
	require.NoError(t, err)
	assert.Equal(t, "yaml-policy", p.ID)
	assert.Equal(t, generic.UnitBRL, p.Unit)
	assert.True(t, p.Tier2Share.Equal(decimal.RequireFromString("0.5")))
}

func TestParsePolicy_Invalid(t *testing.T) {
	f := factory.NewPolicyFactory()

	cases := map[string]string{
		"malformed json": `{"id":`,
		"bad decimal":    `{"semester_cap_ratio": "forty"}`,
		"shares off":     `{"tier_shares": {"tier2": "0.5", "tier3": "0.4", "tier4": "0.2"}}`,
		"weights off":    `{"weights": {"tier4": [{"metric": "churn", "weight": "1.1"}]}}`,
		"unknown metric": `{"weights": {"tier4": [{"metric": "mood", "weight": "1"}]}}`,
		"negative limit": `{"eligibility": {"max_infractions": -2}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParsePolicy(doc)
			assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
		})
	}

	_, err := f.ParsePolicyYAML([]byte("tier_shares: [1, 2"))
	assert.ErrorIs(t, err, generic.ErrInvalidPolicy)
}

func TestParseFile(t *testing.T) {
	f := factory.NewPolicyFactory()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "policy.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"id": "from-json"}`), 0o644))
	p, err := f.ParseFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "from-json", p.ID)

	yamlPath := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("id: from-yaml\n"), 0o644))
	p, err = f.ParseFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", p.ID)

	_, err = f.ParseFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestToJSON_RoundTrip(t *testing.T) {
	// GIVEN: a non-default policy
	// WHEN: converting it to its document form and back
	// THEN: every rule survives

	f := factory.NewPolicyFactory()
	orig := bonus.DefaultPolicy()
	orig.ID = "custom"
	orig.MaxAbsenceDays = 4
	orig.AnnualCapRatio = decimal.RequireFromString("0.75")

	back, err := f.FromJSON(f.ToJSON(orig))
	require.NoError(t, err)

	assert.Equal(t, orig.ID, back.ID)
	assert.Equal(t, orig.MaxAbsenceDays, back.MaxAbsenceDays)
	assert.True(t, orig.AnnualCapRatio.Equal(back.AnnualCapRatio))
	for _, tier := range []bonus.Tier{bonus.Tier2, bonus.Tier3, bonus.Tier4} {
		require.Len(t, back.Weights(tier), len(orig.Weights(tier)))
		for i, w := range orig.Weights(tier) {
			assert.Equal(t, w.Metric, back.Weights(tier)[i].Metric)
			assert.True(t, w.Weight.Equal(back.Weights(tier)[i].Weight))
		}
	}
}
