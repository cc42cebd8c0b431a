/*
Package factory provides JSON/YAML to Go policy conversion.

PURPOSE:
  Converts policy documents into bonus.Policy values. Compensation teams can
  tune caps, tier shares, thresholds and weights in a file, and the server
  hot-reloads it without a deploy.

DOCUMENT SCHEMA (YAML shown, JSON uses the same keys):
  id: default
  name: Standard variable compensation
  unit: BRL
  semester_cap_ratio: "0.4"
  annual_cap_ratio: "0.8"
  months_per_semester: 6
  tier_shares: {tier2: "0.4", tier3: "0.4", tier4: "0.2"}
  eligibility: {max_absence_days: 3, max_pending_items: 0, max_infractions: 0}
  thresholds: {monthly: "1", average: "0.5"}
  weights:
    tier2:
      - {metric: productivity, weight: "0.30"}
      - {metric: quality, weight: "0.30"}
      ...

KEY FEATURES:
  - Every omitted field falls back to bonus.DefaultPolicy()
  - Decimals are strings so weight sums stay exact
  - The result is validated; invalid documents wrap generic.ErrInvalidPolicy

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParseFile("./policy.yaml")
  if err != nil { ... }
  svc.SetPolicy(*policy)

SEE ALSO:
  - bonus/policy.go: Policy type definition and defaults
  - config/watch.go: Hot reload of the policy file
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// PolicyJSON is the serialized form of a policy. The same struct decodes
// JSON and YAML.
type PolicyJSON struct {
	ID                string           `json:"id" yaml:"id"`
	Name              string           `json:"name" yaml:"name"`
	Unit              string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	SemesterCapRatio  string           `json:"semester_cap_ratio,omitempty" yaml:"semester_cap_ratio,omitempty"`
	AnnualCapRatio    string           `json:"annual_cap_ratio,omitempty" yaml:"annual_cap_ratio,omitempty"`
	MonthsPerSemester int              `json:"months_per_semester,omitempty" yaml:"months_per_semester,omitempty"`
	TierShares        *TierSharesJSON  `json:"tier_shares,omitempty" yaml:"tier_shares,omitempty"`
	Eligibility       *EligibilityJSON `json:"eligibility,omitempty" yaml:"eligibility,omitempty"`
	Thresholds        *ThresholdsJSON  `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Weights           *WeightsJSON     `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// TierSharesJSON splits the semester cap between tiers 2, 3 and 4.
type TierSharesJSON struct {
	Tier2 string `json:"tier2" yaml:"tier2"`
	Tier3 string `json:"tier3" yaml:"tier3"`
	Tier4 string `json:"tier4" yaml:"tier4"`
}

// EligibilityJSON is the tier-1 gate. Nil fields keep the default.
type EligibilityJSON struct {
	MaxAbsenceDays  *int `json:"max_absence_days,omitempty" yaml:"max_absence_days,omitempty"`
	MaxPendingItems *int `json:"max_pending_items,omitempty" yaml:"max_pending_items,omitempty"`
	MaxInfractions  *int `json:"max_infractions,omitempty" yaml:"max_infractions,omitempty"`
}

type ThresholdsJSON struct {
	Monthly string `json:"monthly,omitempty" yaml:"monthly,omitempty"`
	Average string `json:"average,omitempty" yaml:"average,omitempty"`
}

// WeightsJSON lists the weighted metrics of each tier. A nil list keeps the
// default weights of that tier.
type WeightsJSON struct {
	Tier2 []WeightJSON `json:"tier2,omitempty" yaml:"tier2,omitempty"`
	Tier3 []WeightJSON `json:"tier3,omitempty" yaml:"tier3,omitempty"`
	Tier4 []WeightJSON `json:"tier4,omitempty" yaml:"tier4,omitempty"`
}

type WeightJSON struct {
	Metric string `json:"metric" yaml:"metric"`
	Weight string `json:"weight" yaml:"weight"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts policy documents to bonus.Policy.
type PolicyFactory struct{}

// NewPolicyFactory creates a new policy factory.
func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON document.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*bonus.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse policy JSON: %v", generic.ErrInvalidPolicy, err)
	}
	return f.FromJSON(pj)
}

// ParsePolicyYAML parses a YAML document.
func (f *PolicyFactory) ParsePolicyYAML(data []byte) (*bonus.Policy, error) {
	var pj PolicyJSON
	if err := yaml.Unmarshal(data, &pj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse policy YAML: %v", generic.ErrInvalidPolicy, err)
	}
	return f.FromJSON(pj)
}

// ParseFile reads a policy file; ".json" files are decoded as JSON and
// anything else as YAML.
func (f *PolicyFactory) ParseFile(path string) (*bonus.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return f.ParsePolicy(string(data))
	}
	return f.ParsePolicyYAML(data)
}

// FromJSON overlays pj on the default policy and validates the result.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*bonus.Policy, error) {
	policy := bonus.DefaultPolicy()
	var err error

	if pj.ID != "" {
		policy.ID = pj.ID
	}
	if pj.Name != "" {
		policy.Name = pj.Name
	}
	if pj.Unit != "" {
		policy.Unit = generic.Unit(strings.ToUpper(pj.Unit))
	}
	if policy.SemesterCapRatio, err = parseDecimal("semester_cap_ratio", pj.SemesterCapRatio, policy.SemesterCapRatio); err != nil {
		return nil, err
	}
	if policy.AnnualCapRatio, err = parseDecimal("annual_cap_ratio", pj.AnnualCapRatio, policy.AnnualCapRatio); err != nil {
		return nil, err
	}
	if pj.MonthsPerSemester != 0 {
		policy.MonthsPerSemester = pj.MonthsPerSemester
	}

	if s := pj.TierShares; s != nil {
		if policy.Tier2Share, err = parseDecimal("tier_shares.tier2", s.Tier2, policy.Tier2Share); err != nil {
			return nil, err
		}
		if policy.Tier3Share, err = parseDecimal("tier_shares.tier3", s.Tier3, policy.Tier3Share); err != nil {
			return nil, err
		}
		if policy.Tier4Share, err = parseDecimal("tier_shares.tier4", s.Tier4, policy.Tier4Share); err != nil {
			return nil, err
		}
	}

	if e := pj.Eligibility; e != nil {
		setInt(&policy.MaxAbsenceDays, e.MaxAbsenceDays)
		setInt(&policy.MaxPendingItems, e.MaxPendingItems)
		setInt(&policy.MaxInfractions, e.MaxInfractions)
	}

	if t := pj.Thresholds; t != nil {
		if policy.MonthlyThreshold, err = parseDecimal("thresholds.monthly", t.Monthly, policy.MonthlyThreshold); err != nil {
			return nil, err
		}
		if policy.AverageThreshold, err = parseDecimal("thresholds.average", t.Average, policy.AverageThreshold); err != nil {
			return nil, err
		}
	}

	if w := pj.Weights; w != nil {
		if policy.Tier2Weights, err = parseWeights("tier2", w.Tier2, policy.Tier2Weights); err != nil {
			return nil, err
		}
		if policy.Tier3Weights, err = parseWeights("tier3", w.Tier3, policy.Tier3Weights); err != nil {
			return nil, err
		}
		if policy.Tier4Weights, err = parseWeights("tier4", w.Tier4, policy.Tier4Weights); err != nil {
			return nil, err
		}
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// ToJSON converts a Policy to its document form. Every field is written.
func (f *PolicyFactory) ToJSON(policy bonus.Policy) PolicyJSON {
	return PolicyJSON{
		ID:                policy.ID,
		Name:              policy.Name,
		Unit:              string(policy.Unit),
		SemesterCapRatio:  policy.SemesterCapRatio.String(),
		AnnualCapRatio:    policy.AnnualCapRatio.String(),
		MonthsPerSemester: policy.MonthsPerSemester,
		TierShares: &TierSharesJSON{
			Tier2: policy.Tier2Share.String(),
			Tier3: policy.Tier3Share.String(),
			Tier4: policy.Tier4Share.String(),
		},
		Eligibility: &EligibilityJSON{
			MaxAbsenceDays:  intPtr(policy.MaxAbsenceDays),
			MaxPendingItems: intPtr(policy.MaxPendingItems),
			MaxInfractions:  intPtr(policy.MaxInfractions),
		},
		Thresholds: &ThresholdsJSON{
			Monthly: policy.MonthlyThreshold.String(),
			Average: policy.AverageThreshold.String(),
		},
		Weights: &WeightsJSON{
			Tier2: weightsToJSON(policy.Tier2Weights),
			Tier3: weightsToJSON(policy.Tier3Weights),
			Tier4: weightsToJSON(policy.Tier4Weights),
		},
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDecimal(field, s string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s: %q is not a decimal", generic.ErrInvalidPolicy, field, s)
	}
	return d, nil
}

func parseWeights(tier string, wj []WeightJSON, fallback []bonus.Weight) ([]bonus.Weight, error) {
	if wj == nil {
		return fallback, nil
	}
	weights := make([]bonus.Weight, 0, len(wj))
	for _, w := range wj {
		d, err := parseDecimal("weights."+tier+"."+w.Metric, w.Weight, decimal.Zero)
		if err != nil {
			return nil, err
		}
		weights = append(weights, bonus.Weight{Metric: bonus.Metric(w.Metric), Weight: d})
	}
	return weights, nil
}

func weightsToJSON(ws []bonus.Weight) []WeightJSON {
	out := make([]WeightJSON, 0, len(ws))
	for _, w := range ws {
		out = append(out, WeightJSON{Metric: string(w.Metric), Weight: w.Weight.String()})
	}
	return out
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func intPtr(v int) *int { return &v }
