/*
store.go - Persistence interfaces for bonus input records

PURPOSE:
  The engine never touches storage. The Service reads through Store, and
  the API edits records through RecordStore. Implementations live in
  store/sqlite (production) and store/memory (tests, dev).

LIFECYCLE CONTRACT (enforced by implementations):
  - Create*: new record with zeroed inputs; at most one evaluation per
    (provider, month) and one global record per month -> ErrDuplicateRecord
  - Update*: only while ReleasedAt is nil -> ErrRecordReleased
  - Release*: sets ReleasedAt once; releasing twice is a no-op
  - Delete*: only while ReleasedAt is nil -> ErrRecordReleased
  - Get*: missing records -> ErrProviderNotFound / ErrEvaluationNotFound /
    ErrGlobalIndicatorsNotFound

SEE ALSO:
  - store/sqlite/sqlite.go
  - store/memory/memory.go
*/
package bonus

import (
	"context"

	"github.com/warp/bonus-engine/generic"
)

// Store is the read side the Service depends on.
type Store interface {
	GetProvider(ctx context.Context, id generic.ProviderID) (*Provider, error)

	// GetEvaluation returns the provider's evaluation for a month.
	GetEvaluation(ctx context.Context, providerID generic.ProviderID, month generic.Month) (*Evaluation, error)

	// ListEvaluations returns the provider's evaluations of a year, ordered by month.
	ListEvaluations(ctx context.Context, providerID generic.ProviderID, year int) ([]Evaluation, error)

	// GetGlobalIndicators returns the global record of a month.
	GetGlobalIndicators(ctx context.Context, month generic.Month) (*GlobalIndicators, error)

	// ListGlobalIndicators returns the global records of a year, ordered by month.
	ListGlobalIndicators(ctx context.Context, year int) ([]GlobalIndicators, error)
}

// RecordStore adds the record lifecycle used by the API and scenarios.
type RecordStore interface {
	Store

	SaveProvider(ctx context.Context, p Provider) error
	ListProviders(ctx context.Context, activeOnly bool) ([]Provider, error)

	CreateEvaluation(ctx context.Context, providerID generic.ProviderID, month generic.Month) (*Evaluation, error)
	GetEvaluationByID(ctx context.Context, id generic.RecordID) (*Evaluation, error)
	UpdateEvaluation(ctx context.Context, id generic.RecordID, patch EvaluationPatch) (*Evaluation, error)
	ReleaseEvaluation(ctx context.Context, id generic.RecordID) (*Evaluation, error)
	DeleteEvaluation(ctx context.Context, id generic.RecordID) error

	CreateGlobalIndicators(ctx context.Context, month generic.Month) (*GlobalIndicators, error)
	GetGlobalIndicatorsByID(ctx context.Context, id generic.RecordID) (*GlobalIndicators, error)
	UpdateGlobalIndicators(ctx context.Context, id generic.RecordID, patch GlobalIndicatorsPatch) (*GlobalIndicators, error)
	ReleaseGlobalIndicators(ctx context.Context, id generic.RecordID) (*GlobalIndicators, error)
	DeleteGlobalIndicators(ctx context.Context, id generic.RecordID) error

	// Reset removes every record. Dev/demo only.
	Reset(ctx context.Context) error
}

// =============================================================================
// PATCHES - Field-by-field edits of unreleased records
// =============================================================================

// EvaluationPatch sets only its non-nil fields.
type EvaluationPatch struct {
	AbsenceDays  *int
	PendingItems *int
	Infractions  *int

	Productivity *float64
	Quality      *float64
	Behavior     *float64
	Skills       *float64
	Attitude     *float64
	Values       *float64

	NPSProject *float64
	Backlog    *float64
	Priorities *float64
	SLA        *float64
}

// Apply returns e with the patch applied and validated.
func (p EvaluationPatch) Apply(e Evaluation) (Evaluation, error) {
	setInt(&e.AbsenceDays, p.AbsenceDays)
	setInt(&e.PendingItems, p.PendingItems)
	setInt(&e.Infractions, p.Infractions)
	setFloat(&e.Productivity, p.Productivity)
	setFloat(&e.Quality, p.Quality)
	setFloat(&e.Behavior, p.Behavior)
	setFloat(&e.Skills, p.Skills)
	setFloat(&e.Attitude, p.Attitude)
	setFloat(&e.Values, p.Values)
	setFloat(&e.NPSProject, p.NPSProject)
	setFloat(&e.Backlog, p.Backlog)
	setFloat(&e.Priorities, p.Priorities)
	setFloat(&e.SLA, p.SLA)
	if err := ValidateEvaluation(e); err != nil {
		return Evaluation{}, err
	}
	return e, nil
}

// GlobalIndicatorsPatch sets only its non-nil fields.
type GlobalIndicatorsPatch struct {
	NPSGlobal     *float64
	Churn         *float64
	PlatformUsage *float64
}

// Apply returns g with the patch applied and validated.
func (p GlobalIndicatorsPatch) Apply(g GlobalIndicators) (GlobalIndicators, error) {
	setFloat(&g.NPSGlobal, p.NPSGlobal)
	setFloat(&g.Churn, p.Churn)
	setFloat(&g.PlatformUsage, p.PlatformUsage)
	if err := ValidateGlobalIndicators(g); err != nil {
		return GlobalIndicators{}, err
	}
	return g, nil
}

// ValidateProvider checks the provider fields the engine depends on.
func ValidateProvider(p Provider) error {
	if p.ID == "" {
		return &generic.InputError{Field: "id", Value: p.ID, Reason: "is required"}
	}
	return ValidateSalary(p.BaseSalary)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
