// Package memory provides an in-memory bonus.RecordStore (for testing/dev).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/bonus-engine/bonus"
	"github.com/warp/bonus-engine/generic"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	providers   map[generic.ProviderID]bonus.Provider
	evaluations map[generic.RecordID]bonus.Evaluation
	evalIndex   map[evalKey]generic.RecordID
	globals     map[generic.RecordID]bonus.GlobalIndicators
	globalIndex map[generic.Month]generic.RecordID

	now func() time.Time
}

type evalKey struct {
	ProviderID generic.ProviderID
	Month      generic.Month
}

var _ bonus.RecordStore = (*Memory)(nil)

func New() *Memory {
	m := &Memory{now: func() time.Time { return time.Now().UTC() }}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.providers = make(map[generic.ProviderID]bonus.Provider)
	m.evaluations = make(map[generic.RecordID]bonus.Evaluation)
	m.evalIndex = make(map[evalKey]generic.RecordID)
	m.globals = make(map[generic.RecordID]bonus.GlobalIndicators)
	m.globalIndex = make(map[generic.Month]generic.RecordID)
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// PROVIDERS
// =============================================================================

// SaveProvider inserts or replaces a provider.
func (m *Memory) SaveProvider(_ context.Context, p bonus.Provider) error {
	if err := bonus.ValidateProvider(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.providers[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = m.now()
	}
	m.providers[p.ID] = p
	return nil
}

func (m *Memory) GetProvider(_ context.Context, id generic.ProviderID) (*bonus.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrProviderNotFound, id)
	}
	return &p, nil
}

func (m *Memory) ListProviders(_ context.Context, activeOnly bool) ([]bonus.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]bonus.Provider, 0, len(m.providers))
	for _, p := range m.providers {
		if activeOnly && !p.Active {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func (m *Memory) CreateEvaluation(_ context.Context, providerID generic.ProviderID, month generic.Month) (*bonus.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[providerID]; !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrProviderNotFound, providerID)
	}
	k := evalKey{ProviderID: providerID, Month: month}
	if _, ok := m.evalIndex[k]; ok {
		return nil, fmt.Errorf("%w: evaluation %s %s", generic.ErrDuplicateRecord, providerID, month)
	}
	now := m.now()
	e := bonus.Evaluation{
		ID:         generic.RecordID(uuid.NewString()),
		ProviderID: providerID,
		Month:      month,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.evaluations[e.ID] = e
	m.evalIndex[k] = e.ID
	return &e, nil
}

func (m *Memory) GetEvaluationByID(_ context.Context, id generic.RecordID) (*bonus.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.evaluations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	return &e, nil
}

func (m *Memory) GetEvaluation(_ context.Context, providerID generic.ProviderID, month generic.Month) (*bonus.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.evalIndex[evalKey{ProviderID: providerID, Month: month}]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", generic.ErrEvaluationNotFound, providerID, month)
	}
	e := m.evaluations[id]
	return &e, nil
}

func (m *Memory) ListEvaluations(_ context.Context, providerID generic.ProviderID, year int) ([]bonus.Evaluation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []bonus.Evaluation
	for _, e := range m.evaluations {
		if e.ProviderID == providerID && e.Month.Year == year {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result, nil
}

func (m *Memory) UpdateEvaluation(_ context.Context, id generic.RecordID, patch bonus.EvaluationPatch) (*bonus.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	if e.Released() {
		return nil, &generic.RecordReleasedError{Kind: "evaluation", ID: id}
	}
	updated, err := patch.Apply(e)
	if err != nil {
		return nil, err
	}
	updated.UpdatedAt = m.now()
	m.evaluations[id] = updated
	return &updated, nil
}

func (m *Memory) ReleaseEvaluation(_ context.Context, id generic.RecordID) (*bonus.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	if !e.Released() {
		now := m.now()
		e.ReleasedAt = &now
		e.UpdatedAt = now
		m.evaluations[id] = e
	}
	return &e, nil
}

func (m *Memory) DeleteEvaluation(_ context.Context, id generic.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evaluations[id]
	if !ok {
		return fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	if e.Released() {
		return &generic.RecordReleasedError{Kind: "evaluation", ID: id}
	}
	delete(m.evaluations, id)
	delete(m.evalIndex, evalKey{ProviderID: e.ProviderID, Month: e.Month})
	return nil
}

// =============================================================================
// GLOBAL INDICATORS
// =============================================================================

func (m *Memory) CreateGlobalIndicators(_ context.Context, month generic.Month) (*bonus.GlobalIndicators, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.globalIndex[month]; ok {
		return nil, fmt.Errorf("%w: global indicators %s", generic.ErrDuplicateRecord, month)
	}
	now := m.now()
	g := bonus.GlobalIndicators{
		ID:        generic.RecordID(uuid.NewString()),
		Month:     month,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.globals[g.ID] = g
	m.globalIndex[month] = g.ID
	return &g, nil
}

func (m *Memory) GetGlobalIndicatorsByID(_ context.Context, id generic.RecordID) (*bonus.GlobalIndicators, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.globals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, id)
	}
	return &g, nil
}

func (m *Memory) GetGlobalIndicators(_ context.Context, month generic.Month) (*bonus.GlobalIndicators, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.globalIndex[month]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, month)
	}
	g := m.globals[id]
	return &g, nil
}

func (m *Memory) ListGlobalIndicators(_ context.Context, year int) ([]bonus.GlobalIndicators, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []bonus.GlobalIndicators
	for _, g := range m.globals {
		if g.Month.Year == year {
			result = append(result, g)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month.Before(result[j].Month) })
	return result, nil
}

func (m *Memory) UpdateGlobalIndicators(_ context.Context, id generic.RecordID, patch bonus.GlobalIndicatorsPatch) (*bonus.GlobalIndicators, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.globals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, id)
	}
	if g.Released() {
		return nil, &generic.RecordReleasedError{Kind: "global_indicators", ID: id}
	}
	updated, err := patch.Apply(g)
	if err != nil {
		return nil, err
	}
	updated.UpdatedAt = m.now()
	m.globals[id] = updated
	return &updated, nil
}

func (m *Memory) ReleaseGlobalIndicators(_ context.Context, id generic.RecordID) (*bonus.GlobalIndicators, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.globals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, id)
	}
	if !g.Released() {
		now := m.now()
		g.ReleasedAt = &now
		g.UpdatedAt = now
		m.globals[id] = g
	}
	return &g, nil
}

func (m *Memory) DeleteGlobalIndicators(_ context.Context, id generic.RecordID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.globals[id]
	if !ok {
		return fmt.Errorf("%w: %s", generic.ErrGlobalIndicatorsNotFound, id)
	}
	if g.Released() {
		return &generic.RecordReleasedError{Kind: "global_indicators", ID: id}
	}
	delete(m.globals, id)
	delete(m.globalIndex, g.Month)
	return nil
}
