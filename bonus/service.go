package bonus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/generic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Recorder receives one observation per computation. metrics.Recorder
// implements it; nil disables recording.
type Recorder interface {
	ObserveCalculation(kind PeriodKind, eligible bool, total decimal.Decimal)
	CalculationFailed(kind PeriodKind)
}

// Service loads input records, selects the months a computation may use
// and hands them to the Engine. It owns no results; every call recomputes.
type Service struct {
	store    Store
	engine   atomic.Pointer[Engine]
	logger   *zap.Logger
	recorder Recorder

	// inflight collapses concurrent semester computations for the same
	// provider and semester. Nothing outlives the call.
	inflight singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithEngine replaces the default engine.
func WithEngine(e *Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine.Store(e)
		}
	}
}

// NewService creates a Service over store. A nil store panics.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		panic("store must not be nil")
	}
	s := &Service{store: store, logger: zap.NewNop()}
	s.engine.Store(DefaultEngine())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the active policy.
func (s *Service) Policy() Policy { return s.engine.Load().Policy() }

// SetPolicy validates p and makes it active for subsequent calls. In-flight
// calls finish with the engine they started with.
func (s *Service) SetPolicy(p Policy) error {
	e, err := NewEngine(p)
	if err != nil {
		return err
	}
	s.engine.Store(e)
	s.logger.Info("bonus policy activated", zap.String("policy_id", p.ID), zap.String("name", p.Name))
	return nil
}

// MonthlyBonus scores one month. The global record is optional; release
// state is not required for a monthly preview.
func (s *Service) MonthlyBonus(ctx context.Context, providerID generic.ProviderID, month generic.Month) (*Result, error) {
	provider, err := s.store.GetProvider(ctx, providerID)
	if err != nil {
		return nil, s.fail(PeriodMonthly, err)
	}
	eval, err := s.store.GetEvaluation(ctx, providerID, month)
	if err != nil {
		return nil, s.fail(PeriodMonthly, err)
	}
	global, err := s.store.GetGlobalIndicators(ctx, month)
	if err != nil && !errors.Is(err, generic.ErrGlobalIndicatorsNotFound) {
		return nil, s.fail(PeriodMonthly, err)
	}
	if err != nil {
		global = nil
	}

	res, err := s.engine.Load().ScoreMonth(*eval, global, provider.BaseSalary)
	if err != nil {
		return nil, s.fail(PeriodMonthly, err)
	}
	s.observe(res)
	return &res, nil
}

// SemesterBonus aggregates the semester's months that have both a released
// evaluation and a released global record. With no such month it returns
// generic.ErrNoReleasedMonths and never calls the aggregation.
func (s *Service) SemesterBonus(ctx context.Context, providerID generic.ProviderID, sem generic.Semester) (*Result, error) {
	if !sem.IsValid() {
		return nil, s.fail(PeriodSemester, fmt.Errorf("%w: %s", generic.ErrInvalidSemester, sem))
	}

	// The shared call must not inherit one caller's cancellation; each caller
	// stops waiting on its own context instead.
	key := string(providerID) + "|" + sem.String()
	ch := s.inflight.DoChan(key, func() (any, error) {
		return s.semesterBonus(context.WithoutCancel(ctx), providerID, sem)
	})

	select {
	case <-ctx.Done():
		return nil, s.fail(PeriodSemester, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, s.fail(PeriodSemester, r.Err)
		}
		res := r.Val.(Result)
		if r.Shared {
			s.logger.Debug("semester computation shared", zap.String("key", key))
		}
		s.observe(res)
		return &res, nil
	}
}

func (s *Service) semesterBonus(ctx context.Context, providerID generic.ProviderID, sem generic.Semester) (Result, error) {
	provider, err := s.store.GetProvider(ctx, providerID)
	if err != nil {
		return Result{}, err
	}
	evals, err := s.store.ListEvaluations(ctx, providerID, sem.Year)
	if err != nil {
		return Result{}, err
	}
	globals, err := s.store.ListGlobalIndicators(ctx, sem.Year)
	if err != nil {
		return Result{}, err
	}

	included, matched := SelectReleasedMonths(sem, evals, globals)
	if len(included) == 0 {
		return Result{}, fmt.Errorf("%w: %s for %s", generic.ErrNoReleasedMonths, sem, providerID)
	}
	return s.engine.Load().AggregateSemester(included, matched, provider.BaseSalary)
}

// SelectReleasedMonths keeps the evaluations inside sem that are released
// and whose month has a released global record, in month order, together
// with those global records.
func SelectReleasedMonths(sem generic.Semester, evals []Evaluation, globals []GlobalIndicators) ([]Evaluation, []GlobalIndicators) {
	released := make(map[generic.Month]GlobalIndicators)
	for _, g := range globals {
		if g.Released() && sem.Contains(g.Month) {
			released[g.Month] = g
		}
	}

	var (
		included []Evaluation
		matched  []GlobalIndicators
	)
	for _, m := range sem.Months() {
		g, ok := released[m]
		if !ok {
			continue
		}
		for _, ev := range evals {
			if ev.Month == m && ev.Released() {
				included = append(included, ev)
				matched = append(matched, g)
				break
			}
		}
	}
	return included, matched
}

func (s *Service) observe(r Result) {
	s.logger.Debug("bonus computed",
		zap.String("kind", string(r.Kind)),
		zap.String("provider_id", string(r.ProviderID)),
		zap.Int("months", len(r.Months)),
		zap.Bool("eligible", r.Eligible),
		zap.String("total", r.Total.Value.StringFixed(2)))
	if s.recorder != nil {
		s.recorder.ObserveCalculation(r.Kind, r.Eligible, r.Total.Value)
	}
}

func (s *Service) fail(kind PeriodKind, err error) error {
	if generic.IsClientError(err) || generic.IsNotFound(err) {
		s.logger.Debug("bonus not computed", zap.String("kind", string(kind)), zap.Error(err))
	} else {
		s.logger.Error("bonus computation failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	if s.recorder != nil {
		s.recorder.CalculationFailed(kind)
	}
	return err
}
