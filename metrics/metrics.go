// Package metrics provides Prometheus metrics for the bonus service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/warp/bonus-engine/bonus"
)

const namespace = "bonus"

// Recorder holds every collector of the service on its own registry, so
// tests and multiple servers in one process do not collide.
type Recorder struct {
	registry *prometheus.Registry

	calculations        *prometheus.CounterVec
	calculationFailures *prometheus.CounterVec
	payout              *prometheus.HistogramVec
	policyReloads       *prometheus.CounterVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var _ bonus.Recorder = (*Recorder)(nil)

// New creates a Recorder on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	auto := promauto.With(reg)

	return &Recorder{
		registry: reg,

		calculations: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculations_total",
			Help:      "Bonus computations by period kind and eligibility",
		}, []string{"kind", "eligible"}),

		calculationFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calculation_failures_total",
			Help:      "Bonus computations that returned an error",
		}, []string{"kind"}),

		payout: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payout_amount",
			Help:      "Computed payout totals in policy currency",
			Buckets:   []float64{0, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"kind"}),

		policyReloads: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_reloads_total",
			Help:      "Policy file reload attempts by result",
		}, []string{"result"}),

		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		httpRequestDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveCalculation implements bonus.Recorder.
func (r *Recorder) ObserveCalculation(kind bonus.PeriodKind, eligible bool, total decimal.Decimal) {
	r.calculations.WithLabelValues(string(kind), strconv.FormatBool(eligible)).Inc()
	r.payout.WithLabelValues(string(kind)).Observe(total.InexactFloat64())
}

// CalculationFailed implements bonus.Recorder.
func (r *Recorder) CalculationFailed(kind bonus.PeriodKind) {
	r.calculationFailures.WithLabelValues(string(kind)).Inc()
}

// PolicyReloaded counts one reload attempt.
func (r *Recorder) PolicyReloaded(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.policyReloads.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode cardinality.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.httpRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
		r.httpRequestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}
