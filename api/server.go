/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. Logger:     Request logging through zap
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Metrics:    Request count and latency per route (optional)
  6. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/providers/*          Providers, their evaluations and bonus results
  /api/evaluations/*        Evaluation lifecycle by record ID
  /api/global-indicators/*  Monthly global indicators
  /api/policy               Active policy
  /api/scenarios/*          Demo scenarios
  /metrics                  Prometheus scrape endpoint
  /healthz                  Liveness

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/bonus-engine/metrics"
	"go.uber.org/zap"
)

// RouterOptions carries the optional pieces of the router.
type RouterOptions struct {
	// AllowedOrigins defaults to the local frontend dev servers.
	AllowedOrigins []string

	// Metrics, when set, instruments every route and serves /metrics.
	Metrics *metrics.Recorder
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Provider routes
		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.ListProviders)
			r.Post("/", h.CreateProvider)
			r.Get("/{id}", h.GetProvider)
			r.Get("/{id}/evaluations", h.ListEvaluations)
			r.Post("/{id}/evaluations", h.CreateEvaluation)
			r.Get("/{id}/bonus/monthly", h.GetMonthlyBonus)
			r.Get("/{id}/bonus/semester", h.GetSemesterBonus)
		})

		// Evaluation routes
		r.Route("/evaluations", func(r chi.Router) {
			r.Patch("/{id}", h.UpdateEvaluation)
			r.Post("/{id}/release", h.ReleaseEvaluation)
			r.Delete("/{id}", h.DeleteEvaluation)
		})

		// Global indicator routes
		r.Route("/global-indicators", func(r chi.Router) {
			r.Get("/", h.ListGlobalIndicators)
			r.Post("/", h.CreateGlobalIndicators)
			r.Patch("/{id}", h.UpdateGlobalIndicators)
			r.Post("/{id}/release", h.ReleaseGlobalIndicators)
			r.Delete("/{id}", h.DeleteGlobalIndicators)
		})

		r.Get("/policy", h.GetPolicy)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// requestLogger logs one line per request with zap.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
