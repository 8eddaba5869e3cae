package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apihandler "github.com/reposcope/reposcope/internal/api/handler"
	apimw "github.com/reposcope/reposcope/internal/api/middleware"
	"github.com/reposcope/reposcope/internal/ingestion"
	"github.com/reposcope/reposcope/internal/store"
)

func NewRouter(logger *slog.Logger, s *store.Store, producer *ingestion.Producer) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(apimw.Logger(logger))
	r.Use(apimw.CORS)
	r.Use(chimw.Recoverer)

	// Health checks and metrics
	health := apihandler.NewHealthHandler(s.Pool())
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		repos := apihandler.NewRepoHandler(logger, s)
		runs := apihandler.NewRunHandler(logger, s, producer)

		r.Route("/repos", func(r chi.Router) {
			r.Get("/", repos.List)
			r.Route("/{owner}/{name}", func(r chi.Router) {
				r.Get("/", repos.Get)
				r.Post("/ingest", runs.Trigger)
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", runs.List)
			r.Get("/{runID}", runs.Get)
		})
	})

	return r
}
