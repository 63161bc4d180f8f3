package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"lead-outreach-driver/internal/observability"
)

func Router(h *CampaignHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(observability.Measure)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Decide can block on the bounded post-resume poll, so the budget is
	// poll timeout plus request headroom.
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1/campaign", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Get("/", h.Status)
		r.Post("/approve", h.Approve)
		r.Post("/skip", h.Skip)
		r.Post("/skip-error", h.SkipError)
		r.Post("/cancel", h.Cancel)
		r.Post("/reset", h.Reset)
		r.Get("/report", h.Report)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", observability.MetricsHandler())
	return r
}
