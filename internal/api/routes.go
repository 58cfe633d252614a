package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zoravur/scorecast/internal/live"
	"github.com/zoravur/scorecast/internal/service"
	"github.com/zoravur/scorecast/pkg/metrics"
)

func SetupRoutes(svc *service.Service, reg *live.Registry) http.Handler {
	h := &Handler{Svc: svc}
	ws := &WSHandler{Registry: reg}

	r := chi.NewRouter()
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/healthz", handleHealthz)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Get("/entrants", h.getEntrants)
			r.Post("/entrants", h.setEntrants)
			r.Post("/judge", h.registerJudge)
			r.Post("/score", h.recordScores)
			r.Get("/score", h.getScores)
		})
	})

	r.Get("/ws", ws.HandleWS)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
	})

	return r
}
