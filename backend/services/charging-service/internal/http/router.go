package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
)

// Routes groups handlers.
type Routes struct {
	Session        http.HandlerFunc
	SessionsMe     http.HandlerFunc
	ActiveSessions http.HandlerFunc
	SessionStart   http.HandlerFunc
	SessionStop    http.HandlerFunc
	Settle         http.HandlerFunc
}

// NewRouter registers endpoints.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestLogger(logger))
	r.Use(httpx.Recoverer(logger))

	r.Get("/health", httpx.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/me", routes.SessionsMe)
		r.Get("/active", routes.ActiveSessions)
		r.Get("/{sessionId}", routes.Session)
	})
	r.Route("/internal/sessions", func(r chi.Router) {
		r.Post("/start", routes.SessionStart)
		r.Post("/stop", routes.SessionStop)
		r.Post("/{sessionId}/settle", routes.Settle)
	})
	return r
}
