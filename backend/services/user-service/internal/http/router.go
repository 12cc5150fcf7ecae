package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Signup      http.HandlerFunc
	Login       http.HandlerFunc
	Me          http.HandlerFunc
	UserByID    http.HandlerFunc
	UserByEmail http.HandlerFunc
}

// NewRouter wires all HTTP routes.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestLogger(logger))
	r.Use(httpx.Recoverer(logger))

	r.Get("/health", httpx.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Post("/auth/signup", routes.Signup)
	r.Post("/auth/login", routes.Login)
	r.Get("/users/me", routes.Me)

	r.Route("/internal/users", func(r chi.Router) {
		r.Get("/", routes.UserByEmail)
		r.Get("/{userId}", routes.UserByID)
	})
	return r
}
