package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
)

// Routes groups HTTP handlers.
type Routes struct {
	ProcessPayment http.HandlerFunc
	CancelPayment  http.HandlerFunc
	Payment        http.HandlerFunc
	PaymentsMe     http.HandlerFunc
	Balance        http.HandlerFunc
	Deduct         http.HandlerFunc
	Credit         http.HandlerFunc
	Entries        http.HandlerFunc
	Provision      http.HandlerFunc
}

// NewRouter registers service endpoints.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestLogger(logger))
	r.Use(httpx.Recoverer(logger))

	r.Get("/health", httpx.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/payments", func(r chi.Router) {
		r.Post("/process", routes.ProcessPayment)
		r.Post("/cancel", routes.CancelPayment)
		r.Get("/me", routes.PaymentsMe)
		r.Get("/{sessionId}", routes.Payment)
	})
	r.Route("/wallet", func(r chi.Router) {
		r.Get("/balance", routes.Balance)
		r.Post("/deduct", routes.Deduct)
		r.Post("/credit", routes.Credit)
		r.Get("/entries", routes.Entries)
	})
	r.Post("/internal/wallets", routes.Provision)
	return r
}
