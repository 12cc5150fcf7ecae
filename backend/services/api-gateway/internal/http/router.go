package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
	"evcharge/backend/services/api-gateway/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	AuthHandlers     *handlers.AuthHandlers
	StationsHandlers *handlers.StationsHandlers
	SessionsHandlers *handlers.SessionsHandlers
	WalletHandlers   *handlers.WalletHandlers
	Auth             func(http.Handler) http.Handler
	AllowedOrigins   []string
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(httpx.RequestLogger(logger))
	r.Use(httpx.Recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", contracts.HeaderIdempotencyKey},
		ExposedHeaders: []string{contracts.HeaderRequestID},
		MaxAge:         300,
	}))

	r.Get("/health", httpx.Health)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", deps.AuthHandlers.Signup)
		r.Post("/auth/login", deps.AuthHandlers.Login)
		r.Get("/stations", deps.StationsHandlers.List)

		r.Group(func(r chi.Router) {
			r.Use(deps.Auth)
			r.Get("/users/me", deps.AuthHandlers.Me)
			r.Get("/sessions/me", deps.SessionsHandlers.Me)
			r.Get("/wallet/balance", deps.WalletHandlers.Balance)
			r.Post("/wallet/topup", deps.WalletHandlers.TopUp)
			r.Get("/wallet/entries", deps.WalletHandlers.Entries)
			r.Get("/payments/me", deps.WalletHandlers.Payments)
		})
	})
	return r
}
