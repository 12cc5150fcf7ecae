package app

import (
	"context"

	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/api-gateway/internal/clients"
	"evcharge/backend/services/api-gateway/internal/config"
	httpserver "evcharge/backend/services/api-gateway/internal/http"
	"evcharge/backend/services/api-gateway/internal/http/handlers"
	"evcharge/backend/services/api-gateway/internal/http/middleware"
)

// App wires API gateway dependencies.
type App struct {
	server *httpx.Server
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := httpx.NewDefaultHTTPClient(cfg.HTTPTimeout())

	usersClient := clients.NewUsersClient(cfg.Services.UsersURL, httpClient)
	chargingClient := clients.NewChargingClient(cfg.Services.ChargingURL, httpClient)
	paymentsClient := clients.NewPaymentsClient(cfg.Services.PaymentsURL, httpClient)
	stationsClient := clients.NewStationsClient(cfg.Services.StationsURL, httpClient)

	// Tokens are only verified here, so the expiry argument is unused.
	tokens := auth.NewTokenService(cfg.JWT.Secret, 0)

	router := httpserver.NewRouter(httpserver.RouterDeps{
		AuthHandlers:     handlers.NewAuthHandlers(usersClient, logger),
		StationsHandlers: handlers.NewStationsHandlers(stationsClient, logger),
		SessionsHandlers: handlers.NewSessionsHandlers(chargingClient, logger),
		WalletHandlers:   handlers.NewWalletHandlers(paymentsClient, logger),
		Auth:             middleware.AuthMiddleware(tokens),
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
	}, logger)

	return &App{
		server: httpx.NewServer(cfg.HTTPAddress(), router, logger),
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources (none yet).
func (a *App) Close() {}
