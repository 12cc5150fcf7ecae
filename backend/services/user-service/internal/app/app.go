package app

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/auth"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/user-service/internal/clients"
	appconfig "evcharge/backend/services/user-service/internal/config"
	"evcharge/backend/services/user-service/internal/db"
	httpserver "evcharge/backend/services/user-service/internal/http"
	"evcharge/backend/services/user-service/internal/http/handlers"
	"evcharge/backend/services/user-service/internal/password"
	"evcharge/backend/services/user-service/internal/repository"
	"evcharge/backend/services/user-service/internal/service"
)

// App wires dependencies for the user service.
type App struct {
	server *httpx.Server
	db     *sql.DB
	logger *zap.Logger
}

// New builds application graph.
func New(cfg *appconfig.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.Database.Pool)
	if err != nil {
		return nil, err
	}

	var wallets service.WalletProvisioner
	if strings.TrimSpace(cfg.Services.PaymentsURL) != "" {
		wallets = clients.NewWalletsClient(cfg.Services.PaymentsURL, httpx.NewDefaultHTTPClient(cfg.Services.Timeout))
	} else {
		logger.Warn("payment-service url not set, wallet provisioning disabled")
	}

	userRepo := repository.NewUserRepository(sqlDB)
	hasher := password.NewBcryptHasher(cfg.Password.BcryptCost, cfg.Password.MinLength)
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWTExpiration())
	users := service.NewUserService(userRepo, hasher, tokens, wallets, cfg.Services.Retry, logger.Named("users"))

	routes := httpserver.Routes{
		Signup:      handlers.NewSignupHandler(users, logger),
		Login:       handlers.NewLoginHandler(users, logger),
		Me:          handlers.NewMeHandler(users),
		UserByID:    handlers.NewUserByIDHandler(users),
		UserByEmail: handlers.NewUserByEmailHandler(users),
	}
	server := httpx.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes, logger), logger)

	return &App{
		server: server,
		db:     sqlDB,
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic until context cancellation.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
