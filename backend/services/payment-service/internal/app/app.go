package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/payment-service/internal/config"
	"evcharge/backend/services/payment-service/internal/db"
	httpserver "evcharge/backend/services/payment-service/internal/http"
	"evcharge/backend/services/payment-service/internal/http/handlers"
	"evcharge/backend/services/payment-service/internal/repository"
	"evcharge/backend/services/payment-service/internal/service"
)

// App wires payment service dependencies.
type App struct {
	server *httpx.Server
	db     *sql.DB
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.Database.Pool)
	if err != nil {
		return nil, err
	}

	ledger := service.NewLedger(repository.NewWalletRepository(sqlDB), logger)
	payments := service.NewPaymentService(repository.NewPaymentRepository(sqlDB), ledger, logger)

	routes := httpserver.Routes{
		ProcessPayment: handlers.NewProcessPaymentHandler(payments, logger),
		CancelPayment:  handlers.NewCancelPaymentHandler(payments, logger),
		Payment:        handlers.NewPaymentHandler(payments),
		PaymentsMe:     handlers.NewPaymentsMeHandler(payments),
		Balance:        handlers.NewBalanceHandler(ledger),
		Deduct:         handlers.NewDeductHandler(ledger, logger),
		Credit:         handlers.NewCreditHandler(ledger, logger),
		Entries:        handlers.NewEntriesHandler(ledger),
		Provision:      handlers.NewProvisionHandler(ledger),
	}

	router := httpserver.NewRouter(routes, logger)
	server := httpx.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server: server,
		db:     sqlDB,
		logger: logger,
	}, nil
}

// Run starts HTTP server.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
