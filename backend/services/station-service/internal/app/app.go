package app

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/station-service/internal/clients"
	"evcharge/backend/services/station-service/internal/config"
	"evcharge/backend/services/station-service/internal/db"
	"evcharge/backend/services/station-service/internal/handlers"
	httpserver "evcharge/backend/services/station-service/internal/http"
	resthandlers "evcharge/backend/services/station-service/internal/http/handlers"
	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/repository"
	"evcharge/backend/services/station-service/internal/service"
	"evcharge/backend/services/station-service/internal/ws"
)

// App wires all dependencies for the station service.
type App struct {
	server      *httpx.Server
	manager     *ws.Manager
	cancelConns context.CancelFunc
	db          *sql.DB
	logger      *zap.Logger
}

// New builds the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	fallback, err := cfg.DefaultPrice()
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.Database.Pool)
	if err != nil {
		return nil, err
	}

	stationRepo := repository.NewStationRepository(sqlDB)
	tariffRepo := repository.NewTariffRepository(sqlDB)
	txRepo := repository.NewTransactionRepository(sqlDB)
	logRepo := repository.NewOCPPLogRepository(sqlDB)

	httpClient := httpx.NewDefaultHTTPClient(cfg.Services.Timeout)
	users := clients.NewUsersClient(cfg.Services.UsersURL, httpClient)
	charging := clients.NewChargingClient(cfg.Services.ChargingURL, httpClient)

	chargers := service.NewChargerService(stationRepo, logger)
	rates := service.NewRateService(tariffRepo, fallback, logger)
	transactions := service.NewTransactionService(txRepo, stationRepo, chargers, users, charging, cfg.Services.Retry, logger.Named("transactions"))

	router := ocpp.NewRouter()
	router.Register(protocol.ActionBootNotification, handlers.NewBootNotificationHandler(chargers, cfg.HeartbeatInterval(), logger))
	router.Register(protocol.ActionHeartbeat, handlers.NewHeartbeatHandler(chargers))
	router.Register(protocol.ActionStatusNotification, handlers.NewStatusNotificationHandler(chargers, logger))
	router.Register(protocol.ActionAuthorize, handlers.NewAuthorizeHandler(transactions))
	router.Register(protocol.ActionStartTransaction, handlers.NewStartTransactionHandler(transactions, logger))
	router.Register(protocol.ActionStopTransaction, handlers.NewStopTransactionHandler(transactions, logger))
	router.Register(protocol.ActionMeterValues, handlers.NewMeterValuesHandler(transactions, logger))
	processor := ocpp.NewProcessor(ocpp.NewParser(), router, logRepo, logger.Named("ocpp"))

	connCtx, cancelConns := context.WithCancel(context.Background())
	manager := ws.NewManager()
	wsServer := ws.NewServer(connCtx, manager, processor, cfg.WriteTimeout(), cfg.PingInterval(), logger.Named("ws"))

	routes := httpserver.Routes{
		OCPP:          wsServer.HandleWS,
		Stations:      resthandlers.NewStationsHandler(chargers),
		Charger:       resthandlers.NewChargerHandler(chargers),
		ChargerStatus: resthandlers.NewChargerStatusHandler(chargers, logger),
		Rate:          resthandlers.NewRateHandler(rates),
		CreateTariff:  resthandlers.NewCreateTariffHandler(rates),
	}
	server := httpx.NewServer(cfg.HTTPAddress(), httpserver.NewRouter(routes, logger), logger)

	return &App{
		server:      server,
		manager:     manager,
		cancelConns: cancelConns,
		db:          sqlDB,
		logger:      logger,
	}, nil
}

// Run serves HTTP and websockets until ctx is done, then drops station connections.
func (a *App) Run(ctx context.Context) error {
	defer func() {
		a.cancelConns()
		a.manager.CloseAll()
	}()
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
