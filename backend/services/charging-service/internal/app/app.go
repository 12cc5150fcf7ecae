package app

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"evcharge/backend/libs/events"
	"evcharge/backend/libs/httpx"
	libredis "evcharge/backend/libs/redis"
	"evcharge/backend/services/charging-service/internal/clients"
	"evcharge/backend/services/charging-service/internal/config"
	"evcharge/backend/services/charging-service/internal/db"
	httpserver "evcharge/backend/services/charging-service/internal/http"
	"evcharge/backend/services/charging-service/internal/http/handlers"
	redisstore "evcharge/backend/services/charging-service/internal/redis"
	"evcharge/backend/services/charging-service/internal/repository"
	"evcharge/backend/services/charging-service/internal/service"
)

// App wires charging-service dependencies.
type App struct {
	server      *httpx.Server
	bus         *events.StreamBus
	settle      events.Handler
	reconciler  *service.Reconciler
	group       string
	consumer    string
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN, cfg.Database.Pool)
	if err != nil {
		return nil, err
	}

	redisClient, err := libredis.NewRedisClient(cfg.Redis.Options)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	httpClient := httpx.NewDefaultHTTPClient(cfg.Services.Timeout)
	users := clients.NewUsersClient(cfg.Services.UsersURL, httpClient)
	stations := clients.NewStationsClient(cfg.Services.StationsURL, httpClient)
	payments := clients.NewPaymentsClient(cfg.Services.PaymentsURL, httpClient)
	notifications := clients.NewNotificationsClient(cfg.Services.NotificationsURL, httpClient, logger)

	bus := events.NewStreamBus(redisClient, cfg.Events.StreamOptions, logger)
	dedup := events.NewRedisDeduplicator(redisClient, "charging:dedup", cfg.Events.DedupWindow)

	sessionRepo := repository.NewSessionRepository(sqlDB)
	activeStore := redisstore.NewStore(redisClient, cfg.Redis.ActiveTTL)
	lock := redisstore.NewSettlementLock(redisClient, cfg.Settlement.LockTTL, logger)

	sessions := service.NewSessionService(sessionRepo, users, stations, activeStore, bus, logger)
	settler := service.NewSettler(sessionRepo, payments, stations, notifications, lock,
		service.SettlerOptions{Payment: cfg.Settlement.Payment, Release: cfg.Settlement.Release}, logger)
	reconciler := service.NewReconciler(sessionRepo, settler, service.ReconcilerOptions{
		Interval: cfg.Sweep.Interval,
		MaxAge:   cfg.Sweep.MaxAge,
		Batch:    cfg.Sweep.Batch,
	}, logger.Named("reconciler"))

	callbacks := handlers.NewCallbacksHandler(sessions, logger)
	routes := httpserver.Routes{
		Session:        handlers.NewSessionHandler(sessions),
		SessionsMe:     handlers.NewSessionsMeHandler(sessions),
		ActiveSessions: handlers.NewActiveSessionsHandler(sessions),
		SessionStart:   callbacks.HandleSessionStart,
		SessionStop:    callbacks.HandleSessionStop,
		Settle:         handlers.NewSettleHandler(settler, logger),
	}

	router := httpserver.NewRouter(routes, logger)
	server := httpx.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		bus:         bus,
		settle:      service.SettlementHandler(settler, dedup, logger.Named("consumer")),
		reconciler:  reconciler,
		group:       cfg.Events.Group,
		consumer:    cfg.Events.Consumer,
		db:          sqlDB,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Run starts the HTTP server, the SessionStopped consumer and the reconciliation sweep.
// It returns when ctx is cancelled or any of them fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := fn(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("component stopped", zap.String("component", name), zap.Error(err))
				once.Do(func() { firstErr = err })
			}
			cancel()
		}()
	}

	run("http", a.server.Run)
	run("consumer", func(ctx context.Context) error {
		return a.bus.Subscribe(ctx, a.group, a.consumer, a.settle)
	})
	run("reconciler", a.reconciler.Run)

	wg.Wait()
	return firstErr
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
