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
	OCPP          http.HandlerFunc
	Stations      http.HandlerFunc
	Charger       http.HandlerFunc
	ChargerStatus http.HandlerFunc
	Rate          http.HandlerFunc
	CreateTariff  http.HandlerFunc
}

// NewRouter registers endpoints. Websocket connections are logged by the ws server, not
// by the access log.
func NewRouter(routes Routes, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.Recoverer(logger))

	r.Get("/ocpp/ws", routes.OCPP)
	r.Get("/ocpp/ws/{stationId}", routes.OCPP)

	r.Group(func(r chi.Router) {
		r.Use(httpx.RequestLogger(logger))

		r.Get("/health", httpx.Health)
		r.Handle("/metrics", metrics.Handler())
		r.Get("/stations", routes.Stations)

		r.Route("/internal", func(r chi.Router) {
			r.Get("/chargers/{chargerId}", routes.Charger)
			r.Put("/chargers/{chargerId}/status", routes.ChargerStatus)
			r.Get("/stations/{stationId}/rate", routes.Rate)
			r.Post("/tariffs", routes.CreateTariff)
		})
	})
	return r
}
