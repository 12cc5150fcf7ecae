package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Subprotocol negotiated with charge points.
const Subprotocol = "ocpp1.6"

// Server upgrades HTTP connections to WebSockets for OCPP.
type Server struct {
	ctx          context.Context
	manager      *Manager
	processor    MessageProcessor
	logger       *zap.Logger
	writeTimeout time.Duration
	pingInterval time.Duration
	upgrader     websocket.Upgrader
}

// NewServer builds ws server. Connections live until ctx is done.
func NewServer(ctx context.Context, manager *Manager, processor MessageProcessor, writeTimeout, pingInterval time.Duration, logger *zap.Logger) *Server {
	return &Server{
		ctx:          ctx,
		manager:      manager,
		processor:    processor,
		logger:       logger,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{Subprotocol},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWS is HTTP handler for /ocpp/ws. The station id comes from the path or the
// station_id query parameter.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationId")
	if stationID == "" {
		stationID = r.URL.Query().Get("station_id")
	}
	if stationID == "" {
		http.Error(w, "station_id is required", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", zap.String("station_id", stationID), zap.Error(err))
		return
	}

	connection := NewConnection(stationID, conn, s.processor, s.writeTimeout, s.pingInterval, s.logger, func(c *Connection) {
		s.manager.Remove(c)
		s.logger.Info("station disconnected", zap.String("station_id", c.StationID()))
	})
	s.manager.Add(connection)

	go connection.Start(s.ctx)
	s.logger.Info("station connected", zap.String("station_id", stationID), zap.String("subprotocol", conn.Subprotocol()))
}
