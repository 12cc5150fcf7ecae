package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxFrameSize = 1024 * 1024

// MessageProcessor handles raw OCPP messages.
type MessageProcessor interface {
	Process(ctx context.Context, stationID string, raw []byte) ([]byte, error)
}

// Connection represents active station WebSocket connection. Only the write pump writes
// to the socket.
type Connection struct {
	stationID    string
	ws           *websocket.Conn
	send         chan []byte
	done         chan struct{}
	closeOnce    sync.Once
	logger       *zap.Logger
	processor    MessageProcessor
	writeTimeout time.Duration
	pingInterval time.Duration
	onClose      func(*Connection)
}

// NewConnection builds connection wrapper.
func NewConnection(stationID string, ws *websocket.Conn, processor MessageProcessor, writeTimeout, pingInterval time.Duration, logger *zap.Logger, onClose func(*Connection)) *Connection {
	return &Connection{
		stationID:    stationID,
		ws:           ws,
		send:         make(chan []byte, 16),
		done:         make(chan struct{}),
		logger:       logger.With(zap.String("station_id", stationID)),
		processor:    processor,
		writeTimeout: writeTimeout,
		pingInterval: pingInterval,
		onClose:      onClose,
	}
}

// StationID returns identifier.
func (c *Connection) StationID() string {
	return c.stationID
}

// Start launches the write pump and blocks in the read pump until the socket closes.
func (c *Connection) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Connection) readTimeout() time.Duration {
	return 2 * c.pingInterval
}

func (c *Connection) readPump(ctx context.Context) {
	defer c.Close()
	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout()))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.readTimeout()))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("connection read closed", zap.Error(err))
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout()))

		response, err := c.processor.Process(ctx, c.stationID, message)
		if err != nil {
			c.logger.Warn("failed to process message", zap.Error(err))
			continue
		}
		if response != nil {
			c.Send(response)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			c.Close()
			return
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("write failed", zap.Error(err))
				c.Close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// Send enqueues a message for writing.
func (c *Connection) Send(msg []byte) {
	select {
	case <-c.done:
		c.logger.Warn("dropping outgoing message, connection closed")
	case c.send <- msg:
	default:
		c.logger.Warn("dropping outgoing message, buffer full")
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(messageType, data)
}

// Close releases the socket once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}
