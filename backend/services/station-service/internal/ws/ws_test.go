package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type echoProcessor struct{}

func (echoProcessor) Process(_ context.Context, stationID string, raw []byte) ([]byte, error) {
	return []byte(stationID + ":" + string(raw)), nil
}

func startServer(t *testing.T) (*Manager, string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewManager()
	srv := NewServer(ctx, manager, echoProcessor{}, time.Second, time.Minute, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/ocpp/ws", srv.HandleWS)
	r.Get("/ocpp/ws/{stationId}", srv.HandleWS)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	t.Cleanup(cancel)
	return manager, "ws" + strings.TrimPrefix(ts.URL, "http"), cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}}
	conn, _, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServerRoundTrip(t *testing.T) {
	manager, base, _ := startServer(t)

	conn := dial(t, base+"/ocpp/ws/CP-1")
	assert.Equal(t, Subprotocol, conn.Subprotocol())
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`[2,"1","Heartbeat",{}]`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `CP-1:[2,"1","Heartbeat",{}]`, string(msg))
	assert.Eventually(t, func() bool { return manager.Connected("CP-1") }, time.Second, 10*time.Millisecond)
}

func TestServerRequiresStationID(t *testing.T) {
	_, base, _ := startServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(base+"/ocpp/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestReconnectReplacesConnection(t *testing.T) {
	manager, base, _ := startServer(t)

	first := dial(t, base+"/ocpp/ws?station_id=CP-2")
	assert.Eventually(t, func() bool { return manager.Connected("CP-2") }, time.Second, 10*time.Millisecond)
	dial(t, base+"/ocpp/ws?station_id=CP-2")

	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return manager.Count() == 1 && manager.Connected("CP-2") }, time.Second, 10*time.Millisecond)
}

func TestShutdownClosesConnections(t *testing.T) {
	manager, base, cancel := startServer(t)

	conn := dial(t, base+"/ocpp/ws/CP-3")
	assert.Eventually(t, func() bool { return manager.Connected("CP-3") }, time.Second, 10*time.Millisecond)
	cancel()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return manager.Count() == 0 }, time.Second, 10*time.Millisecond)
}
