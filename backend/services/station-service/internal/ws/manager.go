package ws

import (
	"sync"

	"evcharge/backend/libs/metrics"
)

// Manager tracks station connections. A station has at most one connection; a reconnect
// closes the previous one.
type Manager struct {
	mu          sync.RWMutex
	connections map[string]*Connection
}

// NewManager builds connection manager.
func NewManager() *Manager {
	return &Manager{connections: make(map[string]*Connection)}
}

// Add registers new connection.
func (m *Manager) Add(conn *Connection) {
	m.mu.Lock()
	previous := m.connections[conn.StationID()]
	m.connections[conn.StationID()] = conn
	metrics.ObserveConnections(len(m.connections))
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
}

// Remove removes conn unless it was already replaced.
func (m *Manager) Remove(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connections[conn.StationID()] == conn {
		delete(m.connections, conn.StationID())
	}
	metrics.ObserveConnections(len(m.connections))
}

// Connected reports whether a station has a live connection.
func (m *Manager) Connected(stationID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connections[stationID]
	return ok
}

// Count returns number of live connections.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// CloseAll closes every connection.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.RUnlock()
	for _, c := range conns {
		c.Close()
	}
}
