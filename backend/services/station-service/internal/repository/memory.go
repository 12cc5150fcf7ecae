package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/models"
)

// MemoryStationStore keeps stations and chargers in memory.
type MemoryStationStore struct {
	mu       sync.Mutex
	stations map[string]models.Station
	chargers map[string]models.Charger
}

// NewMemoryStationStore builds an empty store.
func NewMemoryStationStore() *MemoryStationStore {
	return &MemoryStationStore{
		stations: make(map[string]models.Station),
		chargers: make(map[string]models.Charger),
	}
}

func (s *MemoryStationStore) UpsertStation(_ context.Context, station *models.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	stored := *station
	if existing, ok := s.stations[station.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	if stored.LastHeartbeat.IsZero() {
		stored.LastHeartbeat = now
	}
	stored.UpdatedAt = now
	s.stations[station.ID] = stored
	return nil
}

func (s *MemoryStationStore) Heartbeat(_ context.Context, stationID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stations[stationID]
	if !ok {
		st = models.Station{ID: stationID, CreatedAt: at}
	}
	st.LastHeartbeat = at
	st.UpdatedAt = at
	s.stations[stationID] = st
	return nil
}

func (s *MemoryStationStore) SetChargerStatus(_ context.Context, stationID string, connectorID int, status contracts.ChargerStatus, source contracts.StatusSource) (*models.Charger, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := models.ChargerID(stationID, connectorID)
	c, ok := s.chargers[id]
	if !ok {
		c = models.Charger{ID: id, StationID: stationID, ConnectorID: connectorID, Status: status, UpdatedAt: time.Now().UTC()}
		s.chargers[id] = c
		out := c
		return &out, false, nil
	}
	next, changed := models.NextStatus(c.Status, status, source)
	if changed {
		c.Status = next
		c.UpdatedAt = time.Now().UTC()
		s.chargers[id] = c
	}
	out := c
	return &out, changed, nil
}

func (s *MemoryStationStore) Charger(_ context.Context, chargerID string) (*models.Charger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chargers[chargerID]
	if !ok {
		return nil, fmt.Errorf("charger: %w", contracts.ErrNotFound)
	}
	return &c, nil
}

func (s *MemoryStationStore) Snapshot(_ context.Context) ([]models.StationSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.stations))
	for id := range s.stations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.StationSnapshot, 0, len(ids))
	for _, id := range ids {
		snap := models.StationSnapshot{Station: s.stations[id], Chargers: []models.Charger{}}
		for _, c := range s.chargers {
			if c.StationID == id {
				snap.Chargers = append(snap.Chargers, c)
			}
		}
		sort.Slice(snap.Chargers, func(i, j int) bool {
			return snap.Chargers[i].ConnectorID < snap.Chargers[j].ConnectorID
		})
		out = append(out, snap)
	}
	return out, nil
}

// MemoryTariffStore keeps tariffs in memory.
type MemoryTariffStore struct {
	mu      sync.Mutex
	nextID  int64
	tariffs []models.Tariff
}

// NewMemoryTariffStore builds an empty store.
func NewMemoryTariffStore() *MemoryTariffStore {
	return &MemoryTariffStore{}
}

func (s *MemoryTariffStore) Create(_ context.Context, t *models.Tariff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC()
	t.ID = s.nextID
	t.CreatedAt = now
	t.UpdatedAt = now
	s.tariffs = append(s.tariffs, *t)
	return nil
}

func (s *MemoryTariffStore) ForStation(_ context.Context, stationID string) (*models.Tariff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fallback *models.Tariff
	for i := len(s.tariffs) - 1; i >= 0; i-- {
		t := s.tariffs[i]
		if !t.IsActive {
			continue
		}
		if t.StationID == stationID {
			return &t, nil
		}
		if t.StationID == "" && fallback == nil {
			fallback = &t
		}
	}
	if fallback == nil {
		return nil, fmt.Errorf("tariff for %s: %w", stationID, contracts.ErrNotFound)
	}
	return fallback, nil
}

// MemoryTransactionStore keeps OCPP transactions in memory.
type MemoryTransactionStore struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]models.Transaction
}

// NewMemoryTransactionStore builds an empty store.
func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{byID: make(map[int64]models.Transaction)}
}

func (s *MemoryTransactionStore) Create(_ context.Context, t *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if existing.SessionID == t.SessionID {
			return fmt.Errorf("transaction for session %s: %w", t.SessionID, contracts.ErrIdempotencyConflict)
		}
	}
	s.nextID++
	t.ID = s.nextID
	s.byID[t.ID] = *t
	return nil
}

func (s *MemoryTransactionStore) Get(_ context.Context, id int64) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("transaction: %w", contracts.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryTransactionStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

func (s *MemoryTransactionStore) RecordMeter(_ context.Context, id int64, wh int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok || t.StoppedAt != nil {
		return nil
	}
	t.MeterLast = &wh
	s.byID[id] = t
	return nil
}

func (s *MemoryTransactionStore) Stop(_ context.Context, id int64, meterStop int64, at time.Time) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("transaction: %w", contracts.ErrNotFound)
	}
	if t.StoppedAt == nil {
		t.MeterStop = &meterStop
		t.StoppedAt = &at
		s.byID[id] = t
	}
	return &t, nil
}

// MemoryJournal records frames in memory.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

// JournalEntry is one stored frame.
type JournalEntry struct {
	StationID string
	Direction string
	Action    string
	Payload   []byte
}

// NewMemoryJournal builds an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Save(_ context.Context, stationID, direction, action string, payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, JournalEntry{StationID: stationID, Direction: direction, Action: action, Payload: append([]byte(nil), payload...)})
	return nil
}

// Entries returns a copy of stored frames.
func (j *MemoryJournal) Entries() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]JournalEntry(nil), j.entries...)
}
