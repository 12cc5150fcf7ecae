package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/services/station-service/internal/http/handlers"
	"evcharge/backend/services/station-service/internal/repository"
	"evcharge/backend/services/station-service/internal/service"
)

type testEnv struct {
	handler  http.Handler
	stations *repository.MemoryStationStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	stations := repository.NewMemoryStationStore()
	chargers := service.NewChargerService(stations, zap.NewNop())
	rates := service.NewRateService(repository.NewMemoryTariffStore(), nil, zap.NewNop())

	routes := Routes{
		OCPP:          func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) },
		Stations:      handlers.NewStationsHandler(chargers),
		Charger:       handlers.NewChargerHandler(chargers),
		ChargerStatus: handlers.NewChargerStatusHandler(chargers, zap.NewNop()),
		Rate:          handlers.NewRateHandler(rates),
		CreateTariff:  handlers.NewCreateTariffHandler(rates),
	}
	return &testEnv{handler: NewRouter(routes, zap.NewNop()), stations: stations}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestChargerEndpoints(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.stations.SetChargerStatus(context.Background(), "CP-1", 1, contracts.ChargerInUse, contracts.SourceOCPP)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/internal/chargers/CP-1-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var charger contracts.ChargerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &charger))
	assert.Equal(t, "CP-1", charger.StationID)
	assert.Equal(t, contracts.ChargerInUse, charger.Status)

	rec = env.do(t, http.MethodPut, "/internal/chargers/CP-1-1/status",
		contracts.ChargerStatusUpdate{Status: contracts.ChargerAvailable, Source: contracts.SourceSettlement})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &charger))
	assert.Equal(t, contracts.ChargerAvailable, charger.Status)

	rec = env.do(t, http.MethodPut, "/internal/chargers/CP-1-1/status",
		contracts.ChargerStatusUpdate{Status: "exploded", Source: contracts.SourceOperator})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/internal/chargers/CP-9-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/internal/stations/CP-1/rate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/internal/tariffs", map[string]interface{}{
		"name": "standard", "stationId": "CP-1", "pricePerKwh": "0.35",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/internal/stations/CP-1/rate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rate contracts.RateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rate))
	assert.Equal(t, "0.35", rate.PricePerKWh.String())
	assert.NotZero(t, rate.TariffID)

	rec = env.do(t, http.MethodPost, "/internal/tariffs", map[string]interface{}{"name": "", "pricePerKwh": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStationsAndHealth(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.stations.SetChargerStatus(context.Background(), "CP-1", 1, contracts.ChargerAvailable, contracts.SourceOCPP)
	require.NoError(t, err)
	require.NoError(t, env.stations.Heartbeat(context.Background(), "CP-1", time.Now()))

	rec := env.do(t, http.MethodGet, "/stations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"chargerId":"CP-1-1"`)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusTeapot, env.do(t, http.MethodGet, "/ocpp/ws?station_id=CP-1", nil).Code)
}
