package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/station-service/internal/service"
)

// NewChargerHandler returns GET /internal/chargers/{chargerId} handler.
func NewChargerHandler(svc *service.ChargerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		charger, err := svc.Get(r.Context(), chi.URLParam(r, "chargerId"))
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, charger.Response())
	}
}

// NewChargerStatusHandler returns PUT /internal/chargers/{chargerId}/status handler.
func NewChargerStatusHandler(svc *service.ChargerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contracts.ChargerStatusUpdate
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			return
		}

		charger, err := svc.UpdateStatus(r.Context(), chi.URLParam(r, "chargerId"), req)
		if err != nil {
			if errors.Is(err, service.ErrInvalidStatus) {
				httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
				return
			}
			logger.Warn("charger status update failed", zap.String("charger_id", chi.URLParam(r, "chargerId")), zap.Error(err))
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, charger.Response())
	}
}

// NewStationsHandler returns GET /stations handler.
func NewStationsHandler(svc *service.ChargerService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stations, err := svc.Snapshot(r.Context())
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to fetch stations")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"stations": stations,
		})
	}
}
