package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/station-service/internal/models"
	"evcharge/backend/services/station-service/internal/service"
)

// NewRateHandler returns GET /internal/stations/{stationId}/rate handler.
func NewRateHandler(svc *service.RateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rate, err := svc.Rate(r.Context(), chi.URLParam(r, "stationId"))
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, rate)
	}
}

type createTariffRequest struct {
	Name        string          `json:"name"`
	StationID   string          `json:"stationId"`
	PricePerKWh contracts.Money `json:"pricePerKwh"`
	ValidUntil  *time.Time      `json:"validUntil"`
}

// NewCreateTariffHandler returns POST /internal/tariffs handler.
func NewCreateTariffHandler(svc *service.RateService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createTariffRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
			return
		}

		tariff := &models.Tariff{
			Name:        req.Name,
			StationID:   req.StationID,
			PricePerKWh: req.PricePerKWh,
			IsActive:    true,
			ValidUntil:  req.ValidUntil,
		}
		if err := svc.CreateTariff(r.Context(), tariff); err != nil {
			if errors.Is(err, service.ErrInvalidTariff) {
				httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
				return
			}
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, tariff)
	}
}
