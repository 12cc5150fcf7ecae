package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/charging-service/internal/models"
	"evcharge/backend/services/charging-service/internal/service"
)

// CallbacksHandler holds endpoints invoked by station-service.
type CallbacksHandler struct {
	svc    *service.SessionService
	logger *zap.Logger
}

// NewCallbacksHandler builds handler set.
func NewCallbacksHandler(svc *service.SessionService, logger *zap.Logger) *CallbacksHandler {
	return &CallbacksHandler{
		svc:    svc,
		logger: logger,
	}
}

// HandleSessionStart handles POST /internal/sessions/start.
func (h *CallbacksHandler) HandleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req contracts.StartSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
		return
	}

	session, created, err := h.svc.Start(r.Context(), req)
	if err != nil {
		h.writeError(w, "start session", req.SessionID, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, session.Response())
}

// HandleSessionStop handles POST /internal/sessions/stop.
func (h *CallbacksHandler) HandleSessionStop(w http.ResponseWriter, r *http.Request) {
	var req contracts.StopSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
		return
	}

	session, err := h.svc.Stop(r.Context(), req)
	if err != nil {
		h.writeError(w, "stop session", req.SessionID, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, session.Response())
}

func (h *CallbacksHandler) writeError(w http.ResponseWriter, op, sessionID string, err error) {
	if errors.Is(err, service.ErrInvalidRequest) || errors.Is(err, models.ErrNegativeEnergy) {
		httpx.WriteError(w, http.StatusBadRequest, httpx.CodeBadRequest, err.Error())
		return
	}
	status, _ := httpx.Classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op+" failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	httpx.WriteDomainError(w, err)
}
