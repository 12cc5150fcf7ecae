package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/charging-service/internal/models"
	"evcharge/backend/services/charging-service/internal/service"
)

// NewSessionHandler returns GET /sessions/{sessionId} handler.
func NewSessionHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := svc.Get(r.Context(), chi.URLParam(r, "sessionId"))
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, session.Response())
	}
}

// NewSessionsMeHandler returns GET /sessions/me handler.
func NewSessionsMeHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := httpx.UserIDFromHeader(r)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, err.Error())
			return
		}

		sessions, err := svc.ListByUser(r.Context(), userID, httpx.LimitParam(r, 50))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to fetch sessions")
			return
		}

		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessionResponses(sessions),
		})
	}
}

// NewActiveSessionsHandler returns GET /sessions/active handler.
func NewActiveSessionsHandler(svc *service.SessionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := svc.ListActive(r.Context(), httpx.LimitParam(r, 100))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, httpx.CodeInternal, "failed to fetch sessions")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": sessionResponses(sessions),
		})
	}
}

// NewSettleHandler returns POST /internal/sessions/{sessionId}/settle handler for
// re-driving a settlement by hand.
func NewSettleHandler(settler *service.Settler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionId")
		session, err := settler.Settle(r.Context(), sessionID)
		if err != nil {
			status, _ := httpx.Classify(err)
			if status >= http.StatusInternalServerError {
				logger.Error("manual settle failed", zap.String("session_id", sessionID), zap.Error(err))
			}
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, session.Response())
	}
}

func sessionResponses(sessions []models.Session) []contracts.SessionResponse {
	out := make([]contracts.SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessions[i].Response())
	}
	return out
}
