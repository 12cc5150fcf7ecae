package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"evcharge/backend/libs/contracts"
	"evcharge/backend/libs/httpx"
	"evcharge/backend/services/api-gateway/internal/http/middleware"
)

const maxBodyBytes = 1 << 20

// upstreamCall performs one proxied request.
type upstreamCall func(headers map[string]string) (int, []byte, error)

// forwardHeaders carries the request id to upstreams. Client supplied X-User-ID is never
// forwarded; the gateway sets it from the verified token.
func forwardHeaders(r *http.Request) map[string]string {
	headers := map[string]string{}
	if id := chimw.GetReqID(r.Context()); id != "" {
		headers[contracts.HeaderRequestID] = id
	}
	return headers
}

// userHeaders adds the authenticated caller. ok is false when the request carries no identity.
func userHeaders(r *http.Request) (map[string]string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	headers := forwardHeaders(r)
	headers[contracts.HeaderUserID] = strconv.FormatInt(userID, 10)
	return headers, true
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.New("empty body")
	}
	return body, nil
}

// relay writes the upstream answer as is, or 502 when the upstream could not be reached.
func relay(w http.ResponseWriter, logger *zap.Logger, upstream string, status int, body []byte, err error) {
	if err != nil {
		logger.Error("proxy failed", zap.String("upstream", upstream), zap.Error(err))
		httpx.WriteError(w, http.StatusBadGateway, httpx.CodeInternal, upstream+" unavailable")
		return
	}
	httpx.WriteRaw(w, status, body)
}

// authenticated runs call with the caller identity or answers 401.
func authenticated(w http.ResponseWriter, r *http.Request, logger *zap.Logger, upstream string, call upstreamCall) {
	headers, ok := userHeaders(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.CodeUnauthorized, "unauthorized")
		return
	}
	status, body, err := call(headers)
	relay(w, logger, upstream, status, body, err)
}
