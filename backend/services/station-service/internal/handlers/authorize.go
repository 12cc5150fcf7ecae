package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"evcharge/backend/services/station-service/internal/ocpp"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
	"evcharge/backend/services/station-service/internal/service"
)

// NewAuthorizeHandler checks an idTag against user-service.
func NewAuthorizeHandler(transactions *service.TransactionService) ocpp.HandlerFunc {
	return func(ctx context.Context, _ string, payload json.RawMessage) (interface{}, error) {
		req, err := ocpp.Decode[protocol.AuthorizeRequest](payload)
		if err != nil {
			return nil, err
		}
		status := protocol.AuthorizationAccepted
		if _, err := transactions.Authorize(ctx, req.IdTag); err != nil {
			if !errors.Is(err, service.ErrUnknownTag) {
				return nil, err
			}
			status = protocol.AuthorizationInvalid
		}
		return protocol.AuthorizeResponse{IdTagInfo: protocol.IdTagInfo{Status: status}}, nil
	}
}
