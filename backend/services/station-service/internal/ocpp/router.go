package ocpp

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"evcharge/backend/libs/metrics"
	"evcharge/backend/services/station-service/internal/ocpp/protocol"
)

// HandlerFunc processes message payload and returns response body.
type HandlerFunc func(ctx context.Context, stationID string, payload json.RawMessage) (interface{}, error)

// Router dispatches OCPP actions to handlers.
type Router struct {
	handlers map[string]HandlerFunc
}

// NewRouter returns router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]HandlerFunc)}
}

// Register attaches handler to action.
func (r *Router) Register(action string, handler HandlerFunc) {
	r.handlers[action] = handler
}

// Route executes handler for message.
func (r *Router) Route(ctx context.Context, stationID string, msg *Message) (interface{}, error) {
	handler, ok := r.handlers[msg.Action]
	if !ok {
		return nil, NewCallError(protocol.ErrorNotImplemented, "action %s is not supported", msg.Action)
	}
	return handler(ctx, stationID, msg.Payload)
}

// Journal stores raw frames for audit.
type Journal interface {
	Save(ctx context.Context, stationID, direction, action string, payload []byte) error
}

// Processor ties together parsing, routing, and response encoding.
type Processor struct {
	parser  *Parser
	router  *Router
	logger  *zap.Logger
	journal Journal
}

// NewProcessor builds Processor. journal may be nil.
func NewProcessor(parser *Parser, router *Router, journal Journal, logger *zap.Logger) *Processor {
	return &Processor{
		parser:  parser,
		router:  router,
		journal: journal,
		logger:  logger,
	}
}

// Process handles raw message and returns response frame bytes. A nil response means
// nothing has to be written back.
func (p *Processor) Process(ctx context.Context, stationID string, raw []byte) ([]byte, error) {
	msg, err := p.parser.Parse(raw)
	if err != nil {
		var frameErr *FrameError
		if errors.As(err, &frameErr) && frameErr.UniqueID != "" {
			p.logger.Warn("malformed ocpp frame", zap.String("station_id", stationID), zap.Error(err))
			return BuildCallError(frameErr.UniqueID, protocol.ErrorFormationViolation, err.Error())
		}
		return nil, err
	}

	if msg.MessageType != protocol.MessageTypeCall {
		p.logger.Debug("ignoring ocpp response frame",
			zap.String("station_id", stationID),
			zap.String("unique_id", msg.UniqueID),
			zap.Int("message_type", msg.MessageType),
		)
		return nil, nil
	}

	p.save(ctx, stationID, "incoming", msg.Action, raw)
	metrics.CountOCPP(msg.Action, "received")

	responsePayload, err := p.router.Route(ctx, stationID, msg)
	if err != nil {
		var callErr *CallError
		if !errors.As(err, &callErr) {
			callErr = &CallError{Code: protocol.ErrorInternal, Description: err.Error()}
		}
		p.logger.Warn("ocpp handler failed",
			zap.String("station_id", stationID),
			zap.String("action", msg.Action),
			zap.Error(err),
		)
		metrics.CountOCPP(msg.Action, "call_error")
		resp, buildErr := BuildCallError(msg.UniqueID, callErr.Code, callErr.Description)
		if buildErr != nil {
			return nil, buildErr
		}
		p.save(ctx, stationID, "outgoing", msg.Action, resp)
		return resp, nil
	}

	if responsePayload == nil {
		responsePayload = struct{}{}
	}

	respBytes, err := BuildCallResult(msg.UniqueID, responsePayload)
	if err != nil {
		p.logger.Error("encode ocpp response failed", zap.Error(err))
		return nil, err
	}

	p.save(ctx, stationID, "outgoing", msg.Action, respBytes)
	return respBytes, nil
}

func (p *Processor) save(ctx context.Context, stationID, direction, action string, frame []byte) {
	if p.journal == nil {
		return
	}
	if err := p.journal.Save(ctx, stationID, direction, action, frame); err != nil {
		p.logger.Warn("failed to journal ocpp frame", zap.String("direction", direction), zap.Error(err))
	}
}

// Decode convenience helper for handlers. Decode failures are formation violations.
func Decode[T any](payload json.RawMessage) (T, error) {
	var target T
	if err := json.Unmarshal(payload, &target); err != nil {
		var zero T
		return zero, NewCallError(protocol.ErrorFormationViolation, "decode payload: %v", err)
	}
	return target, nil
}
