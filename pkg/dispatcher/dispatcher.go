package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/morezero/app2app-broker/pkg/broker"
)

const logPrefix = "dispatcher:dispatch"

// Broker is the subset of *broker.Broker the dispatcher drives.
type Broker interface {
	RegisterProvider(ctx context.Context, c broker.Context, provide bool, capability string) error
	InvokeProvider(ctx context.Context, c broker.Context, capability string, params string) error
	HandleProviderResponse(ctx context.Context, payload string, capability string) error
	HandleProviderError(ctx context.Context, payload string, capability string) error
	Cleanup(ctx context.Context, connectionID uint32, origin string) error
	Stats() broker.Stats
}

// HealthFunc reports service health for the health method.
type HealthFunc func(ctx context.Context) interface{}

// NewDispatcherParams holds the dependencies of a Dispatcher.
type NewDispatcherParams struct {
	Broker Broker
	Health HealthFunc
}

// Dispatcher routes COMMS requests to broker methods.
type Dispatcher struct {
	broker Broker
	health HealthFunc
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(params NewDispatcherParams) *Dispatcher {
	return &Dispatcher{broker: params.Broker, health: params.Health}
}

// Dispatch routes a request to the appropriate broker method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *BrokerRequest) *BrokerResponse {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s", logPrefix, req.Method, req.ID))

	switch req.Method {
	case "registerProvider":
		return d.handleRegisterProvider(ctx, req)
	case "invokeProvider":
		return d.handleInvokeProvider(ctx, req)
	case "handleProviderResponse":
		return d.handleProviderPayload(ctx, req, d.broker.HandleProviderResponse)
	case "handleProviderError":
		return d.handleProviderPayload(ctx, req, d.broker.HandleProviderError)
	case "cleanup":
		return d.handleCleanup(ctx, req)
	case "health":
		return d.handleHealth(ctx, req)
	case "stats":
		return &BrokerResponse{ID: req.ID, Ok: true, Result: d.broker.Stats()}
	default:
		return &BrokerResponse{
			ID: req.ID,
			Ok: false,
			Error: &ErrorDetail{
				Code:      CodeMethodNotFound,
				Message:   fmt.Sprintf("Unknown method: %s", req.Method),
				Retryable: false,
			},
		}
	}
}

func (d *Dispatcher) handleRegisterProvider(ctx context.Context, req *BrokerRequest) *BrokerResponse {
	c, resp := requestContext(req)
	if resp != nil {
		return resp
	}
	var input RegisterProviderParams
	if err := json.Unmarshal(req.Params, &input); err != nil || input.Capability == "" {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse registerProvider params", false)
	}

	if err := d.broker.RegisterProvider(ctx, c, input.Provide, input.Capability); err != nil {
		return brokerErrorToResponse(req.ID, err)
	}
	return &BrokerResponse{ID: req.ID, Ok: true, Result: AcceptedResult{Accepted: true}}
}

func (d *Dispatcher) handleInvokeProvider(ctx context.Context, req *BrokerRequest) *BrokerResponse {
	c, resp := requestContext(req)
	if resp != nil {
		return resp
	}
	var input InvokeProviderParams
	if err := json.Unmarshal(req.Params, &input); err != nil || input.Capability == "" {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse invokeProvider params", false)
	}

	if err := d.broker.InvokeProvider(ctx, c, input.Capability, string(input.Params)); err != nil {
		return brokerErrorToResponse(req.ID, err)
	}
	return &BrokerResponse{ID: req.ID, Ok: true, Result: AcceptedResult{Accepted: true}}
}

func (d *Dispatcher) handleProviderPayload(ctx context.Context, req *BrokerRequest, fn func(context.Context, string, string) error) *BrokerResponse {
	var input ProviderPayloadParams
	if err := json.Unmarshal(req.Params, &input); err != nil || input.Capability == "" {
		return errorResponse(req.ID, CodeInvalidArgument, fmt.Sprintf("Failed to parse %s params", req.Method), false)
	}

	if err := fn(ctx, payloadString(input.Payload), input.Capability); err != nil {
		return brokerErrorToResponse(req.ID, err)
	}
	return &BrokerResponse{ID: req.ID, Ok: true, Result: AcceptedResult{Accepted: true}}
}

func (d *Dispatcher) handleCleanup(ctx context.Context, req *BrokerRequest) *BrokerResponse {
	var input CleanupParams
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, "Failed to parse cleanup params", false)
	}
	if _, err := broker.ParseOrigin(input.Origin); err != nil {
		return errorResponse(req.ID, CodeInvalidArgument, err.Error(), false)
	}

	if err := d.broker.Cleanup(ctx, input.ConnectionID, input.Origin); err != nil {
		return brokerErrorToResponse(req.ID, err)
	}
	return &BrokerResponse{ID: req.ID, Ok: true, Result: AcceptedResult{Accepted: true}}
}

func (d *Dispatcher) handleHealth(ctx context.Context, req *BrokerRequest) *BrokerResponse {
	if d.health == nil {
		return &BrokerResponse{ID: req.ID, Ok: true, Result: map[string]string{"status": "healthy"}}
	}
	return &BrokerResponse{ID: req.ID, Ok: true, Result: d.health(ctx)}
}

// --- helpers ---

func requestContext(req *BrokerRequest) (broker.Context, *BrokerResponse) {
	if req.Ctx == nil {
		return broker.Context{}, errorResponse(req.ID, CodeInvalidArgument, "Missing ctx", false)
	}
	c, err := req.Ctx.ToBrokerContext()
	if err != nil {
		return broker.Context{}, errorResponse(req.ID, CodeInvalidArgument, err.Error(), false)
	}
	return c, nil
}

// payloadString returns the text of a JSON string payload, or the raw JSON of
// any other value.
func payloadString(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return trimmed
}

func errorResponse(id, code, message string, retryable bool) *BrokerResponse {
	return &BrokerResponse{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func brokerErrorToResponse(id string, err error) *BrokerResponse {
	var brkErr *broker.BrokerError
	if errors.As(err, &brkErr) {
		var details interface{}
		if brkErr.Err != nil {
			details = map[string]string{"cause": brkErr.Err.Error()}
		}
		return &BrokerResponse{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      brkErr.Code,
				Message:   brkErr.Message,
				Details:   details,
				Retryable: false,
			},
		}
	}
	return errorResponse(id, CodeInternal, err.Error(), true)
}
