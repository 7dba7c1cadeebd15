// Package dispatcher routes incoming COMMS broker requests to broker methods.
package dispatcher

import (
	json "github.com/goccy/go-json"

	"github.com/morezero/app2app-broker/pkg/broker"
)

// Error codes carried in ErrorDetail.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeMethodNotFound  = "METHOD_NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
)

// BrokerRequest is the JSON envelope for incoming COMMS broker requests.
type BrokerRequest struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Ctx    *ContextPayload `json:"ctx,omitempty"`
}

// BrokerResponse is the JSON envelope for COMMS broker responses.
type BrokerResponse struct {
	ID     string       `json:"id"`
	Ok     bool         `json:"ok"`
	Result interface{}  `json:"result,omitempty"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail holds structured error information.
type ErrorDetail struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable"`
}

// ContextPayload is the wire form of broker.Context.
type ContextPayload struct {
	RequestID    int64  `json:"requestId"`
	ConnectionID uint32 `json:"connectionId"`
	AppID        string `json:"appId,omitempty"`
	Origin       string `json:"origin"`
}

// ToBrokerContext validates the origin and converts p.
func (p *ContextPayload) ToBrokerContext() (broker.Context, error) {
	origin, err := broker.ParseOrigin(p.Origin)
	if err != nil {
		return broker.Context{}, err
	}
	return broker.Context{
		RequestID:    p.RequestID,
		ConnectionID: p.ConnectionID,
		AppID:        p.AppID,
		Origin:       origin,
	}, nil
}

// RegisterProviderParams are the params of registerProvider.
type RegisterProviderParams struct {
	Capability string `json:"capability"`
	Provide    bool   `json:"provide"`
}

// InvokeProviderParams are the params of invokeProvider. Params is forwarded
// to the provider untouched.
type InvokeProviderParams struct {
	Capability string          `json:"capability"`
	Params     json.RawMessage `json:"params"`
}

// ProviderPayloadParams are the params of handleProviderResponse and
// handleProviderError. Payload may be a JSON object or a string holding one.
type ProviderPayloadParams struct {
	Capability string          `json:"capability"`
	Payload    json.RawMessage `json:"payload"`
}

// CleanupParams are the params of cleanup.
type CleanupParams struct {
	ConnectionID uint32 `json:"connectionId"`
	Origin       string `json:"origin"`
}

// AcceptedResult is returned by methods that only acknowledge.
type AcceptedResult struct {
	Accepted bool `json:"accepted"`
}
