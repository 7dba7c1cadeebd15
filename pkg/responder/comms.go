package responder

import (
	"context"
	"fmt"
	"log/slog"

	json "github.com/goccy/go-json"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/app2app-broker/pkg/broker"
	"github.com/morezero/app2app-broker/pkg/commsutil"
)

const commsLogPrefix = "responder:comms"

// Delivery is the message CommsResponder publishes. Payload is embedded as raw
// JSON when it is valid JSON and as a JSON string otherwise.
type Delivery struct {
	Context broker.Context  `json:"context"`
	Payload json.RawMessage `json:"payload"`
}

// CommsResponder delivers payloads by publishing them on a COMMS subject. It
// backs the launch delegate, which runs in a separate process.
type CommsResponder struct {
	nc      *comms.Conn
	subject string
}

// NewCommsResponder creates a CommsResponder publishing on subject. An empty
// subject falls back to the per-responder subject for name.
func NewCommsResponder(nc *comms.Conn, subject, name string) *CommsResponder {
	if subject == "" {
		subject = commsutil.BuildResponderSubject(commsutil.SubjectDelegateRespond, name)
	}
	return &CommsResponder{nc: nc, subject: subject}
}

// Subject returns the subject deliveries are published on.
func (r *CommsResponder) Subject() string {
	return r.subject
}

// Respond publishes payload addressed to c.
func (r *CommsResponder) Respond(_ context.Context, c broker.Context, payload string) error {
	data, err := commsutil.EncodePayload(Delivery{Context: c, Payload: RawPayload(payload)})
	if err != nil {
		return fmt.Errorf("%s - failed to encode delivery: %w", commsLogPrefix, err)
	}
	if err := r.nc.Publish(r.subject, data); err != nil {
		return fmt.Errorf("%s - failed to publish to %s: %w", commsLogPrefix, r.subject, err)
	}
	slog.Debug(fmt.Sprintf("%s - delivered %d bytes to %s for %s", commsLogPrefix, len(data), r.subject, c))
	return nil
}

// RawPayload returns payload unchanged when it is valid JSON, otherwise the
// payload encoded as a JSON string.
func RawPayload(payload string) json.RawMessage {
	if payload != "" && json.Valid([]byte(payload)) {
		return json.RawMessage(payload)
	}
	quoted, err := json.Marshal(payload)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return quoted
}
