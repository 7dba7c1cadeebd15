package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/app2app-broker/pkg/commsutil"
)

// MsgHandler returns a COMMS handler that decodes a BrokerRequest, dispatches
// it under a per-request timeout derived from parent, and replies with the
// BrokerResponse.
func (d *Dispatcher) MsgHandler(parent context.Context, timeout time.Duration) comms.MsgHandler {
	return func(msg *comms.Msg) {
		req, err := commsutil.Decode[BrokerRequest](msg.Data)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
			respond(msg, &BrokerResponse{
				Ok: false,
				Error: &ErrorDetail{
					Code:    CodeInvalidRequest,
					Message: "Failed to decode request",
				},
			})
			return
		}

		reqCtx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()

		respond(msg, d.Dispatch(reqCtx, &req))
	}
}

func respond(msg *comms.Msg, resp *BrokerResponse) {
	if msg.Reply == "" {
		return
	}
	data, err := commsutil.EncodePayload(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", logPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond: %v", logPrefix, err))
	}
}
