// Package gateway is the WebSocket surface applications connect to. It speaks
// JSON-RPC 2.0, hands provider operations to the broker and delivers broker
// payloads back to the owning connection.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/morezero/app2app-broker/pkg/broker"
	"github.com/morezero/app2app-broker/pkg/resolver"
	"github.com/morezero/app2app-broker/pkg/responder"
)

const logPrefix = "gateway:gateway"

const (
	defaultSendBuffer   = 64
	defaultWriteTimeout = 10 * time.Second
)

// ErrConnectionClosed is returned by Respond when the target connection is
// gone.
var ErrConnectionClosed = errors.New("gateway: connection closed")

// Broker is the subset of *broker.Broker the gateway drives.
type Broker interface {
	RegisterProvider(ctx context.Context, c broker.Context, provide bool, capability string) error
	InvokeProvider(ctx context.Context, c broker.Context, capability string, params string) error
	HandleProviderResponse(ctx context.Context, payload string, capability string) error
	HandleProviderError(ctx context.Context, payload string, capability string) error
	Cleanup(ctx context.Context, connectionID uint32, origin string) error
}

// Classifier maps method names onto resolutions.
type Classifier interface {
	Classify(method string) (resolver.Resolution, bool)
}

// NewGatewayParams holds the dependencies and tunables of a Gateway.
type NewGatewayParams struct {
	Broker       Broker
	Resolver     Classifier
	SendBuffer   int
	WriteTimeout time.Duration
}

// Gateway accepts application WebSocket connections.
type Gateway struct {
	broker       Broker
	resolver     Classifier
	sendBuffer   int
	writeTimeout time.Duration

	upgrader websocket.Upgrader
	conns    *haxmap.Map[uint32, *conn]
	nextID   atomic.Uint32
}

// New creates a Gateway.
func New(params NewGatewayParams) *Gateway {
	sendBuffer := params.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	writeTimeout := params.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Gateway{
		broker:       params.Broker,
		resolver:     params.Resolver,
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: haxmap.New[uint32, *conn](),
	}
}

// conn is one application connection. All writes go through send and are
// performed by a single writer goroutine.
type conn struct {
	id    uint32
	appID string
	ws    *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// enqueue hands data to the writer goroutine.
func (c *conn) enqueue(ctx context.Context, data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
// The application identifies itself with the appId query parameter.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	appID := r.URL.Query().Get("appId")
	if appID == "" {
		http.Error(w, "appId query parameter is required", http.StatusBadRequest)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - ws upgrade failed: %v", logPrefix, err))
		return
	}

	c := &conn{
		id:    g.nextID.Add(1),
		appID: appID,
		ws:    ws,
		send:  make(chan []byte, g.sendBuffer),
		done:  make(chan struct{}),
	}
	g.conns.Set(c.id, c)
	slog.Info(fmt.Sprintf("%s - connection %d opened for %s from %s", logPrefix, c.id, appID, r.RemoteAddr))

	go g.writeLoop(c)
	g.readLoop(r.Context(), c)

	c.close()
	g.conns.Del(c.id)
	if err := g.broker.Cleanup(context.Background(), c.id, string(broker.OriginGateway)); err != nil {
		slog.Warn(fmt.Sprintf("%s - cleanup for connection %d failed: %v", logPrefix, c.id, err))
	}
	slog.Info(fmt.Sprintf("%s - connection %d closed for %s", logPrefix, c.id, appID))
}

func (g *Gateway) writeLoop(c *conn) {
	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(g.writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn(fmt.Sprintf("%s - write to connection %d failed: %v", logPrefix, c.id, err))
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (g *Gateway) readLoop(ctx context.Context, c *conn) {
	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn(fmt.Sprintf("%s - read from connection %d failed: %v", logPrefix, c.id, err))
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if reply := g.handleMessage(ctx, c, data); reply != nil {
			if err := c.enqueue(ctx, reply); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one inbound JSON-RPC request and returns the
// immediate reply, or nil when the reply arrives later through Respond.
func (g *Gateway) handleMessage(ctx context.Context, c *conn, data []byte) []byte {
	var req rpcRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return mustError(nil, CodeParseError, "Parse error")
	}
	if req.Method == "" {
		return mustError(req.ID, CodeInvalidRequest, "Invalid Request")
	}
	requestID, err := strconv.ParseInt(string(req.ID), 10, 64)
	if err != nil {
		return mustError(req.ID, CodeInvalidRequest, "Invalid Request: id must be an integer")
	}

	res, ok := g.resolver.Classify(req.Method)
	if !ok || !res.IsProvider() {
		slog.Debug(fmt.Sprintf("%s - method %s not handled here", logPrefix, req.Method))
		return mustError(req.ID, CodeNotSupported, "NotSupported")
	}

	bc := broker.Context{
		RequestID:    requestID,
		ConnectionID: c.id,
		AppID:        c.appID,
		Origin:       broker.OriginGateway,
	}

	switch res.Op {
	case resolver.OpRegister:
		listen := gjson.GetBytes(req.Params, "listen")
		if listen.Type != gjson.True && listen.Type != gjson.False {
			return mustError(req.ID, CodeInvalidParams, "Missing required boolean 'listen' parameter")
		}
		if err := g.broker.RegisterProvider(ctx, bc, listen.Bool(), res.Capability); err != nil {
			return mustError(req.ID, CodeInternalError, err.Error())
		}
		result, _ := json.Marshal(map[string]interface{}{"listening": listen.Bool(), "event": req.Method})
		return mustResult(req.ID, result)

	case resolver.OpInvoke:
		params := string(req.Params)
		if len(req.Params) == 0 {
			params = "{}"
		}
		if err := g.broker.InvokeProvider(ctx, bc, res.Capability, params); err != nil {
			slog.Warn(fmt.Sprintf("%s - invoke %s for %s failed: %v", logPrefix, res.Capability, bc, err))
			return mustError(req.ID, CodeNotAvailable, "NotAvailable")
		}
		return nil

	case resolver.OpResponse, resolver.OpError:
		handle := g.broker.HandleProviderResponse
		if res.Op == resolver.OpError {
			handle = g.broker.HandleProviderError
		}
		if err := handle(ctx, string(req.Params), res.Capability); err != nil {
			return mustError(req.ID, CodeInvalidParams, err.Error())
		}
		return mustResult(req.ID, nil)
	}

	return mustError(req.ID, CodeNotSupported, "NotSupported")
}

// Respond delivers payload as the result of request c.RequestID on
// connection c.ConnectionID. It implements broker.Responder.
func (g *Gateway) Respond(ctx context.Context, c broker.Context, payload string) error {
	target, ok := g.conns.Get(c.ConnectionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrConnectionClosed, c.ConnectionID)
	}
	data, err := resultMessage(json.RawMessage(strconv.FormatInt(c.RequestID, 10)), responder.RawPayload(payload))
	if err != nil {
		return fmt.Errorf("%s - failed to encode response: %w", logPrefix, err)
	}
	return target.enqueue(ctx, data)
}

// Connections returns the number of open connections.
func (g *Gateway) Connections() int {
	return int(g.conns.Len())
}

// Close closes every open connection.
func (g *Gateway) Close() {
	g.conns.ForEach(func(_ uint32, c *conn) bool {
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.close()
		return true
	})
}

func mustResult(id json.RawMessage, result json.RawMessage) []byte {
	data, err := resultMessage(id, result)
	if err != nil {
		return mustError(id, CodeInternalError, "Internal error")
	}
	return data
}

func mustError(id json.RawMessage, code int, message string) []byte {
	data, err := errorMessage(id, code, message)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode error reply: %v", logPrefix, err))
		return nil
	}
	return data
}
