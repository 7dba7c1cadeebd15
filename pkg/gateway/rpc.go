package gateway

import (
	json "github.com/goccy/go-json"
)

// JSON-RPC error codes returned to applications.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotSupported   = -50100
	CodeNotAvailable   = -50200
)

const jsonrpcVersion = "2.0"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

var nullID = json.RawMessage("null")

func resultMessage(id json.RawMessage, result json.RawMessage) ([]byte, error) {
	if len(id) == 0 {
		id = nullID
	}
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return json.Marshal(rpcResponse{JSONRPC: jsonrpcVersion, ID: id, Result: result})
}

func errorMessage(id json.RawMessage, code int, message string) ([]byte, error) {
	if len(id) == 0 {
		id = nullID
	}
	return json.Marshal(rpcResponse{JSONRPC: jsonrpcVersion, ID: id, Error: &rpcError{Code: code, Message: message}})
}
