package broker

import (
	"errors"
	"fmt"
)

// CodeGeneral is the error code reported for every synchronous broker failure.
const CodeGeneral = "GENERAL"

var (
	// ErrProviderNotFound means no provider is registered for a capability.
	ErrProviderNotFound = errors.New("provider not found")
	// ErrMalformedPayload means params or a provider payload failed to parse
	// or lacked a required field.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrUnknownOrigin means a context carried an origin tag with no route.
	ErrUnknownOrigin = errors.New("unknown origin")
	// ErrResponderUnavailable means a responder could not be resolved by name.
	ErrResponderUnavailable = errors.New("responder unavailable")
)

// BrokerError is the structured error returned by broker operations.
type BrokerError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *BrokerError) Error() string {
	return e.Code + ": " + e.Message
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

func generalError(cause error, format string, args ...any) *BrokerError {
	return &BrokerError{
		Code:    CodeGeneral,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}
