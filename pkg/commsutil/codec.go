package commsutil

import (
	"bytes"
	"errors"

	json "github.com/goccy/go-json"
)

// ErrEmptyPayload is returned when a COMMS message carries no body.
var ErrEmptyPayload = errors.New("commsutil: empty payload")

// EncodePayload serializes a value for publishing on COMMS.
func EncodePayload(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// DecodePayload deserializes a COMMS message body into v. Blank bodies are
// rejected with ErrEmptyPayload so callers can tell them from bad JSON.
func DecodePayload(data []byte, v interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrEmptyPayload
	}
	return json.Unmarshal(data, v)
}

// Decode is the typed form of DecodePayload.
func Decode[T any](data []byte) (T, error) {
	var out T
	err := DecodePayload(data, &out)
	return out, err
}
