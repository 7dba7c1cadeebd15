package broker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	fieldAppID         = "appId"
	fieldCorrelationID = "correlationId"
	fieldParams        = "params"
	fieldResult        = "result"
)

// parseParams validates that params is a UTF-8 JSON object and returns it
// trimmed. gjson.Valid alone lets invalid UTF-8 through.
func parseParams(params string) (string, gjson.Result, error) {
	if !utf8.ValidString(params) {
		return "", gjson.Result{}, fmt.Errorf("%w: params are not valid UTF-8", ErrMalformedPayload)
	}
	trimmed := strings.TrimSpace(params)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return "", gjson.Result{}, fmt.Errorf("%w: params are not valid JSON", ErrMalformedPayload)
	}
	root := gjson.Parse(trimmed)
	if !root.IsObject() {
		return "", gjson.Result{}, fmt.Errorf("%w: params are not a JSON object", ErrMalformedPayload)
	}
	return trimmed, root, nil
}

// requestedAppID returns the top-level string "appId" of params, if any.
func requestedAppID(params gjson.Result) string {
	v := params.Get(fieldAppID)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}

// buildEnvelope wraps the caller's params for delivery to a provider:
// {"correlationId":"<token>","params":<params>}.
func buildEnvelope(token, params string) (string, error) {
	out, err := sjson.Set(`{}`, fieldCorrelationID, token)
	if err != nil {
		return "", err
	}
	return sjson.SetRaw(out, fieldParams, params)
}

// extractCorrelation pulls the correlation id and the named result out of a
// provider payload. A string result yields its unquoted content; any other
// JSON value yields its raw text.
func extractCorrelation(payload, key string) (string, string, error) {
	if !utf8.ValidString(payload) {
		return "", "", fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedPayload)
	}
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return "", "", fmt.Errorf("%w: payload is not valid JSON", ErrMalformedPayload)
	}
	root := gjson.Parse(trimmed)
	if !root.IsObject() {
		return "", "", fmt.Errorf("%w: payload is not a JSON object", ErrMalformedPayload)
	}

	cid := root.Get(fieldCorrelationID)
	if !cid.Exists() || cid.Type == gjson.Null {
		return "", "", fmt.Errorf("%w: missing %s", ErrMalformedPayload, fieldCorrelationID)
	}

	res := root.Get(key)
	if !res.Exists() {
		return "", "", fmt.Errorf("%w: missing %s", ErrMalformedPayload, key)
	}

	result := res.Raw
	if res.Type == gjson.String {
		result = res.Str
	}
	return cid.String(), result, nil
}
