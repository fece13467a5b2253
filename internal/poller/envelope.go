package poller

import (
	"bytes"
	"encoding/json"
	"errors"
)

var errEmptyBody = errors.New("empty body")

// envelope is the {"success": true, "data": ...} wrapper some feeds use.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Normalize resolves a response body to its payload.
//
// A body of the form {"success": true, "data": X} yields X. Any other valid
// JSON document, including an envelope whose success flag is false or not a
// boolean, is returned whole. Invalid JSON yields a [DecodeError].
func Normalize(body []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, &DecodeError{Err: errEmptyBody}
	}

	var probe json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, &DecodeError{Err: err}
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Success != nil && *env.Success && env.Data != nil {
			return env.Data, nil
		}
	}

	return probe, nil
}

// DecodeJSON is the default payload decoder: it unmarshals the normalized
// payload into a T.
func DecodeJSON[T any](payload json.RawMessage) (T, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, &DecodeError{Err: err}
	}
	return v, nil
}
