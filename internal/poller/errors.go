package poller

import (
	"errors"
	"fmt"
)

// ErrStopped is returned by operations invoked on an [Engine] that has been stopped.
var ErrStopped = errors.New("poller stopped")

// TransportError reports that the request never completed: the connection
// failed, the context expired, or the body could not be read.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a response with a non-2xx status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d", e.StatusCode)
}

// DecodeError reports a response body that is not valid JSON or does not
// match the expected payload type.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid response body: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies err for metrics labels. Callers of the poller only
// ever see the message; the kind is internal bookkeeping.
func ErrorKind(err error) string {
	var statusErr *StatusError
	var decodeErr *DecodeError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "transport"
	}
}
