package reservation

import (
	"errors"
	"fmt"
)

// ErrMissingSession is returned before any mutating call that lacks a session id
var ErrMissingSession = errors.New("reservation: session id is required")

// APIError is a response the backend sent back with a non-2xx status
type APIError struct {
	Op         string
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: backend returned status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
}

// TransportError means no usable response arrived
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a connectivity failure
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsAPIError extracts a backend rejection from err
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
