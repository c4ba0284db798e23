package peer

import (
	"errors"
	"fmt"
)

var (
	ErrPeerLeft         = errors.New("peer ended the call")
	ErrServerClosed     = errors.New("relay closed the connection")
	ErrClientClosed     = errors.New("signaling client closed")
	ErrConnectionFailed = errors.New("connection failed")
	ErrUnexpectedSignal = errors.New("unexpected signal type")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Error records the operation that failed.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
