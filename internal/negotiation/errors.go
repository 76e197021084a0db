package negotiation

import (
	"errors"
	"fmt"
)

var (
	ErrMediaAccess        = errors.New("media access failed")
	ErrRoomFull           = errors.New("room is full")
	ErrRelayUnreachable   = errors.New("relay unreachable")
	ErrNegotiationFailure = errors.New("negotiation failed")
	ErrClosed             = errors.New("session closed")
	ErrAlreadyJoined      = errors.New("session already joined")
	ErrRelayRejected      = errors.New("relay rejected message")
)

// Error carries the operation that failed alongside one of the sentinels above.
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

// IsFatal reports whether err ends the session rather than the current pairing.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMediaAccess) ||
		errors.Is(err, ErrRoomFull) ||
		errors.Is(err, ErrRelayUnreachable)
}
