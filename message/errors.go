package message

import "github.com/pkg/errors"

// ErrUnknownMessageType is returned by the Decode* dispatchers when a
// header's msg_type does not match any known variant of that family.
var ErrUnknownMessageType = errors.New("message: unknown message type")

// ErrDecode wraps a JSON decoding failure for a specific msg_type, so
// callers can tell "unknown type" apart from "known type, bad body".
type ErrDecode struct {
	MsgType string
	Cause   error
}

func (e *ErrDecode) Error() string {
	return "message: failed to decode " + e.MsgType + " content: " + e.Cause.Error()
}

func (e *ErrDecode) Unwrap() error {
	return e.Cause
}

func newDecodeError(msgType string, cause error) error {
	return errors.WithStack(&ErrDecode{MsgType: msgType, Cause: cause})
}
