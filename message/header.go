// Package message defines the Jupyter wire protocol's message algebra:
// the closed set of request, reply, output, input-request, and comm
// messages, plus their canonical JSON encoding.
package message

import (
	"time"

	"github.com/nb-kernel/jupyter/id"
)

// DefaultUsername is substituted by MakeRequestHeader for an empty
// username. MakeReplyHeader copies the parent's username as is.
const DefaultUsername = "default-username"

// DefaultVersion is the protocol version this package writes when a
// caller does not specify one.
const DefaultVersion = "5.0"

// Header carries the per-message metadata every Jupyter message has.
// It mirrors the wire "header" frame one-to-one.
type Header struct {
	MessageID id.UUID `json:"msg_id"`
	Session   id.UUID `json:"session"`
	Username  string  `json:"username"`
	Date      string  `json:"date,omitempty"`
	MsgType   string  `json:"msg_type"`
	Version   string  `json:"version"`
}

// Tagged is implemented by every payload variant across all six message
// families; Tag returns the wire msg_type string for that variant.
type Tagged interface {
	Tag() string
}

// MakeRequestHeader builds a fresh header for a message originating in
// this process: a new message ID, no parent, and the current time.
func MakeRequestHeader(session id.UUID, username string, payload Tagged) Header {
	if username == "" {
		username = DefaultUsername
	}
	return Header{
		MessageID: id.New(),
		Session:   session,
		Username:  username,
		Date:      now(),
		MsgType:   payload.Tag(),
		Version:   DefaultVersion,
	}
}

// MakeReplyHeader builds the header for a message sent in response to
// parent: session, username, and version are copied from parent, and a
// fresh message ID is minted. The caller is responsible for setting
// ParentHeader on the resulting wire frame to parent (see wire.Frames).
func MakeReplyHeader(parent Header, payload Tagged) Header {
	version := parent.Version
	if version == "" {
		version = DefaultVersion
	}
	return Header{
		MessageID: id.New(),
		Session:   parent.Session,
		Username:  parent.Username,
		Date:      now(),
		MsgType:   payload.Tag(),
		Version:   version,
	}
}

// now is a seam so tests can't accidentally depend on wall-clock time
// leaking into encoded fixtures; production code always uses the real
// clock.
var now = func() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
