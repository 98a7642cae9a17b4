// Package wire implements the Jupyter multi-frame envelope: splitting
// routing identifiers from the signed body, and HMAC-signing/verifying
// that body.
package wire

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/nb-kernel/jupyter/message"
)

// Delimiter is the literal frame ZeroMQ uses to separate routing
// identifiers from the signed message body.
const Delimiter = "<IDS|MSG>"

// ErrMalformedEnvelope is returned when the delimiter is missing or the
// body after it has fewer than five frames (the signature plus the four
// signed frames). Frames past those five are kept as buffers.
var ErrMalformedEnvelope = errors.New("wire: malformed envelope")

// Frames is a single Jupyter wire message, split into its routing
// identifiers and its four signed body frames plus any trailing binary
// buffers.
type Frames struct {
	Identities   [][]byte
	Signature    []byte
	Header       []byte
	ParentHeader []byte
	Metadata     []byte
	Content      []byte
	Buffers      [][]byte
}

// Split locates the delimiter in raw and partitions it into a Frames
// value. It does not verify the signature; call Verify separately.
func Split(raw [][]byte) (Frames, error) {
	idx := -1
	for i, f := range raw {
		if string(f) == Delimiter {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Frames{}, ErrMalformedEnvelope
	}

	body := raw[idx+1:]
	if len(body) < 5 {
		return Frames{}, ErrMalformedEnvelope
	}

	f := Frames{
		Identities:   raw[:idx],
		Signature:    body[0],
		Header:       body[1],
		ParentHeader: body[2],
		Metadata:     body[3],
		Content:      body[4],
	}
	if len(body) > 5 {
		f.Buffers = body[5:]
	}
	return f, nil
}

// Join reassembles f into the flat frame sequence ZeroMQ sends:
// identities, delimiter, signature, header, parent_header, metadata,
// content, buffers...
func (f Frames) Join() [][]byte {
	out := make([][]byte, 0, len(f.Identities)+6+len(f.Buffers))
	out = append(out, f.Identities...)
	out = append(out, []byte(Delimiter))
	out = append(out, f.Signature, f.Header, f.ParentHeader, f.Metadata, f.Content)
	out = append(out, f.Buffers...)
	return out
}

// DecodeHeader unmarshals the header frame.
func (f Frames) DecodeHeader() (message.Header, error) {
	var h message.Header
	err := json.Unmarshal(f.Header, &h)
	return h, err
}

// DecodeParentHeader unmarshals the parent_header frame. An empty
// frame (`{}`) decodes to the zero Header.
func (f Frames) DecodeParentHeader() (message.Header, error) {
	var h message.Header
	if len(f.ParentHeader) == 0 {
		return h, nil
	}
	err := json.Unmarshal(f.ParentHeader, &h)
	return h, err
}

// Build encodes header/parent/metadata/content into a Frames ready for
// signing. metadata may be nil, in which case an empty object is used.
func Build(identities [][]byte, header, parent message.Header, metadata json.RawMessage, content interface{}) (Frames, error) {
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return Frames{}, err
	}

	var parentJSON []byte
	if parent.MessageID.IsNil() {
		parentJSON = []byte("{}")
	} else {
		parentJSON, err = json.Marshal(parent)
		if err != nil {
			return Frames{}, err
		}
	}

	if len(metadata) == 0 {
		metadata = []byte("{}")
	}

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return Frames{}, err
	}

	return Frames{
		Identities:   identities,
		Header:       headerJSON,
		ParentHeader: parentJSON,
		Metadata:     metadata,
		Content:      contentJSON,
	}, nil
}
