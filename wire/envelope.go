package wire

import (
	"encoding/json"

	"github.com/nb-kernel/jupyter/message"
)

// Encode builds, signs, and flattens a full wire message ready to hand
// to a socket's Send.
func Encode(identities [][]byte, header, parent message.Header, metadata json.RawMessage, payload interface{}, scheme string, key []byte) ([][]byte, error) {
	f, err := Build(identities, header, parent, metadata, payload)
	if err != nil {
		return nil, err
	}

	f, err = Sign(f, scheme, key)
	if err != nil {
		return nil, err
	}

	return f.Join(), nil
}

// Decoded is the result of decoding a wire message: its identities (for
// routing a reply), parsed header and parent header, and the raw
// metadata/content frames for the caller to decode further once it
// knows msg_type.
type Decoded struct {
	Identities   [][]byte
	Header       message.Header
	ParentHeader message.Header
	Metadata     json.RawMessage
	Content      json.RawMessage
}

// Decode splits raw, verifies its signature, and parses its header and
// parent header. It does not decode Content: the caller dispatches on
// Header.MsgType to pick the right message.Decode* function.
func Decode(raw [][]byte, scheme string, key []byte) (Decoded, error) {
	f, err := Split(raw)
	if err != nil {
		return Decoded{}, err
	}

	if err := Verify(f, scheme, key); err != nil {
		return Decoded{}, err
	}

	header, err := f.DecodeHeader()
	if err != nil {
		return Decoded{}, err
	}

	parent, err := f.DecodeParentHeader()
	if err != nil {
		return Decoded{}, err
	}

	return Decoded{
		Identities:   f.Identities,
		Header:       header,
		ParentHeader: parent,
		Metadata:     json.RawMessage(f.Metadata),
		Content:      json.RawMessage(f.Content),
	}, nil
}
