package message

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
)

// Metadata is the free-form JSON object carried in every message's
// "metadata" frame. Frontends and kernels both stuff ad-hoc keys into
// it, so callers decode only the fields they recognize and keep the
// rest around unread.
type Metadata map[string]interface{}

// ExecuteRequestMetadata is the set of well-known metadata keys a
// frontend may attach to an execute_request. Unrecognized keys are
// preserved in Extra rather than discarded.
type ExecuteRequestMetadata struct {
	DeletedCells []string               `mapstructure:"deletedCells"`
	CellID       string                 `mapstructure:"cellId"`
	Extra        map[string]interface{} `mapstructure:",remain"`
}

// DecodeMetadata decodes the raw "metadata" frame bytes into dst, a
// pointer to a struct using mapstructure tags. Fields with no matching
// key in raw are left at their zero value; keys with no matching field
// land in a ",remain" field when dst declares one.
func DecodeMetadata(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}

	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(generic)
}

// EncodeMetadata flattens a typed metadata struct (plus its Extra
// remainder, if any) back into a raw JSON object for the wire.
func EncodeMetadata(v interface{}) (json.RawMessage, error) {
	var out map[string]interface{}
	if err := mapstructure.Decode(v, &out); err != nil {
		return nil, err
	}
	if extra, ok := out["Extra"].(map[string]interface{}); ok {
		delete(out, "Extra")
		for k, val := range extra {
			out[k] = val
		}
	}
	return json.Marshal(out)
}
