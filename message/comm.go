package message

import (
	"encoding/json"

	"github.com/nb-kernel/jupyter/id"
)

// CommData is the free-form JSON payload carried by every comm message.
type CommData map[string]interface{}

// Comm is the closed set of messages exchanged over the comm
// sub-protocol, sendable by either a kernel or a client and broadcast on
// iopub or sent directly on shell depending on direction.
type Comm interface {
	Tagged
	comm()
	CommID() id.UUID
}

// CommOpen opens a new comm attached to a frontend/kernel-side target.
type CommOpen struct {
	ID     id.UUID
	Target TargetName
	Module *TargetModule
	Data   CommData
}

func (CommOpen) Tag() string        { return TagCommOpen }
func (CommOpen) comm()              {}
func (c CommOpen) CommID() id.UUID  { return c.ID }

func (c CommOpen) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"comm_id":     c.ID.String(),
		"target_name": string(c.Target),
		"data":        c.Data,
	}
	if c.Module != nil {
		out["target_module"] = string(*c.Module)
	}
	return json.Marshal(out)
}

func (c *CommOpen) UnmarshalJSON(data []byte) error {
	var raw struct {
		CommID       string   `json:"comm_id"`
		TargetName   string   `json:"target_name"`
		TargetModule *string  `json:"target_module"`
		Data         CommData `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = id.UUID(raw.CommID)
	c.Target = TargetName(raw.TargetName)
	c.Data = raw.Data
	if raw.TargetModule != nil {
		m := TargetModule(*raw.TargetModule)
		c.Module = &m
	}
	return nil
}

// CommMessage carries an application-defined payload over an already
// open comm.
type CommMessage struct {
	ID   id.UUID
	Data CommData
}

func (CommMessage) Tag() string       { return TagCommMsg }
func (CommMessage) comm()             {}
func (c CommMessage) CommID() id.UUID { return c.ID }

func (c CommMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"comm_id": c.ID.String(), "data": c.Data})
}

func (c *CommMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		CommID string   `json:"comm_id"`
		Data   CommData `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = id.UUID(raw.CommID)
	c.Data = raw.Data
	return nil
}

// CommClose closes a comm. Data may carry final state; it is optional.
type CommClose struct {
	ID   id.UUID
	Data CommData
}

func (CommClose) Tag() string       { return TagCommClose }
func (CommClose) comm()             {}
func (c CommClose) CommID() id.UUID { return c.ID }

func (c CommClose) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"comm_id": c.ID.String(), "data": c.Data})
}

func (c *CommClose) UnmarshalJSON(data []byte) error {
	var raw struct {
		CommID string   `json:"comm_id"`
		Data   CommData `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = id.UUID(raw.CommID)
	c.Data = raw.Data
	return nil
}

// DecodeComm decodes content according to msgType, returning the
// concrete Comm variant. Unknown types yield ErrUnknownMessageType.
func DecodeComm(msgType string, content []byte) (Comm, error) {
	var (
		c   Comm
		err error
	)

	switch msgType {
	case TagCommOpen:
		var v CommOpen
		err = json.Unmarshal(content, &v)
		c = v
	case TagCommMsg:
		var v CommMessage
		err = json.Unmarshal(content, &v)
		c = v
	case TagCommClose:
		var v CommClose
		err = json.Unmarshal(content, &v)
		c = v
	default:
		return nil, ErrUnknownMessageType
	}

	if err != nil {
		return nil, newDecodeError(msgType, err)
	}
	return c, nil
}
