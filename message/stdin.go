package message

import "encoding/json"

// KernelRequest is the closed set of messages a kernel sends on stdin to
// ask the client for input mid-execution.
type KernelRequest interface {
	Tagged
	kernelRequest()
}

// InputOptions describes the prompt a kernel wants shown for an
// input_request.
type InputOptions struct {
	Prompt   string
	Password bool
}

// InputRequest asks the client to collect a line of input from the user
// and send it back on stdin.
type InputRequest struct {
	Options InputOptions
}

func (InputRequest) Tag() string    { return TagInputRequest }
func (InputRequest) kernelRequest() {}

func (r InputRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"prompt": r.Options.Prompt, "password": r.Options.Password})
}

func (r *InputRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Prompt   string `json:"prompt"`
		Password bool   `json:"password"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Options = InputOptions{Prompt: raw.Prompt, Password: raw.Password}
	return nil
}

// ClientReply is the closed set of messages a client sends back on
// stdin in answer to a KernelRequest.
type ClientReply interface {
	Tagged
	clientReply()
}

// InputReply carries the line of text a user typed in answer to an
// InputRequest.
type InputReply struct {
	Text string
}

func (InputReply) Tag() string  { return TagInputReply }
func (InputReply) clientReply() {}

func (r InputReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"value": r.Text})
}

func (r *InputReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Text = raw.Value
	return nil
}

// DecodeKernelRequest decodes content according to msgType, returning
// the concrete KernelRequest variant. Unknown types yield
// ErrUnknownMessageType.
func DecodeKernelRequest(msgType string, content []byte) (KernelRequest, error) {
	switch msgType {
	case TagInputRequest:
		var r InputRequest
		if err := json.Unmarshal(content, &r); err != nil {
			return nil, newDecodeError(msgType, err)
		}
		return r, nil
	default:
		return nil, ErrUnknownMessageType
	}
}

// DecodeClientReply decodes content according to msgType, returning the
// concrete ClientReply variant. Unknown types yield
// ErrUnknownMessageType.
func DecodeClientReply(msgType string, content []byte) (ClientReply, error) {
	switch msgType {
	case TagInputReply:
		var r InputReply
		if err := json.Unmarshal(content, &r); err != nil {
			return nil, newDecodeError(msgType, err)
		}
		return r, nil
	default:
		return nil, ErrUnknownMessageType
	}
}
