package message

import "encoding/json"

// KernelOutput is the closed set of messages a kernel broadcasts on
// iopub: side effects of execution that are not directly a reply to any
// one client.
type KernelOutput interface {
	Tagged
	kernelOutput()
}

// Stream identifies which OS stream a StreamOutput carries.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// StreamOutput carries text written to stdout or stderr during
// execution.
type StreamOutput struct {
	Name Stream
	Text string
}

func (StreamOutput) Tag() string    { return TagStream }
func (StreamOutput) kernelOutput()  {}

func (o StreamOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"name": string(o.Name), "text": o.Text})
}

func (o *StreamOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Name = Stream(raw.Name)
	o.Text = raw.Text
	return nil
}

// DisplayDataOutput publishes a rich representation outside of an
// execute_result (e.g. from a plotting call mid-execution).
type DisplayDataOutput struct {
	DisplayData DisplayData
}

func (DisplayDataOutput) Tag() string   { return TagDisplayData }
func (DisplayDataOutput) kernelOutput() {}

func (o DisplayDataOutput) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	o.DisplayData.marshalInto(out)
	return json.Marshal(out)
}

func (o *DisplayDataOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Data     json.RawMessage `json:"data"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dd, err := unmarshalDisplayData(raw.Data, raw.Metadata)
	if err != nil {
		return err
	}
	o.DisplayData = dd
	return nil
}

// ExecuteInputOutput echoes the code a kernel is about to execute along
// with the execution count it will be tagged with.
type ExecuteInputOutput struct {
	Code  CodeBlock
	Count int
}

func (ExecuteInputOutput) Tag() string   { return TagExecuteInput }
func (ExecuteInputOutput) kernelOutput() {}

func (o ExecuteInputOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"code": string(o.Code), "execution_count": o.Count})
}

func (o *ExecuteInputOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code  string `json:"code"`
		Count int    `json:"execution_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Code = CodeBlock(raw.Code)
	o.Count = raw.Count
	return nil
}

// ExecuteResultOutput publishes the value an execution expression
// produced (analogous to a REPL echoing its last expression).
type ExecuteResultOutput struct {
	Count       int
	DisplayData DisplayData
}

func (ExecuteResultOutput) Tag() string   { return TagExecuteResult }
func (ExecuteResultOutput) kernelOutput() {}

func (o ExecuteResultOutput) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"execution_count": o.Count}
	o.DisplayData.marshalInto(out)
	return json.Marshal(out)
}

func (o *ExecuteResultOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Count    int             `json:"execution_count"`
		Data     json.RawMessage `json:"data"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	dd, err := unmarshalDisplayData(raw.Data, raw.Metadata)
	if err != nil {
		return err
	}
	o.Count = raw.Count
	o.DisplayData = dd
	return nil
}

// ExecuteErrorOutput publishes an exception raised during execution.
type ExecuteErrorOutput struct {
	Err ErrorInfo
}

func (ExecuteErrorOutput) Tag() string   { return TagError }
func (ExecuteErrorOutput) kernelOutput() {}

func (o ExecuteErrorOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"ename":     o.Err.ErrName,
		"evalue":    o.Err.ErrValue,
		"traceback": o.Err.Traceback,
	})
}

func (o *ExecuteErrorOutput) UnmarshalJSON(data []byte) error {
	var raw ErrorInfo
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Err = raw
	return nil
}

// KernelStatus is the closed set of values a status output reports.
type KernelStatus string

const (
	KernelStatusBusy     KernelStatus = "busy"
	KernelStatusIdle     KernelStatus = "idle"
	KernelStatusStarting KernelStatus = "starting"
)

// KernelStatusOutput announces a change in the kernel's execution state.
// ExecuteRequest handling is bracketed by busy then idle; ShutdownRequest
// is not bracketed at all.
type KernelStatusOutput struct {
	Status KernelStatus
}

func (KernelStatusOutput) Tag() string   { return TagStatus }
func (KernelStatusOutput) kernelOutput() {}

func (o KernelStatusOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"execution_state": string(o.Status)})
}

func (o *KernelStatusOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		ExecutionState string `json:"execution_state"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Status = KernelStatus(raw.ExecutionState)
	return nil
}

// WaitBeforeClear indicates a frontend should hold the current output
// on screen until the next output arrives, rather than clearing right
// away.
type WaitBeforeClear bool

// ClearOutput asks the frontend to clear the cell's current output.
type ClearOutput struct {
	Wait WaitBeforeClear
}

func (ClearOutput) Tag() string   { return TagClearOutput }
func (ClearOutput) kernelOutput() {}

func (o ClearOutput) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"wait": bool(o.Wait)})
}

func (o *ClearOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Wait bool `json:"wait"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	o.Wait = WaitBeforeClear(raw.Wait)
	return nil
}

// DecodeKernelOutput decodes content according to msgType, returning the
// concrete KernelOutput variant. Unknown types yield
// ErrUnknownMessageType.
func DecodeKernelOutput(msgType string, content []byte) (KernelOutput, error) {
	var (
		out KernelOutput
		err error
	)

	switch msgType {
	case TagStream:
		var o StreamOutput
		err = json.Unmarshal(content, &o)
		out = o
	case TagDisplayData:
		var o DisplayDataOutput
		err = json.Unmarshal(content, &o)
		out = o
	case TagExecuteInput:
		var o ExecuteInputOutput
		err = json.Unmarshal(content, &o)
		out = o
	case TagExecuteResult:
		var o ExecuteResultOutput
		err = json.Unmarshal(content, &o)
		out = o
	case TagError:
		var o ExecuteErrorOutput
		err = json.Unmarshal(content, &o)
		out = o
	case TagStatus:
		var o KernelStatusOutput
		err = json.Unmarshal(content, &o)
		out = o
	case TagClearOutput:
		var o ClearOutput
		err = json.Unmarshal(content, &o)
		out = o
	default:
		return nil, ErrUnknownMessageType
	}

	if err != nil {
		return nil, newDecodeError(msgType, err)
	}
	return out, nil
}
