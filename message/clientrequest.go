package message

import (
	"encoding/json"
)

// CodeBlock is a span of source code as sent in an execute/inspect/
// complete/is-complete request.
type CodeBlock string

// TargetName identifies a comm target.
type TargetName string

// TargetModule optionally names the module that defines a comm target,
// for frontends that need to dynamically load it.
type TargetModule string

// Restart indicates whether a shutdown is actually a restart.
type Restart bool

// DetailLevel selects how much detail an inspect_request wants back.
type DetailLevel int

const (
	DetailLow  DetailLevel = 0
	DetailHigh DetailLevel = 1
)

// ClientRequest is the closed set of messages a client sends a kernel on
// the shell or control channel.
type ClientRequest interface {
	Tagged
	clientRequest()
}

// ExecuteOptions are the non-code fields of an execute_request.
type ExecuteOptions struct {
	Silent       bool
	StoreHistory bool
	AllowStdin   bool
	StopOnError  bool
}

// ExecuteRequest asks the kernel to execute a block of code.
type ExecuteRequest struct {
	Code    CodeBlock
	Options ExecuteOptions
}

func (ExecuteRequest) Tag() string    { return TagExecuteRequest }
func (ExecuteRequest) clientRequest() {}

func (r ExecuteRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"code":             string(r.Code),
		"silent":           r.Options.Silent,
		"store_history":    r.Options.StoreHistory,
		"user_expressions": map[string]interface{}{},
		"allow_stdin":      r.Options.AllowStdin,
		"stop_on_error":    r.Options.StopOnError,
	})
}

func (r *ExecuteRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code         string `json:"code"`
		Silent       bool   `json:"silent"`
		StoreHistory bool   `json:"store_history"`
		AllowStdin   bool   `json:"allow_stdin"`
		StopOnError  bool   `json:"stop_on_error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Code = CodeBlock(raw.Code)
	r.Options = ExecuteOptions{
		Silent:       raw.Silent,
		StoreHistory: raw.StoreHistory,
		AllowStdin:   raw.AllowStdin,
		StopOnError:  raw.StopOnError,
	}
	return nil
}

// InspectRequest asks the kernel to introspect the code at CursorPos.
type InspectRequest struct {
	Code      CodeBlock
	CursorPos int
	Detail    DetailLevel
}

func (InspectRequest) Tag() string    { return TagInspectRequest }
func (InspectRequest) clientRequest() {}

func (r InspectRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"code":         string(r.Code),
		"cursor_pos":   r.CursorPos,
		"detail_level": int(r.Detail),
	})
}

func (r *InspectRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code      string `json:"code"`
		CursorPos int    `json:"cursor_pos"`
		DetailLvl int    `json:"detail_level"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Code = CodeBlock(raw.Code)
	r.CursorPos = raw.CursorPos
	r.Detail = DetailLevel(raw.DetailLvl)
	return nil
}

// HistoryAccessType is the closed set of ways a history_request selects
// which history entries it wants.
type HistoryAccessType interface {
	accessTag() string
}

// HistoryRange selects a contiguous range of a session's history.
type HistoryRange struct {
	Session int
	Start   int
	Stop    int
}

func (HistoryRange) accessTag() string { return "range" }

// HistoryTail selects the last N history entries.
type HistoryTail struct {
	N int
}

func (HistoryTail) accessTag() string { return "tail" }

// HistorySearch selects history entries matching a glob pattern.
type HistorySearch struct {
	N       int
	Pattern string
	Unique  bool
}

func (HistorySearch) accessTag() string { return "search" }

// HistoryOptions are the fields of a history_request common to every
// HistoryAccessType, plus the discriminated access selector itself.
type HistoryOptions struct {
	Output bool
	Raw    bool
	Access HistoryAccessType
}

// HistoryRequest asks the kernel for past execution history.
type HistoryRequest struct {
	Options HistoryOptions
}

func (HistoryRequest) Tag() string    { return TagHistoryRequest }
func (HistoryRequest) clientRequest() {}

func (r HistoryRequest) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"output":           r.Options.Output,
		"raw":              r.Options.Raw,
		"hist_access_type": r.Options.Access.accessTag(),
	}
	switch a := r.Options.Access.(type) {
	case HistoryRange:
		out["session"] = a.Session
		out["start"] = a.Start
		out["stop"] = a.Stop
	case HistoryTail:
		out["n"] = a.N
	case HistorySearch:
		out["n"] = a.N
		out["pattern"] = a.Pattern
		out["unique"] = a.Unique
	}
	return json.Marshal(out)
}

func (r *HistoryRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Output    bool   `json:"output"`
		Raw       bool   `json:"raw"`
		AccessTyp string `json:"hist_access_type"`
		Session   int    `json:"session"`
		Start     int    `json:"start"`
		Stop      int    `json:"stop"`
		N         int    `json:"n"`
		Pattern   string `json:"pattern"`
		Unique    bool   `json:"unique"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var access HistoryAccessType
	switch raw.AccessTyp {
	case "range":
		access = HistoryRange{Session: raw.Session, Start: raw.Start, Stop: raw.Stop}
	case "tail":
		access = HistoryTail{N: raw.N}
	case "search":
		access = HistorySearch{N: raw.N, Pattern: raw.Pattern, Unique: raw.Unique}
	default:
		return newDecodeError(TagHistoryRequest, errUnknownHistAccessType(raw.AccessTyp))
	}

	r.Options = HistoryOptions{Output: raw.Output, Raw: raw.Raw, Access: access}
	return nil
}

type histAccessTypeError string

func (e histAccessTypeError) Error() string { return "message: unknown hist_access_type: " + string(e) }

func errUnknownHistAccessType(s string) error { return histAccessTypeError(s) }

// CompleteRequest asks the kernel for completion candidates at CursorPos.
type CompleteRequest struct {
	Code      CodeBlock
	CursorPos int
}

func (CompleteRequest) Tag() string    { return TagCompleteRequest }
func (CompleteRequest) clientRequest() {}

func (r CompleteRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"code":       string(r.Code),
		"cursor_pos": r.CursorPos,
	})
}

func (r *CompleteRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code      string `json:"code"`
		CursorPos int    `json:"cursor_pos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Code = CodeBlock(raw.Code)
	r.CursorPos = raw.CursorPos
	return nil
}

// IsCompleteRequest asks the kernel whether Code is a complete statement.
type IsCompleteRequest struct {
	Code CodeBlock
}

func (IsCompleteRequest) Tag() string    { return TagIsCompleteRequest }
func (IsCompleteRequest) clientRequest() {}

func (r IsCompleteRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"code": string(r.Code)})
}

func (r *IsCompleteRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Code = CodeBlock(raw.Code)
	return nil
}

// ConnectRequest asks the kernel for the ports it is listening on.
type ConnectRequest struct{}

func (ConnectRequest) Tag() string    { return TagConnectRequest }
func (ConnectRequest) clientRequest() {}

func (r ConnectRequest) MarshalJSON() ([]byte, error) { return []byte("{}"), nil }

func (r *ConnectRequest) UnmarshalJSON([]byte) error { return nil }

// CommInfoRequest asks the kernel which comms are open, optionally
// filtered to a single target name.
type CommInfoRequest struct {
	TargetName *TargetName
}

func (CommInfoRequest) Tag() string    { return TagCommInfoRequest }
func (CommInfoRequest) clientRequest() {}

func (r CommInfoRequest) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{}
	if r.TargetName != nil {
		out["target_name"] = string(*r.TargetName)
	}
	return json.Marshal(out)
}

func (r *CommInfoRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		TargetName *string `json:"target_name"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.TargetName != nil {
		t := TargetName(*raw.TargetName)
		r.TargetName = &t
	}
	return nil
}

// KernelInfoRequest asks the kernel to describe itself.
type KernelInfoRequest struct{}

func (KernelInfoRequest) Tag() string    { return TagKernelInfoRequest }
func (KernelInfoRequest) clientRequest() {}

func (r KernelInfoRequest) MarshalJSON() ([]byte, error) { return []byte("{}"), nil }

func (r *KernelInfoRequest) UnmarshalJSON([]byte) error { return nil }

// ShutdownRequest asks the kernel to shut down, optionally for restart.
type ShutdownRequest struct {
	Restart Restart
}

func (ShutdownRequest) Tag() string    { return TagShutdownRequest }
func (ShutdownRequest) clientRequest() {}

func (r ShutdownRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"restart": bool(r.Restart)})
}

func (r *ShutdownRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Restart bool `json:"restart"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Restart = Restart(raw.Restart)
	return nil
}

// DecodeClientRequest decodes content according to msgType, returning
// the concrete ClientRequest variant. Unknown types yield
// ErrUnknownMessageType.
func DecodeClientRequest(msgType string, content []byte) (ClientRequest, error) {
	var (
		req ClientRequest
		err error
	)

	switch msgType {
	case TagExecuteRequest:
		var r ExecuteRequest
		err = json.Unmarshal(content, &r)
		req = r
	case TagInspectRequest:
		var r InspectRequest
		err = json.Unmarshal(content, &r)
		req = r
	case TagHistoryRequest:
		var r HistoryRequest
		err = json.Unmarshal(content, &r)
		req = r
	case TagCompleteRequest:
		var r CompleteRequest
		err = json.Unmarshal(content, &r)
		req = r
	case TagIsCompleteRequest:
		var r IsCompleteRequest
		err = json.Unmarshal(content, &r)
		req = r
	case TagConnectRequest:
		req = ConnectRequest{}
	case TagCommInfoRequest:
		var r CommInfoRequest
		err = json.Unmarshal(content, &r)
		req = r
	case TagKernelInfoRequest:
		req = KernelInfoRequest{}
	case TagShutdownRequest:
		var r ShutdownRequest
		err = json.Unmarshal(content, &r)
		req = r
	default:
		return nil, ErrUnknownMessageType
	}

	if err != nil {
		return nil, newDecodeError(msgType, err)
	}
	return req, nil
}
