package message

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/nb-kernel/jupyter/id"
)

// KernelReply is the closed set of messages a kernel sends back in
// response to a ClientRequest, one variant per request variant, paired
// 1:1 by message type tag.
type KernelReply interface {
	Tagged
	kernelReply()
}

// ExecuteReplyOk is the payload of a successful execute_reply.
type ExecuteReplyOk struct {
	ExecutionCount int
}

// ExecuteReply answers an ExecuteRequest.
type ExecuteReply struct {
	Result OperationResult[ExecuteReplyOk]
}

func (ExecuteReply) Tag() string  { return TagExecuteReply }
func (ExecuteReply) kernelReply() {}

func (r ExecuteReply) MarshalJSON() ([]byte, error) {
	okFields, err := json.Marshal(map[string]interface{}{"execution_count": r.Result.Value.ExecutionCount})
	if err != nil {
		return nil, err
	}
	return marshalResult(r.Result.Status, okFields, r.Result.Err)
}

func (r *ExecuteReply) UnmarshalJSON(data []byte) error {
	env, err := unmarshalStatus(data)
	if err != nil {
		return err
	}

	var ok struct {
		ExecutionCount int `json:"execution_count"`
	}
	_ = json.Unmarshal(data, &ok)

	switch env.Status {
	case StatusOK:
		r.Result = OK(ExecuteReplyOk{ExecutionCount: ok.ExecutionCount})
	case StatusError:
		r.Result = ErrResult[ExecuteReplyOk](ErrorInfo{ErrName: env.ErrName, ErrValue: env.ErrValue, Traceback: env.Traceback})
	default:
		r.Result = AbortResult[ExecuteReplyOk]()
	}
	return nil
}

// InspectReplyOk is the payload of a successful inspect_reply.
type InspectReplyOk struct {
	Found bool
	Data  DisplayData
}

// InspectReply answers an InspectRequest.
type InspectReply struct {
	Result OperationResult[InspectReplyOk]
}

func (InspectReply) Tag() string  { return TagInspectReply }
func (InspectReply) kernelReply() {}

func (r InspectReply) MarshalJSON() ([]byte, error) {
	okMap := map[string]interface{}{"found": r.Result.Value.Found}
	r.Result.Value.Data.marshalInto(okMap)
	okFields, err := json.Marshal(okMap)
	if err != nil {
		return nil, err
	}
	return marshalResult(r.Result.Status, okFields, r.Result.Err)
}

func (r *InspectReply) UnmarshalJSON(data []byte) error {
	env, err := unmarshalStatus(data)
	if err != nil {
		return err
	}

	switch env.Status {
	case StatusOK:
		var raw struct {
			Found    bool            `json:"found"`
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
		r.Result = OK(InspectReplyOk{Found: raw.Found, Data: dd})
	case StatusError:
		r.Result = ErrResult[InspectReplyOk](ErrorInfo{ErrName: env.ErrName, ErrValue: env.ErrValue, Traceback: env.Traceback})
	default:
		r.Result = AbortResult[InspectReplyOk]()
	}
	return nil
}

// HistoryEntry is one line of execution history.
type HistoryEntry struct {
	Session    int
	LineNumber int
	Input      string
	Output     *string
}

// HistoryReplyOk is the payload of a successful history_reply.
type HistoryReplyOk struct {
	History []HistoryEntry
}

// HistoryReply answers a HistoryRequest.
type HistoryReply struct {
	Result OperationResult[HistoryReplyOk]
}

func (HistoryReply) Tag() string  { return TagHistoryReply }
func (HistoryReply) kernelReply() {}

type wireHistoryEntry [3]interface{}

func (r HistoryReply) MarshalJSON() ([]byte, error) {
	entries := make([]wireHistoryEntry, 0, len(r.Result.Value.History))
	for _, h := range r.Result.Value.History {
		var out interface{} = h.Input
		if h.Output != nil {
			out = [2]string{h.Input, *h.Output}
		}
		entries = append(entries, wireHistoryEntry{h.Session, h.LineNumber, out})
	}
	okFields, err := json.Marshal(map[string]interface{}{"history": entries})
	if err != nil {
		return nil, err
	}
	return marshalResult(r.Result.Status, okFields, r.Result.Err)
}

func (r *HistoryReply) UnmarshalJSON(data []byte) error {
	env, err := unmarshalStatus(data)
	if err != nil {
		return err
	}

	switch env.Status {
	case StatusOK:
		var raw struct {
			History []json.RawMessage `json:"history"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		entries := make([]HistoryEntry, 0, len(raw.History))
		for _, rawEntry := range raw.History {
			var tuple []json.RawMessage
			if err := json.Unmarshal(rawEntry, &tuple); err != nil || len(tuple) != 3 {
				continue
			}
			var session, line int
			_ = json.Unmarshal(tuple[0], &session)
			_ = json.Unmarshal(tuple[1], &line)

			entry := HistoryEntry{Session: session, LineNumber: line}
			var pair [2]string
			if err := json.Unmarshal(tuple[2], &pair); err == nil {
				entry.Input = pair[0]
				out := pair[1]
				entry.Output = &out
			} else {
				var input string
				_ = json.Unmarshal(tuple[2], &input)
				entry.Input = input
			}
			entries = append(entries, entry)
		}
		r.Result = OK(HistoryReplyOk{History: entries})
	case StatusError:
		r.Result = ErrResult[HistoryReplyOk](ErrorInfo{ErrName: env.ErrName, ErrValue: env.ErrValue, Traceback: env.Traceback})
	default:
		r.Result = AbortResult[HistoryReplyOk]()
	}
	return nil
}

// CompleteReplyOk is the payload of a successful complete_reply.
type CompleteReplyOk struct {
	Matches     []string
	CursorStart int
	CursorEnd   int
}

// CompleteReply answers a CompleteRequest.
type CompleteReply struct {
	Result OperationResult[CompleteReplyOk]
}

func (CompleteReply) Tag() string  { return TagCompleteReply }
func (CompleteReply) kernelReply() {}

func (r CompleteReply) MarshalJSON() ([]byte, error) {
	okFields, err := json.Marshal(map[string]interface{}{
		"matches":      r.Result.Value.Matches,
		"cursor_start": r.Result.Value.CursorStart,
		"cursor_end":   r.Result.Value.CursorEnd,
	})
	if err != nil {
		return nil, err
	}
	return marshalResult(r.Result.Status, okFields, r.Result.Err)
}

func (r *CompleteReply) UnmarshalJSON(data []byte) error {
	env, err := unmarshalStatus(data)
	if err != nil {
		return err
	}

	switch env.Status {
	case StatusOK:
		var raw struct {
			Matches     []string `json:"matches"`
			CursorStart int      `json:"cursor_start"`
			CursorEnd   int      `json:"cursor_end"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		r.Result = OK(CompleteReplyOk{Matches: raw.Matches, CursorStart: raw.CursorStart, CursorEnd: raw.CursorEnd})
	case StatusError:
		r.Result = ErrResult[CompleteReplyOk](ErrorInfo{ErrName: env.ErrName, ErrValue: env.ErrValue, Traceback: env.Traceback})
	default:
		r.Result = AbortResult[CompleteReplyOk]()
	}
	return nil
}

// IsCompleteResult is the closed set of answers to an
// is_complete_request. Unlike Execute/Inspect/Complete, this family does
// not use OperationResult: its "status" values are complete/incomplete/
// invalid/unknown, not ok/error/abort.
type IsCompleteResult interface {
	isCompleteTag() string
}

// CodeComplete means the code is a complete, executable statement.
type CodeComplete struct{}

func (CodeComplete) isCompleteTag() string { return "complete" }

// CodeIncomplete means more input is needed; Indent is the suggested
// indentation for the next line.
type CodeIncomplete struct {
	Indent string
}

func (CodeIncomplete) isCompleteTag() string { return "incomplete" }

// CodeInvalid means the code will never be valid, even with more input.
type CodeInvalid struct{}

func (CodeInvalid) isCompleteTag() string { return "invalid" }

// CodeUnknown means the kernel cannot determine completeness.
type CodeUnknown struct{}

func (CodeUnknown) isCompleteTag() string { return "unknown" }

// IsCompleteReply answers an IsCompleteRequest.
type IsCompleteReply struct {
	Result IsCompleteResult
}

func (IsCompleteReply) Tag() string  { return TagIsCompleteReply }
func (IsCompleteReply) kernelReply() {}

func (r IsCompleteReply) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"status": r.Result.isCompleteTag()}
	if inc, ok := r.Result.(CodeIncomplete); ok {
		out["indent"] = inc.Indent
	}
	return json.Marshal(out)
}

func (r *IsCompleteReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status string `json:"status"`
		Indent string `json:"indent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Status {
	case "complete":
		r.Result = CodeComplete{}
	case "incomplete":
		r.Result = CodeIncomplete{Indent: raw.Indent}
	case "invalid":
		r.Result = CodeInvalid{}
	case "unknown":
		r.Result = CodeUnknown{}
	default:
		return newDecodeError(TagIsCompleteReply, errors.New("message: unknown is_complete status: "+raw.Status))
	}
	return nil
}

// ConnectInfo is the set of ports a connect_reply reports.
type ConnectInfo struct {
	ShellPort int
	IOPubPort int
	StdinPort int
	HBPort    int
}

// ConnectReply answers a ConnectRequest.
type ConnectReply struct {
	Info ConnectInfo
}

func (ConnectReply) Tag() string  { return TagConnectReply }
func (ConnectReply) kernelReply() {}

func (r ConnectReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"shell_port": r.Info.ShellPort,
		"iopub_port": r.Info.IOPubPort,
		"stdin_port": r.Info.StdinPort,
		"hb_port":    r.Info.HBPort,
	})
}

func (r *ConnectReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		ShellPort int `json:"shell_port"`
		IOPubPort int `json:"iopub_port"`
		StdinPort int `json:"stdin_port"`
		HBPort    int `json:"hb_port"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Info = ConnectInfo{ShellPort: raw.ShellPort, IOPubPort: raw.IOPubPort, StdinPort: raw.StdinPort, HBPort: raw.HBPort}
	return nil
}

// CommInfoEntry describes one open comm in a comm_info_reply.
type CommInfoEntry struct {
	TargetName TargetName
}

// CommInfoReply answers a CommInfoRequest.
type CommInfoReply struct {
	Comms map[id.UUID]CommInfoEntry
}

func (CommInfoReply) Tag() string  { return TagCommInfoReply }
func (CommInfoReply) kernelReply() {}

func (r CommInfoReply) MarshalJSON() ([]byte, error) {
	comms := make(map[string]interface{}, len(r.Comms))
	for commID, entry := range r.Comms {
		comms[commID.String()] = map[string]interface{}{"target_name": string(entry.TargetName)}
	}
	return json.Marshal(map[string]interface{}{"comms": comms})
}

func (r *CommInfoReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Comms map[string]struct {
			TargetName string `json:"target_name"`
		} `json:"comms"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Comms = make(map[id.UUID]CommInfoEntry, len(raw.Comms))
	for k, v := range raw.Comms {
		r.Comms[id.UUID(k)] = CommInfoEntry{TargetName: TargetName(v.TargetName)}
	}
	return nil
}

// LanguageInfo describes the language a kernel executes.
type LanguageInfo struct {
	Name              string
	Version           string
	MimeType          string
	FileExtension     string
	PygmentsLexer     string
	CodemirrorMode    string
	NbconvertExporter string
}

// HelpLink is one entry of a kernel_info_reply's help_links.
type HelpLink struct {
	Text string
	URL  string
}

// KernelInfoReply answers a KernelInfoRequest, describing the kernel.
type KernelInfoReply struct {
	ProtocolVersion       string
	Implementation        string
	ImplementationVersion string
	LanguageInfo          LanguageInfo
	Banner                string
	HelpLinks             []HelpLink
}

func (KernelInfoReply) Tag() string  { return TagKernelInfoReply }
func (KernelInfoReply) kernelReply() {}

func (r KernelInfoReply) MarshalJSON() ([]byte, error) {
	links := make([]map[string]string, 0, len(r.HelpLinks))
	for _, l := range r.HelpLinks {
		links = append(links, map[string]string{"text": l.Text, "url": l.URL})
	}
	return json.Marshal(map[string]interface{}{
		"status":                 "ok",
		"protocol_version":       r.ProtocolVersion,
		"implementation":         r.Implementation,
		"implementation_version": r.ImplementationVersion,
		"language_info": map[string]interface{}{
			"name":               r.LanguageInfo.Name,
			"version":            r.LanguageInfo.Version,
			"mimetype":           r.LanguageInfo.MimeType,
			"file_extension":     r.LanguageInfo.FileExtension,
			"pygments_lexer":     r.LanguageInfo.PygmentsLexer,
			"codemirror_mode":    r.LanguageInfo.CodemirrorMode,
			"nbconvert_exporter": r.LanguageInfo.NbconvertExporter,
		},
		"banner":     r.Banner,
		"help_links": links,
	})
}

func (r *KernelInfoReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProtocolVersion       string `json:"protocol_version"`
		Implementation        string `json:"implementation"`
		ImplementationVersion string `json:"implementation_version"`
		LanguageInfo          struct {
			Name              string `json:"name"`
			Version           string `json:"version"`
			MimeType          string `json:"mimetype"`
			FileExtension     string `json:"file_extension"`
			PygmentsLexer     string `json:"pygments_lexer"`
			CodemirrorMode    string `json:"codemirror_mode"`
			NbconvertExporter string `json:"nbconvert_exporter"`
		} `json:"language_info"`
		Banner    string `json:"banner"`
		HelpLinks []struct {
			Text string `json:"text"`
			URL  string `json:"url"`
		} `json:"help_links"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.ProtocolVersion = raw.ProtocolVersion
	r.Implementation = raw.Implementation
	r.ImplementationVersion = raw.ImplementationVersion
	r.LanguageInfo = LanguageInfo{
		Name:              raw.LanguageInfo.Name,
		Version:           raw.LanguageInfo.Version,
		MimeType:          raw.LanguageInfo.MimeType,
		FileExtension:     raw.LanguageInfo.FileExtension,
		PygmentsLexer:     raw.LanguageInfo.PygmentsLexer,
		CodemirrorMode:    raw.LanguageInfo.CodemirrorMode,
		NbconvertExporter: raw.LanguageInfo.NbconvertExporter,
	}
	r.Banner = raw.Banner
	for _, l := range raw.HelpLinks {
		r.HelpLinks = append(r.HelpLinks, HelpLink{Text: l.Text, URL: l.URL})
	}
	return nil
}

// ShutdownReply answers a ShutdownRequest.
type ShutdownReply struct {
	Restart Restart
}

func (ShutdownReply) Tag() string  { return TagShutdownReply }
func (ShutdownReply) kernelReply() {}

func (r ShutdownReply) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{"status": "ok", "restart": bool(r.Restart)})
}

func (r *ShutdownReply) UnmarshalJSON(data []byte) error {
	var raw struct {
		Restart bool `json:"restart"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Restart = Restart(raw.Restart)
	return nil
}

// DecodeKernelReply decodes content according to msgType, returning the
// concrete KernelReply variant. Unknown types yield
// ErrUnknownMessageType.
func DecodeKernelReply(msgType string, content []byte) (KernelReply, error) {
	var (
		reply KernelReply
		err   error
	)

	switch msgType {
	case TagExecuteReply:
		var r ExecuteReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagInspectReply:
		var r InspectReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagHistoryReply:
		var r HistoryReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagCompleteReply:
		var r CompleteReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagIsCompleteReply:
		var r IsCompleteReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagConnectReply:
		var r ConnectReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagCommInfoReply:
		var r CommInfoReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagKernelInfoReply:
		var r KernelInfoReply
		err = json.Unmarshal(content, &r)
		reply = r
	case TagShutdownReply:
		var r ShutdownReply
		err = json.Unmarshal(content, &r)
		reply = r
	default:
		return nil, ErrUnknownMessageType
	}

	if err != nil {
		return nil, newDecodeError(msgType, err)
	}
	return reply, nil
}
