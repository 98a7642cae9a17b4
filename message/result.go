package message

import "encoding/json"

// ResultStatus is the "status" field shared by execute/inspect/complete
// replies.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
	StatusAbort ResultStatus = "abort"
)

// ErrorInfo is the error payload flattened into a reply when its
// OperationResult status is "error".
type ErrorInfo struct {
	ErrName   string   `json:"ename"`
	ErrValue  string   `json:"evalue"`
	Traceback []string `json:"traceback"`
}

// OperationResult is the closed Ok/Error/Abort outcome carried by
// execute_reply, inspect_reply, and complete_reply. Exactly one of Value
// or Err is meaningful, selected by Status.
type OperationResult[T any] struct {
	Status ResultStatus
	Value  T
	Err    ErrorInfo
}

// OK builds an Ok-status result carrying v.
func OK[T any](v T) OperationResult[T] {
	return OperationResult[T]{Status: StatusOK, Value: v}
}

// ErrResult builds an Error-status result carrying e.
func ErrResult[T any](e ErrorInfo) OperationResult[T] {
	return OperationResult[T]{Status: StatusError, Err: e}
}

// AbortResult builds an Abort-status result.
func AbortResult[T any]() OperationResult[T] {
	return OperationResult[T]{Status: StatusAbort}
}

// marshalResult flattens status plus, on ok, the fields of okFields
// (already marshaled to a JSON object), or on error, ename/evalue/
// traceback, or on abort, nothing else.
func marshalResult(status ResultStatus, okFields json.RawMessage, errInfo ErrorInfo) ([]byte, error) {
	out := map[string]interface{}{"status": string(status)}

	switch status {
	case StatusOK:
		var extra map[string]interface{}
		if len(okFields) > 0 {
			if err := json.Unmarshal(okFields, &extra); err != nil {
				return nil, err
			}
		}
		for k, v := range extra {
			out[k] = v
		}
	case StatusError:
		out["ename"] = errInfo.ErrName
		out["evalue"] = errInfo.ErrValue
		out["traceback"] = errInfo.Traceback
	case StatusAbort:
		// no additional fields
	}

	return json.Marshal(out)
}

// statusEnvelope is used to read back the "status" (and, on error, the
// ErrorInfo fields) discriminator before decoding the ok-specific shape.
type statusEnvelope struct {
	Status    ResultStatus `json:"status"`
	ErrName   string       `json:"ename"`
	ErrValue  string       `json:"evalue"`
	Traceback []string     `json:"traceback"`
}

func unmarshalStatus(data []byte) (statusEnvelope, error) {
	var env statusEnvelope
	err := json.Unmarshal(data, &env)
	return env, err
}
