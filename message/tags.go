package message

// Wire msg_type tags, one per message variant.
const (
	TagExecuteRequest    = "execute_request"
	TagInspectRequest    = "inspect_request"
	TagHistoryRequest    = "history_request"
	TagCompleteRequest   = "complete_request"
	TagIsCompleteRequest = "is_complete_request"
	TagConnectRequest    = "connect_request"
	TagCommInfoRequest   = "comm_info_request"
	TagKernelInfoRequest = "kernel_info_request"
	TagShutdownRequest   = "shutdown_request"

	TagExecuteReply    = "execute_reply"
	TagInspectReply    = "inspect_reply"
	TagHistoryReply    = "history_reply"
	TagCompleteReply   = "complete_reply"
	TagIsCompleteReply = "is_complete_reply"
	TagConnectReply    = "connect_reply"
	TagCommInfoReply   = "comm_info_reply"
	TagKernelInfoReply = "kernel_info_reply"
	TagShutdownReply   = "shutdown_reply"

	TagStream        = "stream"
	TagDisplayData   = "display_data"
	TagExecuteInput  = "execute_input"
	TagExecuteResult = "execute_result"
	TagError         = "error"
	TagStatus        = "status"
	TagClearOutput   = "clear_output"

	TagInputRequest = "input_request"
	TagInputReply   = "input_reply"

	TagCommOpen  = "comm_open"
	TagCommClose = "comm_close"
	TagCommMsg   = "comm_msg"
)

// replyTagOf maps a ClientRequest tag to its KernelReply counterpart.
var replyTagOf = map[string]string{
	TagExecuteRequest:    TagExecuteReply,
	TagInspectRequest:    TagInspectReply,
	TagHistoryRequest:    TagHistoryReply,
	TagCompleteRequest:   TagCompleteReply,
	TagIsCompleteRequest: TagIsCompleteReply,
	TagConnectRequest:    TagConnectReply,
	TagCommInfoRequest:   TagCommInfoReply,
	TagKernelInfoRequest: TagKernelInfoReply,
	TagShutdownRequest:   TagShutdownReply,
}

// ReplyTagFor returns the _reply counterpart of a ClientRequest's wire
// tag, and false if requestTag is not a known request tag.
func ReplyTagFor(requestTag string) (string, bool) {
	t, ok := replyTagOf[requestTag]
	return t, ok
}
