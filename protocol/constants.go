package protocol

// Standard JSON-RPC error codes. DevTools endpoints report command failures
// with these codes plus CodeServerError for domain-specific rejections.
const (
	CodeParseError     int64 = -32700
	CodeInvalidRequest int64 = -32600
	CodeMethodNotFound int64 = -32601
	CodeInvalidParams  int64 = -32602
	CodeInternalError  int64 = -32603
	CodeServerError    int64 = -32000
)

// Values used when a peer sends an error object without a usable code or
// message.
const (
	UnknownErrorCode    int64 = -1
	UnknownErrorMessage       = "Unknown error"
)
