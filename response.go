package ezapi

import "net/http"

// Sentinel response codes for failures that never got an http status.
const (
	CodeConnectionError = -1
	CodeCallError       = -2
)

// Response is the single terminal result of a logical request.
type Response[R any] struct {
	Success        bool
	ResponseCode   int
	FailureMessage string
	Kind           ErrorKind
	// Body is the decoded payload; zero when the server sent nothing parseable.
	Body      R
	Raw       []byte
	Header    http.Header
	Attempts  int
	RequestID string
	cause     error
}

// Err returns nil for a successful response and an *Error otherwise.
func (r *Response[R]) Err() error {
	if r.Success {
		return nil
	}
	return &Error{Kind: r.Kind, Code: r.ResponseCode, Message: r.FailureMessage, cause: r.cause}
}

func callError[R any](err error) *Response[R] {
	return &Response[R]{
		ResponseCode:   CodeCallError,
		FailureMessage: err.Error(),
		Kind:           KindCall,
		cause:          err,
	}
}
