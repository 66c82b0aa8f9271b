package common

import "net/http"

// HttpDoer is the transport the api client sends physical attempts through.
// *http.Client satisfies it.
// Timeouts are applied per attempt through the request context, so an
// implementation should not impose its own shorter deadline.
type HttpDoer interface {
	Do(r *http.Request) (*http.Response, error)
}
