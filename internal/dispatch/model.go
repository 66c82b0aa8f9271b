package dispatch

import (
	"net/http"
	"time"
)

// Kind classifies how a physical attempt ended.
type Kind uint8

const (
	// 2xx, or 304 for conditional requests
	Success Kind = iota
	// any other status, the server answered
	Failure
	// no response: network error, attempt timeout, open breaker, truncated body
	ConnectionError
	// the caller's context ended, nothing should be reported
	Canceled
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case Failure:
		return "failure"
	case ConnectionError:
		return "connection_error"
	case Canceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Attempt is everything needed to issue one physical request.
// The body is kept as bytes so the same attempt can be replayed.
type Attempt struct {
	Resource string
	Method   string
	URL      string
	Header   http.Header
	Body     []byte
	Timeout  time.Duration
}

type Outcome struct {
	Kind       Kind
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// ProgressFunc receives the transfer fraction in [0, 1].
type ProgressFunc func(fraction float64)

func isSuccessStatus(code int) bool {
	return (code >= http.StatusOK && code < http.StatusMultipleChoices) || code == http.StatusNotModified
}
