package ezapi

import (
	"errors"
	"fmt"

	"github.com/RassulYunussov/ezapi/internal/registry"
)

// ErrorKind tells which class of failure a response carries.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	// no response from the network layer, code -1
	KindConnection
	// the server answered with a non-2xx status, code is that status
	KindProtocol
	// the call itself is wrong for the endpoint, code -2, never retried
	KindCall
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindConnection:
		return "connection_error"
	case KindProtocol:
		return "protocol_error"
	case KindCall:
		return "call_error"
	default:
		return "unknown"
	}
}

var (
	ErrConnection = errors.New("connection error")
	ErrProtocol   = errors.New("backend failure")
	ErrCall       = errors.New("api call error")

	ErrNotFound          = registry.ErrNotFound
	ErrWrongPayloadType  = errors.New("wrong payload type")
	ErrWrongResponseType = errors.New("wrong response type")
	ErrMissingPathParam  = errors.New("missing path parameter")
)

// errParse only reaches the log: unparseable bodies leave a zero Body.
var errParse = errors.New("response body not parseable")

// Error is the error form of a failed Response.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	switch e.Kind {
	case KindConnection:
		errs = append(errs, ErrConnection)
	case KindProtocol:
		errs = append(errs, ErrProtocol)
	case KindCall:
		errs = append(errs, ErrCall)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

func IsProtocolError(err error) bool {
	return errors.Is(err, ErrProtocol)
}

func IsCallError(err error) bool {
	return errors.Is(err, ErrCall)
}
