package ezapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/RassulYunussov/ezapi/internal/cb"
	"github.com/RassulYunussov/ezapi/internal/dispatch"
)

// classify turns the last physical outcome into the caller's response.
// Parse failures stop here: they are logged and leave a zero Body.
func classify[R any](o dispatch.Outcome, logger *slog.Logger) *Response[R] {
	resp := &Response[R]{ResponseCode: o.StatusCode, Header: o.Header, Raw: o.Body}
	switch o.Kind {
	case dispatch.Success:
		resp.Success = true
		if err := decodeBody(o.Body, &resp.Body); err != nil {
			var zero R
			resp.Body = zero
			logger.Warn("Response body not parseable", "status", o.StatusCode, "error", err)
		}
	case dispatch.Failure:
		resp.Kind = KindProtocol
		resp.FailureMessage = fmt.Sprintf("failed from backend: %d %s", o.StatusCode, http.StatusText(o.StatusCode))
		if err := decodeBody(o.Body, &resp.Body); err != nil {
			var zero R
			resp.Body = zero
			logger.Warn("Failure body not parseable", "status", o.StatusCode, "error", err)
		}
	default:
		resp.Kind = KindConnection
		resp.ResponseCode = CodeConnectionError
		resp.FailureMessage = connectionMessage(o.Err)
		resp.cause = o.Err
	}
	return resp
}

func decodeBody[R any](body []byte, out *R) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", errParse, err)
	}
	return nil
}

func connectionMessage(err error) string {
	switch {
	case err == nil:
		return "unknown error"
	case cb.IsBreakerError(err):
		return "circuit breaker refused request: " + err.Error()
	default:
		return err.Error()
	}
}
