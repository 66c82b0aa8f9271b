package dispatch

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/RassulYunussov/ezapi/internal/common"
)

const DefaultProgressInterval = 50 * time.Millisecond

// Dispatcher issues exactly one physical request per call to Do.
type Dispatcher struct {
	client   common.EnhancedHttpClient
	logger   *slog.Logger
	interval time.Duration
}

func New(client common.EnhancedHttpClient, logger *slog.Logger, progressInterval time.Duration) *Dispatcher {
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}
	return &Dispatcher{client: client, logger: logger, interval: progressInterval}
}

func (d *Dispatcher) Do(ctx context.Context, a Attempt, onProgress ProgressFunc) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Kind: Canceled, Err: err}
	}
	attemptCtx, cancel := ctx, context.CancelFunc(func() {})
	if a.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, a.Timeout)
	}
	defer cancel()

	var body io.Reader
	if len(a.Body) > 0 {
		body = bytes.NewReader(a.Body)
	}
	r, err := http.NewRequestWithContext(attemptCtx, a.Method, a.URL, body)
	if err != nil {
		return Outcome{Kind: ConnectionError, Err: err}
	}
	if a.Header != nil {
		r.Header = a.Header.Clone()
	}

	d.logger.Debug("Sending request", "method", a.Method, "url", a.URL, "body_length", len(a.Body))
	p := newProgress(onProgress, d.interval)
	p.start()
	o := d.do(ctx, r, a.Resource, p)
	p.stop(o.Kind == Success || o.Kind == Failure)
	d.logger.Debug("Request finished", "method", a.Method, "url", a.URL, "result", o.Kind.String(), "status", o.StatusCode, "error", o.Err)
	return o
}

func (d *Dispatcher) do(ctx context.Context, r *http.Request, resource string, p *progress) Outcome {
	resp, err := d.client.DoResourceRequest(resource, r)
	if err != nil {
		return transportFailure(ctx, err)
	}
	defer resp.Body.Close()
	p.expect(resp.ContentLength)
	data, err := io.ReadAll(&countingReader{r: resp.Body, p: p})
	if err != nil {
		return transportFailure(ctx, err)
	}
	kind := Failure
	if isSuccessStatus(resp.StatusCode) {
		kind = Success
	}
	return Outcome{Kind: kind, StatusCode: resp.StatusCode, Header: resp.Header, Body: data}
}

// transportFailure separates the caller giving up from the network failing us.
func transportFailure(ctx context.Context, err error) Outcome {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{Kind: Canceled, Err: ctxErr}
	}
	return Outcome{Kind: ConnectionError, Err: err}
}
