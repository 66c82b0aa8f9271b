package cb

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/RassulYunussov/ezapi/internal/common"
	"github.com/sony/gobreaker/v2"
)

type circuitBreakerBackedHttpClient struct {
	client          common.EnhancedHttpClient
	parameters      CircuitBreakerParameters
	logger          *slog.Logger
	circuitBreakers sync.Map
}

// CreateCircuitBreakerHttpClient decorates client with one breaker per endpoint.
// Without parameters the client is returned as is.
func CreateCircuitBreakerHttpClient(client common.EnhancedHttpClient, circuitBreakerParameters *CircuitBreakerParameters, logger *slog.Logger) common.EnhancedHttpClient {
	if circuitBreakerParameters == nil {
		return client
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &circuitBreakerBackedHttpClient{
		client:     client,
		parameters: *circuitBreakerParameters,
		logger:     logger,
	}
}

// IsBreakerError reports whether err was produced by a breaker refusing the request.
func IsBreakerError(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (c *circuitBreakerBackedHttpClient) DoResourceRequest(resource string, r *http.Request) (*http.Response, error) {
	cb := c.getCircuitBreaker(resource)
	resp, err := cb.execute(func(r *http.Request) (*http.Response, error) {
		return c.do(resource, r)
	}, r)
	var e *circuitBreakerErrorWrapper[*http.Response]
	if errors.As(err, &e) {
		return e.wrapped, nil
	}
	return resp, err
}

func (c *circuitBreakerBackedHttpClient) getCircuitBreaker(resource string) *circuitBreaker[http.Request, http.Response] {
	if cb, ok := c.circuitBreakers.Load(resource); ok {
		return cb.(*circuitBreaker[http.Request, http.Response])
	}
	cb, _ := c.circuitBreakers.LoadOrStore(resource, newCircuitBreaker[http.Request, http.Response](&c.parameters, resource, c.logger))
	return cb.(*circuitBreaker[http.Request, http.Response])
}

func (c *circuitBreakerBackedHttpClient) do(resource string, r *http.Request) (*http.Response, error) {
	resp, err := c.client.DoResourceRequest(resource, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusInternalServerError {
		return resp, nil
	}
	return nil, &circuitBreakerErrorWrapper[*http.Response]{
		wrapped: resp,
	}
}
