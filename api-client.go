package ezapi

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/RassulYunussov/ezapi/common"
	"github.com/RassulYunussov/ezapi/config"
	"github.com/RassulYunussov/ezapi/internal/cb"
	"github.com/RassulYunussov/ezapi/internal/dispatch"
	"github.com/RassulYunussov/ezapi/internal/noop"
	"github.com/RassulYunussov/ezapi/internal/registry"
	"github.com/RassulYunussov/ezapi/internal/resilient"
)

// Client sends requests to the endpoints described by its settings.
// It holds no per-request state and is safe for concurrent use.
type Client struct {
	settings   *config.Settings
	registry   *registry.Registry
	dispatcher *resilient.RetryDispatcher
	logger     *slog.Logger
	headers    http.Header
}

// Option tunes a client built by Create.
type Option = func(*apiClientCreationParameters) *apiClientCreationParameters

// Create validates settings and builds a client.
// Per-endpoint timeout, retry count and encoding come from settings; opts tune the transport.
func Create(settings *config.Settings, opts ...Option) (*Client, error) {
	if settings == nil {
		return nil, errors.New("ezapi: settings are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("ezapi: %w", err)
	}
	reg, err := registry.New(settings.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("ezapi: %w", err)
	}
	params := &apiClientCreationParameters{headers: http.Header{}}
	for _, o := range opts {
		params = o(params)
	}
	logger := params.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	headers := params.headers.Clone()
	if settings.BearerToken != "" && headers.Get("Authorization") == "" {
		headers.Set("Authorization", "Bearer "+settings.BearerToken)
	}

	httpClient := cb.CreateCircuitBreakerHttpClient(noop.CreateNoOpHttpClient(params.httpClient), params.circuitBreakerParameters, logger)
	single := dispatch.New(httpClient, logger, params.progressInterval)
	return &Client{
		settings:   settings,
		registry:   reg,
		dispatcher: resilient.CreateRetryDispatcher(single, logger, params.retryParameters),
		logger:     logger,
		headers:    headers,
	}, nil
}

// Endpoints lists the configured endpoint ids.
func (c *Client) Endpoints() []string {
	return c.registry.IDs()
}

// Add a growing delay between retried attempts: n*backoffTimeout plus up to 50% jitter.
// Without it retries are immediate.
func WithBackoff(backoffTimeout time.Duration) func(h *apiClientCreationParameters) *apiClientCreationParameters {
	return func(h *apiClientCreationParameters) *apiClientCreationParameters {
		retryParameters := new(resilient.RetryParameters)
		retryParameters.BackoffTimeout = backoffTimeout
		h.retryParameters = retryParameters
		return h
	}
}

// Apply circuit breaker policy, one breaker per endpoint.
// https://github.com/sony/gobreaker
func WithCircuitBreaker(maxRequests uint32,
	consecutiveFailures uint32,
	interval time.Duration,
	timeout time.Duration) func(h *apiClientCreationParameters) *apiClientCreationParameters {
	return func(h *apiClientCreationParameters) *apiClientCreationParameters {
		circuitBreakerParameters := new(cb.CircuitBreakerParameters)
		circuitBreakerParameters.MaxRequests = maxRequests
		circuitBreakerParameters.ConsecutiveFailures = consecutiveFailures
		circuitBreakerParameters.Interval = interval
		circuitBreakerParameters.Timeout = timeout
		h.circuitBreakerParameters = circuitBreakerParameters
		return h
	}
}

func WithLogger(logger *slog.Logger) func(h *apiClientCreationParameters) *apiClientCreationParameters {
	return func(h *apiClientCreationParameters) *apiClientCreationParameters {
		h.logger = logger
		return h
	}
}

// Send physical attempts through client instead of a default *http.Client.
func WithHttpClient(client common.HttpDoer) func(h *apiClientCreationParameters) *apiClientCreationParameters {
	return func(h *apiClientCreationParameters) *apiClientCreationParameters {
		h.httpClient = client
		return h
	}
}

// How often progress listeners are polled while a transfer runs.
func WithProgressInterval(interval time.Duration) func(h *apiClientCreationParameters) *apiClientCreationParameters {
	return func(h *apiClientCreationParameters) *apiClientCreationParameters {
		h.progressInterval = interval
		return h
	}
}

// Header sent with every request; request headers override it.
func WithHeader(key, value string) func(h *apiClientCreationParameters) *apiClientCreationParameters {
	return func(h *apiClientCreationParameters) *apiClientCreationParameters {
		h.headers.Set(key, value)
		return h
	}
}
