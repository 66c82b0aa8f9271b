package ezapi

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/RassulYunussov/ezapi/config"
	"github.com/RassulYunussov/ezapi/internal/dispatch"
	"github.com/RassulYunussov/ezapi/internal/encoding"
	ezlog "github.com/RassulYunussov/ezapi/internal/logger"
	"github.com/google/uuid"
)

// ProgressFunc receives the transfer fraction of the current attempt.
// It restarts from 0 on every retried attempt.
type ProgressFunc func(fraction float64)

// Hit sends req with payload and waits for the terminal response.
// Every outcome, call errors included, comes back as a Response; the error is
// only set when ctx ended first, and then no response exists.
func Hit[P, R any](ctx context.Context, c *Client, req Request, payload *P, onProgress ProgressFunc) (*Response[R], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	logger := ezlog.WithRequestID(c.logger, requestID).With("endpoint", req.Endpoint)

	endpoint, body, err := checkCall[P, R](c, req, payload, logger)
	if err != nil {
		logger.Warn("Api call rejected", "error", err)
		resp := callError[R](err)
		resp.RequestID = requestID
		return resp, nil
	}
	attempt, err := c.prepare(req, endpoint, body, requestID, logger)
	if err != nil {
		logger.Warn("Api call rejected", "error", err)
		resp := callError[R](err)
		resp.RequestID = requestID
		return resp, nil
	}

	outcome, attempts, err := c.dispatcher.Do(ctx, c.settings.RetryCountFor(endpoint), attempt, dispatch.ProgressFunc(onProgress))
	if err != nil {
		logger.Debug("Api call abandoned", "attempts", attempts, "error", err)
		return nil, err
	}
	resp := classify[R](outcome, logger)
	resp.Attempts = attempts
	resp.RequestID = requestID
	if resp.Success {
		logger.Debug("Api call succeeded", "status", resp.ResponseCode, "attempts", attempts)
	} else {
		logger.Warn("Api call failed",
			"kind", resp.Kind.String(),
			"code", resp.ResponseCode,
			"message", resp.FailureMessage,
			"attempts", attempts)
	}
	return resp, nil
}

// HitAsync runs Hit on its own goroutine. onResponse is called exactly once,
// or never when ctx ends before the terminal response.
func HitAsync[P, R any](ctx context.Context, c *Client, req Request, payload *P, onResponse func(*Response[R]), onProgress ProgressFunc) {
	go func() {
		resp, err := Hit[P, R](ctx, c, req, payload, onProgress)
		if err != nil {
			return
		}
		if onResponse != nil {
			onResponse(resp)
		}
	}()
}

// checkCall resolves the endpoint and matches P and R against its type tags.
// The returned body is nil when nothing must be sent.
func checkCall[P, R any](c *Client, req Request, payload *P, logger *slog.Logger) (config.Endpoint, any, error) {
	endpoint, err := c.registry.Resolve(req.Endpoint)
	if err != nil {
		return endpoint, nil, err
	}
	if endpoint.ResponseType != "" && !untyped[R]() && TypeName[R]() != endpoint.ResponseType {
		return endpoint, nil, fmt.Errorf("%w: expected %s has %s", ErrWrongResponseType, endpoint.ResponseType, TypeName[R]())
	}

	var body any
	if payload != nil {
		body = payload
	}
	switch endpoint.PayloadType {
	case "":
		return endpoint, body, nil
	case noneTag:
		if body != nil && TypeName[P]() != noneTag {
			logger.Warn("Endpoint takes no payload, sending none", "payload_type", TypeName[P]())
		}
		return endpoint, nil, nil
	}
	if body == nil {
		return endpoint, nil, fmt.Errorf("%w: expected %s has nil", ErrWrongPayloadType, endpoint.PayloadType)
	}
	if !untyped[P]() && TypeName[P]() != endpoint.PayloadType {
		return endpoint, nil, fmt.Errorf("%w: expected %s has %s", ErrWrongPayloadType, endpoint.PayloadType, TypeName[P]())
	}
	return endpoint, body, nil
}

// prepare turns a checked call into a replayable attempt.
func (c *Client) prepare(req Request, endpoint config.Endpoint, payload any, requestID string, logger *slog.Logger) (dispatch.Attempt, error) {
	dataType := req.DataType
	if dataType == "" {
		dataType = c.settings.DataTypeFor(endpoint)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = endpoint.ContentType
	}
	if contentType == "" {
		var ok bool
		if contentType, ok = c.settings.ContentTypeFor(dataType); !ok {
			logger.Warn("No content type for data type, using default", "data_type", dataType, "content_type", contentType)
		}
	}
	body, err := encoding.Body(dataType, payload)
	if err != nil {
		return dispatch.Attempt{}, err
	}
	target, err := buildURL(c.settings.BaseURL, endpoint.Path, req.PathParams, req.Query)
	if err != nil {
		return dispatch.Attempt{}, err
	}

	header := c.headers.Clone()
	for k, v := range req.Headers {
		header.Set(k, v)
	}
	header.Set("X-Request-ID", requestID)
	header.Set("Content-Type", contentType)

	return dispatch.Attempt{
		Resource: endpoint.ID,
		Method:   endpoint.HTTPMethod(),
		URL:      target,
		Header:   header,
		Body:     body,
		Timeout:  c.settings.TimeoutFor(endpoint),
	}, nil
}
