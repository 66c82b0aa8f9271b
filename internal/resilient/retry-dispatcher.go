package resilient

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/RassulYunussov/ezapi/internal/dispatch"
)

type RetryDispatcher struct {
	dispatcher     Dispatcher
	logger         *slog.Logger
	backoffTimeout time.Duration
}

func CreateRetryDispatcher(dispatcher Dispatcher, logger *slog.Logger, retryParameters *RetryParameters) *RetryDispatcher {
	d := &RetryDispatcher{dispatcher: dispatcher, logger: logger} // default to immediate retry
	if retryParameters != nil {
		d.backoffTimeout = retryParameters.BackoffTimeout
	}
	return d
}

// Do makes at most maxAttempts physical attempts of a. The first success ends the
// loop; otherwise the last outcome is returned unchanged. The error is only set
// when ctx ended, in which case the outcome must not be reported.
func (d *RetryDispatcher) Do(ctx context.Context, maxAttempts int, a dispatch.Attempt, onProgress dispatch.ProgressFunc) (dispatch.Outcome, int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var outcome dispatch.Outcome
	attempts := 0
	for remaining := maxAttempts; remaining > 0; {
		remaining--
		attempts++
		outcome = d.dispatcher.Do(ctx, a, onProgress)
		switch outcome.Kind {
		case dispatch.Success:
			return outcome, attempts, nil
		case dispatch.Canceled:
			return outcome, attempts, outcome.Err
		}
		if remaining == 0 {
			break
		}
		d.logger.Debug("Retrying request",
			"endpoint", a.Resource,
			"attempt", attempts,
			"remaining", remaining,
			"result", outcome.Kind.String(),
			"status", outcome.StatusCode)
		if err := d.backoff(ctx, attempts); err != nil {
			return outcome, attempts, err
		}
	}
	return outcome, attempts, nil
}

// backoff waits step*BackoffTimeout plus up to 50% jitter.
func (d *RetryDispatcher) backoff(ctx context.Context, step int) error {
	if d.backoffTimeout <= 0 {
		return ctx.Err()
	}
	delay := int64(step) * int64(d.backoffTimeout)
	if half := delay >> 1; half > 0 {
		delay += rand.Int63n(half)
	}
	timer := time.NewTimer(time.Duration(delay))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
