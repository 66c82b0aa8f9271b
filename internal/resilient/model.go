package resilient

import (
	"context"
	"time"

	"github.com/RassulYunussov/ezapi/internal/dispatch"
)

type RetryParameters struct {
	// zero keeps retries immediate
	BackoffTimeout time.Duration
}

// Dispatcher is the single-attempt sender being retried.
type Dispatcher interface {
	Do(ctx context.Context, a dispatch.Attempt, onProgress dispatch.ProgressFunc) dispatch.Outcome
}
