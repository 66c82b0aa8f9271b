package ezapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/RassulYunussov/ezapi/common"
	"github.com/RassulYunussov/ezapi/internal/cb"
	"github.com/RassulYunussov/ezapi/internal/resilient"
)

type apiClientCreationParameters struct {
	retryParameters          *resilient.RetryParameters
	circuitBreakerParameters *cb.CircuitBreakerParameters
	httpClient               common.HttpDoer
	logger                   *slog.Logger
	progressInterval         time.Duration
	headers                  http.Header
}
