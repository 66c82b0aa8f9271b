package cb

import (
	"log/slog"

	"github.com/sony/gobreaker/v2"
)

type circuitBreaker[T any, V any] struct {
	*gobreaker.CircuitBreaker[*V]
}

func (cb *circuitBreaker[T, V]) execute(f func(request *T) (*V, error), request *T) (*V, error) {
	return cb.CircuitBreaker.Execute(func() (*V, error) {
		return f(request)
	})
}

// newCircuitBreaker trips after params.ConsecutiveFailures failures in a row and
// logs every state transition of the endpoint's breaker.
func newCircuitBreaker[T any, V any](params *CircuitBreakerParameters, endpoint string, logger *slog.Logger) *circuitBreaker[T, V] {
	return &circuitBreaker[T, V]{
		CircuitBreaker: gobreaker.NewCircuitBreaker[*V](gobreaker.Settings{
			Name:        endpoint,
			MaxRequests: params.MaxRequests,
			Interval:    params.Interval,
			Timeout:     params.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= params.ConsecutiveFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Warn("Circuit breaker state changed", "endpoint", name, "from", from.String(), "to", to.String())
			},
		}),
	}
}
