package common

import "net/http"

// Common interface for all decorators
type EnhancedHttpClient interface {
	// resource is the endpoint id, used to separate circuit breakers
	DoResourceRequest(resource string, r *http.Request) (*http.Response, error)
}
