package noop

import (
	"net/http"

	"github.com/RassulYunussov/ezapi/common"
	local_common "github.com/RassulYunussov/ezapi/internal/common"
)

type noOpHttpClient struct {
	client common.HttpDoer
}

// CreateNoOpHttpClient wraps a doer without any resiliency policy.
// A nil doer falls back to a fresh *http.Client without a global timeout.
func CreateNoOpHttpClient(client common.HttpDoer) local_common.EnhancedHttpClient {
	if client == nil {
		client = &http.Client{}
	}
	return &noOpHttpClient{client: client}
}

func (c *noOpHttpClient) DoResourceRequest(resource string, r *http.Request) (*http.Response, error) {
	return c.client.Do(r)
}
