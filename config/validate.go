package config

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-multierror"
)

var methods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
}

// Validate reports every problem found, not only the first one.
func (s *Settings) Validate() error {
	var result *multierror.Error
	if s.BaseURL == "" {
		result = multierror.Append(result, fmt.Errorf("%w: base_url is empty", ErrInvalid))
	} else if u, err := url.Parse(s.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("%w: base_url %q is not an absolute url", ErrInvalid, s.BaseURL))
	}
	if s.DefaultTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("%w: default_timeout must be positive", ErrInvalid))
	}
	if s.DefaultRetryCount < 1 {
		result = multierror.Append(result, fmt.Errorf("%w: default_retry_count must be at least 1", ErrInvalid))
	}
	if !s.DataType.Valid() {
		result = multierror.Append(result, fmt.Errorf("%w: unknown data_type %q", ErrInvalid, s.DataType))
	}
	seen := make(map[string]int, len(s.Endpoints))
	for i, e := range s.Endpoints {
		if e.ID == "" {
			result = multierror.Append(result, fmt.Errorf("%w: endpoint #%d has no id", ErrInvalid, i))
			continue
		}
		if first, ok := seen[e.ID]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %q declared at #%d and #%d", ErrAmbiguous, e.ID, first, i))
		} else {
			seen[e.ID] = i
		}
		if _, ok := methods[e.HTTPMethod()]; !ok {
			result = multierror.Append(result, fmt.Errorf("%w: endpoint %q has unsupported method %q", ErrInvalid, e.ID, e.Method))
		}
		if e.DataType != "" && !e.DataType.Valid() {
			result = multierror.Append(result, fmt.Errorf("%w: endpoint %q has unknown data_type %q", ErrInvalid, e.ID, e.DataType))
		}
		if e.Timeout < 0 || e.RetryCount < 0 {
			result = multierror.Append(result, fmt.Errorf("%w: endpoint %q has negative timeout or retry_count", ErrInvalid, e.ID))
		}
	}
	return result.ErrorOrNil()
}
