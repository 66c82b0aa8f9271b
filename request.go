package ezapi

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/RassulYunussov/ezapi/config"
)

// Request names the endpoint and carries the per-call extras.
// Empty DataType / ContentType fall back to the endpoint, then to the global defaults.
type Request struct {
	Endpoint    string
	Headers     map[string]string
	Query       map[string]string
	PathParams  map[string]string
	DataType    config.DataType
	ContentType string
}

var placeholder = regexp.MustCompile(`\{([^{}/]+)\}`)

// buildURL joins the base url and the endpoint path, fills {name} placeholders and appends the query.
func buildURL(baseURL, path string, pathParams, query map[string]string) (string, error) {
	var missing []string
	path = placeholder.ReplaceAllStringFunc(path, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := pathParams[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return url.PathEscape(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingPathParam, strings.Join(missing, ", "))
	}

	full := baseURL
	if path != "" {
		full = strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		sep := "?"
		if strings.Contains(full, "?") {
			sep = "&"
		}
		full += sep + values.Encode()
	}
	if _, err := url.Parse(full); err != nil {
		return "", err
	}
	return full, nil
}
