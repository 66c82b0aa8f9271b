// Package config describes where the api lives and how each endpoint is called.
package config

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalid   = errors.New("invalid api settings")
	ErrAmbiguous = errors.New("ambiguous endpoint id")
)

const (
	DefaultContentType = "application/json"
	FormContentType    = "application/x-www-form-urlencoded"

	defaultTimeout    = 15 * time.Second
	defaultRetryCount = 1
)

// DataType selects how a payload is put on the wire.
type DataType string

const (
	DataTypeJSON DataType = "json"
	DataTypeForm DataType = "form"
)

func (d DataType) Valid() bool {
	return d == DataTypeJSON || d == DataTypeForm
}

func (d *DataType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	*d = DataType(strings.ToLower(strings.TrimSpace(s)))
	return nil
}

// Endpoint is the static description of one logical api call.
// Zero-valued overrides fall back to the global defaults of Settings.
type Endpoint struct {
	ID           string        `yaml:"id"`
	Path         string        `yaml:"path"`
	Method       string        `yaml:"method,omitempty"`
	PayloadType  string        `yaml:"payload_type,omitempty"`
	ResponseType string        `yaml:"response_type,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty"`
	RetryCount   int           `yaml:"retry_count,omitempty"`
	DataType     DataType      `yaml:"data_type,omitempty"`
	ContentType  string        `yaml:"content_type,omitempty"`
}

// HTTPMethod returns the upper-cased method, GET when none is configured.
func (e Endpoint) HTTPMethod() string {
	if e.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(e.Method)
}

type Settings struct {
	BaseURL           string              `yaml:"base_url"`
	BearerToken       string              `yaml:"bearer_token,omitempty"`
	DefaultTimeout    time.Duration       `yaml:"default_timeout"`
	DefaultRetryCount int                 `yaml:"default_retry_count"`
	DataType          DataType            `yaml:"data_type"`
	ContentTypes      map[DataType]string `yaml:"content_types,omitempty"`
	Endpoints         []Endpoint          `yaml:"endpoints"`
}

// Default returns settings with every global default populated and no endpoints.
func Default() *Settings {
	return &Settings{
		DefaultTimeout:    defaultTimeout,
		DefaultRetryCount: defaultRetryCount,
		DataType:          DataTypeJSON,
		ContentTypes: map[DataType]string{
			DataTypeJSON: DefaultContentType,
			DataTypeForm: FormContentType,
		},
	}
}

func (s *Settings) TimeoutFor(e Endpoint) time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return s.DefaultTimeout
}

func (s *Settings) RetryCountFor(e Endpoint) int {
	if e.RetryCount > 0 {
		return e.RetryCount
	}
	if s.DefaultRetryCount > 0 {
		return s.DefaultRetryCount
	}
	return defaultRetryCount
}

func (s *Settings) DataTypeFor(e Endpoint) DataType {
	if e.DataType != "" {
		return e.DataType
	}
	if s.DataType != "" {
		return s.DataType
	}
	return DataTypeJSON
}

// ContentTypeFor maps a data type to its Content-Type header value.
// When the table has no entry it returns DefaultContentType and false.
func (s *Settings) ContentTypeFor(dataType DataType) (string, bool) {
	if ct, ok := s.ContentTypes[dataType]; ok && ct != "" {
		return ct, true
	}
	return DefaultContentType, false
}
