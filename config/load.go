package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML settings file, applies the environment overlay and validates the result.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Parse decodes YAML on top of Default. It does not validate.
func Parse(data []byte) (*Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides global values from EZAPI_* environment variables.
func (s *Settings) ApplyEnv() error {
	s.BaseURL = getEnv("EZAPI_BASE_URL", s.BaseURL)
	s.BearerToken = getEnv("EZAPI_BEARER_TOKEN", s.BearerToken)
	if v := getEnv("EZAPI_TIMEOUT", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: EZAPI_TIMEOUT %q: %v", ErrInvalid, v, err)
		}
		s.DefaultTimeout = d
	}
	if v := getEnv("EZAPI_RETRY_COUNT", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: EZAPI_RETRY_COUNT %q: %v", ErrInvalid, v, err)
		}
		s.DefaultRetryCount = n
	}
	return nil
}

func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
