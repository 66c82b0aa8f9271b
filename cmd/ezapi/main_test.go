package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func writeSettings(t *testing.T, baseURL string, retryCount int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ezapi.yaml")
	content := fmt.Sprintf(`base_url: %s
default_timeout: 2s
default_retry_count: %d
endpoints:
  - id: echo
    path: v1/echo/{id}
    method: POST
    payload_type: EchoRequest
`, baseURL, retryCount)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunList(t *testing.T) {
	path := writeSettings(t, "http://localhost:1", 1)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", path, "list"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "echo\ngetDialog\ngetStoryParams\n", stdout.String())
}

func TestRunHit(t *testing.T) {
	var gotPath, gotQuery, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotPath, gotQuery, gotBody = r.URL.Path, r.URL.RawQuery, string(body)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()
	path := writeSettings(t, server.URL, 1)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(),
		[]string{"-config", path, "hit", "-data", `{"text":"hi"}`, "-p", "id=5", "-q", "lang=en", "echo"},
		&stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Equal(t, "/v1/echo/5", gotPath)
	assert.Equal(t, "lang=en", gotQuery)
	assert.Equal(t, `{"text":"hi"}`, gotBody)
	assert.Equal(t, "200\n{\"ok\":true}\n", stdout.String())
}

func TestRunHitReportsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	path := writeSettings(t, server.URL, 1)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(),
		[]string{"-config", path, "hit", "-data", `{}`, "-p", "id=5", "echo"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, "400\n", stdout.String())
	assert.Assert(t, is.Contains(stderr.String(), "failed from backend: 400"))
}

func TestRunUsageErrors(t *testing.T) {
	path := writeSettings(t, "http://localhost:1", 1)
	for _, args := range [][]string{
		{"-config", path},
		{"-config", path, "unknown"},
		{"-config", path, "hit"},
		{"-config", path, "hit", "-data", "{", "echo"},
		{"-config", path, "ask"},
	} {
		t.Run(strings.Join(args[2:], "_"), func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Equal(t, 2, run(context.Background(), args, &stdout, &stderr))
		})
	}
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs("1, 2,3")
	assert.NilError(t, err)
	assert.DeepEqual(t, []int{1, 2, 3}, ids)

	_, err = parseIDs("1,x")
	assert.Assert(t, err != nil)
}

func getFailingServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)
	return server, calls
}

func TestRunRetriesImmediatelyByDefault(t *testing.T) {
	server, calls := getFailingServer(t)
	path := writeSettings(t, server.URL, 3)
	var stdout, stderr bytes.Buffer

	start := time.Now()
	code := run(context.Background(), []string{"-config", path, "hit", "-data", `{}`, "-p", "id=1", "echo"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "503\n", stdout.String())
	assert.Assert(t, time.Since(start) < time.Second)
}

func TestRunBackoffSpacesRetries(t *testing.T) {
	server, calls := getFailingServer(t)
	path := writeSettings(t, server.URL, 2)
	var stdout, stderr bytes.Buffer

	start := time.Now()
	code := run(context.Background(),
		[]string{"-config", path, "-backoff", "100ms", "hit", "-data", `{}`, "-p", "id=1", "echo"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Assert(t, time.Since(start) >= 100*time.Millisecond)
}

func TestRunBreakerStopsRetries(t *testing.T) {
	server, calls := getFailingServer(t)
	path := writeSettings(t, server.URL, 3)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(),
		[]string{"-config", path, "-breaker", "1", "hit", "-data", `{}`, "-p", "id=1", "echo"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Equal(t, int32(1), calls.Load(), "expected the open breaker to refuse the retries")
	assert.Equal(t, "-1\n", stdout.String())
}

func TestRunRejectsNegativeBackoff(t *testing.T) {
	path := writeSettings(t, "http://localhost:1", 1)
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run(context.Background(), []string{"-config", path, "-backoff", "-1s", "list"}, &stdout, &stderr))
}
