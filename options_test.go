package hammock

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestDefaultValuesWithoutOptions(t *testing.T) {
	root := New(testBaseURL)

	if root.Err() != nil {
		t.Errorf("Expected no error, got %v", root.Err())
	}
	if root.AppendSlash() {
		t.Error("Expected appendSlash=false by default")
	}
	if root.config.transport != DefaultTransport {
		t.Error("Expected DefaultTransport as fallback")
	}
	if root.config.metrics != nil {
		t.Error("Expected metrics to be disabled by default")
	}
	if root.config.debug == nil || root.config.debug.Enabled {
		t.Error("Expected a disabled debug configuration")
	}
	if root.Session() != nil {
		t.Error("Expected no session")
	}
}

func TestWithAppendSlash(t *testing.T) {
	root := New(testBaseURL, WithAppendSlash(true))

	if !root.AppendSlash() {
		t.Error("Expected appendSlash=true")
	}
	if !root.Child("x").AppendSlash() {
		t.Error("Children should inherit appendSlash")
	}
}

func TestWithTransport(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, method, url string, args Args) (*Response, error) {
		return nil, nil
	})
	root := New(testBaseURL, WithTransport(transport))

	if root.config.transport == nil {
		t.Error("Expected transport to be set")
	}
}

func TestWithTransportNil(t *testing.T) {
	root := New(testBaseURL, WithTransport(nil))

	if !errors.Is(root.Err(), ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", root.Err())
	}
}

func TestWithDefaultHeader(t *testing.T) {
	root := New(testBaseURL, WithDefaultHeader("accept", "application/json"), WithDefaultHeader("X-Team", "core"))

	header := root.Header()
	if header.Get("Accept") != "application/json" || header.Get("X-Team") != "core" {
		t.Errorf("Unexpected headers %v", header)
	}
}

func TestWithAttr(t *testing.T) {
	root := New(testBaseURL, WithAttr("version", 2))

	if value, ok := root.Child("x").Attr("version"); !ok || value != 2 {
		t.Errorf("Expected version=2, got %v (%v)", value, ok)
	}
}

func TestWithMetricsCollector(t *testing.T) {
	collector := NewMetricsCollectorWithRegistry(prometheus.NewRegistry())
	root := New(testBaseURL, WithMetricsCollector(collector))

	if root.config.metrics != collector {
		t.Error("Metrics collector not set correctly")
	}
}

func TestWithDebugRequiresLogger(t *testing.T) {
	root := New(testBaseURL, WithDebug())

	err := root.Err()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	if !strings.Contains(err.Error(), "logger must be set") {
		t.Errorf("Expected the missing logger to be reported, got %q", err.Error())
	}
}

func TestWithDebugWithLogger(t *testing.T) {
	for _, opts := range [][]Option{
		{WithDebug(), WithLogger(&recordingLogger{})},
		{WithLogger(&recordingLogger{}), WithDebug()},
	} {
		if err := New(testBaseURL, opts...).Err(); err != nil {
			t.Errorf("Expected WithDebug plus WithLogger to be valid in any order, got %v", err)
		}
	}
}

func TestWithDebugConfigWithoutRequestIDGen(t *testing.T) {
	root := New(testBaseURL, WithLogger(&recordingLogger{}), WithDebugConfig(&DebugConfig{Enabled: true}))

	if err := root.Err(); err == nil || !strings.Contains(err.Error(), "RequestIDGen") {
		t.Errorf("Expected a RequestIDGen problem, got %v", err)
	}
}

func TestWithDebugConfigCopies(t *testing.T) {
	config := &DebugConfig{Enabled: true, RequestIDGen: func() string { return "id" }}
	root := New(testBaseURL, WithLogger(&recordingLogger{}), WithDebugConfig(config))

	config.Enabled = false
	if !root.config.debug.Enabled {
		t.Error("Changing the caller's DebugConfig must not affect the chain")
	}
}

func TestWithSimpleLogger(t *testing.T) {
	root := New(testBaseURL, WithSimpleLogger())

	if root.Err() != nil {
		t.Errorf("Expected a valid configuration, got %v", root.Err())
	}
	if root.config.logger == nil || !root.config.debug.Enabled {
		t.Error("Expected debug logging to be enabled")
	}
}

func TestWithRequestIDGenerator(t *testing.T) {
	root := New(testBaseURL, WithRequestIDGenerator(func() string { return "fixed" }))

	if got := root.config.debug.RequestIDGen(); got != "fixed" {
		t.Errorf("Expected fixed, got %q", got)
	}
}

func TestWithSessionInvalidConfig(t *testing.T) {
	root := New(testBaseURL, WithSession(SessionConfig{MaxRedirects: -1}))

	if !errors.Is(root.Err(), ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", root.Err())
	}
	if root.Session() != nil {
		t.Error("No session should be attached when it cannot be built")
	}
}

func TestWithSessionOptions(t *testing.T) {
	called := false
	mw := func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		called = true
		return next.RoundTrip(req)
	}
	root := New(testBaseURL, WithSession(SessionConfig{}, WithMiddleware(mw)))
	defer root.CloseSession(false)

	session, ok := root.Session().(*HTTPSession)
	if !ok {
		t.Fatalf("Expected *HTTPSession, got %T", root.Session())
	}
	if len(session.middleware) != 1 {
		t.Errorf("Expected 1 middleware, got %d", len(session.middleware))
	}
	if called {
		t.Error("Middleware should not run before a request")
	}
}

func TestLastSessionOptionWins(t *testing.T) {
	handle := &fakeSession{}

	root := New(testBaseURL, WithSession(SessionConfig{}), WithSessionHandle(handle))
	if root.Session() != handle {
		t.Error("Expected the later WithSessionHandle to win")
	}

	root = New(testBaseURL, WithSessionHandle(handle), WithSession(SessionConfig{}))
	defer root.CloseSession(false)
	if _, ok := root.Session().(*HTTPSession); !ok {
		t.Errorf("Expected the later WithSession to win, got %T", root.Session())
	}
}

func TestWithParentOrderIndependence(t *testing.T) {
	parent := New(testBaseURL, WithAppendSlash(true), WithAttr("team", "core"))

	before := New("v2", WithParent(parent), WithAppendSlash(false))
	after := New("v2", WithAppendSlash(false), WithParent(parent))

	if before.AppendSlash() || after.AppendSlash() {
		t.Error("Explicit options should override the parent regardless of order")
	}
	if before.URL() != after.URL() || before.URL() != testBaseURL+"/v2" {
		t.Errorf("Unexpected URLs %q and %q", before.URL(), after.URL())
	}
	if value, _ := after.Attr("team"); value != "core" {
		t.Errorf("Expected attributes inherited from the parent, got %v", value)
	}
}

func TestMultipleErrorsReported(t *testing.T) {
	root := New(testBaseURL, WithTransport(nil), WithDebug(), WithSession(SessionConfig{Timeout: -1}))

	err := root.Err()
	for _, want := range []string{"fallback transport cannot be nil", "logger must be set", "timeout must not be negative"} {
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}
}
