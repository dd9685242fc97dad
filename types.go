package hammock

import (
	"context"
	"net/http"
)

// Args holds the keyword arguments of a single request. Keys listed by
// SpecialKeys configure the transport; on GET every other key is turned into
// a query parameter.
type Args map[string]any

// Transport issues one HTTP request against an already resolved URL.
type Transport interface {
	Request(ctx context.Context, method, url string, args Args) (*Response, error)
}

// Session is a Transport that keeps state between requests (cookies, pooled
// connections) and must be released with Close.
type Session interface {
	Transport
	Close() error
}

// TransportFunc adapts an ordinary function to the Transport interface.
type TransportFunc func(ctx context.Context, method, url string, args Args) (*Response, error)

// Request calls f.
func (f TransportFunc) Request(ctx context.Context, method, url string, args Args) (*Response, error) {
	return f(ctx, method, url, args)
}

// Middleware wraps the round trip performed by an HTTPSession. It may
// modify req, call next zero or more times, and inspect or replace the
// response. Middleware registered first runs outermost.
type Middleware func(req *http.Request, next http.RoundTripper) (*http.Response, error)

// RoundTripperFunc adapts an ordinary function to http.RoundTripper. It is
// how the session links middleware together, and is handy for stubbing a
// transport with WithRoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip calls f(req).
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// BasicAuth holds credentials sent with the "auth" argument or configured on
// a session.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Logger is the structured logger used for debug output. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DebugConfig selects which events are logged once debugging is enabled.
type DebugConfig struct {
	Enabled      bool
	LogRequests  bool
	LogSessions  bool
	LogCoercion  bool
	RequestIDGen func() string
}

// Option configures a chain root built with New.
type Option func(*builder)

// SessionOption configures an HTTPSession beyond what SessionConfig holds.
type SessionOption func(*HTTPSession)
