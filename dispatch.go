package hammock

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/TwoApart/hammock/internal/convert"
)

// Argument keys understood by HTTPSession.
const (
	ArgParams         = "params"
	ArgHeaders        = "headers"
	ArgCookies        = "cookies"
	ArgAuth           = "auth"
	ArgTimeout        = "timeout"
	ArgAllowRedirects = "allow_redirects"
	ArgProxies        = "proxies"
	ArgVerify         = "verify"
	ArgCert           = "cert"
	ArgData           = "data"
	ArgJSON           = "json"
)

var specialKeys = map[string]struct{}{
	ArgParams:         {},
	ArgHeaders:        {},
	ArgCookies:        {},
	ArgAuth:           {},
	ArgTimeout:        {},
	ArgAllowRedirects: {},
	ArgProxies:        {},
	ArgVerify:         {},
	ArgCert:           {},
	ArgData:           {},
	ArgJSON:           {},
}

// SpecialKeys returns, sorted, the argument keys that configure the transport
// rather than name a query parameter.
func SpecialKeys() []string {
	return slices.Sorted(maps.Keys(specialKeys))
}

// IsSpecialKey reports whether key is one of SpecialKeys.
func IsSpecialKey(key string) bool {
	_, ok := specialKeys[key]
	return ok
}

// CoerceArgs applies the GET convenience rule: when a GET carries arguments
// but no "params" key, every non-special argument is moved into "params", so
// that GET(Args{"filter": 12}) sends ?filter=12. Mixing special and
// non-special keys in that situation fails with an *ArgumentError. Other
// methods, and GETs that already name "params", are returned unchanged.
func CoerceArgs(method string, args Args) (Args, error) {
	if !strings.EqualFold(method, http.MethodGet) || len(args) == 0 {
		return args, nil
	}
	if _, ok := args[ArgParams]; ok {
		return args, nil
	}

	var special []string
	params := make(map[string]any)
	for key, value := range args {
		if IsSpecialKey(key) {
			special = append(special, key)
			continue
		}
		params[key] = value
	}

	if len(params) == 0 {
		return args, nil
	}
	if len(special) > 0 {
		slices.Sort(special)
		return nil, &ArgumentError{
			Method:  strings.ToUpper(method),
			Special: special,
			Unknown: slices.Sorted(maps.Keys(params)),
		}
	}
	return Args{ArgParams: params}, nil
}

// Request dispatches method against the chain's URL extended by segments.
// The nearest session in the chain carries the request; without one the
// chain's fallback transport (DefaultTransport unless WithTransport was
// used) does. Errors returned by the transport are passed through as is.
func (c *Chain) Request(ctx context.Context, method string, args Args, segments ...any) (*Response, error) {
	cfg := c.config
	if cfg.err != nil {
		return nil, cfg.err
	}

	start := time.Now()
	method = strings.ToUpper(method)

	var requestID string
	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.RequestIDGen != nil {
		requestID = cfg.debug.RequestIDGen()
	}

	coerced, err := CoerceArgs(method, args)
	if err != nil {
		if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogCoercion && cfg.logger != nil {
			cfg.logger.Warn("Rejected ambiguous arguments", "requestID", requestID, "method", method, "error", err.Error())
		}
		cfg.metrics.RecordError(errorType(err), method)
		return nil, err
	}
	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogCoercion && cfg.logger != nil {
		_, explicit := args[ArgParams]
		if _, moved := coerced[ArgParams]; moved && !explicit {
			cfg.logger.Debug("Moved arguments into query parameters", "requestID", requestID, "keys", slices.Sorted(maps.Keys(args)))
		}
	}

	transport, source := c.transport()
	rawURL := c.URL(segments...)

	coerced, err = mergeDefaultHeaders(coerced, cfg.header)
	if err != nil {
		cfg.metrics.RecordError(errorType(err), method)
		return nil, err
	}

	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogRequests && cfg.logger != nil {
		cfg.logger.Debug("Dispatching request", "requestID", requestID, "method", method, "url", rawURL, "transport", source)
	}

	host := hostOf(rawURL)
	cfg.metrics.RecordTransport(source)
	cfg.metrics.RecordRequestStart(method)

	resp, err := transport.Request(ctx, method, rawURL, coerced)

	cfg.metrics.RecordRequestEnd(method)
	statusCode := 0
	if resp != nil && resp.Response != nil {
		statusCode = resp.StatusCode
	}
	cfg.metrics.RecordRequest(method, host, statusCode, time.Since(start))

	if err != nil {
		cfg.metrics.RecordError(errorType(err), method)
		if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogRequests && cfg.logger != nil {
			cfg.logger.Warn("Request failed", "requestID", requestID, "method", method, "url", rawURL, "error", err.Error())
		}
		return resp, err
	}

	if cfg.debug != nil && cfg.debug.Enabled && cfg.debug.LogRequests && cfg.logger != nil {
		cfg.logger.Debug("Request completed", "requestID", requestID, "statusCode", statusCode, "duration", time.Since(start))
	}
	return resp, nil
}

// GET dispatches a GET request; see Request and CoerceArgs.
func (c *Chain) GET(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodGet, args, segments...)
}

// POST dispatches a POST request; see Request.
func (c *Chain) POST(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodPost, args, segments...)
}

// PUT dispatches a PUT request; see Request.
func (c *Chain) PUT(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodPut, args, segments...)
}

// PATCH dispatches a PATCH request; see Request.
func (c *Chain) PATCH(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodPatch, args, segments...)
}

// DELETE dispatches a DELETE request; see Request.
func (c *Chain) DELETE(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, args, segments...)
}

// HEAD dispatches a HEAD request; see Request.
func (c *Chain) HEAD(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodHead, args, segments...)
}

// OPTIONS dispatches an OPTIONS request; see Request.
func (c *Chain) OPTIONS(ctx context.Context, args Args, segments ...any) (*Response, error) {
	return c.Request(ctx, http.MethodOptions, args, segments...)
}

func (c *Chain) transport() (Transport, string) {
	if session := c.Session(); session != nil {
		return session, transportSession
	}
	if c.config.transport != nil {
		return c.config.transport, transportDefault
	}
	return DefaultTransport, transportDefault
}

// mergeDefaultHeaders returns args with the chain's default headers placed
// under the caller's own "headers" argument. args itself is not modified.
func mergeDefaultHeaders(args Args, defaults http.Header) (Args, error) {
	if len(defaults) == 0 {
		return args, nil
	}

	merged := defaults.Clone()
	if raw, ok := args[ArgHeaders]; ok {
		header, err := convert.Header(raw)
		if err != nil {
			return nil, invalidArgument(ArgHeaders, err)
		}
		for key, values := range header {
			merged[key] = values
		}
	}

	out := make(Args, len(args)+1)
	maps.Copy(out, args)
	out[ArgHeaders] = merged
	return out, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrAmbiguousArguments):
		return "ambiguous_arguments"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrInvalidConfig):
		return "config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}
