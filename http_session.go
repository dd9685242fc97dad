package hammock

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"github.com/TwoApart/hammock/internal/convert"
)

// HTTPSession is a Session backed by net/http. It keeps cookies between
// requests, applies the defaults of its SessionConfig and understands every
// argument listed by SpecialKeys. It is safe for concurrent use.
type HTTPSession struct {
	client     *http.Client
	config     SessionConfig
	header     http.Header
	params     url.Values
	middleware []Middleware
	limiter    *rate.Limiter
	dedup      *deduplicator
	metrics    *MetricsCollector
	closeOnce  sync.Once
}

// DefaultTransport carries requests for chains that own no session. It is
// stateless: no cookies survive between requests.
var DefaultTransport Transport = newStatelessTransport()

func newStatelessTransport() *HTTPSession {
	s, err := newHTTPSession(SessionConfig{}, false)
	if err != nil {
		panic(err)
	}
	return s
}

// NewHTTPSession builds a session from cfg. It fails when cfg is invalid or
// the configured client certificate cannot be loaded.
func NewHTTPSession(cfg SessionConfig, opts ...SessionOption) (*HTTPSession, error) {
	s, err := newHTTPSession(cfg, true)
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func newHTTPSession(cfg SessionConfig, keepCookies bool) (*HTTPSession, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Plain string maps always convert.
	header, _ := convert.Header(cfg.Headers)
	params, _ := convert.Values(cfg.Params)

	s := &HTTPSession{
		config: cfg,
		header: header,
		params: params,
	}

	var transport http.RoundTripper = http.DefaultTransport
	if keepCookies {
		t, err := newSessionTransport(cfg)
		if err != nil {
			return nil, err
		}
		transport = t
	}

	s.client = &http.Client{
		Transport:     transport,
		Timeout:       cfg.Timeout,
		CheckRedirect: redirectPolicy(cfg.GetFollowRedirects(), cfg.GetMaxRedirects()),
	}

	if keepCookies {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		s.client.Jar = jar
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	if cfg.Deduplicate {
		s.dedup = newDeduplicator()
	}

	return s, nil
}

func newSessionTransport(cfg SessionConfig) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = DefaultMaxIdleConns
	transport.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	transport.IdleConnTimeout = DefaultIdleConnTimeout

	if cfg.InsecureSkipVerify {
		ensureTLS(transport).InsecureSkipVerify = true
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: client certificate: %v", ErrInvalidConfig, err)
		}
		ensureTLS(transport).Certificates = []tls.Certificate{cert}
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy: %v", ErrInvalidConfig, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return transport, nil
}

func ensureTLS(t *http.Transport) *tls.Config {
	if t.TLSClientConfig == nil {
		t.TLSClientConfig = &tls.Config{}
	}
	return t.TLSClientConfig
}

func redirectPolicy(follow bool, max int) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) >= max {
			return http.ErrUseLastResponse
		}
		return nil
	}
}

// WithHTTPClient makes the session send requests through client. The
// session's own timeout, redirect policy and cookie jar are replaced by the
// client's.
func WithHTTPClient(client *http.Client) SessionOption {
	return func(s *HTTPSession) {
		if client != nil {
			s.client = client
		}
	}
}

// WithRoundTripper replaces the session's HTTP transport.
func WithRoundTripper(rt http.RoundTripper) SessionOption {
	return func(s *HTTPSession) {
		s.client.Transport = rt
	}
}

// WithMiddleware adds middleware to the session
func WithMiddleware(middleware ...Middleware) SessionOption {
	return func(s *HTTPSession) {
		s.middleware = append(s.middleware, middleware...)
	}
}

// WithSessionMetrics records session level events, such as deduplicated
// requests, on collector.
func WithSessionMetrics(collector *MetricsCollector) SessionOption {
	return func(s *HTTPSession) {
		s.metrics = collector
	}
}

// Config returns the configuration the session was built from.
func (s *HTTPSession) Config() SessionConfig {
	return s.config
}

// Client returns the underlying *http.Client.
func (s *HTTPSession) Client() *http.Client {
	return s.client
}

// Close releases idle connections. It is safe to call more than once.
func (s *HTTPSession) Close() error {
	s.closeOnce.Do(func() {
		s.client.CloseIdleConnections()
	})
	return nil
}

// Request sends method to rawURL. Arguments outside SpecialKeys, or with
// values of the wrong type, fail with ErrInvalidArgument before any network
// activity. Network and protocol errors come straight from net/http.
func (s *HTTPSession) Request(ctx context.Context, method, rawURL string, args Args) (*Response, error) {
	req, client, err := s.prepare(ctx, method, rawURL, args)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	send := func(r *http.Request) (*http.Response, error) {
		return s.roundTrip(client, r)
	}

	if s.dedup != nil && deduplicatable(req) {
		resp, shared, err := s.dedup.do(req, send)
		if shared {
			s.metrics.RecordDeduplicationHit(req.Method)
		}
		if err != nil {
			return nil, err
		}
		return NewResponse(resp), nil
	}

	resp, err := send(req)
	if err != nil {
		return nil, err
	}
	return NewResponse(resp), nil
}

func (s *HTTPSession) roundTrip(client *http.Client, req *http.Request) (*http.Response, error) {
	if len(s.middleware) == 0 {
		return client.Do(req)
	}

	current := RoundTripperFunc(client.Do)

	for i := len(s.middleware) - 1; i >= 0; i-- {
		middleware := s.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// prepare turns the arguments into an *http.Request and picks the client
// that can honour them.
func (s *HTTPSession) prepare(ctx context.Context, method, rawURL string, args Args) (*http.Request, *http.Client, error) {
	for key := range args {
		if !IsSpecialKey(key) {
			return nil, nil, invalidArgument(key, errors.New("unknown argument"))
		}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, err
	}
	if err := s.applyParams(u, args); err != nil {
		return nil, nil, err
	}

	body, contentType, err := requestBody(args)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, nil, err
	}

	for key, values := range s.header {
		req.Header[key] = slices.Clone(values)
	}
	if raw, ok := args[ArgHeaders]; ok {
		header, err := convert.Header(raw)
		if err != nil {
			return nil, nil, invalidArgument(ArgHeaders, err)
		}
		for key, values := range header {
			req.Header[key] = values
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	if err := s.applyCookies(req, args); err != nil {
		return nil, nil, err
	}
	if err := s.applyAuth(req, args); err != nil {
		return nil, nil, err
	}

	client, err := s.clientFor(args)
	if err != nil {
		return nil, nil, err
	}
	return req, client, nil
}

// applyParams adds session and request query parameters to u. Request
// parameters replace session parameters of the same name.
func (s *HTTPSession) applyParams(u *url.URL, args Args) error {
	raw, ok := args[ArgParams]
	if !ok && len(s.params) == 0 {
		return nil
	}

	values, err := convert.Values(raw)
	if err != nil {
		return invalidArgument(ArgParams, err)
	}

	query := u.Query()
	for key, vs := range s.params {
		if _, override := values[key]; !override {
			query[key] = append(query[key], vs...)
		}
	}
	for key, vs := range values {
		for _, v := range vs {
			query.Add(key, v)
		}
	}
	u.RawQuery = query.Encode()
	return nil
}

func (s *HTTPSession) applyCookies(req *http.Request, args Args) error {
	cookies := make(map[string]string, len(s.config.Cookies))
	for name, value := range s.config.Cookies {
		cookies[name] = value
	}
	if raw, ok := args[ArgCookies]; ok {
		extra, err := convert.StringMap(raw)
		if err != nil {
			return invalidArgument(ArgCookies, err)
		}
		for name, value := range extra {
			cookies[name] = value
		}
	}

	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: cookies[name]})
	}
	return nil
}

// applyAuth sets basic auth from the "auth" argument, falling back to the
// session's credentials. An explicit nil "auth" sends no credentials.
func (s *HTTPSession) applyAuth(req *http.Request, args Args) error {
	auth := s.config.Auth
	if raw, ok := args[ArgAuth]; ok {
		var err error
		auth, err = basicAuth(raw)
		if err != nil {
			return invalidArgument(ArgAuth, err)
		}
	}
	if auth != nil {
		req.SetBasicAuth(auth.Username, auth.Password)
	}
	return nil
}

func basicAuth(v any) (*BasicAuth, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil
	case BasicAuth:
		return &a, nil
	case *BasicAuth:
		return a, nil
	default:
		username, password, err := convert.Pair(v)
		if err != nil {
			return nil, err
		}
		return &BasicAuth{Username: username, Password: password}, nil
	}
}

// clientFor returns the session client, or a copy of it when the arguments
// change the timeout, redirect policy or transport of this one request.
func (s *HTTPSession) clientFor(args Args) (*http.Client, error) {
	rawTimeout, hasTimeout := args[ArgTimeout]
	rawRedirects, hasRedirects := args[ArgAllowRedirects]
	overridesTransport := hasAny(args, ArgVerify, ArgCert, ArgProxies)
	if !hasTimeout && !hasRedirects && !overridesTransport {
		return s.client, nil
	}

	client := *s.client

	if hasTimeout {
		timeout, err := convert.Duration(rawTimeout)
		if err != nil {
			return nil, invalidArgument(ArgTimeout, err)
		}
		if timeout < 0 {
			return nil, invalidArgument(ArgTimeout, errors.New("must not be negative"))
		}
		client.Timeout = timeout
	}

	if hasRedirects {
		follow, err := convert.Bool(rawRedirects)
		if err != nil {
			return nil, invalidArgument(ArgAllowRedirects, err)
		}
		client.CheckRedirect = redirectPolicy(follow, s.config.GetMaxRedirects())
	}

	if overridesTransport {
		transport, err := s.transportFor(args)
		if err != nil {
			return nil, err
		}
		client.Transport = transport
	}

	return &client, nil
}

// transportFor clones the session transport for a single request that
// overrides TLS verification, the client certificate or proxies. The clone
// does not keep connections alive.
func (s *HTTPSession) transportFor(args Args) (*http.Transport, error) {
	rt := s.client.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	base, ok := rt.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("%w: verify, cert and proxies need an *http.Transport, session uses %T", ErrInvalidArgument, rt)
	}

	transport := base.Clone()
	transport.DisableKeepAlives = true

	if raw, ok := args[ArgVerify]; ok {
		verify, err := convert.Bool(raw)
		if err != nil {
			return nil, invalidArgument(ArgVerify, err)
		}
		ensureTLS(transport).InsecureSkipVerify = !verify
	}

	if raw, ok := args[ArgCert]; ok {
		certFile, keyFile, err := certPaths(raw)
		if err != nil {
			return nil, invalidArgument(ArgCert, err)
		}
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, invalidArgument(ArgCert, err)
		}
		ensureTLS(transport).Certificates = []tls.Certificate{cert}
	}

	if raw, ok := args[ArgProxies]; ok {
		proxy, err := proxyFunc(raw)
		if err != nil {
			return nil, invalidArgument(ArgProxies, err)
		}
		transport.Proxy = proxy
	}

	return transport, nil
}

// certPaths accepts a single PEM file holding both certificate and key, or a
// certificate and key pair.
func certPaths(v any) (certFile, keyFile string, err error) {
	if path, ok := v.(string); ok {
		return path, path, nil
	}
	return convert.Pair(v)
}

// proxyFunc maps a URL scheme ("http", "https" or "all") to a proxy URL.
func proxyFunc(v any) (func(*http.Request) (*url.URL, error), error) {
	raw, err := convert.StringMap(v)
	if err != nil {
		return nil, err
	}

	proxies := make(map[string]*url.URL, len(raw))
	for scheme, rawURL := range raw {
		proxyURL, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", scheme, err)
		}
		proxies[scheme] = proxyURL
	}

	return func(req *http.Request) (*url.URL, error) {
		if proxyURL, ok := proxies[req.URL.Scheme]; ok {
			return proxyURL, nil
		}
		return proxies["all"], nil
	}, nil
}

// requestBody builds the body from the "data" or "json" argument. Strings,
// byte slices and readers are sent as is; maps are form encoded.
func requestBody(args Args) (io.Reader, string, error) {
	data, hasData := args[ArgData]
	payload, hasJSON := args[ArgJSON]

	if hasData && hasJSON {
		return nil, "", invalidArgument(ArgJSON, errors.New("cannot be combined with data"))
	}

	if hasJSON {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, "", invalidArgument(ArgJSON, err)
		}
		return bytes.NewReader(encoded), "application/json", nil
	}

	switch d := data.(type) {
	case nil:
		return nil, "", nil
	case string:
		return strings.NewReader(d), "", nil
	case []byte:
		return bytes.NewReader(d), "", nil
	case io.Reader:
		return d, "", nil
	default:
		values, err := convert.Values(data)
		if err != nil {
			return nil, "", invalidArgument(ArgData, err)
		}
		return strings.NewReader(values.Encode()), "application/x-www-form-urlencoded", nil
	}
}

func hasAny(args Args, keys ...string) bool {
	for _, key := range keys {
		if _, ok := args[key]; ok {
			return true
		}
	}
	return false
}
