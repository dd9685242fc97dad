package hammock

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
)

// builder collects the options passed to New. Configuration options are
// recorded as functions and replayed on top of the parent's snapshot, so
// WithParent may appear anywhere in the option list.
type builder struct {
	parent        *Chain
	session       Session
	sessionConfig *SessionConfig
	sessionOpts   []SessionOption
	configure     []func(*chainConfig)
}

func (b *builder) build(base string) *Chain {
	cfg := defaultChainConfig()
	if b.parent != nil {
		cfg = b.parent.config.clone()
	}
	for _, fn := range b.configure {
		fn(cfg)
	}

	var errs []error
	if cfg.err != nil {
		errs = append(errs, cfg.err)
	}

	session := b.session
	if b.sessionConfig != nil {
		s, err := NewHTTPSession(*b.sessionConfig, b.sessionOpts...)
		if err != nil {
			errs = append(errs, err)
		} else {
			session = s
		}
	}

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	cfg.err = errors.Join(errs...)

	return &Chain{name: base, parent: b.parent, config: cfg, session: session}
}

func configure(fn func(*chainConfig)) Option {
	return func(b *builder) {
		b.configure = append(b.configure, fn)
	}
}

// WithParent links the new node below parent. The node starts from the
// parent's configuration; other options given to New override it.
func WithParent(parent *Chain) Option {
	return func(b *builder) {
		b.parent = parent
	}
}

// WithAppendSlash makes every URL resolved from the chain end with a slash.
func WithAppendSlash(appendSlash bool) Option {
	return configure(func(c *chainConfig) {
		c.appendSlash = appendSlash
	})
}

// WithSession creates an HTTPSession from cfg and attaches it to the root.
// A session that cannot be created is reported by Chain.Err.
func WithSession(cfg SessionConfig, opts ...SessionOption) Option {
	return func(b *builder) {
		b.sessionConfig = &cfg
		b.sessionOpts = opts
		b.session = nil
	}
}

// WithSessionHandle attaches an existing session to the root.
func WithSessionHandle(session Session) Option {
	return func(b *builder) {
		b.session = session
		b.sessionConfig = nil
		b.sessionOpts = nil
	}
}

// WithTransport replaces DefaultTransport as the fallback used when no node
// in the chain owns a session.
func WithTransport(transport Transport) Option {
	return configure(func(c *chainConfig) {
		c.transport = transport
	})
}

// WithDefaultHeader sets a header sent with every request dispatched from the
// chain.
func WithDefaultHeader(key, value string) Option {
	return configure(func(c *chainConfig) {
		c.header = c.header.Clone()
		if c.header == nil {
			c.header = make(http.Header)
		}
		c.header.Set(key, value)
	})
}

// WithAttr stores an attribute on the root; see Chain.WithAttr.
func WithAttr(key string, value any) Option {
	return configure(func(c *chainConfig) {
		c.attrs = maps.Clone(c.attrs)
		if c.attrs == nil {
			c.attrs = make(map[string]any)
		}
		c.attrs[key] = value
	})
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return configure(func(c *chainConfig) {
		c.metrics = DefaultMetricsCollector()
	})
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return configure(func(c *chainConfig) {
		c.metrics = collector
	})
}

// WithDebug enables debug logging with the DefaultDebugConfig categories.
// It only selects what is logged: a logger must also be set with WithLogger,
// otherwise the chain reports ErrInvalidConfig from Err and from every
// request. WithSimpleLogger does both in one option.
func WithDebug() Option {
	return configure(func(c *chainConfig) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	})
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return configure(func(c *chainConfig) {
		if config == nil {
			c.debug = nil
			return
		}
		debug := *config
		c.debug = &debug
	})
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return configure(func(c *chainConfig) {
		c.logger = logger
	})
}

// WithSimpleLogger enables debug logging to stderr.
func WithSimpleLogger() Option {
	return configure(func(c *chainConfig) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	})
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return configure(func(c *chainConfig) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	})
}

// validate checks the snapshot and returns every problem at once.
func (c *chainConfig) validate() error {
	var problems []string

	problems = append(problems, c.validateTransport()...)
	problems = append(problems, c.validateDebugConfig()...)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func (c *chainConfig) validateTransport() []string {
	var problems []string

	if c.transport == nil {
		problems = append(problems, "fallback transport cannot be nil")
	}

	return problems
}

func (c *chainConfig) validateDebugConfig() []string {
	var problems []string

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}

	return problems
}
