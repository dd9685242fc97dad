package hammock

import (
	"fmt"
	"iter"
	"maps"
	"net/http"
)

// Chain is one node of a fluent URL chain. Every node knows its own path
// segment and its parent; the URL is assembled by walking back to the root.
// Nodes are immutable once built and safe to share between goroutines.
type Chain struct {
	name    string
	parent  *Chain
	config  *chainConfig
	session Session
}

// chainConfig is the configuration snapshot carried from a node to every
// child built from it. A snapshot is never modified after it has been
// attached to a node; WithAttr and WithHeader work on a clone.
type chainConfig struct {
	appendSlash bool
	header      http.Header
	attrs       map[string]any
	logger      Logger
	debug       *DebugConfig
	metrics     *MetricsCollector
	transport   Transport
	err         error
}

func defaultChainConfig() *chainConfig {
	return &chainConfig{
		debug:     DefaultDebugConfig(),
		transport: DefaultTransport,
	}
}

func (c *chainConfig) clone() *chainConfig {
	cp := *c
	cp.header = c.header.Clone()
	cp.attrs = maps.Clone(c.attrs)
	if c.debug != nil {
		debug := *c.debug
		cp.debug = &debug
	}
	return &cp
}

// New builds a chain root. base is the root's own segment, usually the
// scheme and host of the service ("https://api.example.com"); it may be
// empty.
func New(base string, opts ...Option) *Chain {
	b := &builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b.build(base)
}

// Child returns a new node one segment below c.
func (c *Chain) Child(name string) *Chain {
	return &Chain{name: name, parent: c, config: c.config}
}

// Call appends each segment, in order, as its own node and returns the last
// one. Segments are stringified with fmt.Sprint. Called without segments it
// returns c itself.
func (c *Chain) Call(segments ...any) *Chain {
	chain := c
	for _, segment := range segments {
		chain = chain.Child(fmt.Sprint(segment))
	}
	return chain
}

// Name returns the node's own path segment.
func (c *Chain) Name() string {
	return c.name
}

// Parent returns the node c was built from, or nil for a root.
func (c *Chain) Parent() *Chain {
	return c.parent
}

// AppendSlash reports whether URLs built from c end with a slash.
func (c *Chain) AppendSlash() bool {
	return c.config.appendSlash
}

// Err returns the error recorded while building the chain root, if any.
// Requests dispatched from a chain with a non-nil Err fail with it.
func (c *Chain) Err() error {
	return c.config.err
}

// WithAttr returns a copy of c that carries value under key. Every node built
// from the copy afterwards sees the value; c and its ancestors do not.
func (c *Chain) WithAttr(key string, value any) *Chain {
	cfg := c.config.clone()
	if cfg.attrs == nil {
		cfg.attrs = make(map[string]any)
	}
	cfg.attrs[key] = value
	return c.with(cfg)
}

// Attr returns the attribute stored under key.
func (c *Chain) Attr(key string) (any, bool) {
	value, ok := c.config.attrs[key]
	return value, ok
}

// Attrs returns a copy of all attributes visible on c.
func (c *Chain) Attrs() map[string]any {
	attrs := maps.Clone(c.config.attrs)
	if attrs == nil {
		attrs = make(map[string]any)
	}
	return attrs
}

// WithHeader returns a copy of c that sends the header with every request
// dispatched from it or its later descendants. A "headers" argument on the
// request itself takes precedence.
func (c *Chain) WithHeader(key, value string) *Chain {
	cfg := c.config.clone()
	if cfg.header == nil {
		cfg.header = make(http.Header)
	}
	cfg.header.Set(key, value)
	return c.with(cfg)
}

// Header returns a copy of the default headers visible on c.
func (c *Chain) Header() http.Header {
	if c.config.header == nil {
		return make(http.Header)
	}
	return c.config.header.Clone()
}

func (c *Chain) with(cfg *chainConfig) *Chain {
	return &Chain{name: c.name, parent: c.parent, config: cfg, session: c.session}
}

// ancestors yields c and then each parent up to the root.
func (c *Chain) ancestors() iter.Seq[*Chain] {
	return func(yield func(*Chain) bool) {
		for node := c; node != nil; node = node.parent {
			if !yield(node) {
				return
			}
		}
	}
}
