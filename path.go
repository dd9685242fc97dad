package hammock

import (
	"slices"
	"strings"
)

// URL resolves the chain, extended by segments, into a URL string. Empty
// segment names are skipped. When the chain was built with
// WithAppendSlash(true) the result ends with exactly one slash.
func (c *Chain) URL(segments ...any) string {
	tail := c.Call(segments...)

	var parts []string
	for node := range tail.ancestors() {
		if node.name != "" {
			parts = append(parts, node.name)
		}
	}
	slices.Reverse(parts)

	url := strings.Join(parts, "/")
	if tail.config.appendSlash && !strings.HasSuffix(url, "/") {
		url += "/"
	}
	return url
}

// String returns the resolved URL of the chain.
func (c *Chain) String() string {
	return c.URL()
}
