package hammock

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// SessionConfig holds the defaults an HTTPSession applies to every request.
// It can be written by hand or loaded from YAML with LoadSessionConfig.
type SessionConfig struct {
	Headers            map[string]string `yaml:"headers,omitempty"`
	Params             map[string]string `yaml:"params,omitempty"`
	Cookies            map[string]string `yaml:"cookies,omitempty"`
	Auth               *BasicAuth        `yaml:"auth,omitempty"`
	Timeout            time.Duration     `yaml:"timeout,omitempty"`
	FollowRedirects    *bool             `yaml:"follow_redirects,omitempty"`
	MaxRedirects       int               `yaml:"max_redirects,omitempty"`
	Proxy              string            `yaml:"proxy,omitempty"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify,omitempty"`
	CertFile           string            `yaml:"cert_file,omitempty"`
	KeyFile            string            `yaml:"key_file,omitempty"`
	RateLimit          float64           `yaml:"rate_limit,omitempty"` // requests per second
	RateBurst          int               `yaml:"rate_burst,omitempty"`
	Deduplicate        bool              `yaml:"deduplicate,omitempty"`
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c SessionConfig) GetFollowRedirects() bool {
	if c.FollowRedirects == nil {
		return true
	}
	return *c.FollowRedirects
}

// GetMaxRedirects returns the redirect limit, defaulting to DefaultMaxRedirects.
func (c SessionConfig) GetMaxRedirects() int {
	if c.MaxRedirects <= 0 {
		return DefaultMaxRedirects
	}
	return c.MaxRedirects
}

// Validate reports every invalid field at once.
func (c SessionConfig) Validate() error {
	var problems []string

	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	if c.MaxRedirects < 0 {
		problems = append(problems, "max_redirects must not be negative")
	}
	if c.Proxy != "" {
		if _, err := url.Parse(c.Proxy); err != nil {
			problems = append(problems, fmt.Sprintf("proxy: %v", err))
		}
	}
	if (c.CertFile == "") != (c.KeyFile == "") {
		problems = append(problems, "cert_file and key_file must be set together")
	}
	if c.RateLimit < 0 {
		problems = append(problems, "rate_limit must not be negative")
	}
	if c.RateBurst < 0 {
		problems = append(problems, "rate_burst must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// ParseSessionConfig decodes a YAML session configuration.
func ParseSessionConfig(data []byte) (SessionConfig, error) {
	var cfg SessionConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SessionConfig{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return cfg, cfg.Validate()
}

// LoadSessionConfig reads and decodes a YAML session configuration file.
func LoadSessionConfig(path string) (SessionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionConfig{}, err
	}
	return ParseSessionConfig(data)
}
