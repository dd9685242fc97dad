package hammock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sessionConfigYAML = `
headers:
  Accept: application/json
params:
  lang: en
cookies:
  theme: dark
auth:
  username: alice
  password: secret
timeout: 5s
follow_redirects: false
max_redirects: 3
rate_limit: 2.5
rate_burst: 4
deduplicate: true
`

func TestParseSessionConfig(t *testing.T) {
	cfg, err := ParseSessionConfig([]byte(sessionConfigYAML))
	if err != nil {
		t.Fatalf("ParseSessionConfig() returned error: %v", err)
	}

	if cfg.Headers["Accept"] != "application/json" {
		t.Errorf("Unexpected headers %v", cfg.Headers)
	}
	if cfg.Params["lang"] != "en" || cfg.Cookies["theme"] != "dark" {
		t.Errorf("Unexpected params %v or cookies %v", cfg.Params, cfg.Cookies)
	}
	if cfg.Auth == nil || cfg.Auth.Username != "alice" || cfg.Auth.Password != "secret" {
		t.Errorf("Unexpected auth %+v", cfg.Auth)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Timeout)
	}
	if cfg.GetFollowRedirects() {
		t.Error("Expected follow_redirects=false")
	}
	if cfg.GetMaxRedirects() != 3 {
		t.Errorf("Expected 3 redirects, got %d", cfg.GetMaxRedirects())
	}
	if cfg.RateLimit != 2.5 || cfg.RateBurst != 4 || !cfg.Deduplicate {
		t.Errorf("Unexpected rate limit or dedup settings %+v", cfg)
	}
}

func TestSessionConfigDefaults(t *testing.T) {
	var cfg SessionConfig

	if !cfg.GetFollowRedirects() {
		t.Error("Expected redirects to be followed by default")
	}
	if cfg.GetMaxRedirects() != DefaultMaxRedirects {
		t.Errorf("Expected %d redirects, got %d", DefaultMaxRedirects, cfg.GetMaxRedirects())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Zero config should be valid, got %v", err)
	}
}

func TestSessionConfigValidate(t *testing.T) {
	cfg := SessionConfig{
		Timeout:      -time.Second,
		MaxRedirects: -1,
		Proxy:        "http://[::1",
		CertFile:     "client.pem",
		RateLimit:    -1,
		RateBurst:    -1,
	}

	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("Expected ErrInvalidConfig, got %v", err)
	}
	for _, want := range []string{"timeout", "max_redirects", "proxy", "cert_file and key_file", "rate_limit", "rate_burst"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q to be reported in %q", want, err.Error())
		}
	}
}

func TestParseSessionConfigErrors(t *testing.T) {
	if _, err := ParseSessionConfig([]byte("timeout: [")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for malformed YAML, got %v", err)
	}
	if _, err := ParseSessionConfig([]byte("timeout: -3s")); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig for a negative timeout, got %v", err)
	}
}

func TestLoadSessionConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	if err := os.WriteFile(path, []byte(sessionConfigYAML), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadSessionConfig(path)
	if err != nil {
		t.Fatalf("LoadSessionConfig() returned error: %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.Timeout)
	}

	if _, err := LoadSessionConfig(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected os.ErrNotExist, got %v", err)
	}
}
