package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/security"
)

const defaultTimeout = 60 * time.Second

// Config configures the HTTP client of one provider.
type Config struct {
	// ProviderID tags every error this client returns.
	ProviderID string
	// BaseURL is the base URL prepended to all request paths.
	BaseURL string
	// Timeout bounds a single attempt. Defaults to 60s.
	Timeout time.Duration
	// Auth is applied to every request unless the request overrides it.
	Auth *AuthConfig
	// Headers are default headers applied to all requests.
	Headers map[string]string
	// Resilience wraps each request in the provider's retry and breaker policy.
	Resilience provider.ResilienceConfig
	// TLS customizes certificate verification, e.g. for a sidecar behind a
	// private CA. Nil keeps the system defaults.
	TLS *security.TLSConfig
}

// TLSFromOptions reads ca_file, tls_skip_verify, tls_server_name,
// tls_cert_file and tls_key_file from provider options. It returns nil when
// none is set.
func TLSFromOptions(o provider.Options) *security.TLSConfig {
	c := &security.TLSConfig{
		CAFile:     o.String("ca_file", ""),
		SkipVerify: o.Bool("tls_skip_verify", false),
		ServerName: o.String("tls_server_name", ""),
		CertFile:   o.String("tls_cert_file", ""),
		KeyFile:    o.String("tls_key_file", ""),
	}
	if !c.IsEnabled() {
		return nil
	}
	return c
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("httpclient: base url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if err := c.TLS.Validate("tls"); err != nil {
		return fmt.Errorf("httpclient: %w", err)
	}
	return nil
}
