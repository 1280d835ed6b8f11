package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	apperrors "github.com/kbukum/voxkit/errors"
)

// TLSConfig holds TLS settings for a listener or an outbound client.
type TLSConfig struct {
	// CertFile and KeyFile are the certificate pair presented to peers. A
	// server needs both; a client sends them only for mutual TLS.
	CertFile string `yaml:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`

	// CAFile verifies peers. On a server it turns on client certificate
	// verification; on a client it replaces the system roots.
	CAFile string `yaml:"ca_file" mapstructure:"ca_file"`

	// SkipVerify disables server certificate verification on clients.
	SkipVerify bool `yaml:"skip_verify" mapstructure:"skip_verify"`

	// ServerName overrides the name checked against the server certificate.
	ServerName string `yaml:"server_name" mapstructure:"server_name"`

	// MinVersion is "1.2" or "1.3". Defaults to "1.2".
	MinVersion string `yaml:"min_version" mapstructure:"min_version"`
}

var tlsVersions = map[string]uint16{
	"":    tls.VersionTLS12,
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// IsEnabled reports whether any TLS setting is configured.
func (c *TLSConfig) IsEnabled() bool {
	if c == nil {
		return false
	}
	return c.CertFile != "" || c.KeyFile != "" || c.CAFile != "" || c.SkipVerify || c.ServerName != ""
}

// Validate checks that the settings are consistent. field prefixes the
// config path in errors, e.g. "server.tls".
func (c *TLSConfig) Validate(field string) error {
	if c == nil {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return apperrors.ConfigInvalid(field+".cert_file", "cert_file and key_file must be provided together")
	}
	if _, ok := tlsVersions[c.MinVersion]; !ok {
		return apperrors.ConfigInvalid(field+".min_version", fmt.Sprintf("must be 1.2 or 1.3 (got: %s)", c.MinVersion))
	}
	return nil
}

// ServerConfig builds the listener side. It returns nil when TLS is off.
func (c *TLSConfig) ServerConfig() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	if c.CertFile == "" || c.KeyFile == "" {
		return nil, apperrors.ConfigMissing("tls.cert_file")
	}
	cfg := &tls.Config{MinVersion: tlsVersions[c.MinVersion]}
	if err := c.loadCert(cfg); err != nil {
		return nil, err
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg, nil
}

// ClientConfig builds the dialing side. It returns nil when TLS is off,
// leaving the transport on system defaults.
func (c *TLSConfig) ClientConfig() (*tls.Config, error) {
	if !c.IsEnabled() {
		return nil, nil
	}
	cfg := &tls.Config{
		MinVersion:         tlsVersions[c.MinVersion],
		InsecureSkipVerify: c.SkipVerify,
		ServerName:         c.ServerName,
	}
	if c.CAFile != "" {
		pool, err := loadPool(c.CAFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	if c.CertFile != "" && c.KeyFile != "" {
		if err := c.loadCert(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func (c *TLSConfig) loadCert(cfg *tls.Config) error {
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return apperrors.ConfigInvalid("tls.cert_file", fmt.Sprintf("load key pair: %v", err))
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}

func loadPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConfigInvalid("tls.ca_file", fmt.Sprintf("read CA file: %v", err))
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, apperrors.ConfigInvalid("tls.ca_file", "no certificates found in "+path)
	}
	return pool, nil
}
