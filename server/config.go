package server

import (
	"fmt"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/security"
	"github.com/kbukum/voxkit/server/middleware"
	"github.com/kbukum/voxkit/util"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
	// Timeouts in seconds. WriteTimeout must outlast a pipeline run.
	ReadTimeout  int `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  int `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	// MaxBodySize caps uploads, e.g. "100MB".
	MaxBodySize string                `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS        middleware.CORSConfig `yaml:"cors" mapstructure:"cors"`
	// RateLimit is requests per minute per caller on /v1. Zero disables it.
	RateLimit int `yaml:"rate_limit" mapstructure:"rate_limit"`
	// TLS serves HTTPS when cert_file and key_file are set.
	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 8420
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 60
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 660
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "100MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return apperrors.ConfigInvalid("server.port", fmt.Sprintf("must be between 0 and 65535 (got: %d)", c.Port))
	}
	for field, v := range map[string]int{
		"server.read_timeout":  c.ReadTimeout,
		"server.write_timeout": c.WriteTimeout,
		"server.idle_timeout":  c.IdleTimeout,
		"server.rate_limit":    c.RateLimit,
	} {
		if v < 0 {
			return apperrors.ConfigInvalid(field, fmt.Sprintf("must be non-negative (got: %d)", v))
		}
	}
	if _, err := util.ParseSize(c.MaxBodySize); err != nil {
		return apperrors.ConfigInvalid("server.max_body_size", err.Error())
	}
	if err := c.TLS.Validate("server.tls"); err != nil {
		return err
	}
	if c.TLS.IsEnabled() && c.TLS.CertFile == "" {
		return apperrors.ConfigMissing("server.tls.cert_file")
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// maxBodyBytes is MaxBodySize in bytes; Validate guarantees it parses.
func (c *Config) maxBodyBytes() int64 {
	n, _ := util.ParseSize(c.MaxBodySize)
	return n
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }
