package auth

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	apperrors "github.com/kbukum/voxkit/errors"
)

// Method is a supported HMAC signing algorithm.
type Method string

const (
	HS256 Method = "HS256"
	HS384 Method = "HS384"
	HS512 Method = "HS512"
)

// minSecretLen is the shortest accepted HMAC secret in bytes.
const minSecretLen = 32

// Config configures bearer-token authentication of the API.
type Config struct {
	// Enabled turns the middleware on. When false every request passes.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Secret is the HMAC key. It may be sealed with the secrets package.
	Secret string `yaml:"secret" mapstructure:"secret"`
	// Method is the signing algorithm (default HS256).
	Method   Method `yaml:"method" mapstructure:"method"`
	Issuer   string `yaml:"issuer" mapstructure:"issuer"`
	Audience string `yaml:"audience" mapstructure:"audience"`
	// TokenTTL is the lifetime of tokens minted by Issue (default 24h).
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// SkipPaths are URL path prefixes served without a token.
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.SkipPaths == nil {
		c.SkipPaths = []string{"/health", "/alive", "/metrics"}
	}
}

// Validate checks the configuration. A disabled config is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Secret == "" {
		return apperrors.ConfigMissing("auth.secret")
	}
	if len(c.Secret) < minSecretLen {
		return apperrors.ConfigInvalid("auth.secret", fmt.Sprintf("must be at least %d bytes", minSecretLen))
	}
	if c.signingMethod() == nil {
		return apperrors.ConfigInvalid("auth.method", "unsupported signing method "+string(c.Method))
	}
	if c.TokenTTL < 0 {
		return apperrors.ConfigInvalid("auth.token_ttl", "must not be negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	switch c.Method {
	case HS256:
		return gojwt.SigningMethodHS256
	case HS384:
		return gojwt.SigningMethodHS384
	case HS512:
		return gojwt.SigningMethodHS512
	default:
		return nil
	}
}
