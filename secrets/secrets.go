package secrets

import (
	"fmt"
	"os"
	"strings"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
)

// Prefix marks an encrypted option value in provider configuration.
const Prefix = "enc:"

// Config names where the passphrase comes from.
type Config struct {
	// KeyEnv is the environment variable holding the passphrase.
	KeyEnv    string    `yaml:"key_env" mapstructure:"key_env"`
	Algorithm Algorithm `yaml:"algorithm" mapstructure:"algorithm" validate:"omitempty,oneof=chacha20-poly1305 aes-256-gcm"`
}

// ApplyDefaults fills the default key variable.
func (c *Config) ApplyDefaults() {
	if c.KeyEnv == "" {
		c.KeyEnv = "VOXKIT_SECRET_KEY"
	}
}

// Load builds the Cipher from the environment. It returns nil, nil when the
// variable is unset; Decrypt then fails only if an encrypted value exists.
func Load(cfg Config) (Cipher, error) {
	cfg.ApplyDefaults()
	key := os.Getenv(cfg.KeyEnv)
	if key == "" {
		return nil, nil
	}
	c, err := NewCipher(key, cfg.Algorithm)
	if err != nil {
		return nil, apperrors.ConfigInvalid("secrets.algorithm", err.Error())
	}
	return c, nil
}

// Seal encrypts value and adds Prefix, producing a string ready to paste
// into the config file.
func Seal(c Cipher, value string) (string, error) {
	enc, err := c.Encrypt(value)
	if err != nil {
		return "", err
	}
	return Prefix + enc, nil
}

// Decrypt replaces every Prefix-marked string in the specs' options with its
// plaintext, in place. keyEnv is only used in the error for a missing key.
func Decrypt(specs []provider.Spec, c Cipher, keyEnv string) error {
	for i := range specs {
		if err := decryptMap(specs[i].Options, c, keyEnv, "providers."+specs[i].ID+".options"); err != nil {
			return apperrors.From(err, specs[i].ID)
		}
	}
	return nil
}

func decryptMap(m map[string]any, c Cipher, keyEnv, path string) error {
	for k, v := range m {
		field := path + "." + k
		switch val := v.(type) {
		case string:
			plain, ok, err := open(val, c, keyEnv, field)
			if err != nil {
				return err
			}
			if ok {
				m[k] = plain
			}
		case map[string]any:
			if err := decryptMap(val, c, keyEnv, field); err != nil {
				return err
			}
		case []any:
			for i, item := range val {
				s, isString := item.(string)
				if !isString {
					continue
				}
				plain, ok, err := open(s, c, keyEnv, fmt.Sprintf("%s[%d]", field, i))
				if err != nil {
					return err
				}
				if ok {
					val[i] = plain
				}
			}
		}
	}
	return nil
}

func open(v string, c Cipher, keyEnv, field string) (string, bool, error) {
	enc, found := strings.CutPrefix(v, Prefix)
	if !found {
		return "", false, nil
	}
	if c == nil {
		return "", false, apperrors.ConfigMissing(keyEnv).
			WithHint(fmt.Sprintf("%s is encrypted. Set %s to the passphrase used to seal it.", field, keyEnv))
	}
	plain, err := c.Decrypt(enc)
	if err != nil {
		return "", false, apperrors.ConfigInvalid(field, "cannot decrypt value: "+err.Error())
	}
	return plain, true, nil
}

// Reveal returns v decrypted when it carries Prefix and v unchanged
// otherwise. field names the setting in errors.
func Reveal(v string, c Cipher, keyEnv, field string) (string, error) {
	plain, ok, err := open(v, c, keyEnv, field)
	if err != nil {
		return "", err
	}
	if !ok {
		return v, nil
	}
	return plain, nil
}
