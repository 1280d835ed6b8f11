// Package secrets decrypts provider credentials stored in the config file.
//
// Values written as "enc:<base64>" are sealed with ChaCha20-Poly1305 (or
// AES-256-GCM) under a key derived from a passphrase in the environment:
//
//	c, err := secrets.Load(cfg.Secrets)
//	err = secrets.Decrypt(cfg.Providers.Transcribers, c, cfg.Secrets.KeyEnv)
package secrets
