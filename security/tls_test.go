package security

import (
	"crypto/tls"
	"testing"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/security/tlstest"
)

func TestTLSConfig_IsEnabled(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		enabled bool
	}{
		{"nil", nil, false},
		{"zero", &TLSConfig{}, false},
		{"skip_verify", &TLSConfig{SkipVerify: true}, true},
		{"ca_file", &TLSConfig{CAFile: "ca.pem"}, true},
		{"cert_file", &TLSConfig{CertFile: "cert.pem"}, true},
		{"server_name", &TLSConfig{ServerName: "whisper.lan"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsEnabled(); got != tt.enabled {
				t.Errorf("IsEnabled() = %v, want %v", got, tt.enabled)
			}
		})
	}
}

func TestTLSConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TLSConfig
		wantErr bool
	}{
		{"nil", nil, false},
		{"pair", &TLSConfig{CertFile: "cert.pem", KeyFile: "key.pem"}, false},
		{"cert only", &TLSConfig{CertFile: "cert.pem"}, true},
		{"key only", &TLSConfig{KeyFile: "key.pem"}, true},
		{"tls13", &TLSConfig{MinVersion: "1.3"}, false},
		{"tls10", &TLSConfig{MinVersion: "1.0"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate("server.tls")
			if tt.wantErr != (err != nil) {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !apperrors.Is(err, apperrors.ErrCodeConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}

func TestServerConfig(t *testing.T) {
	certs := tlstest.Generate(t)

	off, err := (&TLSConfig{}).ServerConfig()
	if err != nil || off != nil {
		t.Fatalf("disabled config should build nothing, got %v %v", off, err)
	}

	cfg, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}).ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig: %v", err)
	}
	if len(cfg.Certificates) != 1 || cfg.ClientAuth != tls.NoClientCert || cfg.MinVersion != tls.VersionTLS12 {
		t.Errorf("unexpected server config %+v", cfg)
	}

	mtls, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, CAFile: certs.CAFile, MinVersion: "1.3"}).ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig mtls: %v", err)
	}
	if mtls.ClientAuth != tls.RequireAndVerifyClientCert || mtls.ClientCAs == nil || mtls.MinVersion != tls.VersionTLS13 {
		t.Errorf("CA file should require client certs, got %+v", mtls)
	}

	if _, err := (&TLSConfig{CAFile: certs.CAFile}).ServerConfig(); !apperrors.Is(err, apperrors.ErrCodeConfigMissing) {
		t.Errorf("server without a key pair should fail with CONFIG_MISSING, got %v", err)
	}
}

func TestClientConfig(t *testing.T) {
	certs := tlstest.Generate(t)

	cfg, err := (&TLSConfig{CAFile: certs.CAFile, ServerName: "localhost"}).ClientConfig()
	if err != nil {
		t.Fatalf("ClientConfig: %v", err)
	}
	if cfg.RootCAs == nil || cfg.ServerName != "localhost" || len(cfg.Certificates) != 0 {
		t.Errorf("unexpected client config %+v", cfg)
	}

	skip, err := (&TLSConfig{SkipVerify: true}).ClientConfig()
	if err != nil || !skip.InsecureSkipVerify {
		t.Errorf("skip_verify not applied: %+v %v", skip, err)
	}

	withCert, err := (&TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile}).ClientConfig()
	if err != nil || len(withCert.Certificates) != 1 {
		t.Errorf("client cert not loaded: %v", err)
	}
}

func TestBuild_BadFiles(t *testing.T) {
	bad := tlstest.WriteInvalidPEM(t, "bad-ca.pem")
	tests := []struct {
		name string
		cfg  *TLSConfig
	}{
		{"missing CA", &TLSConfig{CAFile: "/nonexistent/ca.pem"}},
		{"invalid CA", &TLSConfig{CAFile: bad}},
		{"missing pair", &TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.ClientConfig(); !apperrors.Is(err, apperrors.ErrCodeConfigInvalid) {
				t.Errorf("expected CONFIG_INVALID, got %v", err)
			}
		})
	}
}
