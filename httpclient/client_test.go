package httpclient

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/resilience"
	"github.com/kbukum/voxkit/security/tlstest"
)

func newTestClient(t *testing.T, url string, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{ProviderID: "test-provider", BaseURL: url, Timeout: 2 * time.Second}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{ProviderID: "p"})
	if !apperrors.Is(err, apperrors.ErrCodeConfigInvalid) {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestDoJSON_SendsAuthAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Path != "/v1/models" || r.URL.Query().Get("limit") != "2" {
			t.Errorf("unexpected url %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"whisper-1"}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/v1", func(cfg *Config) { cfg.Auth = BearerAuth("sk-test") })
	type models struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	got, err := DoJSON[models](context.Background(), c, Request{Method: http.MethodGet, Path: "/models", Query: map[string]string{"limit": "2"}})
	if err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if len(got.Data) != 1 || got.Data[0].ID != "whisper-1" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestDo_MissingAuthFailsFast(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Auth = BearerAuth("") })
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !apperrors.Is(err, apperrors.ErrCodeAuthMissing) {
		t.Fatalf("expected AUTH_MISSING, got %v", err)
	}
	if called {
		t.Error("request must not be sent without credentials")
	}
}

func TestDo_ClassifiesStatus(t *testing.T) {
	tests := []struct {
		status int
		body   string
		code   apperrors.ErrorCode
	}{
		{401, `{"error":{"message":"Incorrect API key provided"}}`, apperrors.ErrCodeAuthInvalid},
		{402, ``, apperrors.ErrCodeQuotaExceeded},
		{413, ``, apperrors.ErrCodeFileTooLarge},
		{415, ``, apperrors.ErrCodeUnsupportedFormat},
		{429, `{"error":{"message":"Rate limit reached"}}`, apperrors.ErrCodeRateLimited},
		{429, `{"error":{"type":"insufficient_quota","message":"You exceeded your current quota"}}`, apperrors.ErrCodeQuotaExceeded},
		{503, `{"detail":"model loading"}`, apperrors.ErrCodeProviderUnavailable},
		{422, `{"detail":"bad audio"}`, apperrors.ErrCodeProcessingFailed},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, nil)
			_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/x", Body: map[string]string{"a": "b"}})
			appErr, ok := apperrors.AsAppError(err)
			if !ok {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, appErr.Code)
			}
			if appErr.ProviderID != "test-provider" {
				t.Errorf("expected provider id, got %q", appErr.ProviderID)
			}
			if appErr.Metadata["status"] != tt.status {
				t.Errorf("expected status metadata %d, got %v", tt.status, appErr.Metadata["status"])
			}
		})
	}
}

func TestBodyMessage(t *testing.T) {
	tests := map[string]string{
		`{"error":{"message":"nested"}}`: "nested",
		`{"error":"flat"}`:               "flat",
		`{"detail":"fastapi"}`:           "fastapi",
		`{"message":"plain"}`:            "plain",
		`not json`:                       "not json",
	}
	for body, want := range tests {
		if got := bodyMessage([]byte(body)); got != want {
			t.Errorf("bodyMessage(%s) = %q, want %q", body, got, want)
		}
	}
}

func TestDo_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, nil)
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"})
	if !apperrors.Is(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}
}

func TestDo_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) { cfg.Timeout = 50 * time.Millisecond })
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/slow"})
	if !apperrors.Is(err, apperrors.ErrCodeConnectionTimeout) {
		t.Fatalf("expected CONNECTION_TIMEOUT, got %v", err)
	}
}

func TestDo_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "hello") {
			t.Errorf("body not resent on retry: %q", body)
		}
		if calls < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.Resilience = provider.ResilienceConfig{
			Retry: &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
		}
	})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/", Body: "hello"})
	if err != nil {
		t.Fatalf("expected success after retry, got %v", err)
	}
	if calls != 2 || string(resp.Body) != "ok" {
		t.Errorf("calls=%d body=%q", calls, resp.Body)
	}
}

func TestMultipartBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("model") != "whisper-1" {
			t.Errorf("missing field, got %q", r.FormValue("model"))
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if hdr.Filename != `rec"1.wav` || string(data) != "RIFF" {
			t.Errorf("unexpected file %q %q", hdr.Filename, data)
		}
		if hdr.Header.Get("Content-Type") != "audio/wav" {
			t.Errorf("unexpected content type %q", hdr.Header.Get("Content-Type"))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil)
	_, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/audio",
		Body: &MultipartBody{
			Fields: map[string]string{"model": "whisper-1"},
			Files:  []FileField{{FieldName: "file", FileName: `rec"1.wav`, ContentType: "audio/wav", Data: []byte("RIFF")}},
		},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDo_PrivateCA(t *testing.T) {
	certs := tlstest.Generate(t)
	pair, err := tls.LoadX509KeyPair(certs.CertFile, certs.KeyFile)
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{pair}, MinVersion: tls.VersionTLS12}
	srv.StartTLS()
	defer srv.Close()

	untrusted := newTestClient(t, srv.URL, nil)
	if _, err := untrusted.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"}); err == nil {
		t.Fatal("system roots should not trust the test CA")
	}

	opts := provider.Options{"ca_file": certs.CAFile}
	trusted := newTestClient(t, srv.URL, func(cfg *Config) { cfg.TLS = TLSFromOptions(opts) })
	if _, err := trusted.Do(context.Background(), Request{Method: http.MethodGet, Path: "/health"}); err != nil {
		t.Fatalf("ca_file should make the sidecar trusted: %v", err)
	}

	if TLSFromOptions(provider.Options{"model": "base"}) != nil {
		t.Error("options without TLS keys should leave TLS off")
	}
}

func TestNew_BadCAFile(t *testing.T) {
	_, err := New(Config{
		ProviderID: "whisper-local",
		BaseURL:    "https://whisper.lan",
		TLS:        TLSFromOptions(provider.Options{"ca_file": "/nonexistent/ca.pem"}),
	})
	if !apperrors.Is(err, apperrors.ErrCodeConfigInvalid) {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}
}
