package whisper

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/voxkit/audio"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/transcription"
)

func sidecar(t *testing.T, gotFields map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = io.WriteString(w, `{"status":"ok","model":"small"}`)
		case "/transcribe":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse multipart: %v", err)
				return
			}
			for k, v := range r.MultipartForm.Value {
				gotFields[k] = v[0]
			}
			f, hdr, err := r.FormFile("audio")
			if err != nil {
				t.Errorf("missing audio part: %v", err)
				return
			}
			_ = f.Close()
			if hdr.Filename != "audio.wav" {
				t.Errorf("unexpected filename %q", hdr.Filename)
			}
			_, _ = io.WriteString(w, `{"text":"","language":"en","segments":[
				{"text":" one","start":0,"end":0.8,"probability":0.9},
				{"text":" two","start":0.8,"end":1.6,"probability":0.8}]}`)
		}
	}))
}

func TestTranscribe_ConvertsBufferToWAV(t *testing.T) {
	fields := map[string]string{}
	srv := sidecar(t, fields)
	defer srv.Close()

	svc, err := audio.NewService(audio.Config{TempDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewProvider("", "", Config{URL: srv.URL, Device: "cpu"}, svc)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Transcribe(context.Background(), transcription.FromBuffer([]byte{0, 0, 1, 0}, "audio/L16;rate=16000"),
		&transcription.Options{Language: "en"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "one two" || res.Metadata.DurationSec != 1.6 || res.Metadata.Model != defaultWhisperModel {
		t.Errorf("unexpected result %+v", res)
	}
	if fields["model"] != defaultWhisperModel || fields["language"] != "en" || fields["device"] != "cpu" {
		t.Errorf("unexpected fields %v", fields)
	}
}

func TestTranscribe_SidecarDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc, _ := audio.NewService(audio.Config{TempDir: t.TempDir()})
	p, _ := NewProvider("", "", Config{URL: url}, svc)
	_, err := p.Transcribe(context.Background(), transcription.FromBuffer([]byte{0, 0}, "audio/pcm"), nil)
	if !apperrors.Is(err, apperrors.ErrCodeConnectionFailed) {
		t.Fatalf("expected CONNECTION_FAILED, got %v", err)
	}

	h := p.Check(context.Background())
	if h.OK || h.Details == "" {
		t.Errorf("expected unhealthy with details, got %+v", h)
	}
}

func TestCheck(t *testing.T) {
	srv := sidecar(t, map[string]string{})
	defer srv.Close()
	p, _ := NewProvider("", "", Config{URL: srv.URL}, nil)
	if h := p.Check(context.Background()); !h.OK || !h.Supports("small") {
		t.Errorf("expected healthy sidecar reporting its model, got %+v", h)
	}
}

func TestConfigFromOptions(t *testing.T) {
	cfg := ConfigFromOptions("whisper-local", provider.Options{"host": "10.0.0.2", "port": 9000, "model": "medium"})
	if cfg.URL != "http://10.0.0.2:9000" || cfg.Model != "medium" {
		t.Errorf("unexpected config %+v", cfg)
	}
}
