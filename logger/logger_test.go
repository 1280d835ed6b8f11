package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func jsonLogger(buf *bytes.Buffer) *Logger {
	return NewWithWriter(&Config{Level: "debug", Format: "json"}, "voxd", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestNew_JSONIncludesService(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf).Info("hello")
	m := decodeLine(t, &buf)
	if m["service"] != "voxd" {
		t.Errorf("expected service field, got %v", m["service"])
	}
	if m["message"] != "hello" {
		t.Errorf("expected message, got %v", m["message"])
	}
}

func TestNewInvalidLevel(t *testing.T) {
	l := New(&Config{Level: "nope", Format: "json"}, "test")
	if l == nil {
		t.Fatal("expected logger to be created even with invalid level")
	}
}

func TestWithSessionAndProvider(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf).WithSession("s-1").WithProvider("whisper-local").Warn("slow")
	m := decodeLine(t, &buf)
	if m[FieldSessionID] != "s-1" {
		t.Errorf("expected session id, got %v", m[FieldSessionID])
	}
	if m[FieldProvider] != "whisper-local" {
		t.Errorf("expected provider, got %v", m[FieldProvider])
	}
}

func TestWithContext_PicksUpIDs(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithRequestID(context.Background(), "req-9")
	ctx = ContextWithSessionID(ctx, "sess-2")
	jsonLogger(&buf).WithContext(ctx).Info("x")
	m := decodeLine(t, &buf)
	if m[FieldRequestID] != "req-9" || m[FieldSessionID] != "sess-2" {
		t.Errorf("expected ids from context, got %v", m)
	}
}

func TestFieldsAreEmitted(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf).WithComponent("audio").Error("failed",
		ErrorFields("convert", errors.New("bad header")),
		ProviderFields("whisper-cpp", "convert", 1500*time.Millisecond))
	m := decodeLine(t, &buf)
	if m[FieldComponent] != "audio" {
		t.Errorf("expected component, got %v", m[FieldComponent])
	}
	if m[FieldError] != "bad header" {
		t.Errorf("expected error field, got %v", m[FieldError])
	}
	if m[FieldDuration] != float64(1500) {
		t.Errorf("expected duration 1500, got %v", m[FieldDuration])
	}
}

func TestNop_DiscardsOutput(t *testing.T) {
	Nop().WithFields(Fields("a", 1)).Info("ignored")
}

func TestConsoleFormat_NoColor(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", Format: "console", NoColor: true}, "voxd", &buf)
	l.Info("ready")
	out := buf.String()
	if !strings.Contains(out, "[VOX][INF]") {
		t.Errorf("expected service and level tags, got %q", out)
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" || !cfg.Timestamp {
		t.Errorf("unexpected defaults %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr bool
	}{
		{Config{Level: "info", Format: "json"}, false},
		{Config{Level: "debug", Format: "pretty"}, false},
		{Config{Level: "verbose", Format: "json"}, true},
		{Config{Level: "info", Format: "xml"}, true},
		{Config{Level: "info", Format: "json", Components: map[string]string{"api": "warn"}}, false},
		{Config{Level: "info", Format: "json", Components: map[string]string{"api": "loud"}}, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) error = %v, wantErr %v", tt.cfg, err, tt.wantErr)
		}
	}
}

func TestFields(t *testing.T) {
	m := Fields("a", 1, "b", "two", 3, "skipped", "dangling")
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected fields %v", m)
	}
	if len(m) != 2 {
		t.Errorf("expected 2 fields, got %d", len(m))
	}
}

func TestMergeWithError(t *testing.T) {
	m := MergeWithError(nil, errors.New("x"))
	if m[FieldError] != "x" {
		t.Errorf("expected error field, got %v", m)
	}
}

func TestRegisterAndGet(t *testing.T) {
	l := Nop()
	Register("custom", l)
	if Get("custom") != l {
		t.Error("expected registered logger")
	}
	if Get("unregistered") == nil {
		t.Error("expected fallback logger")
	}
}

func TestSetGlobalLogger(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)
	l := Nop()
	SetGlobalLogger(l)
	if GetGlobalLogger() != l {
		t.Error("expected global logger to be replaced")
	}
	Info("through global")
}

func TestComponentLevels(t *testing.T) {
	var buf bytes.Buffer
	base := jsonLogger(&buf)
	registerComponents(base, map[string]string{"api": "warn"})
	defer registerComponents(base, nil)

	Get("api").Info("request served")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered for api, got %s", buf.String())
	}
	Get("api").Warn("slow client")
	m := decodeLine(t, &buf)
	if m[FieldComponent] != "api" || m["message"] != "slow client" {
		t.Errorf("unexpected entry %v", m)
	}

	buf.Reset()
	Get("pipeline").Info("run started")
	if buf.Len() != 0 {
		t.Errorf("unregistered names should use the global logger, got %s", buf.String())
	}
}
