package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
)

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{SampleRate: 0}
	cfg.ApplyDefaults("voxd")

	if cfg.ServiceName != "voxd" || cfg.Endpoint != "localhost:4318" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected Interval 15s, got %v", cfg.Interval)
	}
	if cfg.SampleRate != 0 {
		t.Errorf("explicit sample rate must be kept, got %f", cfg.SampleRate)
	}
}

func TestSetup_Disabled(t *testing.T) {
	m, shutdown, err := Setup(context.Background(), &Config{})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if m == nil {
		t.Fatal("disabled export should still return instruments")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestMetrics_RecordProviderCall(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordProviderCall(ctx, "openai-whisper", "transcriber", "transcribe", apperrors.RateLimited("openai-whisper"), 200*time.Millisecond)
	m.RecordFallback(ctx, "transcription", "openai-whisper")
	m.SessionStarted(ctx)
	m.SessionEnded(ctx, "completed", time.Second)

	data := collect(t, reader)
	calls, ok := data["voxkit.provider.calls"].(metricdata.Sum[int64])
	if !ok || len(calls.DataPoints) != 1 {
		t.Fatalf("expected one provider call point, got %#v", data["voxkit.provider.calls"])
	}
	dp := calls.DataPoints[0]
	if code, _ := dp.Attributes.Value(attribute.Key("code")); code.AsString() != "RATE_LIMITED" || dp.Value != 1 {
		t.Errorf("unexpected data point %+v", dp)
	}
	if _, ok := data["voxkit.fallbacks"]; !ok {
		t.Error("fallback counter not exported")
	}
	active, ok := data["voxkit.sessions.active"].(metricdata.Sum[int64])
	if !ok || active.DataPoints[0].Value != 0 {
		t.Errorf("active sessions should be back to 0, got %#v", data["voxkit.sessions.active"])
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordProviderCall(ctx, "p", "k", "op", nil, time.Millisecond)
	m.RecordStage(ctx, "transcription_start", "p")
	m.RecordFallback(ctx, "transcription", "p")
	m.SessionStarted(ctx)
	m.SessionEnded(ctx, "completed", time.Millisecond)
}

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func TestProviderSpan(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := StartProviderSpan(context.Background(), "whisper-cpp", "transcriber", "transcribe")
	span.End(ctx, nil, apperrors.ProcessingFailed("whisper-cpp", errors.New("exit 1")))

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != SpanProviderCall {
		t.Fatalf("expected one %s span, got %d", SpanProviderCall, len(ended))
	}
	attrs := map[attribute.Key]string{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	if attrs[AttrProvider] != "whisper-cpp" || attrs[AttrErrorCode] != "PROCESSING_FAILED" {
		t.Errorf("unexpected attributes %v", attrs)
	}
	if len(ended[0].Events()) == 0 {
		t.Error("error should be recorded as a span event")
	}
}

func TestSetSpanAttributeAndError(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := StartSpan(context.Background(), SpanTranscription)
	SetSpanAttribute(ctx, AttrSessionID, "s-1")
	SetSpanAttribute(ctx, AttrFallback, true)
	SetSpanError(ctx, apperrors.Timeout("openai-whisper", time.Second))
	SetSpanError(ctx, nil)
	span.End()

	s := rec.Ended()[0]
	var sawSession, sawCode bool
	for _, kv := range s.Attributes() {
		switch kv.Key {
		case AttrSessionID:
			sawSession = kv.Value.AsString() == "s-1"
		case AttrErrorCode:
			sawCode = kv.Value.AsString() == "CONNECTION_TIMEOUT"
		}
	}
	if !sawSession || !sawCode {
		t.Errorf("attributes missing: %v", s.Attributes())
	}
}

func TestSpanFromContext_Noop(t *testing.T) {
	if SpanFromContext(context.Background()) == nil {
		t.Fatal("expected non-nil span (noop)")
	}
	SetSpanAttribute(context.Background(), "k", "v")
}

func TestServiceHealth(t *testing.T) {
	up := provider.Info{ID: "openai-whisper", Kind: provider.KindTranscriber, Class: provider.ClassCloud}
	down := provider.Info{ID: "ollama", Kind: provider.KindSummarizer, Class: provider.ClassLocal}

	tests := []struct {
		name   string
		probes []Health
		want   HealthStatus
	}{
		{"none", nil, HealthStatusUp},
		{"all up", []Health{ProviderHealth(up, provider.Healthy("whisper-1"))}, HealthStatusUp},
		{"some down", []Health{
			ProviderHealth(up, provider.Healthy()),
			ProviderHealth(down, provider.Unhealthy("Ollama is not reachable")),
		}, HealthStatusDegraded},
		{"all down", []Health{
			ProviderHealth(up, provider.Unhealthy("no key")),
			ProviderHealth(down, provider.Unhealthy("not reachable")),
		}, HealthStatusDown},
		{"degraded component", []Health{
			{Name: "a", Status: HealthStatusUp},
			{Name: "b", Status: HealthStatusDegraded},
		}, HealthStatusDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := NewServiceHealth("voxd", "dev")
			for _, h := range tt.probes {
				sh.AddComponent(h)
			}
			if sh.Status != tt.want {
				t.Errorf("Status = %s, want %s", sh.Status, tt.want)
			}
			if len(sh.Components) != len(tt.probes) {
				t.Errorf("expected %d components, got %d", len(tt.probes), len(sh.Components))
			}
		})
	}
}

func TestProviderHealth_CarriesDetails(t *testing.T) {
	h := ProviderHealth(provider.Info{ID: "ollama", Kind: provider.KindSummarizer}, provider.Unhealthy("run 'ollama serve'"))
	if h.Status != HealthStatusDown || h.Message != "run 'ollama serve'" || h.Kind != provider.KindSummarizer {
		t.Errorf("unexpected %+v", h)
	}
}
