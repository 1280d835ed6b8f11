package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
)

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Emit(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

// stepClock returns the given instants in order, then repeats the last one.
func stepClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestSession_Lifecycle(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)

	id := tr.StartSession("mic", "whisper-cpp", "ollama")
	if id == "" {
		t.Fatal("expected a session id")
	}
	tr.TrackStage(StageTranscriptionStart, "whisper-cpp", nil, nil)
	tr.TrackStage(StageTranscriptionSuccess, "whisper-cpp", map[string]any{"language": "en"}, nil)
	tr.TrackStage(StageSummarizationStart, "ollama", nil, nil)
	tr.TrackStage(StageSummarizationSuccess, "ollama", nil, nil)

	cur := tr.Current()
	if cur == nil || cur.ID != id || len(cur.Stages) != 4 || cur.Status != StatusActive {
		t.Fatalf("unexpected current session %+v", cur)
	}

	sum := tr.CompleteSession(map[string]any{"topic": true})
	if sum == nil || sum.SessionID != id || sum.Status != StatusCompleted {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(sum.Stages) != 4 || sum.ErrorCount != 0 || sum.Options["topic"] != true {
		t.Errorf("unexpected summary contents %+v", sum)
	}
	if tr.Current() != nil {
		t.Error("session should be cleared after completion")
	}

	want := []EventType{EventSessionStarted, EventStage, EventStage, EventStage, EventStage, EventSessionCompleted}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTracking_NoSessionIsNoop(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)

	tr.TrackStage(StageTranscriptionStart, "p", nil, errors.New("boom"))
	if sum := tr.CompleteSession(nil); sum != nil {
		t.Errorf("CompleteSession without a session = %+v, want nil", sum)
	}
	if tr.Current() != nil {
		t.Error("Current should be nil when idle")
	}
	if len(rec.types()) != 0 {
		t.Errorf("idle tracker emitted %v", rec.types())
	}
}

func TestTimestamps_NonDecreasing(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()
	// The clock jumps backwards between stages.
	tr.now = stepClock(base, base.Add(2*time.Second), base.Add(time.Second), base.Add(3*time.Second), base)

	tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", nil, nil)
	tr.TrackStage(StageTranscriptionSuccess, "t", nil, nil)
	tr.TrackStage(StageSummarizationStart, "s", nil, nil)

	stages := tr.Current().Stages
	for i := 1; i < len(stages); i++ {
		if stages[i].Timestamp.Before(stages[i-1].Timestamp) {
			t.Errorf("stage %d at %v precedes stage %d at %v", i, stages[i].Timestamp, i-1, stages[i-1].Timestamp)
		}
	}
	sum := tr.CompleteSession(nil)
	if sum.CompletedAt.Before(stages[len(stages)-1].Timestamp) {
		t.Errorf("completion %v precedes the last stage", sum.CompletedAt)
	}
}

func TestStageEvents_CarryPhaseElapsed(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rec := &recorder{}
	tr := NewTracker(rec)
	tr.now = stepClock(base, base.Add(time.Second), base.Add(4*time.Second))

	tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", nil, nil)
	tr.TrackStage(StageTranscriptionSuccess, "t", nil, nil)

	last := rec.events[len(rec.events)-1]
	if last.Elapsed != 3*time.Second {
		t.Errorf("Elapsed = %v, want 3s", last.Elapsed)
	}
}

func TestStartSession_AbandonsOpenSession(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(rec)

	first := tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", nil, nil)
	second := tr.StartSession("", "t2", "s2")

	if first == second {
		t.Fatal("session ids must differ")
	}
	var abandoned *Summary
	for _, ev := range rec.events {
		if ev.Type == EventSessionAbandoned {
			abandoned = ev.Summary
		}
	}
	if abandoned == nil || abandoned.SessionID != first || abandoned.Status != StatusAbandoned || len(abandoned.Stages) != 1 {
		t.Fatalf("expected abandoned aggregate for %s, got %+v", first, abandoned)
	}
	cur := tr.Current()
	if cur.ID != second || len(cur.Stages) != 0 || cur.TranscriptionProvider != "t2" {
		t.Errorf("new session should start clean, got %+v", cur)
	}
}

func TestCompleteSession_FailedStatus(t *testing.T) {
	tr := NewTracker()
	tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", nil, nil)
	tr.TrackStage(StageTranscriptionFallback, "openai-whisper", nil, apperrors.Timeout("t", time.Second))
	tr.TrackStage(StageTranscriptionError, "openai-whisper", nil, apperrors.RateLimited("openai-whisper"))

	sum := tr.CompleteSession(nil)
	if sum.Status != StatusFailed || sum.ErrorCount != 1 || sum.FallbackCount != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}
	if !strings.HasPrefix(sum.Stages[2].Error, "RATE_LIMITED") {
		t.Errorf("stage error should carry the code, got %q", sum.Stages[2].Error)
	}
}

func TestCurrent_IsDeepCopy(t *testing.T) {
	tr := NewTracker()
	tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", map[string]any{"language": "en"}, nil)

	cur := tr.Current()
	cur.Stages[0].Options["language"] = "de"
	cur.Stages = append(cur.Stages, Stage{Type: StageTranscriptionError})

	again := tr.Current()
	if len(again.Stages) != 1 || again.Stages[0].Options["language"] != "en" {
		t.Errorf("mutating a copy changed the tracker: %+v", again)
	}
}

func TestSinkErrors_AreSwallowed(t *testing.T) {
	var buf bytes.Buffer
	failing := SinkFunc(func(context.Context, Event) error { return errors.New("collector down") })
	rec := &recorder{}
	tr := NewTracker(failing, rec)
	tr.log = logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)

	tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", nil, nil)
	if sum := tr.CompleteSession(nil); sum == nil {
		t.Fatal("sink failure must not affect the session")
	}
	if len(rec.types()) != 3 {
		t.Errorf("later sinks should still receive events, got %v", rec.types())
	}
	if !strings.Contains(buf.String(), "collector down") {
		t.Errorf("sink failure should be logged, got %q", buf.String())
	}
}

func TestConcurrentTracking(t *testing.T) {
	tr := NewTracker(&recorder{})
	tr.StartSession("", "t", "s")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.TrackStage(StageSummarizationStart, "s", nil, nil)
			_ = tr.Current()
		}()
	}
	wg.Wait()
	if n := len(tr.Current().Stages); n != 20 {
		t.Errorf("expected 20 stages, got %d", n)
	}
}

func TestStageType(t *testing.T) {
	tests := []struct {
		typ      StageType
		phase    string
		start    bool
		err      bool
		fallback bool
	}{
		{StageTranscriptionStart, "transcription", true, false, false},
		{StageSummarizationFallback, "summarization", false, false, true},
		{StageHealthCheckError, "health_check", false, true, false},
		{StageRecordingSuccess, "recording", false, false, false},
	}
	for _, tt := range tests {
		if tt.typ.Phase() != tt.phase || tt.typ.IsStart() != tt.start || tt.typ.IsError() != tt.err || tt.typ.IsFallback() != tt.fallback {
			t.Errorf("%s: phase=%s start=%v error=%v fallback=%v", tt.typ, tt.typ.Phase(), tt.typ.IsStart(), tt.typ.IsError(), tt.typ.IsFallback())
		}
	}
}

func TestLogAndOTelSinks(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	m, err := observability.NewMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatal(err)
	}
	tr := NewTracker(NewLogSink(l), NewOTelSink(m))

	id := tr.StartSession("", "t", "s")
	tr.TrackStage(StageTranscriptionStart, "t", nil, nil)
	tr.TrackStage(StageTranscriptionFallback, "openai-whisper", nil, errors.New("exit status 1"))
	tr.CompleteSession(nil)

	out := buf.String()
	for _, want := range []string{"session started", "exit status 1", "session completed", id} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestCompleteSession_RecoveredHealthCheck(t *testing.T) {
	tr := NewTracker()
	tr.StartSession("", "openai-whisper", "s")
	tr.TrackStage(StageHealthCheckError, "whisper-cpp", nil, errors.New("binary not found"))
	tr.TrackStage(StageTranscriptionStart, "openai-whisper", nil, nil)
	tr.TrackStage(StageTranscriptionSuccess, "openai-whisper", nil, nil)
	if sum := tr.CompleteSession(nil); sum.Status != StatusCompleted || sum.ErrorCount != 1 {
		t.Errorf("unexpected summary %+v", sum)
	}

	tr.StartSession("", "t", "s")
	tr.TrackStage(StageHealthCheckError, "t", nil, errors.New("down"))
	if sum := tr.CompleteSession(nil); sum.Status != StatusFailed {
		t.Errorf("a session ending on a health check error failed, got %s", sum.Status)
	}
}
