package telemetry

import (
	"context"
	"time"

	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
)

// EventType discriminates Event.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventStage            EventType = "stage"
	EventSessionCompleted EventType = "session_completed"
	EventSessionAbandoned EventType = "session_abandoned"
)

// Event is what sinks receive. Stage is set for stage events, Session for
// session starts and Summary when a session ends.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	Stage     *Stage    `json:"stage,omitempty"`
	// Elapsed is the time since the phase's start stage, for stages that
	// close or redirect a phase.
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
	Session *Session      `json:"session,omitempty"`
	Summary *Summary      `json:"summary,omitempty"`
}

// Sink receives telemetry events.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Emit(ctx context.Context, ev Event) error { return f(ctx, ev) }

// LogSink writes events to a structured logger. Stages log at debug level,
// session ends at info.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the "telemetry" component
// logger.
func NewLogSink(l *logger.Logger) *LogSink {
	if l == nil {
		l = logger.Get("telemetry")
	}
	return &LogSink{log: l}
}

func (s *LogSink) Emit(_ context.Context, ev Event) error {
	log := s.log.WithSession(ev.SessionID)
	switch ev.Type {
	case EventSessionStarted:
		log.Info("session started", logger.Fields(
			"transcription_provider", ev.Session.TranscriptionProvider,
			"summarization_provider", ev.Session.SummarizationProvider,
		))
	case EventStage:
		fields := logger.Fields(logger.FieldStage, ev.Stage.Type, logger.FieldProvider, ev.Stage.ProviderID)
		if ev.Elapsed > 0 {
			fields[logger.FieldDuration] = ev.Elapsed.Milliseconds()
		}
		if ev.Stage.Error != "" {
			fields[logger.FieldError] = ev.Stage.Error
			log.Warn("session stage", fields)
			return nil
		}
		log.Debug("session stage", fields)
	case EventSessionCompleted, EventSessionAbandoned:
		log.Info("session "+string(ev.Summary.Status), logger.Fields(
			logger.FieldStatus, ev.Summary.Status,
			logger.FieldDuration, ev.Summary.DurationMs,
			"stages", len(ev.Summary.Stages),
			"errors", ev.Summary.ErrorCount,
			"fallbacks", ev.Summary.FallbackCount,
		))
	}
	return nil
}

// OTelSink feeds OpenTelemetry instruments.
type OTelSink struct {
	metrics *observability.Metrics
}

// NewOTelSink creates a sink over m.
func NewOTelSink(m *observability.Metrics) *OTelSink {
	return &OTelSink{metrics: m}
}

func (s *OTelSink) Emit(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventSessionStarted:
		s.metrics.SessionStarted(ctx)
	case EventStage:
		s.metrics.RecordStage(ctx, string(ev.Stage.Type), ev.Stage.ProviderID)
		if ev.Stage.Type.IsFallback() {
			s.metrics.RecordFallback(ctx, ev.Stage.Type.Phase(), ev.Stage.ProviderID)
		}
	case EventSessionCompleted, EventSessionAbandoned:
		s.metrics.SessionEnded(ctx, string(ev.Summary.Status), ev.Summary.Duration)
	}
	return nil
}
