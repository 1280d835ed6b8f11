package telemetry

import (
	"maps"
	"strings"
	"time"
)

// StageType names one event in a session's lifecycle.
type StageType string

const (
	StageRecordingStart        StageType = "recording_start"
	StageRecordingSuccess      StageType = "recording_success"
	StageRecordingError        StageType = "recording_error"
	StageTranscriptionStart    StageType = "transcription_start"
	StageTranscriptionSuccess  StageType = "transcription_success"
	StageTranscriptionError    StageType = "transcription_error"
	StageTranscriptionFallback StageType = "transcription_fallback"
	StageSummarizationStart    StageType = "summarization_start"
	StageSummarizationSuccess  StageType = "summarization_success"
	StageSummarizationError    StageType = "summarization_error"
	StageSummarizationFallback StageType = "summarization_fallback"
	StageHealthCheckError      StageType = "health_check_error"
)

// Phase returns the part before the outcome suffix, e.g. "transcription".
func (t StageType) Phase() string {
	s := string(t)
	if i := strings.LastIndexByte(s, '_'); i > 0 {
		return s[:i]
	}
	return s
}

// IsStart reports whether t opens a phase.
func (t StageType) IsStart() bool { return strings.HasSuffix(string(t), "_start") }

// IsError reports whether t is a terminal failure of a phase.
func (t StageType) IsError() bool { return strings.HasSuffix(string(t), "_error") }

// IsFallback reports whether t records a switch to the default provider.
func (t StageType) IsFallback() bool { return strings.HasSuffix(string(t), "_fallback") }

// Stage is one recorded event.
type Stage struct {
	Type       StageType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	ProviderID string         `json:"provider_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusAbandoned Status = "abandoned"
)

// Session correlates the stages of one record, transcribe and summarize run.
// Provider ids are fixed when the session opens.
type Session struct {
	ID                    string     `json:"id"`
	RecordingProvider     string     `json:"recording_provider,omitempty"`
	TranscriptionProvider string     `json:"transcription_provider,omitempty"`
	SummarizationProvider string     `json:"summarization_provider,omitempty"`
	StartedAt             time.Time  `json:"started_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	Status                Status     `json:"status"`
	Stages                []Stage    `json:"stages"`
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.CompletedAt != nil {
		at := *s.CompletedAt
		c.CompletedAt = &at
	}
	c.Stages = make([]Stage, len(s.Stages))
	for i, st := range s.Stages {
		st.Options = maps.Clone(st.Options)
		c.Stages[i] = st
	}
	return &c
}

// StageTiming is a stage positioned relative to session start.
type StageTiming struct {
	Type       StageType `json:"type"`
	ProviderID string    `json:"provider_id,omitempty"`
	OffsetMs   int64     `json:"offset_ms"`
	Error      string    `json:"error,omitempty"`
}

// Summary is the aggregate emitted when a session ends.
type Summary struct {
	SessionID             string         `json:"session_id"`
	Status                Status         `json:"status"`
	RecordingProvider     string         `json:"recording_provider,omitempty"`
	TranscriptionProvider string         `json:"transcription_provider,omitempty"`
	SummarizationProvider string         `json:"summarization_provider,omitempty"`
	StartedAt             time.Time      `json:"started_at"`
	CompletedAt           time.Time      `json:"completed_at"`
	Duration              time.Duration  `json:"-"`
	DurationMs            int64          `json:"duration_ms"`
	Stages                []StageTiming  `json:"stages"`
	ErrorCount            int            `json:"error_count"`
	FallbackCount         int            `json:"fallback_count"`
	Options               map[string]any `json:"options,omitempty"`
}

func summarize(s *Session, status Status, end time.Time, opts map[string]any) *Summary {
	sum := &Summary{
		SessionID:             s.ID,
		Status:                status,
		RecordingProvider:     s.RecordingProvider,
		TranscriptionProvider: s.TranscriptionProvider,
		SummarizationProvider: s.SummarizationProvider,
		StartedAt:             s.StartedAt,
		CompletedAt:           end,
		Duration:              end.Sub(s.StartedAt),
		Stages:                make([]StageTiming, 0, len(s.Stages)),
		Options:               maps.Clone(opts),
	}
	sum.DurationMs = sum.Duration.Milliseconds()
	for _, st := range s.Stages {
		sum.Stages = append(sum.Stages, StageTiming{
			Type:       st.Type,
			ProviderID: st.ProviderID,
			OffsetMs:   st.Timestamp.Sub(s.StartedAt).Milliseconds(),
			Error:      st.Error,
		})
		switch {
		case st.Type.IsError():
			sum.ErrorCount++
		case st.Type.IsFallback():
			sum.FallbackCount++
		}
	}
	return sum
}
