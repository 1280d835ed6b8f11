package telemetry

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
)

// Tracker records the stages of the one open session. All methods are safe
// for concurrent use, and tracking calls without an open session are no-ops.
type Tracker struct {
	mu         sync.Mutex
	emitMu     sync.Mutex
	current    *Session
	phaseStart map[string]time.Time
	sinks      []Sink
	now        func() time.Time
	log        *logger.Logger
}

// NewTracker creates a Tracker that forwards events to sinks.
func NewTracker(sinks ...Sink) *Tracker {
	return &Tracker{
		sinks: sinks,
		now:   time.Now,
		log:   logger.Get("telemetry"),
	}
}

// AddSink registers another sink. Call it before sessions start.
func (t *Tracker) AddSink(s Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinks = append(t.sinks, s)
}

// StartSession opens a session and returns its id. A session still open is
// closed first with status abandoned and its aggregate is emitted.
func (t *Tracker) StartSession(recording, transcription, summarization string) string {
	t.mu.Lock()
	now := t.now()
	var events []Event
	if prev := t.current; prev != nil {
		sum := t.finish(StatusAbandoned, now, nil)
		events = append(events, Event{Type: EventSessionAbandoned, SessionID: prev.ID, Time: now, Summary: sum})
	}
	s := &Session{
		ID:                    uuid.NewString(),
		RecordingProvider:     recording,
		TranscriptionProvider: transcription,
		SummarizationProvider: summarization,
		StartedAt:             now,
		Status:                StatusActive,
		Stages:                []Stage{},
	}
	t.current = s
	t.phaseStart = map[string]time.Time{}
	events = append(events, Event{Type: EventSessionStarted, SessionID: s.ID, Time: now, Session: s.clone()})
	t.dispatch(events...)
	return s.ID
}

// TrackStage appends a stage to the open session. A non-nil err is stored as
// the stage's error text.
func (t *Tracker) TrackStage(typ StageType, providerID string, opts map[string]any, err error) {
	t.mu.Lock()
	s := t.current
	if s == nil {
		t.mu.Unlock()
		return
	}
	ts := t.now()
	if n := len(s.Stages); n > 0 && ts.Before(s.Stages[n-1].Timestamp) {
		ts = s.Stages[n-1].Timestamp
	}
	st := Stage{Type: typ, Timestamp: ts, ProviderID: providerID, Options: maps.Clone(opts)}
	if err != nil {
		st.Error = errorText(err)
	}
	s.Stages = append(s.Stages, st)

	ev := Event{Type: EventStage, SessionID: s.ID, Time: ts, Stage: &st}
	if typ.IsStart() {
		t.phaseStart[typ.Phase()] = ts
	} else if start, ok := t.phaseStart[typ.Phase()]; ok {
		ev.Elapsed = ts.Sub(start)
	}
	t.dispatch(ev)
}

// CompleteSession closes the open session, emits its aggregate and returns
// it. It returns nil when no session is open.
func (t *Tracker) CompleteSession(opts map[string]any) *Summary {
	t.mu.Lock()
	s := t.current
	if s == nil {
		t.mu.Unlock()
		return nil
	}
	status := outcomeOf(s.Stages)
	now := t.now()
	sum := t.finish(status, now, opts)
	t.dispatch(Event{Type: EventSessionCompleted, SessionID: sum.SessionID, Time: now, Summary: sum})
	return sum
}

// outcomeOf is failed when a phase recorded its error stage or the session
// ends on an error. A health check error followed by a recovered run is
// not a failure.
func outcomeOf(stages []Stage) Status {
	for _, st := range stages {
		if st.Type.IsError() && st.Type != StageHealthCheckError {
			return StatusFailed
		}
	}
	if n := len(stages); n > 0 && stages[n-1].Type.IsError() {
		return StatusFailed
	}
	return StatusCompleted
}

// Current returns a copy of the open session, or nil.
func (t *Tracker) Current() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.clone()
}

// finish closes the current session. Callers hold t.mu.
func (t *Tracker) finish(status Status, end time.Time, opts map[string]any) *Summary {
	s := t.current
	if n := len(s.Stages); n > 0 && end.Before(s.Stages[n-1].Timestamp) {
		end = s.Stages[n-1].Timestamp
	}
	s.Status = status
	s.CompletedAt = &end
	sum := summarize(s, status, end, opts)
	t.current = nil
	t.phaseStart = nil
	return sum
}

// dispatch releases t.mu and delivers events in order. Sink failures are
// logged and never reach the caller.
func (t *Tracker) dispatch(events ...Event) {
	t.emitMu.Lock()
	sinks := t.sinks
	t.mu.Unlock()
	defer t.emitMu.Unlock()

	ctx := context.Background()
	for _, ev := range events {
		for _, sink := range sinks {
			if err := sink.Emit(ctx, ev); err != nil {
				t.log.Warn("telemetry sink failed", logger.Fields(
					logger.FieldSessionID, ev.SessionID,
					"event", ev.Type,
					logger.FieldError, err.Error(),
				))
			}
		}
	}
}

func errorText(err error) string {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return string(appErr.Code) + ": " + appErr.Message
	}
	return err.Error()
}
