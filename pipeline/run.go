package pipeline

import (
	"context"
	"sync"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/summarization"
	"github.com/kbukum/voxkit/telemetry"
	"github.com/kbukum/voxkit/transcription"
	"github.com/kbukum/voxkit/util"
)

// RunConfig describes one end-to-end operation. Empty provider ids select
// the configured defaults.
type RunConfig struct {
	Audio                 transcription.AudioInput
	RecordingProvider     string
	TranscriptionProvider string
	SummarizationProvider string
	TranscriptionOptions  *transcription.Options
	SummaryOptions        *summarization.Options
	// Topic requests a short title, produced concurrently with the summary.
	Topic        bool
	TopicOptions *summarization.Options
	// SkipProbe disables the health probe for this run.
	SkipProbe bool
	// OnFallback is told whenever a default provider replaces the selected
	// one. Calls are serialized.
	OnFallback func(FallbackEvent)
}

// RunResult is the outcome of Run. After a failure it still carries the
// session summary and whatever stages produced.
type RunResult struct {
	Transcript            *transcription.Result `json:"transcript,omitempty"`
	Summary               *summarization.Result `json:"summary,omitempty"`
	Topic                 string                `json:"topic,omitempty"`
	TranscriptionProvider string                `json:"transcription_provider,omitempty"`
	SummarizationProvider string                `json:"summarization_provider,omitempty"`
	Session               *telemetry.Summary    `json:"session,omitempty"`
	// States is the path the run took through the state machine.
	States []State `json:"-"`
}

// run holds the state of one Run call.
type run struct {
	o       *Orchestrator
	rc      RunConfig
	m       *machine
	res     *RunResult
	log     *logger.Logger
	session string
	// probeFailures are recorded once the session opens.
	probeFailures []probeFailure
	notifyMu      sync.Mutex
}

type probeFailure struct {
	providerID string
	err        error
}

// Run executes resolve, health probe, transcription and summarization.
// Concurrent calls are queued so only one session is open at a time.
func (o *Orchestrator) Run(ctx context.Context, rc RunConfig) (*RunResult, error) {
	select {
	case o.runSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, apperrors.From(ctx.Err(), "")
	}
	defer func() { <-o.runSlot }()

	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
	defer span.End()

	r := &run{o: o, rc: rc, m: newMachine(), res: &RunResult{}, log: o.log}
	err := r.execute(ctx)
	if err != nil {
		failedAt := r.m.state
		r.m.fail()
		observability.SetSpanError(ctx, err)
		r.log.Warn("pipeline failed", logger.Fields(
			logger.FieldCode, apperrors.CodeOf(err),
			logger.FieldStage, failedAt.String(),
			logger.FieldError, err.Error(),
		))
	}
	if r.session != "" {
		r.res.Session = o.tracker.CompleteSession(map[string]any{"state": r.m.state.String()})
	}
	r.res.States = r.m.trail
	return r.res, err
}

func (r *run) execute(ctx context.Context) error {
	o := r.o
	if err := r.m.to(StateResolving); err != nil {
		return err
	}
	t, s, err := r.resolve()
	if err != nil {
		return err
	}

	if o.cfg.ProbeHealth && !r.rc.SkipProbe {
		if err := r.m.to(StateProbingHealth); err != nil {
			return err
		}
		pctx, span := observability.StartSpan(ctx, observability.SpanProbeHealth)
		t, err = probe(pctx, r, "transcription", t, o.cfg.DefaultTranscriber, o.registry.GetTranscriber)
		if err == nil {
			s, err = probe(pctx, r, "summarization", s, o.cfg.DefaultSummarizer, o.registry.GetSummarizer)
		}
		observability.SetSpanError(pctx, err)
		span.End()
		if err != nil {
			r.open(ctx, t.ID(), s.ID())
			return err
		}
	}
	r.open(ctx, t.ID(), s.ID())

	if err := r.m.to(StateTranscribing); err != nil {
		return err
	}
	transcript, err := r.transcription(ctx, t)
	if err != nil {
		return err
	}

	if err := r.m.to(StateSummarizing); err != nil {
		return err
	}
	if err := r.summarization(ctx, s, transcript.Text); err != nil {
		return err
	}
	return r.m.to(StateComplete)
}

// resolve looks up the selected providers and validates the request. Its
// failures are configuration or input errors and never fall back.
func (r *run) resolve() (transcription.Transcriber, summarization.Summarizer, error) {
	o := r.o
	txID := util.Coalesce(r.rc.TranscriptionProvider, o.cfg.DefaultTranscriber)
	sumID := util.Coalesce(r.rc.SummarizationProvider, o.cfg.DefaultSummarizer)
	if txID == "" {
		return nil, nil, apperrors.ConfigMissing("selection.transcription")
	}
	if sumID == "" {
		return nil, nil, apperrors.ConfigMissing("selection.summarization")
	}
	t, err := o.registry.GetTranscriber(txID)
	if err != nil {
		return nil, nil, err
	}
	s, err := o.registry.GetSummarizer(sumID)
	if err != nil {
		return nil, nil, err
	}
	if err := r.rc.Audio.Validate(); err != nil {
		return nil, nil, err
	}
	if err := r.rc.TranscriptionOptions.Validate(); err != nil {
		return nil, nil, err
	}
	if err := r.rc.SummaryOptions.Validate(); err != nil {
		return nil, nil, err
	}
	if err := r.rc.TopicOptions.Validate(); err != nil {
		return nil, nil, err
	}
	return t, s, nil
}

// probe checks p and switches to the default provider when p is unhealthy.
func probe[P provider.Provider](ctx context.Context, r *run, stage string, p P, defaultID string, get func(string) (P, error)) (P, error) {
	h := r.o.check(ctx, p)
	if h.OK {
		return p, nil
	}
	reason := apperrors.ProviderUnavailable(p.ID(), h.Details)
	r.probeFailures = append(r.probeFailures, probeFailure{p.ID(), reason})
	if defaultID == "" || defaultID == p.ID() {
		return p, reason
	}

	d, err := get(defaultID)
	if err != nil {
		return p, err
	}
	if dh := r.o.check(ctx, d); !dh.OK {
		derr := apperrors.ProviderUnavailable(d.ID(), dh.Details)
		r.probeFailures = append(r.probeFailures, probeFailure{d.ID(), derr})
		return p, derr
	}
	r.notify(FallbackEvent{Stage: stage, From: p.ID(), To: d.ID(), Reason: reason})
	return d, nil
}

// open starts the session with the effective providers and records the
// probe failures seen so far.
func (r *run) open(ctx context.Context, transcriberID, summarizerID string) {
	tr := r.o.tracker
	r.session = tr.StartSession(r.rc.RecordingProvider, transcriberID, summarizerID)
	r.log = r.o.log.WithSession(r.session)
	observability.SetSpanAttribute(ctx, observability.AttrSessionID, r.session)
	for _, f := range r.probeFailures {
		tr.TrackStage(telemetry.StageHealthCheckError, f.providerID, nil, f.err)
	}
}

func (r *run) transcription(ctx context.Context, t transcription.Transcriber) (*transcription.Result, error) {
	o := r.o
	ctx, span := observability.StartSpan(ctx, observability.SpanTranscription)
	defer span.End()

	opts := map[string]any{"input_bytes": r.rc.Audio.Size()}
	if r.rc.TranscriptionOptions != nil && r.rc.TranscriptionOptions.Language != "" {
		opts["language"] = r.rc.TranscriptionOptions.Language
	}
	o.tracker.TrackStage(telemetry.StageTranscriptionStart, t.ID(), opts, nil)

	fn := func(ctx context.Context, id string) (*transcription.Result, error) {
		tx := t
		if id != t.ID() {
			var err error
			if tx, err = o.registry.GetTranscriber(id); err != nil {
				return nil, err
			}
		}
		return o.transcribe(ctx, tx, r.rc.Audio, r.rc.TranscriptionOptions)
	}
	res, used, err := withFallback(ctx, "transcription", t.ID(), o.cfg.DefaultTranscriber, fn,
		r.onSwitch(ctx, telemetry.StageTranscriptionFallback))
	if err != nil {
		observability.SetSpanError(ctx, err)
		o.tracker.TrackStage(telemetry.StageTranscriptionError, used, nil, err)
		return nil, err
	}

	r.res.Transcript = res
	r.res.TranscriptionProvider = used
	o.tracker.TrackStage(telemetry.StageTranscriptionSuccess, used, map[string]any{
		"chars":    len(res.Text),
		"language": res.Language,
	}, nil)
	return res, nil
}

// summarization produces the summary and, when requested, the topic. Both
// calls run concurrently and each gets its own fallback.
func (r *run) summarization(ctx context.Context, s summarization.Summarizer, text string) error {
	o := r.o
	ctx, span := observability.StartSpan(ctx, observability.SpanSummarization)
	defer span.End()

	summaryOpts := r.rc.SummaryOptions.Merge(summarization.SummaryPreset())
	topicOpts := r.rc.TopicOptions.Merge(summarization.TopicPreset())
	if topicOpts.Language == "" {
		topicOpts.Language = summaryOpts.Language
	}
	o.tracker.TrackStage(telemetry.StageSummarizationStart, s.ID(), map[string]any{
		"style": string(summaryOpts.Style),
		"topic": r.rc.Topic,
	}, nil)

	fn := func(opts summarization.Options) attempt[*summarization.Result] {
		return func(ctx context.Context, id string) (*summarization.Result, error) {
			sz := s
			if id != s.ID() {
				var err error
				if sz, err = o.registry.GetSummarizer(id); err != nil {
					return nil, err
				}
			}
			return o.summarize(ctx, sz, text, &opts)
		}
	}
	onSwitch := r.onSwitch(ctx, telemetry.StageSummarizationFallback)

	var (
		wg                    sync.WaitGroup
		summary, topic        *summarization.Result
		summaryUsed, topicUse string
		summaryErr, topicErr  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		summary, summaryUsed, summaryErr = withFallback(ctx, "summarization", s.ID(), o.cfg.DefaultSummarizer, fn(summaryOpts), onSwitch)
	}()
	if r.rc.Topic {
		wg.Add(1)
		go func() {
			defer wg.Done()
			topic, topicUse, topicErr = withFallback(ctx, "summarization", s.ID(), o.cfg.DefaultSummarizer, fn(topicOpts), onSwitch)
		}()
	}
	wg.Wait()

	if summaryErr != nil {
		observability.SetSpanError(ctx, summaryErr)
		o.tracker.TrackStage(telemetry.StageSummarizationError, summaryUsed, nil, summaryErr)
		return summaryErr
	}
	if topicErr != nil {
		observability.SetSpanError(ctx, topicErr)
		o.tracker.TrackStage(telemetry.StageSummarizationError, topicUse, map[string]any{"call": "topic"}, topicErr)
		return topicErr
	}

	r.res.Summary = summary
	r.res.SummarizationProvider = summaryUsed
	if topic != nil {
		r.res.Topic = topic.Summary
	}
	o.tracker.TrackStage(telemetry.StageSummarizationSuccess, summaryUsed, map[string]any{
		"chars": len(summary.Summary),
		"topic": r.res.Topic != "",
	}, nil)
	return nil
}

// onSwitch records a fallback stage and tells the caller.
func (r *run) onSwitch(ctx context.Context, stage telemetry.StageType) func(FallbackEvent) {
	return func(ev FallbackEvent) {
		r.o.tracker.TrackStage(stage, ev.To, map[string]any{"from": ev.From}, ev.Reason)
		observability.SetSpanAttribute(ctx, observability.AttrFallback, true)
		r.log.Warn("falling back to default provider", logger.Fields(
			logger.FieldStage, ev.Stage,
			"from", ev.From,
			"to", ev.To,
			logger.FieldCode, apperrors.CodeOf(ev.Reason),
		))
		r.notify(ev)
	}
}

func (r *run) notify(ev FallbackEvent) {
	if r.rc.OnFallback == nil {
		return
	}
	r.notifyMu.Lock()
	defer r.notifyMu.Unlock()
	r.rc.OnFallback(ev)
}
