package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/registry"
	"github.com/kbukum/voxkit/summarization"
	"github.com/kbukum/voxkit/telemetry"
	"github.com/kbukum/voxkit/transcription"
)

// Orchestrator runs operations against the providers of a registry. The
// registry and tracker are owned by the caller.
type Orchestrator struct {
	registry *registry.Registry
	tracker  *telemetry.Tracker
	cfg      Config
	metrics  *observability.Metrics
	log      *logger.Logger

	// runSlot admits one Run at a time so sessions never overlap.
	runSlot chan struct{}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records provider calls on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithLogger replaces the "pipeline" component logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New creates an Orchestrator. A nil tracker gets a fresh one without sinks.
func New(reg *registry.Registry, tracker *telemetry.Tracker, cfg Config, opts ...Option) *Orchestrator {
	cfg.ApplyDefaults()
	if tracker == nil {
		tracker = telemetry.NewTracker()
	}
	o := &Orchestrator{
		registry: reg,
		tracker:  tracker,
		cfg:      cfg,
		log:      logger.Get("pipeline"),
		runSlot:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// CurrentSession returns a copy of the open session, or nil.
func (o *Orchestrator) CurrentSession() *telemetry.Session {
	return o.tracker.Current()
}

// Transcribe calls one transcriber directly, without fallback or session
// tracking.
func (o *Orchestrator) Transcribe(ctx context.Context, providerID string, in transcription.AudioInput, opts *transcription.Options) (*transcription.Result, error) {
	t, err := o.registry.GetTranscriber(providerID)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, apperrors.From(err, providerID)
	}
	return o.transcribe(ctx, t, in, opts)
}

// Summarize calls one summarizer directly, without fallback or session
// tracking.
func (o *Orchestrator) Summarize(ctx context.Context, providerID, text string, opts *summarization.Options) (*summarization.Result, error) {
	s, err := o.registry.GetSummarizer(providerID)
	if err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, apperrors.From(err, providerID)
	}
	return o.summarize(ctx, s, text, opts)
}

// CheckHealth probes a registered provider of either kind under the probe
// timeout. A probe that does not answer in time is reported unhealthy.
func (o *Orchestrator) CheckHealth(ctx context.Context, providerID string) (provider.Health, error) {
	p, _, ok := o.registry.Lookup(providerID)
	if !ok {
		return provider.Health{}, apperrors.ProviderNotFound(providerID, "provider")
	}
	return o.check(ctx, p), nil
}

func (o *Orchestrator) check(ctx context.Context, p provider.Provider) provider.Health {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.ProbeTimeout)
	defer cancel()

	h, err := bounded(ctx, func(ctx context.Context) (provider.Health, error) {
		return p.Check(ctx), nil
	})
	if err != nil {
		return provider.Unhealthy(fmt.Sprintf("health check of %s did not answer within %s", p.ID(), o.cfg.ProbeTimeout))
	}
	return h
}

func (o *Orchestrator) transcribe(ctx context.Context, t transcription.Transcriber, in transcription.AudioInput, opts *transcription.Options) (*transcription.Result, error) {
	return call(ctx, o, t.ID(), provider.KindTranscriber, "transcribe", func(ctx context.Context) (*transcription.Result, error) {
		res, err := t.Transcribe(ctx, in, opts)
		if err != nil {
			return nil, err
		}
		return res, res.Validate()
	})
}

func (o *Orchestrator) summarize(ctx context.Context, s summarization.Summarizer, text string, opts *summarization.Options) (*summarization.Result, error) {
	return call(ctx, o, s.ID(), provider.KindSummarizer, "summarize", func(ctx context.Context) (*summarization.Result, error) {
		res, err := s.Summarize(ctx, text, opts)
		if err != nil {
			return nil, err
		}
		if res == nil || res.Summary == "" {
			return nil, summarization.EmptySummary(s.ID())
		}
		return res, nil
	})
}

// call invokes fn under the stage timeout inside a provider span and
// converts every failure into an AppError attributed to id.
func call[T any](ctx context.Context, o *Orchestrator, id string, kind provider.Kind, op string, fn func(context.Context) (T, error)) (T, error) {
	stageCtx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
	defer cancel()
	stageCtx, span := observability.StartProviderSpan(stageCtx, id, string(kind), op)

	start := time.Now()
	res, err := bounded(stageCtx, fn)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			err = apperrors.From(ctx.Err(), id)
		case errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			err = apperrors.Timeout(id, o.cfg.StageTimeout).WithCause(err)
		default:
			err = apperrors.From(err, id)
		}
	}
	span.End(stageCtx, o.metrics, err)

	fields := logger.ProviderFields(id, op, time.Since(start))
	if err != nil {
		fields[logger.FieldCode] = apperrors.CodeOf(err)
		o.log.Warn("provider call failed", logger.MergeWithError(fields, err))
	} else {
		o.log.Debug("provider call finished", fields)
	}
	return res, err
}

// bounded returns when fn returns or ctx is done, whichever is first. A call
// abandoned on ctx keeps running in the background and its result is
// dropped.
func bounded[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		ch <- outcome{v, err}
	}()
	select {
	case out := <-ch:
		return out.val, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
