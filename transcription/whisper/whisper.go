package whisper

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/kbukum/voxkit/audio"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/httpclient"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/security"
	"github.com/kbukum/voxkit/transcription"
)

const (
	// DefaultID is the registered id of the sidecar backend.
	DefaultID = "whisper-local"
	// Type selects this backend in a provider spec.
	Type = "whisper"

	defaultWhisperURL     = "http://localhost:8387"
	defaultWhisperModel   = "base"
	defaultWhisperTimeout = 120 * time.Second
)

// Config holds configuration for the faster-whisper sidecar.
type Config struct {
	URL         string        `json:"url" yaml:"url"`
	Model       string        `json:"model" yaml:"model"`
	Language    string        `json:"language,omitempty" yaml:"language"`
	Device      string        `json:"device,omitempty" yaml:"device"`
	ComputeType string        `json:"compute_type,omitempty" yaml:"compute_type"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	Resilience  provider.ResilienceConfig
	TLS         *security.TLSConfig
}

// ConfigFromOptions reads url (or host and port), model, language, device,
// compute_type, timeout, the TLS options and the resilience options.
func ConfigFromOptions(id string, o provider.Options) Config {
	url := o.String("url", "")
	if url == "" && o.String("host", "") != "" {
		url = "http://" + o.String("host", "") + ":" + o.String("port", "8387")
	}
	return Config{
		URL:         url,
		Model:       o.String("model", ""),
		Language:    o.String("language", ""),
		Device:      o.String("device", ""),
		ComputeType: o.String("compute_type", ""),
		Timeout:     o.Duration("timeout", 0),
		Resilience:  provider.ResilienceFromOptions(id, o),
		TLS:         httpclient.TLSFromOptions(o),
	}
}

// Provider implements transcription.Transcriber on a faster-whisper HTTP
// sidecar. The sidecar reads WAV only; other input goes through the
// normalizer.
type Provider struct {
	provider.Base
	cfg        Config
	client     *httpclient.Client
	normalizer transcription.Normalizer
	log        *logger.Logger
}

var _ transcription.Transcriber = (*Provider)(nil)

// NewProvider creates a new sidecar backend.
func NewProvider(id, name string, cfg Config, n transcription.Normalizer) (*Provider, error) {
	if id == "" {
		id = DefaultID
	}
	if cfg.URL == "" {
		cfg.URL = defaultWhisperURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultWhisperModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultWhisperTimeout
	}
	client, err := httpclient.New(httpclient.Config{
		ProviderID: id,
		BaseURL:    cfg.URL,
		Timeout:    cfg.Timeout,
		Resilience: cfg.Resilience,
		TLS:        cfg.TLS,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{
		Base:       provider.NewBase(id, name, provider.ClassLocal),
		cfg:        cfg,
		client:     client,
		normalizer: n,
		log:        logger.Get("transcription").WithProvider(id),
	}, nil
}

// Factory returns a provider.Factory that builds sidecar backends from specs.
func Factory(n transcription.Normalizer) provider.Factory[transcription.Transcriber] {
	return func(spec provider.Spec) (transcription.Transcriber, error) {
		return NewProvider(spec.ID, spec.Name, ConfigFromOptions(spec.ID, spec.Options), n)
	}
}

// Formats returns the format table row of this backend.
func Formats() audio.FormatSpec {
	return audio.FormatSpec{Preferred: audio.FormatWAV, Accepted: []string{audio.FormatWAV}}
}

// Check probes the sidecar's /health endpoint.
func (p *Provider) Check(ctx context.Context) provider.Health {
	var status struct {
		Status string `json:"status"`
		Model  string `json:"model"`
	}
	resp, err := p.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/health"})
	if err != nil {
		h := provider.UnhealthyFrom(err)
		if apperrors.Is(err, apperrors.ErrCodeConnectionFailed) {
			h.Details = "The whisper sidecar is not reachable at " + p.cfg.URL + ". Start it and try again."
		}
		return h
	}
	_ = json.Unmarshal(resp.Body, &status)
	if status.Model != "" {
		return provider.Healthy(status.Model)
	}
	return provider.Healthy(p.cfg.Model)
}

// Transcribe sends a WAV file to the sidecar and returns the transcription.
func (p *Provider) Transcribe(ctx context.Context, in transcription.AudioInput, opts *transcription.Options) (*transcription.Result, error) {
	prepared, err := transcription.Prepare(ctx, p.normalizer, p.ID(), in)
	if err != nil {
		return nil, err
	}
	defer prepared.Release()
	if prepared.Format != audio.FormatWAV {
		return nil, apperrors.UnsupportedFormat(p.ID(), prepared.Format, Formats().Accepted, true)
	}

	audioData, err := os.ReadFile(prepared.Path)
	if err != nil {
		return nil, apperrors.FileInvalid(err.Error()).WithProvider(p.ID()).WithCause(err)
	}

	o := opts.Merge(transcription.Options{Model: p.cfg.Model, Language: p.cfg.Language})
	fields := map[string]string{"model": o.Model}
	if o.Language != "" {
		fields["language"] = o.Language
	}
	if p.cfg.Device != "" {
		fields["device"] = p.cfg.Device
	}
	if p.cfg.ComputeType != "" {
		fields["compute_type"] = p.cfg.ComputeType
	}
	if o.Prompt != "" {
		fields["initial_prompt"] = o.Prompt
	}

	start := time.Now()
	result, err := httpclient.DoJSON[whisperResponse](ctx, p.client, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/transcribe",
		Body: &httpclient.MultipartBody{
			Fields: fields,
			Files: []httpclient.FileField{{
				FieldName: "audio", FileName: "audio.wav", ContentType: "audio/wav", Data: audioData,
			}},
		},
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	p.log.Debug("transcription done", logger.ProviderFields(p.ID(), "transcribe", elapsed))
	return toResult(&result).Finalize(o.Model, elapsed), nil
}

// --- internal sidecar response types ---

type whisperResponse struct {
	Text     string           `json:"text"`
	Segments []whisperSegment `json:"segments"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
}

type whisperSegment struct {
	Text        string  `json:"text"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

func toResult(resp *whisperResponse) *transcription.Result {
	segments := make([]transcription.Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = transcription.Segment{
			StartSec:   seg.Start,
			EndSec:     seg.End,
			Text:       seg.Text,
			Confidence: seg.Probability,
		}
	}
	return &transcription.Result{
		Text:     resp.Text,
		Segments: segments,
		Language: resp.Language,
		Metadata: transcription.Metadata{DurationSec: resp.Duration},
	}
}
