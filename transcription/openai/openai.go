// Package openai implements a cloud Transcriber on the OpenAI-compatible
// /audio/transcriptions endpoint.
package openai

import (
	"context"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/kbukum/voxkit/audio"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/httpclient"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/transcription"
)

const (
	// DefaultID is the id of the default cloud transcriber.
	DefaultID = "openai-whisper"
	// Type selects this backend in a provider spec.
	Type = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
	defaultTimeout = 120 * time.Second
)

// uploadFormats are the containers the endpoint decodes itself.
var uploadFormats = []string{
	audio.FormatWebM, audio.FormatWAV, audio.FormatMP3, audio.FormatM4A,
	audio.FormatOgg, audio.FormatFLAC, audio.FormatMP4,
}

// Config configures the backend.
type Config struct {
	BaseURL  string
	APIKey   string
	Model    string
	Language string
	Timeout  time.Duration
	// Resilience is applied to every HTTP call.
	Resilience provider.ResilienceConfig
}

// ConfigFromOptions reads base_url, api_key, model, language, timeout and
// the standard resilience options.
func ConfigFromOptions(id string, o provider.Options) Config {
	return Config{
		BaseURL:    o.String("base_url", defaultBaseURL),
		APIKey:     o.String("api_key", ""),
		Model:      o.String("model", defaultModel),
		Language:   o.String("language", ""),
		Timeout:    o.Duration("timeout", defaultTimeout),
		Resilience: provider.ResilienceFromOptions(id, o),
	}
}

// Transcriber calls an OpenAI-compatible transcription API.
type Transcriber struct {
	provider.Base
	cfg        Config
	client     *httpclient.Client
	normalizer transcription.Normalizer
	log        *logger.Logger
}

var _ transcription.Transcriber = (*Transcriber)(nil)

// New creates the backend. The normalizer converts buffers in formats the
// API does not decode; it may be nil.
func New(id, name string, cfg Config, n transcription.Normalizer) (*Transcriber, error) {
	if id == "" {
		id = DefaultID
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	client, err := httpclient.New(httpclient.Config{
		ProviderID: id,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		Auth:       httpclient.BearerAuth(cfg.APIKey),
		Resilience: cfg.Resilience,
	})
	if err != nil {
		return nil, err
	}
	return &Transcriber{
		Base:       provider.NewBase(id, name, provider.ClassCloud),
		cfg:        cfg,
		client:     client,
		normalizer: n,
		log:        logger.Get("transcription").WithProvider(id),
	}, nil
}

// Factory builds the backend from a provider spec.
func Factory(n transcription.Normalizer) provider.Factory[transcription.Transcriber] {
	return func(spec provider.Spec) (transcription.Transcriber, error) {
		return New(spec.ID, spec.Name, ConfigFromOptions(spec.ID, spec.Options), n)
	}
}

// Formats returns the format table row of this backend.
func Formats() audio.FormatSpec {
	return audio.FormatSpec{Preferred: audio.FormatWAV, Accepted: slices.Clone(uploadFormats)}
}

// Check lists models to verify reachability and the API key.
func (t *Transcriber) Check(ctx context.Context) provider.Health {
	if t.cfg.APIKey == "" {
		return provider.Unhealthy(apperrors.DefaultHint(apperrors.ErrCodeAuthMissing))
	}
	type modelList struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	models, err := httpclient.DoJSON[modelList](ctx, t.client, httpclient.Request{Method: http.MethodGet, Path: "/models"})
	if err != nil {
		return provider.UnhealthyFrom(err)
	}
	caps := make([]string, 0, len(models.Data))
	for _, m := range models.Data {
		caps = append(caps, m.ID)
	}
	return provider.Healthy(caps...)
}

// Transcribe uploads the audio and maps the verbose_json response.
func (t *Transcriber) Transcribe(ctx context.Context, in transcription.AudioInput, opts *transcription.Options) (*transcription.Result, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.From(err, t.ID())
	}
	o := opts.Merge(transcription.Options{Language: t.cfg.Language, Model: t.cfg.Model})

	file, release, err := t.upload(ctx, in)
	if err != nil {
		return nil, err
	}
	defer release()

	fields := map[string]string{
		"model":                     o.Model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "segment",
	}
	if o.Language != "" {
		fields["language"] = o.Language
	}
	if o.Prompt != "" {
		fields["prompt"] = o.Prompt
	}
	if o.Temperature > 0 {
		fields["temperature"] = strconv.FormatFloat(o.Temperature, 'f', -1, 64)
	}

	start := time.Now()
	resp, err := httpclient.DoJSON[verboseResponse](ctx, t.client, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/audio/transcriptions",
		Body:   &httpclient.MultipartBody{Fields: fields, Files: []httpclient.FileField{file}},
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	t.log.Debug("transcription done", logger.ProviderFields(t.ID(), "transcribe", elapsed))
	return resp.toResult().Finalize(o.Model, elapsed), nil
}

// upload returns the multipart file for in, converting when the container is
// not one the API decodes.
func (t *Transcriber) upload(ctx context.Context, in transcription.AudioInput) (httpclient.FileField, func(), error) {
	noop := func() {}
	if in.Buffer != nil {
		if format := in.Buffer.Format(); slices.Contains(uploadFormats, format) {
			return fileField(format, in.Buffer.Data), noop, nil
		}
	} else if format := audio.FormatForExtension(filepath.Ext(in.Path)); slices.Contains(uploadFormats, format) {
		data, err := os.ReadFile(in.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return httpclient.FileField{}, noop, apperrors.FileNotFound(in.Path).WithProvider(t.ID())
			}
			return httpclient.FileField{}, noop, apperrors.FileInvalid(err.Error()).WithProvider(t.ID())
		}
		return fileField(format, data), noop, nil
	}

	if t.normalizer == nil {
		format := audio.FormatForExtension(filepath.Ext(in.Path))
		if in.Buffer != nil {
			format = in.Buffer.MIMEType
		}
		return httpclient.FileField{}, noop, apperrors.UnsupportedFormat(t.ID(), format, uploadFormats, false)
	}
	p, err := transcription.Prepare(ctx, t.normalizer, t.ID(), in)
	if err != nil {
		return httpclient.FileField{}, noop, err
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		p.Release()
		return httpclient.FileField{}, noop, apperrors.ProcessingFailed(t.ID(), err)
	}
	return fileField(p.Format, data), p.Release, nil
}

func fileField(format string, data []byte) httpclient.FileField {
	return httpclient.FileField{
		FieldName:   "file",
		FileName:    "audio." + format,
		ContentType: audio.MIMEForFormat(format),
		Data:        data,
	}
}

type verboseResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start      float64 `json:"start"`
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		AvgLogprob float64 `json:"avg_logprob"`
	} `json:"segments"`
}

func (r verboseResponse) toResult() *transcription.Result {
	res := &transcription.Result{
		Text:     r.Text,
		Language: r.Language,
		Segments: make([]transcription.Segment, 0, len(r.Segments)),
		Metadata: transcription.Metadata{DurationSec: r.Duration},
	}
	for _, s := range r.Segments {
		seg := transcription.Segment{Text: s.Text, StartSec: s.Start, EndSec: s.End}
		if s.AvgLogprob < 0 {
			seg.Confidence = math.Exp(s.AvgLogprob)
		}
		res.Segments = append(res.Segments, seg)
	}
	return res
}
