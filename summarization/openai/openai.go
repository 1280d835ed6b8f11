// Package openai implements a cloud Summarizer on the OpenAI-compatible
// /chat/completions endpoint.
package openai

import (
	"context"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/httpclient"
	"github.com/kbukum/voxkit/llm"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/summarization"
)

const (
	// DefaultID is the id of the default cloud summarizer.
	DefaultID = "openai-gpt"
	// Type selects this backend in a provider spec.
	Type = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second
)

// Config configures the backend.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Resilience  provider.ResilienceConfig
}

// ConfigFromOptions reads base_url, api_key, model, temperature, timeout and
// the standard resilience options.
func ConfigFromOptions(id string, o provider.Options) Config {
	return Config{
		BaseURL:     o.String("base_url", defaultBaseURL),
		APIKey:      o.String("api_key", ""),
		Model:       o.String("model", defaultModel),
		Temperature: o.Float("temperature", 0.3),
		Timeout:     o.Duration("timeout", defaultTimeout),
		Resilience:  provider.ResilienceFromOptions(id, o),
	}
}

// Summarizer calls an OpenAI-compatible chat API.
type Summarizer struct {
	provider.Base
	cfg    Config
	client *llm.Client
	log    *logger.Logger
}

var _ summarization.Summarizer = (*Summarizer)(nil)

// New creates the backend.
func New(id, name string, cfg Config) (*Summarizer, error) {
	if id == "" {
		id = DefaultID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client, err := llm.New(llm.OpenAI{}, llm.Config{
		ProviderID:  id,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Auth:        httpclient.BearerAuth(cfg.APIKey),
		Resilience:  cfg.Resilience,
	})
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		Base:   provider.NewBase(id, name, provider.ClassCloud),
		cfg:    cfg,
		client: client,
		log:    logger.Get("summarization").WithProvider(id),
	}, nil
}

// Factory builds the backend from a provider spec.
func Factory() provider.Factory[summarization.Summarizer] {
	return func(spec provider.Spec) (summarization.Summarizer, error) {
		return New(spec.ID, spec.Name, ConfigFromOptions(spec.ID, spec.Options))
	}
}

// Check lists models to verify reachability and the API key.
func (s *Summarizer) Check(ctx context.Context) provider.Health {
	if s.cfg.APIKey == "" {
		return provider.Unhealthy(apperrors.DefaultHint(apperrors.ErrCodeAuthMissing))
	}
	models, err := s.client.Models(ctx)
	if err != nil {
		return provider.UnhealthyFrom(err)
	}
	return provider.Healthy(models...)
}

// Summarize sends the transcript with the rendered prompt.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts *summarization.Options) (*summarization.Result, error) {
	if err := summarization.CheckInput(s.ID(), text, opts); err != nil {
		return nil, err
	}
	o := opts.Merge(summarization.Options{})
	prompt := summarization.BuildPrompt(text, o)

	start := time.Now()
	resp, err := s.client.Execute(ctx, llm.CompletionRequest{
		Model:        o.Model,
		SystemPrompt: prompt.System,
		Messages:     []llm.Message{{Role: "user", Content: prompt.User}},
		MaxTokens:    summarization.MaxTokens(o.TargetLength),
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	summary := llm.CleanText(resp.Content)
	if summary == "" {
		return nil, summarization.EmptySummary(s.ID())
	}
	s.log.Debug("summary done", logger.ProviderFields(s.ID(), "summarize", elapsed))
	return summarization.NewResult(text, summary, resp.Usage.TotalTokens, resp.Model, elapsed), nil
}
