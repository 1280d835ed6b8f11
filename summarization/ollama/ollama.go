// Package ollama implements a local Summarizer on Ollama's native chat API.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/voxkit/httpclient"
	"github.com/kbukum/voxkit/llm"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/security"
	"github.com/kbukum/voxkit/summarization"
)

const (
	// DefaultID is the registered id of the Ollama backend.
	DefaultID = "ollama"
	// Type selects this backend in a provider spec.
	Type = "ollama"

	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.2"
	defaultTimeout     = 300 * time.Second
)

// Config holds configuration for the Ollama backend.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	Resilience  provider.ResilienceConfig
	TLS         *security.TLSConfig
}

// ConfigFromOptions reads base_url, model, temperature, timeout, the TLS
// options and the resilience options. A single request at a time is the default, since the
// server serializes generation anyway.
func ConfigFromOptions(id string, o provider.Options) Config {
	if _, ok := o["max_concurrent"]; !ok {
		o = withOption(o, "max_concurrent", 1)
	}
	return Config{
		BaseURL:     o.String("base_url", defaultOllamaURL),
		Model:       o.String("model", defaultOllamaModel),
		Temperature: o.Float("temperature", 0),
		Timeout:     o.Duration("timeout", defaultTimeout),
		Resilience:  provider.ResilienceFromOptions(id, o),
		TLS:         httpclient.TLSFromOptions(o),
	}
}

func withOption(o provider.Options, key string, v any) provider.Options {
	out := make(provider.Options, len(o)+1)
	for k, val := range o {
		out[k] = val
	}
	out[key] = v
	return out
}

// Summarizer talks to an Ollama server.
type Summarizer struct {
	provider.Base
	cfg    Config
	client *llm.Client
	log    *logger.Logger
}

var _ summarization.Summarizer = (*Summarizer)(nil)

// NewProvider creates a new Ollama summarizer.
func NewProvider(id, name string, cfg Config) (*Summarizer, error) {
	if id == "" {
		id = DefaultID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultOllamaModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client, err := llm.New(llm.Ollama{}, llm.Config{
		ProviderID:  id,
		BaseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
		Resilience:  cfg.Resilience,
		TLS:         cfg.TLS,
	})
	if err != nil {
		return nil, err
	}
	return &Summarizer{
		Base:   provider.NewBase(id, name, provider.ClassLocal),
		cfg:    cfg,
		client: client,
		log:    logger.Get("summarization").WithProvider(id),
	}, nil
}

// Factory creates Ollama summarizers from provider specs.
func Factory() provider.Factory[summarization.Summarizer] {
	return func(spec provider.Spec) (summarization.Summarizer, error) {
		return NewProvider(spec.ID, spec.Name, ConfigFromOptions(spec.ID, spec.Options))
	}
}

// Check lists installed models. The server being up is not enough: the
// configured model must be pulled.
func (s *Summarizer) Check(ctx context.Context) provider.Health {
	models, err := s.client.Models(ctx)
	if err != nil {
		h := provider.UnhealthyFrom(err)
		h.Details = fmt.Sprintf("Ollama is not reachable at %s. Start it with 'ollama serve'.", s.cfg.BaseURL)
		return h
	}
	if !hasModel(models, s.cfg.Model) {
		h := provider.Unhealthy(fmt.Sprintf("Model %q is not installed. Run 'ollama pull %s'.", s.cfg.Model, s.cfg.Model))
		h.Capabilities = models
		return h
	}
	return provider.Healthy(models...)
}

// hasModel matches "llama3.2" against "llama3.2:latest".
func hasModel(installed []string, model string) bool {
	want := model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range installed {
		if m == model || m == want {
			return true
		}
	}
	return false
}

// Summarize sends a non-streaming chat request.
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
