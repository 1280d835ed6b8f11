// Package script runs a local interpreter script as a Summarizer.
//
// The script receives one JSON request on stdin:
//
//	{"text": "...", "prompt": "...", "options": {...}}
//
// and prints {"summary": "...", "tokens": 123} on stdout. Log lines around
// the JSON object are ignored. A non-zero exit fails the call with the tail
// of stderr attached.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/llm"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/process"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/summarization"
)

const (
	// Type selects this backend in a provider spec.
	Type = "script"

	defaultInterpreter = "python3"
	defaultTimeout     = 5 * time.Minute
)

// Config configures the backend.
type Config struct {
	Interpreter string
	Script      string
	Args        []string
	Env         []string
	Model       string
	Timeout     time.Duration
	Resilience  provider.ResilienceConfig
}

// ConfigFromOptions reads interpreter, script, args, env, model, timeout and
// the resilience options. max_concurrent defaults to 1.
func ConfigFromOptions(id string, o provider.Options) Config {
	if _, ok := o["max_concurrent"]; !ok {
		clone := make(provider.Options, len(o)+1)
		for k, v := range o {
			clone[k] = v
		}
		clone["max_concurrent"] = 1
		o = clone
	}
	return Config{
		Interpreter: o.String("interpreter", defaultInterpreter),
		Script:      o.String("script", ""),
		Args:        o.Strings("args"),
		Env:         o.Strings("env"),
		Model:       o.String("model", ""),
		Timeout:     o.Duration("timeout", defaultTimeout),
		Resilience:  provider.ResilienceFromOptions(id, o),
	}
}

// Summarizer runs the configured script.
type Summarizer struct {
	provider.Base
	cfg    Config
	runner *process.Runner
	log    *logger.Logger
}

var _ summarization.Summarizer = (*Summarizer)(nil)

// New creates the backend. The id is required since several scripts may be
// configured side by side.
func New(id, name string, cfg Config) (*Summarizer, error) {
	if id == "" {
		return nil, apperrors.ConfigMissing("id")
	}
	if cfg.Script == "" {
		return nil, apperrors.ConfigMissing("script").WithProvider(id)
	}
	if cfg.Interpreter == "" {
		cfg.Interpreter = defaultInterpreter
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Model == "" {
		cfg.Model = strings.TrimSuffix(filepath.Base(cfg.Script), filepath.Ext(cfg.Script))
	}
	return &Summarizer{
		Base:   provider.NewBase(id, name, provider.ClassLocal),
		cfg:    cfg,
		runner: process.NewRunner(id, cfg.Resilience, cfg.Timeout),
		log:    logger.Get("summarization").WithProvider(id),
	}, nil
}

// Factory builds the backend from a provider spec.
func Factory() provider.Factory[summarization.Summarizer] {
	return func(spec provider.Spec) (summarization.Summarizer, error) {
		return New(spec.ID, spec.Name, ConfigFromOptions(spec.ID, spec.Options))
	}
}

// Check verifies that the interpreter resolves and the script is readable.
func (s *Summarizer) Check(_ context.Context) provider.Health {
	if _, err := process.LookPath(s.cfg.Interpreter); err != nil {
		return provider.Unhealthy(fmt.Sprintf("Interpreter %q was not found. Install it or set interpreter.", s.cfg.Interpreter))
	}
	info, err := os.Stat(s.cfg.Script)
	if err != nil || info.IsDir() {
		return provider.Unhealthy(fmt.Sprintf("Script %s is missing. Fix the script path in the provider settings.", s.cfg.Script))
	}
	return provider.Healthy(s.cfg.Model)
}

type request struct {
	Text    string                `json:"text"`
	Prompt  string                `json:"prompt"`
	Options summarization.Options `json:"options"`
}

type response struct {
	Summary string `json:"summary"`
	Tokens  int    `json:"tokens"`
	Error   string `json:"error"`
}

// Summarize runs the script once with the request on stdin.
func (s *Summarizer) Summarize(ctx context.Context, text string, opts *summarization.Options) (*summarization.Result, error) {
	if err := summarization.CheckInput(s.ID(), text, opts); err != nil {
		return nil, err
	}
	o := opts.Merge(summarization.Options{Model: s.cfg.Model})
	input, err := json.Marshal(request{Text: text, Prompt: summarization.BuildPrompt(text, o).System, Options: o})
	if err != nil {
		return nil, apperrors.Internal(err).WithProvider(s.ID())
	}

	res, err := s.runner.Run(ctx, process.Command{
		Binary: s.cfg.Interpreter,
		Args:   append([]string{s.cfg.Script}, s.cfg.Args...),
		Env:    s.cfg.Env,
		Input:  input,
	})
	if err != nil {
		return nil, err
	}

	var out response
	if err := json.Unmarshal([]byte(llm.ExtractJSON(string(res.Stdout))), &out); err != nil {
		return nil, apperrors.ProcessingFailed(s.ID(), fmt.Errorf("script output is not JSON: %w", err)).
			WithMeta("stdout", truncate(string(res.Stdout), 300))
	}
	if out.Error != "" {
		return nil, apperrors.ProcessingFailed(s.ID(), fmt.Errorf("script: %s", out.Error))
	}
	summary := llm.CleanText(out.Summary)
	if summary == "" {
		return nil, summarization.EmptySummary(s.ID())
	}
	s.log.Debug("summary done", logger.ProviderFields(s.ID(), "summarize", res.Duration))
	return summarization.NewResult(text, summary, out.Tokens, o.Model, res.Duration), nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
