// Package whispercpp runs the whisper.cpp command line tool as a local
// Transcriber.
//
// The binary is invoked as
//
//	whisper-cli -m <model> -f <wav> -oj -of <prefix> -np [-l <lang>] [args...]
//
// and the JSON it writes to <prefix>.json is parsed into segments.
package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/voxkit/audio"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
	"github.com/kbukum/voxkit/process"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/transcription"
)

const (
	// DefaultID is the registered id of the whisper.cpp backend.
	DefaultID = "whisper-cpp"
	// Type selects this backend in a provider spec.
	Type = "whispercpp"

	defaultBinary  = "whisper-cli"
	defaultTimeout = 10 * time.Minute
)

// Config configures the backend.
type Config struct {
	Binary    string
	ModelPath string
	Language  string
	Threads   int
	ExtraArgs []string
	Timeout   time.Duration
	// WorkDir receives the JSON output. Defaults to the OS temp dir.
	WorkDir    string
	Resilience provider.ResilienceConfig
}

// ConfigFromOptions reads binary_path, model_path, language, threads,
// extra_args, timeout and the resilience options. Local engines are
// CPU-bound, so max_concurrent defaults to 1.
func ConfigFromOptions(id string, o provider.Options) Config {
	if _, ok := o["max_concurrent"]; !ok {
		o = cloneWith(o, "max_concurrent", 1)
	}
	return Config{
		Binary:     o.String("binary_path", defaultBinary),
		ModelPath:  o.String("model_path", ""),
		Language:   o.String("language", ""),
		Threads:    o.Int("threads", 0),
		ExtraArgs:  o.Strings("extra_args"),
		Timeout:    o.Duration("timeout", defaultTimeout),
		WorkDir:    o.String("work_dir", ""),
		Resilience: provider.ResilienceFromOptions(id, o),
	}
}

func cloneWith(o provider.Options, key string, v any) provider.Options {
	out := make(provider.Options, len(o)+1)
	for k, val := range o {
		out[k] = val
	}
	out[key] = v
	return out
}

// Transcriber runs whisper.cpp on prepared WAV files.
type Transcriber struct {
	provider.Base
	cfg        Config
	runner     *process.Runner
	normalizer transcription.Normalizer
	log        *logger.Logger
}

var _ transcription.Transcriber = (*Transcriber)(nil)

// New creates the backend. A model path is required.
func New(id, name string, cfg Config, n transcription.Normalizer) (*Transcriber, error) {
	if id == "" {
		id = DefaultID
	}
	if cfg.ModelPath == "" {
		return nil, apperrors.ConfigMissing("model_path").WithProvider(id)
	}
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Transcriber{
		Base:       provider.NewBase(id, name, provider.ClassLocal),
		cfg:        cfg,
		runner:     process.NewRunner(id, cfg.Resilience, cfg.Timeout),
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
	return audio.FormatSpec{Preferred: audio.FormatWAV, Accepted: []string{audio.FormatWAV}}
}

// Check verifies that the binary resolves and the model file exists.
func (t *Transcriber) Check(_ context.Context) provider.Health {
	if _, err := process.LookPath(t.cfg.Binary); err != nil {
		return provider.Unhealthy(fmt.Sprintf("whisper.cpp binary %q was not found. Install whisper.cpp or set binary_path.", t.cfg.Binary))
	}
	info, err := os.Stat(t.cfg.ModelPath)
	if err != nil {
		return provider.Unhealthy(fmt.Sprintf("Model file %s is missing. Download a ggml model or fix model_path.", t.cfg.ModelPath))
	}
	if info.IsDir() {
		return provider.Unhealthy(fmt.Sprintf("model_path %s is a directory, not a ggml model file.", t.cfg.ModelPath))
	}
	return provider.Healthy(strings.TrimSuffix(filepath.Base(t.cfg.ModelPath), filepath.Ext(t.cfg.ModelPath)))
}

// Transcribe converts the input to WAV when needed and runs the binary.
func (t *Transcriber) Transcribe(ctx context.Context, in transcription.AudioInput, opts *transcription.Options) (*transcription.Result, error) {
	prepared, err := transcription.Prepare(ctx, t.normalizer, t.ID(), in)
	if err != nil {
		return nil, err
	}
	defer prepared.Release()
	if prepared.Format != audio.FormatWAV {
		return nil, apperrors.UnsupportedFormat(t.ID(), prepared.Format, Formats().Accepted, true)
	}

	o := opts.Merge(transcription.Options{Language: t.cfg.Language})
	prefix := filepath.Join(t.cfg.WorkDir, fmt.Sprintf("voxkit-whispercpp-%d", time.Now().UnixNano()))
	outPath := prefix + ".json"
	defer func() { _ = os.Remove(outPath) }()

	start := time.Now()
	if _, err := t.runner.Run(ctx, process.Command{
		Binary: t.cfg.Binary,
		Args:   t.args(prepared.Path, prefix, o),
	}); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	data, err := os.ReadFile(outPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.ProcessingFailed(t.ID(), fmt.Errorf("whisper.cpp wrote no output at %s", outPath))
		}
		return nil, apperrors.ProcessingFailed(t.ID(), err)
	}
	result, err := parseOutput(data)
	if err != nil {
		return nil, apperrors.ProcessingFailed(t.ID(), err)
	}
	t.log.Debug("transcription done", logger.ProviderFields(t.ID(), "transcribe", elapsed))
	return result.Finalize(filepath.Base(t.cfg.ModelPath), elapsed), nil
}

func (t *Transcriber) args(wavPath, prefix string, o transcription.Options) []string {
	args := []string{"-m", t.cfg.ModelPath, "-f", wavPath, "-oj", "-of", prefix, "-np"}
	if o.Language != "" {
		args = append(args, "-l", o.Language)
	}
	if t.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(t.cfg.Threads))
	}
	if o.Prompt != "" {
		args = append(args, "--prompt", o.Prompt)
	}
	return append(args, t.cfg.ExtraArgs...)
}

// output mirrors the -oj JSON: offsets are milliseconds.
type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func parseOutput(data []byte) (*transcription.Result, error) {
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp output: %w", err)
	}
	res := &transcription.Result{Language: out.Result.Language}
	for _, s := range out.Transcription {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		res.Segments = append(res.Segments, transcription.Segment{
			Text:     text,
			StartSec: float64(s.Offsets.From) / 1000,
			EndSec:   float64(s.Offsets.To) / 1000,
		})
	}
	return res, nil
}
