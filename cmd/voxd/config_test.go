package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/voxkit/config"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
)

func validConfig() *Config {
	c := &Config{}
	c.Providers.Transcribers = []provider.Spec{
		{ID: "whisper-cpp", Type: "whispercpp"},
		{ID: "openai-whisper", Type: "openai"},
	}
	c.Providers.Summarizers = []provider.Spec{{ID: "openai-gpt", Type: "openai"}}
	c.Pipeline.DefaultTranscriber = "openai-whisper"
	c.Pipeline.DefaultSummarizer = "openai-gpt"
	c.Selection.Transcription = "whisper-cpp"
	return c
}

func TestConfig_Defaults(t *testing.T) {
	c := validConfig()
	c.Version = "1.4.0"
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if c.Server.Port != 8420 || c.Secrets.KeyEnv != "VOXKIT_SECRET_KEY" {
		t.Errorf("section defaults missing: %+v %+v", c.Server, c.Secrets)
	}
	if c.Telemetry.ServiceName != "voxd" || c.Telemetry.ServiceVersion != "1.4.0" {
		t.Errorf("telemetry identity = %s %s", c.Telemetry.ServiceName, c.Telemetry.ServiceVersion)
	}
}

func TestConfig_ValidateReferences(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown default transcriber", func(c *Config) { c.Pipeline.DefaultTranscriber = "ghost" }},
		{"summarizer as default transcriber", func(c *Config) { c.Pipeline.DefaultTranscriber = "openai-gpt" }},
		{"unknown selected summarizer", func(c *Config) { c.Selection.Summarization = "ollama" }},
		{"provider without type", func(c *Config) { c.Providers.Summarizers[0].Type = "" }},
		{"auth without secret", func(c *Config) { c.Auth.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			c.ApplyDefaults()
			err := c.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if code := apperrors.CodeOf(err); code != apperrors.ErrCodeConfigInvalid && code != apperrors.ErrCodeConfigMissing {
				t.Errorf("unexpected code %s (%v)", code, err)
			}
		})
	}
}

func TestConfig_LoadExample(t *testing.T) {
	data, err := os.ReadFile("config.example.yml")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	var c Config
	if err := config.LoadConfig("voxd", &c, config.WithConfigFile(path), config.WithEnvFile(filepath.Join(t.TempDir(), "none.env"))); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("example config should validate: %v", err)
	}
	if len(c.Providers.Transcribers) != 3 || len(c.Providers.Summarizers) != 3 {
		t.Errorf("providers = %+v", c.Providers)
	}
	if c.Selection.Transcription != "whisper-cpp" || c.Selection.File != "./data/selection.yml" {
		t.Errorf("selection = %+v", c.Selection)
	}
	if c.Providers.Transcribers[0].Options.Int("threads", 0) != 4 {
		t.Errorf("provider options not decoded: %+v", c.Providers.Transcribers[0].Options)
	}
}
