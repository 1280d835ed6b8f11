package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" || !cfg.Debug {
			t.Errorf("expected development with debug, got %+v", cfg)
		}
		if cfg.Name != "voxd" {
			t.Errorf("expected default name voxd, got %q", cfg.Name)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Audio         struct {
		TempDir  string        `mapstructure:"temp_dir"`
		MaxBytes int64         `mapstructure:"max_bytes"`
		Timeout  time.Duration `mapstructure:"timeout"`
	} `mapstructure:"audio"`
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
name: voxd-test
environment: staging
audio:
  temp_dir: /tmp/vox
  max_bytes: 1024
  timeout: 15s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	if err := LoadConfig("voxd", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "none.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "voxd-test" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Audio.TempDir != "/tmp/vox" || cfg.Audio.MaxBytes != 1024 || cfg.Audio.Timeout != 15*time.Second {
		t.Errorf("unexpected audio config %+v", cfg.Audio)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("audio:\n  temp_dir: /from/file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VOXKIT_AUDIO_TEMP_DIR", "/from/env")

	var cfg testConfig
	if err := LoadConfig("voxd", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "none.env"))); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Audio.TempDir != "/from/env" {
		t.Errorf("expected env override, got %q", cfg.Audio.TempDir)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/voxd/config.yml": true,
		".env":                  true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("voxd", LoaderConfig{})
	if files.ConfigFile != "./cmd/voxd/config.yml" {
		t.Errorf("expected config file at ./cmd/voxd/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("AUDIO_TEMP_DIR")
	want := map[string]bool{"audio_temp_dir": true, "audio.temp.dir": true, "audio.temp_dir": true, "audio_temp.dir": true}
	if len(got) != len(want) {
		t.Fatalf("expected %d variants, got %v", len(want), got)
	}
	for _, v := range got {
		if !want[v] {
			t.Errorf("unexpected variant %q", v)
		}
	}
}

func TestSelectionRoundTripAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection.yml")

	empty, err := LoadSelection(path)
	if err != nil || empty != (Selection{}) {
		t.Fatalf("missing file should give empty selection, got %+v %v", empty, err)
	}

	if err := SaveSelection(path, Selection{Transcription: "whisper-local"}); err != nil {
		t.Fatalf("SaveSelection: %v", err)
	}
	sel, err := LoadSelection(path)
	if err != nil {
		t.Fatalf("LoadSelection: %v", err)
	}
	merged := sel.Merge(Selection{Transcription: "openai-whisper", Summarization: "openai-gpt"})
	if merged.Transcription != "whisper-local" || merged.Summarization != "openai-gpt" {
		t.Errorf("unexpected merge result %+v", merged)
	}
}

func TestWatch_FiresOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection.yml")
	if err := os.WriteFile(path, []byte("transcription: a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, 20*time.Millisecond, func() { calls.Add(1) }) }()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("transcription: b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}
	if calls.Load() == 0 {
		t.Error("expected onChange to be called")
	}
}

func TestSelectionStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selection.yaml")
	defaults := Selection{Transcription: "whisper-cpp", Summarization: "ollama"}

	s, err := NewSelectionStore(path, defaults)
	if err != nil {
		t.Fatalf("NewSelectionStore: %v", err)
	}
	if got := s.Get(); got != defaults {
		t.Errorf("missing file should yield defaults, got %+v", got)
	}

	if err := s.Set(Selection{Summarization: "openai-gpt"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Get(); got.Summarization != "openai-gpt" || got.Transcription != "whisper-cpp" {
		t.Errorf("stored choice should override defaults field by field, got %+v", got)
	}

	if err := SaveSelection(path, Selection{Transcription: "openai-whisper"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := s.Get(); got.Transcription != "openai-whisper" || got.Summarization != "ollama" {
		t.Errorf("Reload should pick up the file, got %+v", got)
	}

	mem, _ := NewSelectionStore("", defaults)
	if err := mem.Set(Selection{Transcription: "x"}); err != nil || mem.Get().Transcription != "x" {
		t.Errorf("in-memory store should keep the value, got %+v, %v", mem.Get(), err)
	}
}
