package main

import (
	"fmt"

	"github.com/kbukum/voxkit/audio"
	"github.com/kbukum/voxkit/auth"
	"github.com/kbukum/voxkit/config"
	"github.com/kbukum/voxkit/observability"
	"github.com/kbukum/voxkit/pipeline"
	"github.com/kbukum/voxkit/registry"
	"github.com/kbukum/voxkit/secrets"
	"github.com/kbukum/voxkit/server"
	"github.com/kbukum/voxkit/validation"
)

// Config is the voxd configuration file.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server    server.Config        `yaml:"server" mapstructure:"server"`
	Auth      auth.Config          `yaml:"auth" mapstructure:"auth"`
	Secrets   secrets.Config       `yaml:"secrets" mapstructure:"secrets"`
	Audio     audio.Config         `yaml:"audio" mapstructure:"audio"`
	Pipeline  pipeline.Config      `yaml:"pipeline" mapstructure:"pipeline"`
	Telemetry observability.Config `yaml:"telemetry" mapstructure:"telemetry"`
	Providers registry.Specs       `yaml:"providers" mapstructure:"providers"`
	Selection SelectionConfig      `yaml:"selection" mapstructure:"selection"`
}

// SelectionConfig holds the default provider choice and the file that
// stores the user's runtime choice.
type SelectionConfig struct {
	config.Selection `yaml:",inline" mapstructure:",squash"`
	// File persists changes made through PUT /v1/selection and is watched
	// for edits. Empty keeps the selection in memory.
	File string `yaml:"file" mapstructure:"file"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Secrets.ApplyDefaults()
	c.Audio.ApplyDefaults()
	c.Pipeline.ApplyDefaults()
	c.Telemetry.ApplyDefaults(c.Name)
	if c.Telemetry.ServiceVersion == "dev" && c.Version != "" {
		c.Telemetry.ServiceVersion = c.Version
	}
}

// Validate checks every section and the cross references between them.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	for _, section := range []any{&c.Secrets, &c.Audio, &c.Pipeline, &c.Telemetry, &c.Providers} {
		if err := validation.Validate(section); err != nil {
			return err
		}
	}

	ids := make(map[string]string)
	for _, s := range c.Providers.Transcribers {
		ids[s.ID] = "transcriber"
	}
	for _, s := range c.Providers.Summarizers {
		ids[s.ID] = "summarizer"
	}
	v := validation.New()
	refs := []struct{ field, id, kind string }{
		{"pipeline.default_transcriber", c.Pipeline.DefaultTranscriber, "transcriber"},
		{"pipeline.default_summarizer", c.Pipeline.DefaultSummarizer, "summarizer"},
		{"selection.transcription", c.Selection.Transcription, "transcriber"},
		{"selection.summarization", c.Selection.Summarization, "summarizer"},
	}
	for _, r := range refs {
		if r.id == "" {
			continue
		}
		if got, ok := ids[r.id]; !ok || got != r.kind {
			v.AddError(r.field, fmt.Sprintf("%q is not a configured %s", r.id, r.kind))
		}
	}
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
