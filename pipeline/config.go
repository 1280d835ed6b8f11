package pipeline

import "time"

// Config selects the fallback providers and the time bounds of a run.
type Config struct {
	// DefaultTranscriber is the cloud transcriber used when the selected one
	// fails. Empty disables transcription fallback.
	DefaultTranscriber string `yaml:"default_transcriber" mapstructure:"default_transcriber"`
	// DefaultSummarizer is the summarization counterpart.
	DefaultSummarizer string `yaml:"default_summarizer" mapstructure:"default_summarizer"`
	// StageTimeout bounds each provider call.
	StageTimeout time.Duration `yaml:"stage_timeout" mapstructure:"stage_timeout" validate:"gte=0"`
	// ProbeTimeout bounds each health check.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout" validate:"gte=0"`
	// ProbeHealth checks the selected providers before a run.
	ProbeHealth bool `yaml:"probe_health" mapstructure:"probe_health"`
}

// ApplyDefaults fills zero durations.
func (c *Config) ApplyDefaults() {
	if c.StageTimeout <= 0 {
		c.StageTimeout = 5 * time.Minute
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
}
