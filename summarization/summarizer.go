package summarization

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/validation"
)

// Summarizer is the interface that text summarization backends implement.
type Summarizer interface {
	provider.Provider

	// Summarize condenses text. Failures are *errors.AppError.
	Summarize(ctx context.Context, text string, opts *Options) (*Result, error)
}

// Style is the shape of the produced summary.
type Style string

const (
	StyleBrief     Style = "brief"
	StyleDetailed  Style = "detailed"
	StyleBullet    Style = "bullet"
	StyleNarrative Style = "narrative"
)

// Options tune a summarization call. Zero values mean backend defaults.
type Options struct {
	// TargetLength is the approximate number of words wanted.
	TargetLength int `json:"target_length,omitempty" validate:"gte=0,lte=5000"`
	// Style defaults to detailed.
	Style Style `json:"style,omitempty" validate:"omitempty,oneof=brief detailed bullet narrative"`
	// Language is the language of the summary, e.g. "en" or "German".
	Language string `json:"language,omitempty" validate:"max=32"`
	// CustomPrompt replaces the generated instructions entirely.
	CustomPrompt string `json:"custom_prompt,omitempty" validate:"max=4000"`
	// FocusPoints are topics the summary must cover.
	FocusPoints []string `json:"focus_points,omitempty" validate:"max=10,dive,max=200"`
	// Model overrides the backend's configured model.
	Model string `json:"model,omitempty"`
}

// Validate checks the option ranges. A nil receiver is valid.
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}
	return validation.Validate(o)
}

// Metadata describes how a summary was produced.
type Metadata struct {
	// OriginalLength is the input length in characters.
	OriginalLength int `json:"original_length"`
	// CompressionRatio is summary length over original length.
	CompressionRatio float64       `json:"compression_ratio"`
	Model            string        `json:"model,omitempty"`
	ProcessingTime   time.Duration `json:"processing_time"`
}

// Result is one summary.
type Result struct {
	Summary    string   `json:"summary"`
	TokenCount int      `json:"token_count,omitempty"`
	Metadata   Metadata `json:"metadata"`
}

// NewResult builds a result and fills the derived metadata.
func NewResult(text, summary string, tokens int, model string, elapsed time.Duration) *Result {
	summary = strings.TrimSpace(summary)
	r := &Result{
		Summary:    summary,
		TokenCount: tokens,
		Metadata: Metadata{
			OriginalLength: utf8.RuneCountInString(text),
			Model:          model,
			ProcessingTime: elapsed,
		},
	}
	if r.Metadata.OriginalLength > 0 {
		r.Metadata.CompressionRatio = float64(utf8.RuneCountInString(summary)) / float64(r.Metadata.OriginalLength)
	}
	return r
}

// CheckInput rejects empty transcripts before a backend is called and
// validates the options.
func CheckInput(providerID, text string, opts *Options) error {
	if strings.TrimSpace(text) == "" {
		return apperrors.New(apperrors.ErrCodeFileInvalid, "there is no text to summarize").
			WithProvider(providerID).
			WithHint("The transcript is empty. Record again and speak closer to the microphone.")
	}
	if err := opts.Validate(); err != nil {
		return apperrors.From(err, providerID)
	}
	return nil
}

// EmptySummary is returned when a backend answers with no text.
func EmptySummary(providerID string) error {
	return apperrors.New(apperrors.ErrCodeProcessingFailed, "the model returned an empty summary").
		WithProvider(providerID)
}
