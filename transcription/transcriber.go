package transcription

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/voxkit/audio"
	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/validation"
)

// Transcriber is the interface that speech-to-text backends implement.
type Transcriber interface {
	provider.Provider

	// Transcribe converts speech to text. Failures are *errors.AppError.
	Transcribe(ctx context.Context, in AudioInput, opts *Options) (*Result, error)
}

// AudioInput is either a file already on disk or an in-memory buffer.
// Exactly one of the two is set.
type AudioInput struct {
	Path   string
	Buffer *audio.Buffer
}

// FromPath returns an input referencing a file.
func FromPath(path string) AudioInput { return AudioInput{Path: path} }

// FromBuffer returns an input holding captured bytes.
func FromBuffer(data []byte, mimeType string) AudioInput {
	return AudioInput{Buffer: &audio.Buffer{Data: data, MIMEType: mimeType}}
}

// Validate checks that exactly one source is set.
func (in AudioInput) Validate() error {
	switch {
	case in.Path == "" && in.Buffer == nil:
		return apperrors.FileInvalid("no audio given: set a file path or a buffer")
	case in.Path != "" && in.Buffer != nil:
		return apperrors.FileInvalid("audio input has both a path and a buffer")
	case in.Buffer != nil && len(in.Buffer.Data) == 0:
		return apperrors.FileInvalid("audio buffer is empty")
	}
	return nil
}

// Size returns the buffer length, or zero for path inputs.
func (in AudioInput) Size() int {
	if in.Buffer == nil {
		return 0
	}
	return len(in.Buffer.Data)
}

// Options tune a transcription call. Zero values mean backend defaults.
type Options struct {
	// Language is an ISO-639-1 code such as "en". Empty means auto-detect.
	Language string `json:"language,omitempty" validate:"omitempty,len=2|len=3"`
	// Model overrides the backend's configured model.
	Model string `json:"model,omitempty"`
	// Prompt biases recognition towards given vocabulary.
	Prompt string `json:"prompt,omitempty"`
	// Temperature is the sampling temperature (0-1).
	Temperature float64 `json:"temperature,omitempty" validate:"gte=0,lte=1"`
}

// Segment is a time-aligned portion of a transcript.
type Segment struct {
	Text       string  `json:"text"`
	StartSec   float64 `json:"start_sec"`
	EndSec     float64 `json:"end_sec"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Metadata describes how a transcript was produced.
type Metadata struct {
	DurationSec    float64       `json:"duration_sec,omitempty"`
	Model          string        `json:"model,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// Result is one transcript. Segments are time-ordered and non-overlapping.
type Result struct {
	Text     string    `json:"text"`
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// segmentTolerance absorbs rounding in backend timestamps.
const segmentTolerance = 0.01

// Validate checks the segment ordering contract.
func (r *Result) Validate() error {
	if r == nil {
		return apperrors.New(apperrors.ErrCodeProcessingFailed, "transcriber returned no result")
	}
	prevEnd := 0.0
	for i, s := range r.Segments {
		if s.EndSec+segmentTolerance < s.StartSec {
			return apperrors.Newf(apperrors.ErrCodeProcessingFailed,
				"segment %d ends (%.2fs) before it starts (%.2fs)", i, s.EndSec, s.StartSec)
		}
		if s.StartSec+segmentTolerance < prevEnd {
			return apperrors.Newf(apperrors.ErrCodeProcessingFailed,
				"segment %d starts at %.2fs, overlapping the previous one ending at %.2fs", i, s.StartSec, prevEnd)
		}
		prevEnd = s.EndSec
	}
	return nil
}

// TextFromSegments joins segment texts when a backend returns no full text.
func TextFromSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Finalize fills derived metadata: text from segments, audio duration from
// the last segment, and the processing time.
func (r *Result) Finalize(model string, elapsed time.Duration) *Result {
	r.Text = strings.TrimSpace(r.Text)
	if r.Text == "" {
		r.Text = TextFromSegments(r.Segments)
	}
	if r.Metadata.DurationSec == 0 && len(r.Segments) > 0 {
		r.Metadata.DurationSec = r.Segments[len(r.Segments)-1].EndSec
	}
	if r.Metadata.Model == "" {
		r.Metadata.Model = model
	}
	r.Metadata.ProcessingTime = elapsed
	return r
}

// Validate checks the option ranges. A nil receiver is valid.
func (o *Options) Validate() error {
	if o == nil {
		return nil
	}
	return validation.Validate(o)
}

// Merge applies opts over defaults and returns the result.
func (o *Options) Merge(defaults Options) Options {
	out := defaults
	if o == nil {
		return out
	}
	if o.Language != "" {
		out.Language = o.Language
	}
	if o.Model != "" {
		out.Model = o.Model
	}
	if o.Prompt != "" {
		out.Prompt = o.Prompt
	}
	if o.Temperature != 0 {
		out.Temperature = o.Temperature
	}
	return out
}
