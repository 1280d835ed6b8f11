package transcription

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/kbukum/voxkit/audio"
	apperrors "github.com/kbukum/voxkit/errors"
)

// Normalizer converts buffers into files a provider accepts. *audio.Service
// implements it.
type Normalizer interface {
	Convert(ctx context.Context, buf audio.Buffer, providerID, override string) (*audio.ConversionResult, error)
	Remove(path string) error
	AcceptedFormats(providerID string) []string
	Supports(providerID, format string) bool
}

// Prepared is a file ready for a file-based backend.
type Prepared struct {
	Path   string
	Format string
	// Conversion is set when the input went through the normalizer.
	Conversion *audio.ConversionResult
	release    func()
}

// Release deletes the converted temp file, if any. It is safe to call twice.
func (p *Prepared) Release() {
	if p != nil && p.release != nil {
		p.release()
		p.release = nil
	}
}

// Prepare turns in into a file providerID accepts. A path in an accepted
// format is used as is; everything else is converted. Buffers are never
// rejected for their format before conversion was attempted.
func Prepare(ctx context.Context, n Normalizer, providerID string, in AudioInput) (*Prepared, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.From(err, providerID)
	}

	buf := in.Buffer
	if in.Path != "" {
		if _, err := os.Stat(in.Path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, apperrors.FileNotFound(in.Path).WithProvider(providerID)
			}
			return nil, apperrors.FileInvalid(err.Error()).WithProvider(providerID).WithCause(err)
		}
		format := audio.FormatForExtension(filepath.Ext(in.Path))
		if n == nil {
			return &Prepared{Path: in.Path, Format: format}, nil
		}
		if n.Supports(providerID, format) {
			return &Prepared{Path: in.Path, Format: format}, nil
		}
		data, err := os.ReadFile(in.Path)
		if err != nil {
			return nil, apperrors.FileInvalid(err.Error()).WithProvider(providerID).WithCause(err)
		}
		buf = &audio.Buffer{Data: data, MIMEType: audio.MIMEForFormat(format)}
	}

	if n == nil {
		return nil, apperrors.ConfigMissing("audio normalizer").WithProvider(providerID).
			WithHint("Audio conversion is not configured, so in-memory recordings cannot be handed to this provider.")
	}
	res, err := n.Convert(ctx, *buf, providerID, "")
	if err != nil {
		return nil, apperrors.From(err, providerID)
	}
	return &Prepared{
		Path:       res.Path,
		Format:     res.Format,
		Conversion: res,
		release:    func() { _ = n.Remove(res.Path) },
	}, nil
}
