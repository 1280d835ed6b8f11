package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/logger"
)

// tempPrefix marks files owned by the service. The cleanup sweep touches
// nothing else.
const tempPrefix = "voxkit-audio-"

var tempNamePattern = regexp.MustCompile(`^voxkit-audio-\d+-[0-9a-f]{8}\.[a-z0-9]+$`)

// Config configures the normalization service.
type Config struct {
	// TempDir receives converted files. Defaults to the OS temp dir.
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	// MaxBytes rejects larger buffers. Defaults to 100 MiB.
	MaxBytes int64 `yaml:"max_bytes" mapstructure:"max_bytes" validate:"gte=0"`
	// FFmpegPath is the ffmpeg binary. Defaults to "ffmpeg" on PATH.
	FFmpegPath string `yaml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	// SampleRate of WAV output and the default rate of raw PCM input.
	SampleRate int `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0"`
	// ConvertTimeout bounds one ffmpeg run.
	ConvertTimeout time.Duration `yaml:"convert_timeout" mapstructure:"convert_timeout"`
	// CleanupInterval and CleanupMaxAge drive the periodic temp sweep.
	CleanupInterval time.Duration `yaml:"cleanup_interval" mapstructure:"cleanup_interval"`
	CleanupMaxAge   time.Duration `yaml:"cleanup_max_age" mapstructure:"cleanup_max_age"`
	// Formats adds or overrides rows of the provider format table.
	Formats map[string]FormatSpec `yaml:"formats" mapstructure:"formats"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.MaxBytes == 0 {
		c.MaxBytes = 100 << 20
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 16000
	}
	if c.ConvertTimeout == 0 {
		c.ConvertTimeout = 2 * time.Minute
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 15 * time.Minute
	}
	if c.CleanupMaxAge == 0 {
		c.CleanupMaxAge = time.Hour
	}
}

// ConversionMetadata describes the source of a conversion and its cost.
type ConversionMetadata struct {
	OriginalFormat string        `json:"original_format"`
	OriginalMIME   string        `json:"original_mime"`
	OriginalSize   int64         `json:"original_size"`
	Converter      string        `json:"converter"`
	Duration       time.Duration `json:"duration"`
	AudioDuration  time.Duration `json:"audio_duration,omitempty"`
	ProviderID     string        `json:"provider_id"`
}

// ConversionResult references a converted temp file. The file belongs to the
// service until Remove or Cleanup deletes it.
type ConversionResult struct {
	Path     string             `json:"path"`
	Format   string             `json:"format"`
	Size     int64              `json:"size"`
	Metadata ConversionMetadata `json:"metadata"`
}

// CleanupReport summarizes one temp sweep.
type CleanupReport struct {
	Scanned int   `json:"scanned"`
	Removed int   `json:"removed"`
	Failed  int   `json:"failed"`
	Bytes   int64 `json:"bytes"`
}

// Service converts in-memory buffers into files a provider accepts.
type Service struct {
	cfg     Config
	formats *FormatTable
	wav     *wavConverter
	pcm     *pcmConverter
	ff      *ffmpegConverter
	generic *genericConverter
	now     func() time.Time
	log     *logger.Logger
}

// NewService creates a Service. The temp dir is created when missing.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := os.MkdirAll(cfg.TempDir, 0o700); err != nil {
		return nil, apperrors.ConfigInvalid("audio.temp_dir", err.Error()).WithCause(err)
	}

	s := &Service{
		cfg:     cfg,
		formats: NewFormatTable(),
		now:     time.Now,
		log:     logger.Get("audio"),
	}
	for id, spec := range cfg.Formats {
		s.formats.SetProvider(id, spec)
	}
	s.ff = &ffmpegConverter{
		binary:     cfg.FFmpegPath,
		sampleRate: cfg.SampleRate,
		timeout:    cfg.ConvertTimeout,
		tempPath:   s.tempPath,
	}
	s.wav = &wavConverter{ff: s.ff}
	s.pcm = &pcmConverter{ff: s.ff, defaultRate: cfg.SampleRate}
	s.generic = &genericConverter{wav: s.wav, ff: s.ff}
	return s, nil
}

// Config returns the effective configuration.
func (s *Service) Config() Config { return s.cfg }

// Formats exposes the provider format table.
func (s *Service) Formats() *FormatTable { return s.formats }

// AcceptedFormats lists the formats providerID reads without conversion.
func (s *Service) AcceptedFormats(providerID string) []string {
	return s.formats.Lookup(providerID).Accepted
}

// Supports reports whether providerID accepts format directly.
func (s *Service) Supports(providerID, format string) bool {
	return s.formats.Lookup(providerID).Accepts(format)
}

// Convert writes buf as a temp file in a format providerID accepts: the
// override when given, otherwise the provider's preferred format.
func (s *Service) Convert(ctx context.Context, buf Buffer, providerID, override string) (*ConversionResult, error) {
	if len(buf.Data) == 0 {
		return nil, apperrors.FileInvalid("audio buffer is empty").WithProvider(providerID)
	}
	if s.cfg.MaxBytes > 0 && buf.Size() > s.cfg.MaxBytes {
		return nil, apperrors.FileTooLarge(buf.Size(), s.cfg.MaxBytes).WithProvider(providerID)
	}

	spec := s.formats.Lookup(providerID)
	target := spec.Preferred
	if override != "" {
		override = FormatForExtension(override)
		if !spec.Accepts(override) {
			return nil, apperrors.UnsupportedFormat(providerID, override, spec.Accepted, true)
		}
		target = override
	}

	source := buf.Format()
	conv := s.converterFor(source)
	out := s.tempPath(target)
	start := s.now()

	err := conv.convert(ctx, job{
		Data:      buf.Data,
		Source:    source,
		Target:    target,
		MediaType: buf.MediaType(),
		Params:    buf.Params(),
		OutPath:   out,
	})
	elapsed := s.now().Sub(start)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		_ = os.Remove(out)
		s.log.Warn("audio conversion failed", logger.Fields(
			logger.FieldProvider, providerID,
			logger.FieldFormat, buf.MIMEType,
			"converter", conv.name(),
			logger.FieldDuration, elapsed.Milliseconds(),
			logger.FieldError, err.Error(),
		))
		return nil, apperrors.ProcessingFailed(providerID, err).
			WithHint("The recording could not be converted. Check that ffmpeg is installed or record again.").
			WithMetadata(map[string]any{
				"original_format": orMIME(source, buf.MIMEType),
				"original_size":   buf.Size(),
				"target_format":   target,
				"converter":       conv.name(),
				"elapsed_ms":      elapsed.Milliseconds(),
			})
	}

	info, statErr := os.Stat(out)
	if statErr != nil {
		return nil, apperrors.ProcessingFailed(providerID, statErr)
	}
	result := &ConversionResult{
		Path:   out,
		Format: target,
		Size:   info.Size(),
		Metadata: ConversionMetadata{
			OriginalFormat: orMIME(source, buf.MIMEType),
			OriginalMIME:   buf.MIMEType,
			OriginalSize:   buf.Size(),
			Converter:      conv.name(),
			Duration:       elapsed,
			ProviderID:     providerID,
		},
	}
	if target == FormatWAV {
		result.Metadata.AudioDuration = wavDuration(out)
	}
	s.log.Debug("audio converted", logger.Fields(
		logger.FieldProvider, providerID,
		logger.FieldFormat, target,
		logger.FieldPath, out,
		"bytes", result.Size,
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return result, nil
}

func (s *Service) converterFor(source string) converter {
	switch source {
	case FormatWAV:
		return s.wav
	case FormatPCM:
		return s.pcm
	case FormatWebM, FormatOgg, FormatMP3, FormatMP4, FormatM4A, FormatFLAC, FormatAAC:
		return s.ff
	}
	return s.generic
}

// Remove deletes one converted file. Paths outside the temp dir or not
// following the naming scheme are refused.
func (s *Service) Remove(path string) error {
	if !s.owns(path) {
		return apperrors.FileInvalid(fmt.Sprintf("%s is not a converted audio file", path))
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Internal(err).WithMeta(logger.FieldPath, path)
	}
	return nil
}

// Cleanup deletes converted files older than olderThan. Delete failures are
// logged and counted; the sweep continues.
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (CleanupReport, error) {
	var report CleanupReport
	entries, err := os.ReadDir(s.cfg.TempDir)
	if err != nil {
		return report, apperrors.Internal(fmt.Errorf("read temp dir: %w", err))
	}
	cutoff := s.now().Add(-olderThan)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return report, apperrors.From(err, "")
		}
		if e.IsDir() || !tempNamePattern.MatchString(e.Name()) {
			continue
		}
		report.Scanned++
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.cfg.TempDir, e.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			report.Failed++
			s.log.Warn("temp audio cleanup failed", logger.Fields(logger.FieldPath, path, logger.FieldError, err.Error()))
			continue
		}
		report.Removed++
		report.Bytes += info.Size()
	}

	if report.Removed > 0 || report.Failed > 0 {
		s.log.Info("temp audio swept", logger.Fields(
			"removed", report.Removed, "failed", report.Failed, "bytes", report.Bytes))
	}
	return report, nil
}

// RunCleanup sweeps periodically until ctx is done.
func (s *Service) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Cleanup(ctx, s.cfg.CleanupMaxAge)
		}
	}
}

func (s *Service) tempPath(ext string) string {
	name := fmt.Sprintf("%s%d-%s.%s", tempPrefix, s.now().UnixNano(), uuid.NewString()[:8], strings.ToLower(ext))
	return filepath.Join(s.cfg.TempDir, name)
}

func (s *Service) owns(path string) bool {
	dir, name := filepath.Split(filepath.Clean(path))
	return filepath.Clean(dir) == filepath.Clean(s.cfg.TempDir) && tempNamePattern.MatchString(name)
}

func orMIME(format, mimeType string) string {
	if format != "" {
		return format
	}
	if mimeType != "" {
		return mimeType
	}
	return "unknown"
}
