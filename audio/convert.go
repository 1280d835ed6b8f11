package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/youpy/go-wav"

	"github.com/kbukum/voxkit/process"
)

// job is one conversion: bytes in, a file at OutPath in the target format.
type job struct {
	Data      []byte
	Source    string
	Target    string
	MediaType string
	Params    map[string]string
	OutPath   string
}

// converter turns a source format into the target format.
type converter interface {
	name() string
	convert(ctx context.Context, j job) error
}

// wavConverter validates WAV input and copies it, or hands it to ffmpeg when
// the target is not WAV.
type wavConverter struct {
	ff *ffmpegConverter
}

func (c *wavConverter) name() string { return "wav" }

func (c *wavConverter) convert(ctx context.Context, j job) error {
	if _, err := wav.NewReader(bytes.NewReader(j.Data)).Format(); err != nil {
		return fmt.Errorf("invalid wav data: %w", err)
	}
	if j.Target == FormatWAV {
		return writeFile(j.OutPath, j.Data)
	}
	j.Source = FormatWAV
	return c.ff.convert(ctx, j)
}

// pcmConverter wraps raw 16-bit samples in a WAV container. audio/L16 is
// big-endian; audio/pcm and audio/raw are little-endian.
type pcmConverter struct {
	ff          *ffmpegConverter
	defaultRate int
}

func (c *pcmConverter) name() string { return "pcm" }

func (c *pcmConverter) convert(ctx context.Context, j job) error {
	rate := paramInt(j.Params, "rate", c.defaultRate)
	channels := paramInt(j.Params, "channels", 1)
	data, err := encodePCM(j.Data, uint32(rate), uint16(channels), j.MediaType == "audio/l16")
	if err != nil {
		return err
	}
	if j.Target == FormatWAV {
		return writeFile(j.OutPath, data)
	}
	j.Data, j.Source = data, FormatWAV
	return c.ff.convert(ctx, j)
}

func encodePCM(data []byte, rate uint32, channels uint16, bigEndian bool) ([]byte, error) {
	if channels < 1 || channels > 2 {
		return nil, fmt.Errorf("unsupported pcm channel count %d", channels)
	}
	if rate == 0 {
		return nil, fmt.Errorf("pcm sample rate must be positive")
	}
	frameSize := 2 * int(channels)
	if len(data)%frameSize != 0 {
		return nil, fmt.Errorf("pcm data length %d is not a multiple of the %d byte frame", len(data), frameSize)
	}
	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}

	frames := len(data) / frameSize
	samples := make([]wav.Sample, frames)
	for i := range frames {
		for ch := range int(channels) {
			off := i*frameSize + ch*2
			samples[i].Values[ch] = int(int16(order.Uint16(data[off : off+2])))
		}
	}

	var out bytes.Buffer
	w := wav.NewWriter(&out, uint32(frames), channels, rate, 16)
	if err := w.WriteSamples(samples); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	return out.Bytes(), nil
}

// ffmpegConverter transcodes compressed containers with the ffmpeg binary.
type ffmpegConverter struct {
	binary     string
	sampleRate int
	timeout    time.Duration
	tempPath   func(ext string) string
}

func (c *ffmpegConverter) name() string { return "ffmpeg" }

func (c *ffmpegConverter) convert(ctx context.Context, j job) error {
	if j.Source != "" && j.Source == j.Target {
		return writeFile(j.OutPath, j.Data)
	}

	ext := j.Source
	if ext == "" {
		ext = "bin"
	}
	in := c.tempPath(ext)
	if err := writeFile(in, j.Data); err != nil {
		return err
	}
	defer func() { _ = os.Remove(in) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-y", "-i", in}
	args = append(args, c.targetArgs(j.Target)...)
	args = append(args, j.OutPath)

	res, err := process.Run(ctx, process.Command{Binary: c.binary, Args: args, GracePeriod: 2 * time.Second})
	if err != nil {
		_ = os.Remove(j.OutPath)
		if tail := strings.TrimSpace(res.StderrTail(300)); tail != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, tail)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return nil
}

func (c *ffmpegConverter) targetArgs(target string) []string {
	rate := strconv.Itoa(c.sampleRate)
	switch target {
	case FormatWAV:
		return []string{"-vn", "-ar", rate, "-ac", "1", "-c:a", "pcm_s16le", "-f", "wav"}
	case FormatFLAC:
		return []string{"-vn", "-ar", rate, "-ac", "1", "-c:a", "flac"}
	case FormatMP3:
		return []string{"-vn", "-ac", "1", "-c:a", "libmp3lame", "-b:a", "64k"}
	case FormatOgg:
		return []string{"-vn", "-ac", "1", "-c:a", "libopus", "-f", "ogg"}
	case FormatWebM:
		return []string{"-vn", "-ac", "1", "-c:a", "libopus", "-f", "webm"}
	case FormatM4A, FormatMP4:
		return []string{"-vn", "-ac", "1", "-c:a", "aac", "-f", "mp4"}
	}
	return []string{"-vn"}
}

// genericConverter handles undeclared or unknown MIME types by sniffing the
// container before transcoding.
type genericConverter struct {
	wav *wavConverter
	ff  *ffmpegConverter
}

func (c *genericConverter) name() string { return "generic" }

func (c *genericConverter) convert(ctx context.Context, j job) error {
	j.Source = sniffFormat(j.Data)
	if j.Source == FormatWAV {
		return c.wav.convert(ctx, j)
	}
	return c.ff.convert(ctx, j)
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func paramInt(params map[string]string, key string, def int) int {
	if v, ok := params[key]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// wavDuration reads the playback length of a WAV file.
func wavDuration(path string) time.Duration {
	f, err := os.Open(path)
	if err != nil {
		return 0
	}
	defer f.Close()
	d, err := wav.NewReader(f).Duration()
	if err != nil {
		return 0
	}
	return d
}
