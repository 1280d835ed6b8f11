package audio

import (
	"bytes"
	"mime"
	"strings"
)

// Canonical format tags.
const (
	FormatWAV  = "wav"
	FormatPCM  = "pcm"
	FormatWebM = "webm"
	FormatOgg  = "ogg"
	FormatMP3  = "mp3"
	FormatMP4  = "mp4"
	FormatM4A  = "m4a"
	FormatFLAC = "flac"
	FormatAAC  = "aac"
)

// mimeFormats maps media types to format tags. Unknown types have no tag and
// go through the generic converter.
var mimeFormats = map[string]string{
	"audio/wav":       FormatWAV,
	"audio/x-wav":     FormatWAV,
	"audio/wave":      FormatWAV,
	"audio/vnd.wave":  FormatWAV,
	"audio/pcm":       FormatPCM,
	"audio/l16":       FormatPCM,
	"audio/raw":       FormatPCM,
	"audio/webm":      FormatWebM,
	"video/webm":      FormatWebM,
	"audio/ogg":       FormatOgg,
	"audio/opus":      FormatOgg,
	"audio/mpeg":      FormatMP3,
	"audio/mp3":       FormatMP3,
	"audio/mp4":       FormatMP4,
	"video/mp4":       FormatMP4,
	"audio/m4a":       FormatM4A,
	"audio/x-m4a":     FormatM4A,
	"audio/flac":      FormatFLAC,
	"audio/x-flac":    FormatFLAC,
	"audio/aac":       FormatAAC,
	"audio/x-aac":     FormatAAC,
	"audio/aacp":      FormatAAC,
	"application/ogg": FormatOgg,
}

// Buffer is captured audio held in memory, tagged with its declared MIME type.
type Buffer struct {
	Data     []byte
	MIMEType string
}

// Size returns the buffer length in bytes.
func (b Buffer) Size() int64 { return int64(len(b.Data)) }

// MediaType returns the lower-cased media type without parameters.
func (b Buffer) MediaType() string {
	mt, _, err := mime.ParseMediaType(b.MIMEType)
	if err != nil {
		mt, _, _ = strings.Cut(b.MIMEType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Format returns the format tag of the declared MIME type, e.g.
// "audio/webm;codecs=opus" gives "webm". It is empty for unknown types.
func (b Buffer) Format() string {
	return mimeFormats[b.MediaType()]
}

// Params returns the MIME parameters, e.g. rate and channels for audio/L16.
func (b Buffer) Params() map[string]string {
	_, params, err := mime.ParseMediaType(b.MIMEType)
	if err != nil {
		return map[string]string{}
	}
	return params
}

// FormatForExtension returns the format tag of a file extension such as ".WAV".
func FormatForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch ext {
	case "wave":
		return FormatWAV
	case "oga", "opus":
		return FormatOgg
	case "mpga", "mpeg":
		return FormatMP3
	}
	return ext
}

// sniffFormat guesses the container from magic bytes. It returns "" when the
// data is not recognized.
func sniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return FormatWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOgg
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return FormatWebM
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("ID3")), len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 && data[1]&0x06 != 0:
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xF6 == 0xF0:
		return FormatAAC
	case len(data) >= 8 && bytes.Equal(data[4:8], []byte("ftyp")):
		if len(data) >= 11 && bytes.Equal(data[8:11], []byte("M4A")) {
			return FormatM4A
		}
		return FormatMP4
	}
	return ""
}

var formatMIMEs = map[string]string{
	FormatWAV:  "audio/wav",
	FormatPCM:  "audio/pcm",
	FormatWebM: "audio/webm",
	FormatOgg:  "audio/ogg",
	FormatMP3:  "audio/mpeg",
	FormatMP4:  "audio/mp4",
	FormatM4A:  "audio/x-m4a",
	FormatFLAC: "audio/flac",
	FormatAAC:  "audio/aac",
}

// MIMEForFormat returns the canonical media type of a format tag, or
// application/octet-stream when unknown.
func MIMEForFormat(format string) string {
	if mt, ok := formatMIMEs[format]; ok {
		return mt
	}
	return "application/octet-stream"
}
