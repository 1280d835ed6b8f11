// Package audio normalizes captured audio buffers into files a provider can
// read.
//
// A static format table names each provider's preferred and accepted
// formats. Convert dispatches on the buffer's declared MIME type to a WAV,
// raw PCM or ffmpeg converter (unknown types are sniffed first) and writes
// the output to a uniquely named temp file:
//
//	svc, _ := audio.NewService(audio.Config{TempDir: dir})
//	res, err := svc.Convert(ctx, audio.Buffer{Data: b, MIMEType: "audio/webm"}, "whisper-cpp", "")
//	defer svc.Remove(res.Path)
//
// Converted files follow the voxkit-audio-<unixnano>-<token>.<ext> naming
// scheme. Cleanup only ever deletes files matching it.
package audio
