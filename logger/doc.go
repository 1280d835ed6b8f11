// Package logger provides structured logging for voxkit on top of zerolog.
//
// Loggers are scoped per component and carry the standard voxkit fields
// (session_id, provider, stage) so one recording session can be followed
// across the audio, provider and pipeline components.
//
//	log := logger.Get("pipeline").WithSession(id)
//	log.Info("transcription done", logger.ProviderFields("whisper-local", "transcribe", d))
package logger
