// Package transcription defines the Transcriber capability and the types
// shared by speech-to-text backends.
//
// # Backends
//
//   - transcription/openai: OpenAI-compatible /audio/transcriptions (cloud)
//   - transcription/whisper: faster-whisper HTTP sidecar (local)
//   - transcription/whispercpp: whisper.cpp command line (local)
//
// Every backend accepts audio either as a file path or as an in-memory
// buffer. Backends that only read files call Prepare, which converts buffers
// through the audio service instead of rejecting them.
package transcription
