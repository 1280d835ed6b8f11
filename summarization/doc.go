// Package summarization defines the Summarizer capability and the types
// shared by summarization backends.
//
//   - summarization/openai: OpenAI-compatible chat completions (cloud)
//   - summarization/ollama: Ollama native chat API (local)
//   - summarization/script: any interpreter script speaking JSON on stdio (local)
package summarization
