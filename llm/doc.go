// Package llm is the chat-completion client shared by the LLM-backed
// summarizers.
//
// A [Dialect] maps the neutral [CompletionRequest] and [CompletionResponse]
// to a vendor's HTTP format, similar to how database/sql works with drivers.
// The built-in dialects are "openai" (/chat/completions) and "ollama"
// (/api/chat). [Client] sends requests through the provider's
// httpclient, so errors are already classified into the voxkit taxonomy.
//
//	c, err := llm.New(llm.Ollama{}, llm.Config{
//	    ProviderID: "ollama",
//	    BaseURL:    "http://localhost:11434",
//	    Model:      "llama3.2",
//	})
//	resp, err := llm.Complete(ctx, c, system, transcript)
package llm
