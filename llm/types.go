package llm

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// CompletionRequest is the dialect-neutral input of a chat completion.
type CompletionRequest struct {
	// Model overrides the client's default model.
	Model string
	// SystemPrompt is sent as the leading system message.
	SystemPrompt string
	// Messages is the conversation history.
	Messages []Message
	// Temperature controls randomness. Zero means the client default.
	Temperature float64
	// MaxTokens limits the response length. 0 means provider default.
	MaxTokens int
}

// CompletionResponse is the dialect-neutral output of a chat completion.
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
