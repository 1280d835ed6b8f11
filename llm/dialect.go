package llm

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Dialect maps the neutral request and response types to one vendor's
// HTTP format.
type Dialect interface {
	// Name returns the dialect identifier (e.g., "ollama", "openai").
	Name() string

	// ChatPath returns the chat endpoint, relative to the base URL.
	ChatPath() string

	// ModelsPath returns the endpoint that lists installed or available models.
	ModelsPath() string

	// BuildRequest maps a CompletionRequest to the vendor's JSON body.
	BuildRequest(req CompletionRequest) any

	// ParseResponse maps the vendor's JSON response body.
	ParseResponse(body []byte) (*CompletionResponse, error)

	// ParseModels extracts model names from the ModelsPath response.
	ParseModels(body []byte) ([]string, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{
		"openai": OpenAI{},
		"ollama": Ollama{},
	}
)

// RegisterDialect adds or replaces a dialect.
func RegisterDialect(name string, d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = d
}

// GetDialect retrieves a dialect by name.
func GetDialect(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("llm: unknown dialect %q", name)
	}
	return d, nil
}

// Dialects returns the sorted names of all registered dialects.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func messages(req CompletionRequest) []Message {
	msgs := make([]Message, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, Message{Role: "system", Content: req.SystemPrompt})
	}
	return append(msgs, req.Messages...)
}

// --- OpenAI chat completions ---

// OpenAI speaks the /chat/completions format shared by OpenAI and the
// many servers that mimic it.
type OpenAI struct{}

func (OpenAI) Name() string       { return "openai" }
func (OpenAI) ChatPath() string   { return "/chat/completions" }
func (OpenAI) ModelsPath() string { return "/models" }

type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

func (OpenAI) BuildRequest(req CompletionRequest) any {
	return openAIRequest{
		Model:       req.Model,
		Messages:    messages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
}

func (OpenAI) ParseResponse(body []byte) (*CompletionResponse, error) {
	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}
	return &CompletionResponse{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage:   resp.Usage,
	}, nil
}

func (OpenAI) ParseModels(body []byte) ([]string, error) {
	var resp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	out := make([]string, 0, len(resp.Data))
	for _, m := range resp.Data {
		out = append(out, m.ID)
	}
	return out, nil
}

// --- Ollama native API ---

// Ollama speaks the native /api/chat format with streaming disabled.
type Ollama struct{}

func (Ollama) Name() string       { return "ollama" }
func (Ollama) ChatPath() string   { return "/api/chat" }
func (Ollama) ModelsPath() string { return "/api/tags" }

type ollamaRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model           string  `json:"model"`
	Message         Message `json:"message"`
	Done            bool    `json:"done"`
	PromptEvalCount int     `json:"prompt_eval_count,omitempty"`
	EvalCount       int     `json:"eval_count,omitempty"`
}

func (Ollama) BuildRequest(req CompletionRequest) any {
	var opts map[string]any
	if req.Temperature != 0 || req.MaxTokens != 0 {
		opts = map[string]any{}
		if req.Temperature != 0 {
			opts["temperature"] = req.Temperature
		}
		if req.MaxTokens != 0 {
			opts["num_predict"] = req.MaxTokens
		}
	}
	return ollamaRequest{Model: req.Model, Messages: messages(req), Options: opts}
}

func (Ollama) ParseResponse(body []byte) (*CompletionResponse, error) {
	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode chat response: %w", err)
	}
	return &CompletionResponse{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}, nil
}

func (Ollama) ParseModels(body []byte) ([]string, error) {
	var resp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	out := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		out = append(out, m.Name)
	}
	return out, nil
}
