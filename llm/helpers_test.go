package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/httpclient"
)

func TestComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" || r.Header.Get("Authorization") != "Bearer sk" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": "The answer is 42."}}},
		})
	}))
	defer srv.Close()

	c, err := New(OpenAI{}, Config{ProviderID: "openai-chat", BaseURL: srv.URL + "/v1", Model: "test", Auth: httpclient.BearerAuth("sk")})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	resp, err := Complete(context.Background(), c, "You are helpful.", "What is the answer?")
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if resp.Content != "The answer is 42." || resp.Model != "test" {
		t.Errorf("unexpected response %+v", resp)
	}
	if got["model"] != "test" {
		t.Errorf("default model not applied: %v", got)
	}
}

func TestExecute_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c, _ := New(Ollama{}, Config{ProviderID: "ollama", BaseURL: srv.URL})
	_, err := Complete(context.Background(), c, "", "hi")
	appErr, ok := apperrors.AsAppError(err)
	if !ok || appErr.Code != apperrors.ErrCodeProcessingFailed || appErr.ProviderID != "ollama" {
		t.Errorf("expected PROCESSING_FAILED for ollama, got %v", err)
	}
}

func TestNew_RequiresDialect(t *testing.T) {
	if _, err := New(nil, Config{BaseURL: "http://x"}); !apperrors.Is(err, apperrors.ErrCodeConfigMissing) {
		t.Errorf("expected CONFIG_MISSING, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"key": "value"}`, `{"key": "value"}`},
		{"with whitespace", `  {"key": "value"}  `, `{"key": "value"}`},
		{"markdown fence", "```json\n{\"key\": \"value\"}\n```", `{"key": "value"}`},
		{"with prefix text", `loading model...` + "\n" + `{"key": "value"}`, `{"key": "value"}`},
		{"no json", "just text", "just text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractJSON(tt.input)
			if got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := map[string]string{
		`  "Quarterly planning"  `: "Quarterly planning",
		"'Budget review'":          "Budget review",
		"plain":                    "plain",
		`"`:                        `"`,
	}
	for in, want := range tests {
		if got := CleanText(in); got != want {
			t.Errorf("CleanText(%q) = %q, want %q", in, got, want)
		}
	}
}
