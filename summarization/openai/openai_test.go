package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/kbukum/voxkit/errors"
	"github.com/kbukum/voxkit/provider"
	"github.com/kbukum/voxkit/summarization"
)

type chatRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, reply string, got *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v1/models":
			_, _ = io.WriteString(w, `{"data":[{"id":"gpt-4o-mini"}]}`)
		case "/v1/chat/completions":
			if got != nil {
				_ = json.NewDecoder(r.Body).Decode(got)
			}
			w.WriteHeader(status)
			_, _ = io.WriteString(w, reply)
		}
	}))
}

func chatReply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"model":   "gpt-4o-mini-2024-07-18",
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"total_tokens": 42},
	})
	return string(b)
}

func TestSummarize(t *testing.T) {
	var got chatRequest
	srv := newServer(t, http.StatusOK, chatReply("The team agreed to ship on Friday."), &got)
	defer srv.Close()

	s, err := New("", "", Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}
	text := "we talked for a while and agreed to ship on friday"
	res, err := s.Summarize(context.Background(), text, &summarization.Options{Style: summarization.StyleBrief, TargetLength: 20})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Summary != "The team agreed to ship on Friday." || res.TokenCount != 42 {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Metadata.Model != "gpt-4o-mini-2024-07-18" || res.Metadata.OriginalLength != len(text) {
		t.Errorf("unexpected metadata %+v", res.Metadata)
	}
	if got.Model != defaultModel || got.MaxTokens != 56 || len(got.Messages) != 2 {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.Messages[0].Role != "system" || !strings.Contains(got.Messages[0].Content, "brief summary") || got.Messages[1].Content != text {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestSummarize_TopicLabelIsUnquoted(t *testing.T) {
	srv := newServer(t, http.StatusOK, chatReply(`"Release planning"`), nil)
	defer srv.Close()

	s, _ := New("", "", Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"})
	topic := summarization.TopicPreset()
	res, err := s.Summarize(context.Background(), "long transcript", &topic)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Summary != "Release planning" {
		t.Errorf("unexpected topic %q", res.Summary)
	}
}

func TestSummarize_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		reply  string
		key    string
		text   string
		want   apperrors.ErrorCode
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, "sk-test", "t", apperrors.ErrCodeRateLimited},
		{"quota", http.StatusTooManyRequests, `{"error":{"code":"insufficient_quota","message":"You exceeded your current quota"}}`, "sk-test", "t", apperrors.ErrCodeQuotaExceeded},
		{"bad key", http.StatusOK, chatReply("x"), "sk-wrong", "t", apperrors.ErrCodeAuthInvalid},
		{"no key", http.StatusOK, chatReply("x"), "", "t", apperrors.ErrCodeAuthMissing},
		{"empty answer", http.StatusOK, chatReply("   "), "sk-test", "t", apperrors.ErrCodeProcessingFailed},
		{"empty text", http.StatusOK, chatReply("x"), "sk-test", "", apperrors.ErrCodeFileInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, tt.status, tt.reply, nil)
			defer srv.Close()
			s, _ := New("", "", Config{BaseURL: srv.URL + "/v1", APIKey: tt.key})
			_, err := s.Summarize(context.Background(), tt.text, nil)
			appErr, ok := apperrors.AsAppError(err)
			if !ok || appErr.Code != tt.want || appErr.ProviderID != DefaultID {
				t.Errorf("expected %s for %s, got %v", tt.want, DefaultID, err)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	srv := newServer(t, http.StatusOK, "", nil)
	defer srv.Close()

	s, _ := New("", "", Config{BaseURL: srv.URL + "/v1", APIKey: "sk-test"})
	if h := s.Check(context.Background()); !h.OK || !h.Supports("gpt-4o-mini") {
		t.Errorf("expected healthy, got %+v", h)
	}
	s, _ = New("", "", Config{BaseURL: srv.URL + "/v1"})
	if h := s.Check(context.Background()); h.OK || h.Details == "" {
		t.Errorf("missing key should be unhealthy with details, got %+v", h)
	}
}

func TestFactory(t *testing.T) {
	s, err := Factory()(provider.Spec{ID: "groq", Name: "Groq", Type: Type, Options: provider.Options{
		"base_url": "https://api.groq.com/openai/v1", "api_key": "k", "model": "llama-3.1-8b-instant", "retries": 2,
	}})
	if err != nil {
		t.Fatalf("Factory: %v", err)
	}
	if s.ID() != "groq" || s.Name() != "Groq" || s.Class() != provider.ClassCloud {
		t.Errorf("unexpected identity %s/%s/%s", s.ID(), s.Name(), s.Class())
	}
}
