package llm

import (
	"encoding/json"
	"testing"
)

func TestRegisterDialect_And_GetDialect(t *testing.T) {
	dialectsMu.Lock()
	original := dialects
	dialects = map[string]Dialect{}
	dialectsMu.Unlock()
	defer func() {
		dialectsMu.Lock()
		dialects = original
		dialectsMu.Unlock()
	}()

	RegisterDialect("beta", Ollama{})
	RegisterDialect("alpha", OpenAI{})

	got, err := GetDialect("alpha")
	if err != nil {
		t.Fatalf("GetDialect() error: %v", err)
	}
	if got.Name() != "openai" {
		t.Errorf("Name() = %q, want %q", got.Name(), "openai")
	}
	if names := Dialects(); len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("Dialects() = %v, want [alpha beta]", names)
	}
	if _, err := GetDialect("nonexistent-dialect-xyz"); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestBuiltinDialects(t *testing.T) {
	for _, name := range []string{"openai", "ollama"} {
		if _, err := GetDialect(name); err != nil {
			t.Errorf("builtin dialect %q missing: %v", name, err)
		}
	}
}

func TestOpenAI_BuildRequest(t *testing.T) {
	body := OpenAI{}.BuildRequest(CompletionRequest{
		Model:        "gpt-4o-mini",
		SystemPrompt: "Summarize.",
		Messages:     []Message{{Role: "user", Content: "text"}},
		MaxTokens:    200,
	})
	raw, _ := json.Marshal(body)
	var got map[string]any
	_ = json.Unmarshal(raw, &got)
	msgs, _ := got["messages"].([]any)
	if got["model"] != "gpt-4o-mini" || len(msgs) != 2 || got["max_tokens"] != float64(200) {
		t.Errorf("unexpected request %s", raw)
	}
	if _, ok := got["temperature"]; ok {
		t.Errorf("zero temperature should be omitted: %s", raw)
	}
}

func TestOpenAI_ParseResponse(t *testing.T) {
	resp, err := OpenAI{}.ParseResponse([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"ok"}}],"usage":{"total_tokens":12}}`))
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if resp.Content != "ok" || resp.Usage.TotalTokens != 12 {
		t.Errorf("unexpected response %+v", resp)
	}
	if _, err := (OpenAI{}).ParseResponse([]byte(`{"choices":[]}`)); err == nil {
		t.Error("empty choices should fail")
	}
}

func TestOllama_Roundtrip(t *testing.T) {
	raw, _ := json.Marshal(Ollama{}.BuildRequest(CompletionRequest{Model: "llama3.2", Temperature: 0.2}))
	var req map[string]any
	_ = json.Unmarshal(raw, &req)
	if req["stream"] != false || req["options"].(map[string]any)["temperature"] != 0.2 {
		t.Errorf("unexpected request %s", raw)
	}

	resp, err := Ollama{}.ParseResponse([]byte(`{"model":"llama3.2","message":{"role":"assistant","content":"hi"},"done":true,"prompt_eval_count":10,"eval_count":5}`))
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if resp.Content != "hi" || resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected response %+v", resp)
	}

	models, err := Ollama{}.ParseModels([]byte(`{"models":[{"name":"llama3.2:latest"},{"name":"qwen2.5:1.5b"}]}`))
	if err != nil || len(models) != 2 || models[1] != "qwen2.5:1.5b" {
		t.Errorf("ParseModels() = %v, %v", models, err)
	}
}
