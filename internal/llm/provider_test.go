package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		provider string
		wantType any
	}{
		{"", &AnthropicClient{}},
		{"anthropic", &AnthropicClient{}},
		{"openai", &OpenAIClient{}},
		{"ollama", &OpenAIClient{}},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			c, err := NewClient(context.Background(), ProviderConfig{Provider: tt.provider, APIKey: "k"})
			if err != nil {
				t.Fatalf("NewClient: %v", err)
			}
			if got, want := fmt.Sprintf("%T", c), fmt.Sprintf("%T", tt.wantType); got != want {
				t.Errorf("got %s, want %s", got, want)
			}
			if err := Close(c); err != nil {
				t.Errorf("Close: %v", err)
			}
		})
	}
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), ProviderConfig{Provider: "carrier-pigeon"})
	if err == nil || !strings.Contains(err.Error(), "unknown LLM provider") {
		t.Errorf("expected unknown provider error, got %v", err)
	}
}

func TestNewClient_OllamaDefaults(t *testing.T) {
	c, err := NewClient(context.Background(), ProviderConfig{Provider: "ollama"})
	if err != nil {
		t.Fatal(err)
	}
	if model := c.(*OpenAIClient).model; model != "llama3.1" {
		t.Errorf("model = %q, want llama3.1", model)
	}
}

// captureServer answers every request with body and records the last request.
func captureServer(t *testing.T, status int, body string) (*httptest.Server, *map[string]any, *string) {
	t.Helper()
	var got map[string]any
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &path
}

func TestAnthropicClient_Chat(t *testing.T) {
	srv, got, path := captureServer(t, http.StatusOK, `{
		"id": "msg_1", "type": "message", "role": "assistant", "model": "claude-3-5-haiku-latest",
		"content": [{"type": "text", "text": "Purr-fect "}, {"type": "text", "text": "morning!"}],
		"stop_reason": "end_turn", "usage": {"input_tokens": 10, "output_tokens": 3}
	}`)

	c := NewAnthropicClient("test-key", "", srv.URL)
	resp, err := c.Chat(context.Background(), "You are a cat.", []Message{{Role: "user", Content: "Say hi"}}, Options{MaxTokens: 1000, Temperature: 0.7})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Purr-fect morning!" {
		t.Errorf("content = %q", resp.Content)
	}

	if !strings.HasSuffix(*path, "/v1/messages") {
		t.Errorf("path = %q", *path)
	}
	req := *got
	if req["model"] != "claude-3-5-haiku-latest" {
		t.Errorf("model = %v", req["model"])
	}
	if req["max_tokens"] != float64(1000) {
		t.Errorf("max_tokens = %v", req["max_tokens"])
	}
	if temp, _ := req["temperature"].(float64); math.Abs(temp-0.7) > 1e-9 {
		t.Errorf("temperature = %v", req["temperature"])
	}
	system, _ := req["system"].([]any)
	if len(system) == 0 || system[0].(map[string]any)["text"] != "You are a cat." {
		t.Errorf("system = %v", req["system"])
	}
}

func TestAnthropicClient_ChatError(t *testing.T) {
	srv, _, _ := captureServer(t, http.StatusBadRequest, `{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`)

	c := NewAnthropicClient("test-key", "", srv.URL)
	_, err := c.Chat(context.Background(), "sys", []Message{{Role: "user", Content: "x"}}, Options{MaxTokens: 10})
	if err == nil || !strings.Contains(err.Error(), "anthropic chat") {
		t.Errorf("expected wrapped anthropic error, got %v", err)
	}
}

func TestOpenAIClient_Chat(t *testing.T) {
	srv, got, path := captureServer(t, http.StatusOK, `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Meow there!"}, "finish_reason": "stop"}]
	}`)

	c := NewOpenAIClient("test-key", "", srv.URL+"/v1/")
	resp, err := c.Chat(context.Background(), "You are a cat.", []Message{{Role: "user", Content: "Say hi"}}, Options{MaxTokens: 1000, Temperature: 0.7})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Meow there!" {
		t.Errorf("content = %q", resp.Content)
	}

	if !strings.HasSuffix(*path, "/chat/completions") {
		t.Errorf("path = %q", *path)
	}
	if (*got)["max_completion_tokens"] != float64(1000) {
		t.Errorf("max_completion_tokens = %v", (*got)["max_completion_tokens"])
	}
	msgs, _ := (*got)["messages"].([]any)
	if len(msgs) != 2 || msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("messages = %v", msgs)
	}
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv, _, _ := captureServer(t, http.StatusOK, `{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`)

	c := NewOpenAIClient("test-key", "m", srv.URL+"/v1/")
	_, err := c.Chat(context.Background(), "sys", []Message{{Role: "user", Content: "x"}}, Options{})
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Errorf("expected no choices error, got %v", err)
	}
}
