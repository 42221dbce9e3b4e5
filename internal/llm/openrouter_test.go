package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	t.Run("model pass-through", func(t *testing.T) {
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey: "sk-or-test",
			Model:  "anthropic/claude-3-haiku",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// OpenRouter ids are used as-is, without friendly-name mapping.
		if p.ModelID() != "anthropic/claude-3-haiku" {
			t.Errorf("model = %q, want %q", p.ModelID(), "anthropic/claude-3-haiku")
		}
	})

	t.Run("empty API key", func(t *testing.T) {
		_, err := NewOpenRouterProvider(OpenRouterConfig{Model: "google/gemini-2.5-flash"})
		if err == nil {
			t.Fatal("expected error for empty API key")
		}
	})
}

func TestOpenRouterProvider_AttributionHeaders(t *testing.T) {
	var gotTitle, gotReferer, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("X-Title")
		gotReferer = r.Header.Get("HTTP-Referer")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "gen-1",
			"object": "chat.completion",
			"model":  "google/gemini-2.5-flash",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": "{}"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4},
		})
	}))
	defer server.Close()

	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:   "sk-or-test",
		Model:    "google/gemini-2.5-flash",
		BaseURL:  server.URL + "/v1",
		AppTitle: "kahani",
		AppURL:   "https://kahani.example",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text != "{}" {
		t.Errorf("text = %q", resp.Text)
	}
	if gotTitle != "kahani" {
		t.Errorf("X-Title = %q, want kahani", gotTitle)
	}
	if gotReferer != "https://kahani.example" {
		t.Errorf("HTTP-Referer = %q", gotReferer)
	}
	if gotAuth != "Bearer sk-or-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
