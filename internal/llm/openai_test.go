package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func openAIServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected path /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header Bearer test-key, got %s", r.Header.Get("Authorization"))
		}

		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || !strings.Contains(req.Messages[1].Content, "Word: cooked") {
			t.Errorf("Expected prompt for cooked, got %+v", req.Messages)
		}

		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			ID:    "chatcmpl-123",
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message:      openai.ChatCompletionMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			}},
			Usage: openai.Usage{TotalTokens: 42},
		})
	}))
}

func TestOpenAIProvider_Lemmatize_Success(t *testing.T) {
	server := openAIServer(t, "Cook")
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Model: "gpt-4o-mini", Timeout: 5})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "cooked"})
	if err != nil {
		t.Fatalf("Lemmatize failed: %v", err)
	}
	if resp.Lemma != "cook" {
		t.Errorf("Expected lemma cook, got %q", resp.Lemma)
	}
	if resp.Model != "gpt-4o-mini" || resp.TokensUsed != 42 {
		t.Errorf("Unexpected response metadata: %+v", resp)
	}
}

func TestOpenAIProvider_Lemmatize_JSONAnswer(t *testing.T) {
	server := openAIServer(t, "```json\n{\"lemma\": \"cook\"}\n```")
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})

	resp, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "cooked"})
	if err != nil {
		t.Fatalf("Lemmatize failed: %v", err)
	}
	if resp.Lemma != "cook" {
		t.Errorf("Expected lemma cook, got %q", resp.Lemma)
	}
}

func TestOpenAIProvider_Lemmatize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
		}},
		{"rate limit", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": {"message": "Rate limit exceeded", "type": "rate_limit_error"}}`))
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{malformed json`))
		}},
		{"no choices", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
		}},
		{"empty answer", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id": "x", "choices": [{"message": {"role": "assistant", "content": "..."}}]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
			if err != nil {
				t.Fatalf("Failed to create provider: %v", err)
			}

			if _, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "cooked"}); err == nil {
				t.Fatal("Expected error, got nil")
			}
		})
	}
}

func TestOpenAIProvider_Lemmatize_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider, _ := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})

	// the caller's deadline is shorter than the provider timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := provider.Lemmatize(ctx, LemmatizeRequest{Word: "cooked"}); err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
}

func TestOpenAIProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o-mini"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}

func TestNewOpenAIProvider_NoKey(t *testing.T) {
	if _, err := NewOpenAIProvider(Config{}); err == nil {
		t.Error("Expected error without API key")
	}
}
