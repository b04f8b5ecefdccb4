package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaProvider_Lemmatize_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Expected path /api/generate, got %s", r.URL.Path)
		}

		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("Expected non-streaming request")
		}
		if req.Options.NumPredict != 8 {
			t.Errorf("Expected num_predict 8, got %d", req.Options.NumPredict)
		}

		_ = json.NewEncoder(w).Encode(ollamaResponse{
			Model:           "llama3.1",
			Response:        " onion\n",
			Done:            true,
			PromptEvalCount: 10,
			EvalCount:       2,
		})
	}))
	defer server.Close()

	provider, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "llama3.1", Timeout: 5, MaxTokens: 8})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	resp, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "onions"})
	if err != nil {
		t.Fatalf("Lemmatize failed: %v", err)
	}
	if resp.Lemma != "onion" {
		t.Errorf("Expected lemma onion, got %q", resp.Lemma)
	}
	if resp.TokensUsed != 12 {
		t.Errorf("Expected 12 tokens, got %d", resp.TokensUsed)
	}
}

func TestOllamaProvider_Lemmatize_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "model 'missing' not found"}`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "missing", Timeout: 5})

	_, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "onions"})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected API message in error, got %v", err)
	}
}

func TestOllamaProvider_Lemmatize_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{malformed`))
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL, Model: "llama3.1", Timeout: 5})

	if _, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "onions"}); err == nil {
		t.Fatal("Expected error for malformed JSON, got nil")
	}
}

func TestOllamaProvider_Lemmatize_NoModel(t *testing.T) {
	provider, _ := NewOllamaProvider(Config{BaseURL: "http://127.0.0.1:1"})

	_, err := provider.Lemmatize(context.Background(), LemmatizeRequest{Word: "onions"})
	if err == nil || !strings.Contains(err.Error(), "model must be specified") {
		t.Errorf("Expected model error, got %v", err)
	}
}

func TestOllamaProvider_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models": []}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	provider, _ := NewOllamaProvider(Config{BaseURL: server.URL})
	if !provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be true")
	}

	server.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	if provider.IsAvailable(context.Background()) {
		t.Error("Expected available to be false on error")
	}
}
