// Package llm lemmatizes words with a large language model.
//
// Providers speak to a specific API. Lemmatizer adapts any provider to the
// lemma.Backend contract, adding rate limiting, a per-call timeout, and a
// fallback backend for when the provider fails.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/planeval/internal/lemma"
)

// ErrEmptyLemma is returned when a response holds no usable lemma
var ErrEmptyLemma = errors.New("empty lemma in response")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Lemmatize asks the model for the dictionary form of one word
	Lemmatize(ctx context.Context, req LemmatizeRequest) (*LemmatizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// LemmatizeRequest contains the input for one lemma lookup
type LemmatizeRequest struct {
	// Word is the folded token to lemmatize
	Word string

	// Prompt overrides the default prompt when set
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// LemmatizeResponse contains the model's answer
type LemmatizeResponse struct {
	// Lemma is the parsed lemma
	Lemma string

	// Raw is the unparsed response text
	Raw string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Timeout:   30,
		MaxTokens: 16,
	}
}

const systemPrompt = "You are a lemmatizer. Reply with the dictionary form of the given English word and nothing else."

// BuildPrompt constructs the default lemmatization prompt
func BuildPrompt(word string) string {
	return fmt.Sprintf(`Give the lemma (dictionary form) of the word below.
Verbs become the bare infinitive, nouns become singular, adjectives become the positive form.
Reply with the single lower-case lemma, or with JSON {"lemma": "..."}.

Word: %s`, word)
}

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// ParseLemma extracts the lemma from a model response.
// It accepts a bare word, a {"lemma": "..."} object, and either of those in a fenced block.
func ParseLemma(text string) (string, error) {
	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}

	if strings.HasPrefix(body, "{") {
		var parsed struct {
			Lemma string `json:"lemma"`
		}
		if err := json.Unmarshal([]byte(body), &parsed); err != nil {
			return "", fmt.Errorf("parse lemma JSON: %w", err)
		}
		body = parsed.Lemma
	}

	for _, token := range lemma.Tokenize(body) {
		if isWord(token) {
			return lemma.Fold(token), nil
		}
	}
	return "", ErrEmptyLemma
}

func isWord(token string) bool {
	for _, r := range token {
		if lemma.IsWordRune(r) {
			return true
		}
	}
	return false
}
