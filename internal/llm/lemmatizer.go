package llm

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/planeval/internal/lemma"
)

// RateLimiter throttles provider calls. worker.Limiter satisfies it.
type RateLimiter interface {
	Wait(ctx context.Context, key string) error
}

// LemmatizerOptions configures a Lemmatizer
type LemmatizerOptions struct {
	Limiter   RateLimiter
	Fallback  lemma.Backend // Defaults to lemma.Lowercase
	Timeout   time.Duration // Per call, defaults to 30s
	Model     string
	MaxTokens int
}

// Lemmatizer is a lemma.Backend backed by an LLM provider.
// Any provider error falls back to the fallback backend for that token;
// the first fallback is reported on stderr.
type Lemmatizer struct {
	provider  Provider
	limiter   RateLimiter
	fallback  lemma.Backend
	timeout   time.Duration
	model     string
	maxTokens int

	warnOnce  sync.Once
	calls     atomic.Int64
	fallbacks atomic.Int64
}

// NewLemmatizer wraps provider as a lemma backend
func NewLemmatizer(provider Provider, opts LemmatizerOptions) *Lemmatizer {
	if opts.Fallback == nil {
		opts.Fallback = lemma.Lowercase{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Lemmatizer{
		provider:  provider,
		limiter:   opts.Limiter,
		fallback:  opts.Fallback,
		timeout:   opts.Timeout,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

// Name returns the backend name, which also scopes cache keys
func (l *Lemmatizer) Name() string {
	if l.model != "" {
		return "llm:" + l.provider.Name() + ":" + l.model
	}
	return "llm:" + l.provider.Name()
}

// Lemmatize returns the model's lemma for token.
// Tokens without letters or digits are returned unchanged without a call.
func (l *Lemmatizer) Lemmatize(token string) string {
	if !isWord(token) {
		return token
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	result, err := l.lookup(ctx, token)
	if err != nil {
		l.fallbacks.Add(1)
		l.warnOnce.Do(func() {
			fmt.Fprintf(os.Stderr, "Warning: %s lemmatization failed, falling back to %s: %v\n", l.provider.Name(), l.fallback.Name(), err)
		})
		return l.fallback.Lemmatize(token)
	}
	return result
}

func (l *Lemmatizer) lookup(ctx context.Context, token string) (string, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx, l.provider.Name()); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	l.calls.Add(1)
	resp, err := l.provider.Lemmatize(ctx, LemmatizeRequest{
		Word:      token,
		Model:     l.model,
		MaxTokens: l.maxTokens,
	})
	if err != nil {
		return "", err
	}
	return resp.Lemma, nil
}

// Stats returns the number of provider calls and of fallbacks so far
func (l *Lemmatizer) Stats() (calls, fallbacks int64) {
	return l.calls.Load(), l.fallbacks.Load()
}
