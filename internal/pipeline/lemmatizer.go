package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/planeval/internal/cache"
	"github.com/ppiankov/planeval/internal/lemma"
	"github.com/ppiankov/planeval/internal/llm"
	"github.com/ppiankov/planeval/internal/model"
	"github.com/ppiankov/planeval/internal/worker"
)

// Lemma backend names accepted in configuration
const (
	BackendGolem = "golem"
	BackendNone  = "none"
	BackendLLM   = "llm"
)

// Lemmas is the configured normalizer and the resources behind it
type Lemmas struct {
	Normalizer *lemma.Normalizer
	LLM        *llm.Lemmatizer // nil unless the llm backend is selected
	Close      func() error    // releases the shared cache connection, if any
}

// NewLemmatizer builds the normalizer selected by cfg, wrapped in the configured cache layers.
// Per-provider rates in cfg.RateLimiting.Providers are applied to limiter.
func NewLemmatizer(ctx context.Context, cfg *model.Config, limiter *worker.Limiter) (*Lemmas, error) {
	if limiter != nil {
		for provider, rps := range cfg.RateLimiting.Providers {
			limiter.SetKeyRate(provider, rps, cfg.RateLimiting.BurstSize)
		}
	}

	backend, err := newBackend(cfg, limiter)
	if err != nil {
		return nil, err
	}

	lemmas := &Lemmas{Close: func() error { return nil }}
	if l, ok := backend.(*llm.Lemmatizer); ok {
		lemmas.LLM = l
	}

	if cfg.Lemma.Cache && backend.Name() != BackendNone {
		c, closer, err := newCache(ctx, cfg.Cache)
		if err != nil {
			return nil, err
		}
		lemmas.Close = closer
		backend = lemma.NewCached(backend, c, 0)
	}

	lemmas.Normalizer = lemma.NewNormalizer(backend)
	return lemmas, nil
}

func newBackend(cfg *model.Config, limiter *worker.Limiter) (lemma.Backend, error) {
	switch strings.ToLower(cfg.Lemma.Backend) {
	case "", BackendGolem:
		return lemma.NewGolem()

	case BackendNone, "lowercase":
		return lemma.Lowercase{}, nil

	case BackendLLM:
		provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			return nil, fmt.Errorf("llm provider: %w", err)
		}
		if provider == nil {
			return nil, fmt.Errorf("lemma backend %q requires llm.provider", BackendLLM)
		}

		var fallback lemma.Backend = lemma.Lowercase{}
		if g, err := lemma.NewGolem(); err == nil {
			fallback = g
		} else {
			fmt.Fprintf(os.Stderr, "Warning: dictionary fallback unavailable: %v\n", err)
		}

		var rl llm.RateLimiter
		if limiter != nil {
			rl = limiter
		}

		return llm.NewLemmatizer(provider, llm.LemmatizerOptions{
			Limiter:   rl,
			Fallback:  fallback,
			Timeout:   time.Duration(cfg.LLM.Timeout) * time.Second,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		}), nil

	default:
		return nil, fmt.Errorf("unknown lemma backend: %s (supported: golem, none, llm)", cfg.Lemma.Backend)
	}
}

// newCache layers memory over redis when an address is configured, otherwise over disk.
// With neither, only the memory layer is used.
func newCache(ctx context.Context, cfg model.CacheConfig) (cache.Cache, func() error, error) {
	memory := cache.NewMemoryCache(cfg.MemoryTTL, 10*time.Minute)
	noop := func() error { return nil }

	if cfg.RedisAddr != "" {
		rc, err := cache.DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB, cfg.DiskTTL)
		if err != nil {
			return nil, nil, fmt.Errorf("lemma cache: %w", err)
		}
		return cache.NewLayeredCache(memory, rc), rc.Close, nil
	}

	if cfg.DiskDir != "" {
		return cache.NewLayeredCache(memory, cache.NewDiskCache(cfg.DiskDir, cfg.DiskTTL)), noop, nil
	}

	return memory, noop, nil
}
