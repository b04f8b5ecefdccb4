package lemma

import (
	"context"
	"time"

	"github.com/ppiankov/planeval/internal/cache"
)

// Cached memoizes a backend's token lemmas in a cache layer
type Cached struct {
	backend Backend
	cache   cache.Cache
	ttl     time.Duration
}

// NewCached wraps backend with c; a zero ttl uses the cache default
func NewCached(backend Backend, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{backend: backend, cache: c, ttl: ttl}
}

// Name returns the wrapped backend name
func (c *Cached) Name() string {
	return c.backend.Name()
}

// Lemmatize returns the cached lemma or computes and stores it
func (c *Cached) Lemmatize(token string) string {
	ctx := context.Background()
	key := cache.LemmaKey(c.backend.Name(), token)

	if val, found := c.cache.Get(ctx, key); found {
		return string(val)
	}

	lemma := c.backend.Lemmatize(token)
	_ = c.cache.Set(ctx, key, []byte(lemma), c.ttl)
	return lemma
}
