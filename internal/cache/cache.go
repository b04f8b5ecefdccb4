package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// KeyPrefix namespaces every key written by planeval
const KeyPrefix = "planeval:v1:"

// Cache defines the interface for lemma caching
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// LemmaKey generates a cache key for a token lemmatized by the named backend
func LemmaKey(backend, token string) string {
	hash := sha256.Sum256([]byte(strings.ToLower(backend) + "\x00" + token))
	return KeyPrefix + "lemma:" + hex.EncodeToString(hash[:])
}
