package model

import (
	"fmt"
	"strings"
	"time"
)

// AggregationMode selects how per-item counts become corpus metrics
type AggregationMode string

const (
	ModeMicro AggregationMode = "micro" // Sum counts, then derive metrics
	ModeMacro AggregationMode = "macro" // Derive metrics per item, then average
)

// ParseAggregationMode parses a mode name, defaulting to micro for an empty string
func ParseAggregationMode(s string) (AggregationMode, error) {
	switch AggregationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMicro:
		return ModeMicro, nil
	case ModeMacro:
		return ModeMacro, nil
	default:
		return "", fmt.Errorf("%w: aggregation %q (supported: micro, macro)", ErrUnknownMode, s)
	}
}

// ConsumptionMode selects which predictions a ground-truth action may consume
type ConsumptionMode string

const (
	ConsumeOrdered   ConsumptionMode = "ordered"   // Only predictions after the last consumed one
	ConsumeUnordered ConsumptionMode = "unordered" // Any prediction not yet consumed
)

// ParseConsumptionMode parses a consumption name, defaulting to ordered for an empty string
func ParseConsumptionMode(s string) (ConsumptionMode, error) {
	switch ConsumptionMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ConsumeOrdered:
		return ConsumeOrdered, nil
	case ConsumeUnordered:
		return ConsumeUnordered, nil
	default:
		return "", fmt.Errorf("%w: consumption %q (supported: ordered, unordered)", ErrUnknownMode, s)
	}
}

// Config is the complete planeval configuration
type Config struct {
	Evaluation   EvaluationConfig   `yaml:"evaluation"`
	Lemma        LemmaConfig        `yaml:"lemma"`
	LLM          LLMConfig          `yaml:"llm"`
	Cache        CacheConfig        `yaml:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Output       OutputConfig       `yaml:"output"`
	Store        StoreConfig        `yaml:"store"`
	Server       ServerConfig       `yaml:"server"`
}

// EvaluationConfig controls the scoring algorithm and run discovery
type EvaluationConfig struct {
	Aggregation AggregationMode `yaml:"aggregation"`
	Consumption ConsumptionMode `yaml:"consumption"`
	Include     []string        `yaml:"include"` // Glob patterns relative to the results directory
	Limit       int             `yaml:"limit"`   // Items per run, 0 means all
}

// LemmaConfig selects the lemmatization backend
type LemmaConfig struct {
	Backend string `yaml:"backend"` // golem, none, llm
	Cache   bool   `yaml:"cache"`
}

// LLMConfig configures the LLM lemmatization backend
type LLMConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Timeout    int    `yaml:"timeout"` // seconds
	MaxTokens  int    `yaml:"max_tokens"`
	HTTPProxy  string `yaml:"http_proxy,omitempty"`
	HTTPSProxy string `yaml:"https_proxy,omitempty"`
	NoProxy    string `yaml:"no_proxy,omitempty"`
}

// CacheConfig configures the lemma cache layers
type CacheConfig struct {
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
	RedisAddr string        `yaml:"redis_addr,omitempty"` // Replaces the disk layer when set
	RedisDB   int           `yaml:"redis_db"`
}

// ConcurrencyConfig controls how many runs are scored at once
type ConcurrencyConfig struct {
	Workers int `yaml:"workers"`
}

// RateLimitingConfig throttles LLM lemmatization calls
type RateLimitingConfig struct {
	RequestsPerSecond float64            `yaml:"requests_per_second"`
	BurstSize         int                `yaml:"burst_size"`
	Providers         map[string]float64 `yaml:"providers,omitempty"` // per llm provider name, overrides RequestsPerSecond
}

// OutputConfig controls rendered reports
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	CSV          bool   `yaml:"csv"`
	JSON         bool   `yaml:"json"`
	Markdown     bool   `yaml:"markdown"`
	IncludeItems bool   `yaml:"include_items"`
	Verbose      bool   `yaml:"verbose"`
}

// StoreConfig configures optional MongoDB persistence of results
type StoreConfig struct {
	MongoURI   string `yaml:"mongo_uri,omitempty"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// ServerConfig configures the HTTP scoring service
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`

	// Per-client request rate on /v1 routes; zero disables limiting
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Evaluation: EvaluationConfig{
			Aggregation: ModeMicro,
			Consumption: ConsumeOrdered,
			Include:     []string{"**/*.json", "**/*.jsonl", "**/*.yaml", "**/*.yml"},
		},
		Lemma: LemmaConfig{
			Backend: "golem",
			Cache:   true,
		},
		LLM: LLMConfig{
			Provider:  "",
			Timeout:   30,
			MaxTokens: 16,
		},
		Cache: CacheConfig{
			MemoryTTL: 24 * time.Hour,
			DiskDir:   ".planeval/cache",
			DiskTTL:   30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Output: OutputConfig{
			CSV:      true,
			JSON:     true,
			Markdown: false,
		},
		Store: StoreConfig{
			Database:   "planeval",
			Collection: "results",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 2 * time.Minute,
			MaxBodyBytes: 32 << 20,
		},
	}
}
