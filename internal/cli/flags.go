package cli

import (
	"github.com/spf13/cobra"

	"github.com/ppiankov/planeval/internal/model"
)

// scoringFlags are shared by every command that scores items
type scoringFlags struct {
	mode        string
	consumption string
	lemma       string
	noCache     bool
	redisAddr   string
	llmProvider string
	llmModel    string
	httpProxy   string
	httpsProxy  string
}

func (f *scoringFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mode, "mode", "micro", "aggregation mode (micro, macro)")
	cmd.Flags().StringVar(&f.consumption, "consumption", "ordered", "prediction consumption (ordered, unordered)")
	cmd.Flags().StringVar(&f.lemma, "lemma", "golem", "lemma backend (golem, none, llm)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the lemma cache")
	cmd.Flags().StringVar(&f.redisAddr, "redis-addr", "", "Redis address for a shared lemma cache")
	cmd.Flags().StringVar(&f.llmProvider, "llm-provider", "openai", "LLM provider for --lemma llm (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&f.llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().StringVar(&f.httpProxy, "http-proxy", "", "HTTP proxy URL for LLM calls (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&f.httpsProxy, "https-proxy", "", "HTTPS proxy URL for LLM calls (overrides HTTPS_PROXY env var)")
}

// apply copies explicitly set flags over cfg, so config file values survive unset flags
func (f *scoringFlags) apply(cmd *cobra.Command, cfg *model.Config) error {
	changed := cmd.Flags().Changed

	if changed("mode") {
		cfg.Evaluation.Aggregation = model.AggregationMode(f.mode)
	}
	if changed("consumption") {
		cfg.Evaluation.Consumption = model.ConsumptionMode(f.consumption)
	}
	if changed("lemma") {
		cfg.Lemma.Backend = f.lemma
	}
	if f.noCache {
		cfg.Lemma.Cache = false
	}
	if changed("redis-addr") {
		cfg.Cache.RedisAddr = f.redisAddr
	}
	if changed("http-proxy") {
		cfg.LLM.HTTPProxy = f.httpProxy
	}
	if changed("https-proxy") {
		cfg.LLM.HTTPSProxy = f.httpsProxy
	}

	if cfg.Lemma.Backend == "llm" {
		if changed("llm-provider") || cfg.LLM.Provider == "" {
			cfg.LLM.Provider = f.llmProvider
		}
		if changed("llm-model") {
			cfg.LLM.Model = f.llmModel
		}
		return applyLLMEnv(cfg)
	}
	return nil
}
