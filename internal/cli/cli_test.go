package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/planeval/internal/model"
)

func TestWriteDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	cfg := &model.Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		t.Fatalf("parse written config: %v", err)
	}
	want := model.DefaultConfig()
	if cfg.Evaluation.Aggregation != want.Evaluation.Aggregation || cfg.Cache.MemoryTTL != want.Cache.MemoryTTL {
		t.Errorf("written config does not round trip: %+v", cfg.Evaluation)
	}
	if cfg.Server.Addr != want.Server.Addr {
		t.Errorf("expected addr %q, got %q", want.Server.Addr, cfg.Server.Addr)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "evaluation:\n  aggregation: macro\n  limit: 5\nlemma:\n  backend: none\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Evaluation.Aggregation != model.ModeMacro || cfg.Evaluation.Limit != 5 {
		t.Errorf("file values not applied: %+v", cfg.Evaluation)
	}
	if cfg.Lemma.Backend != "none" {
		t.Errorf("expected backend none, got %q", cfg.Lemma.Backend)
	}
	if cfg.Evaluation.Consumption != model.ConsumeOrdered {
		t.Errorf("unset values should keep defaults, got %q", cfg.Evaluation.Consumption)
	}
}

func TestScoringFlags_Apply(t *testing.T) {
	var f scoringFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.Flags().Parse([]string{"--mode", "macro", "--lemma", "none", "--no-cache"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg := model.DefaultConfig()
	cfg.Evaluation.Consumption = model.ConsumeUnordered
	if err := f.apply(cmd, cfg); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	if cfg.Evaluation.Aggregation != model.ModeMacro {
		t.Errorf("expected macro, got %q", cfg.Evaluation.Aggregation)
	}
	if cfg.Evaluation.Consumption != model.ConsumeUnordered {
		t.Error("unset flags must not override config values")
	}
	if cfg.Lemma.Backend != "none" || cfg.Lemma.Cache {
		t.Errorf("unexpected lemma config %+v", cfg.Lemma)
	}
}

func TestApplyLLMEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	cfg := model.DefaultConfig()
	cfg.LLM.Provider = "openai"
	if err := applyLLMEnv(cfg); err == nil {
		t.Error("expected error without OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	if err := applyLLMEnv(cfg); err != nil || cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected key from env, got %q, %v", cfg.LLM.APIKey, err)
	}

	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")
	cfg = model.DefaultConfig()
	cfg.LLM.Provider = "ollama"
	if err := applyLLMEnv(cfg); err != nil || cfg.LLM.BaseURL != "http://ollama:11434" {
		t.Errorf("expected ollama base url from env, got %q, %v", cfg.LLM.BaseURL, err)
	}
}

func TestIsRunEvent(t *testing.T) {
	tests := []struct {
		event fsnotify.Event
		want  bool
	}{
		{fsnotify.Event{Name: "results/recipes_zeroshot.json", Op: fsnotify.Write}, true},
		{fsnotify.Event{Name: "results/recipes_zeroshot.json", Op: fsnotify.Create}, true},
		{fsnotify.Event{Name: "results/recipes_zeroshot.json", Op: fsnotify.Remove}, true},
		{fsnotify.Event{Name: "results/recipes_zeroshot.json", Op: fsnotify.Chmod}, false},
		{fsnotify.Event{Name: "results/evaluation_result.csv", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		if got := isRunEvent(tt.event); got != tt.want {
			t.Errorf("isRunEvent(%v) = %v, want %v", tt.event, got, tt.want)
		}
	}
}

func TestLoadConfig_RateLimits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "rate_limiting:\n  providers:\n    openai: 2.5\nserver:\n  requests_per_second: 10\n  burst: 20\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig failed: %v", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.RateLimiting.Providers["openai"] != 2.5 {
		t.Errorf("provider rate not applied: %+v", cfg.RateLimiting)
	}
	if cfg.Server.RequestsPerSecond != 10 || cfg.Server.Burst != 20 {
		t.Errorf("server rate not applied: %+v", cfg.Server)
	}
	if cfg.Server.Addr != model.DefaultConfig().Server.Addr {
		t.Errorf("unset server fields should keep defaults, got %q", cfg.Server.Addr)
	}
}

func TestRunRuns_RequiresMongoURI(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := runRuns(runsCmd, []string{"0123"}); err == nil {
		t.Error("expected an error without a mongo uri")
	}
}
