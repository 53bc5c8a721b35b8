package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/yojana/internal/model"
)

// NewProvider creates a new LLM provider based on configuration.
// An empty provider name disables explanations and returns nil, nil.
func NewProvider(ctx context.Context, config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)
	case "gemini", "google":
		return NewGeminiProvider(ctx, config)
	case "ollama":
		return NewOllamaProvider(config)
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai, gemini, ollama)", config.Provider)
	}
}

// ConfigFromModel converts the application config to an llm.Config.
// Proxy settings are shared with the page fetcher.
func ConfigFromModel(llmCfg model.LLMConfig, httpCfg model.HTTPConfig) Config {
	cfg := DefaultConfig()
	cfg.Provider = llmCfg.Provider
	cfg.Model = llmCfg.Model
	cfg.APIKey = llmCfg.APIKey
	cfg.BaseURL = llmCfg.BaseURL
	if llmCfg.Timeout > 0 {
		cfg.Timeout = llmCfg.Timeout
	}
	cfg.HTTPProxy = httpCfg.HTTPProxy
	cfg.HTTPSProxy = httpCfg.HTTPSProxy
	cfg.NoProxy = httpCfg.NoProxy
	return cfg
}
