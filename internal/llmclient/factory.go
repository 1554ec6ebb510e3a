package llmclient

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/config"
)

// NewClient builds an LLMClient for the configured provider.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (schemas.LLMClient, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	case config.ProviderScripted:
		return NewScriptedClient(cfg.ScriptPath, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider %q (supported: %s, %s)",
			cfg.Provider, config.ProviderGemini, config.ProviderScripted)
	}
}
