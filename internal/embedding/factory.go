package embedding

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/config"
)

// NewEmbedder builds an Embedder for the configured provider.
func NewEmbedder(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (schemas.Embedder, error) {
	switch cfg.Provider {
	case config.EmbedderGemini:
		return NewGeminiEmbedder(ctx, cfg, logger)
	case config.EmbedderLocal:
		return NewLocalEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (supported: %s, %s)",
			cfg.Provider, config.EmbedderGemini, config.EmbedderLocal)
	}
}
