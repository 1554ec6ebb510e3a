package llmclient

import (
	"context"
	"fmt"
	"os"
	"sync"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
)

// ScriptedClient replays a fixed sequence of completions from a script file.
// It exists for offline demos and integration tests where a live model is
// unavailable; once the script runs out it keeps returning the last entry.
type ScriptedClient struct {
	mu        sync.Mutex
	responses []string
	next      int
	logger    *zap.Logger
}

// NewScriptedClient loads a JSON array of completion strings from path.
func NewScriptedClient(path string, logger *zap.Logger) (*ScriptedClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file: %w", err)
	}
	var responses []string
	if err := json.Unmarshal(data, &responses); err != nil {
		return nil, fmt.Errorf("script file must be a JSON array of strings: %w", err)
	}
	if len(responses) == 0 {
		return nil, fmt.Errorf("script file %s contains no responses", path)
	}
	return &ScriptedClient{
		responses: responses,
		logger:    logger.Named("llm_client.scripted"),
	}, nil
}

// Generate returns the next scripted completion.
func (c *ScriptedClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.next
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	} else {
		c.next++
	}
	c.logger.Debug("Serving scripted completion", zap.Int("index", idx))
	return c.responses[idx], nil
}

var _ schemas.LLMClient = (*ScriptedClient)(nil)
