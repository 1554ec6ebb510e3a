// Package schemas holds the shared data types and collaborator contracts used
// across the agent, the browser connector and the provider clients. Keeping
// them here breaks import cycles between internal packages.
package schemas

import "context"

// GenerationOptions tunes a single LLM generation call.
type GenerationOptions struct {
	Temperature     float64 `json:"temperature"`
	ForceJSONFormat bool    `json:"force_json_format"`
}

// GenerationRequest is a provider-agnostic prompt pair.
type GenerationRequest struct {
	SystemPrompt string            `json:"system_prompt"`
	UserPrompt   string            `json:"user_prompt"`
	Options      GenerationOptions `json:"options"`
}

// LLMClient is the language model contract: prompt text in, completion text
// out. Responses may arrive as JSON wrapped in markdown fences; callers run
// them through llmutil before trusting the shape.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Embedder maps text to a fixed-length vector. Deterministic output is not
// required by callers, but makes retrieval reproducible in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	// Dimensions reports the vector length this embedder produces.
	Dimensions() int
}

// Persona is a loosely structured user profile: attribute name to a value or
// a list of values. It mirrors what the persona generator emits.
type Persona map[string]interface{}
