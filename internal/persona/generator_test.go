package persona

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
)

type stubLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (s *stubLLM) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	s.prompts = append(s.prompts, req.UserPrompt)
	if s.err != nil {
		return "", s.err
	}
	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return response, nil
}

func TestGenerateParsesModelOutput(t *testing.T) {
	llm := &stubLLM{responses: []string{`{"name": "Priya Raman", "age": 29, "occupation": "Nurse"}`}}
	g := NewGenerator(llm, zaptest.NewLogger(t))

	p := g.Generate(context.Background(), Constraints{}, nil)
	assert.Equal(t, "Priya Raman", p["name"])
	assert.Equal(t, "Nurse", p["occupation"])
}

func TestGenerateFallsBackOnModelError(t *testing.T) {
	llm := &stubLLM{err: errors.New("rate limited")}
	g := NewGenerator(llm, zaptest.NewLogger(t))

	p := g.Generate(context.Background(), Constraints{}, nil)
	assert.Equal(t, Fallback()["name"], p["name"])
}

func TestGenerateFallsBackOnGarbageOutput(t *testing.T) {
	llm := &stubLLM{responses: []string{"I am unable to comply."}}
	g := NewGenerator(llm, zaptest.NewLogger(t))

	p := g.Generate(context.Background(), Constraints{}, nil)
	assert.Equal(t, Fallback()["name"], p["name"])
}

func TestGeneratePromptCarriesConstraints(t *testing.T) {
	llm := &stubLLM{responses: []string{`{"name": "x"}`}}
	g := NewGenerator(llm, zaptest.NewLogger(t))

	g.Generate(context.Background(), Constraints{
		AgeRange:       "26-35",
		Gender:         "Any",
		TechExperience: "Beginner",
	}, nil)

	require.Len(t, llm.prompts, 1)
	prompt := llm.prompts[0]
	assert.Contains(t, prompt, "Age range: 26-35")
	assert.Contains(t, prompt, "Tech experience level: Beginner")
	// "Any" constraints are omitted entirely.
	assert.NotContains(t, prompt, "Gender:")
}

func TestGenerateNFeedsPreviousPersonasForward(t *testing.T) {
	llm := &stubLLM{responses: []string{
		`{"name": "First Persona", "age": 30, "gender": "Female", "occupation": "Teacher"}`,
		`{"name": "Second Persona", "age": 55, "gender": "Male", "occupation": "Retired"}`,
	}}
	g := NewGenerator(llm, zaptest.NewLogger(t))

	personas := g.GenerateN(context.Background(), 2, Constraints{})
	require.Len(t, personas, 2)
	assert.Equal(t, "First Persona", personas[0]["name"])
	assert.Equal(t, "Second Persona", personas[1]["name"])

	require.Len(t, llm.prompts, 2)
	assert.Contains(t, llm.prompts[1], "First Persona")
}

func TestFallbackIsComplete(t *testing.T) {
	p := Fallback()
	for _, key := range []string{"name", "age", "occupation", "techExperience", "goals", "painPoints"} {
		assert.Contains(t, p, key)
	}
}
