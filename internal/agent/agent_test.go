package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/config"
	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// -- Test fakes --

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}
func (stubEmbedder) Dimensions() int { return 3 }

// fakeLLM routes prompts to canned responses by marker substring, so the
// module call order does not matter.
type fakeLLM struct {
	byMarker map[string]string
	calls    []string
}

func (f *fakeLLM) Generate(_ context.Context, req schemas.GenerationRequest) (string, error) {
	f.calls = append(f.calls, req.UserPrompt)
	for marker, response := range f.byMarker {
		if strings.Contains(req.UserPrompt, marker) {
			return response, nil
		}
	}
	return "{}", nil
}

func defaultResponses() map[string]string {
	return map[string]string{
		"PERCEIVE module":   `{"observations": ["The page shows a prominent search button"]}`,
		"detailed plan":     `{"rationale": "searching is the fastest route", "plan": "Step 1: search for the item", "next_step": "click the search button"}`,
		"ACTION module":     `{"actions": [{"type": "click", "name": "button_search", "description": "Click the search button"}]}`,
		"REFLECTION module": `{"insights": ["Navigation feels straightforward so far"]}`,
		"WONDER module":     `{"thoughts": ["I wonder if they have my size in stock"]}`,
	}
}

// fakeConnector records executed actions and hands back scripted results.
type fakeConnector struct {
	page     *schemas.PageSnapshot
	executed []schemas.Action
	results  []schemas.ActionResult
	url      string
	closed   bool
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{
		page: &schemas.PageSnapshot{
			URL:   "https://shop.example/",
			Title: "Example Shop",
			Clickables: []schemas.ClickableElement{
				{Name: "button_search", Type: "button", Text: "Search", Description: "Button: Search"},
			},
		},
		url: "https://shop.example/",
	}
}

func (f *fakeConnector) Navigate(_ context.Context, url string) (*schemas.PageSnapshot, error) {
	f.url = url
	return f.page, nil
}

func (f *fakeConnector) ObservePage(context.Context) (*schemas.PageSnapshot, error) {
	return f.page, nil
}

func (f *fakeConnector) Execute(_ context.Context, action schemas.Action) schemas.ActionResult {
	f.executed = append(f.executed, action)
	if len(f.results) > 0 {
		result := f.results[0]
		f.results = f.results[1:]
		return result
	}
	return schemas.ActionResult{Success: true, Message: "Executed action successfully"}
}

func (f *fakeConnector) Screenshot(context.Context) ([]byte, error) { return nil, nil }

func (f *fakeConnector) CurrentURL(context.Context) (string, error) { return f.url, nil }

func (f *fakeConnector) Close(context.Context) error {
	f.closed = true
	return nil
}

var _ schemas.BrowserConnector = (*fakeConnector)(nil)

func testAgentConfig() config.AgentConfig {
	return config.AgentConfig{
		MaxCycles:         10,
		SlowLoopInterval:  3,
		PlanningMemories:  10,
		ActionMemories:    7,
		FailureStreak:     2,
		FailureWindowSize: 3,
	}
}

type agentFixture struct {
	agent     *Agent
	stream    *memory.Stream
	connector *fakeConnector
	llm       *fakeLLM
}

func newFixture(t *testing.T, cfg config.AgentConfig, opts ...AgentOption) *agentFixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	stream := memory.NewStream(stubEmbedder{}, logger)
	connector := newFakeConnector()
	llm := &fakeLLM{byMarker: defaultResponses()}
	return &agentFixture{
		agent:     New(stream, connector, llm, cfg, logger, opts...),
		stream:    stream,
		connector: connector,
		llm:       llm,
	}
}

func (fx *agentFixture) prime(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, fx.agent.SetPersona(ctx, schemas.Persona{
		"name":   "Dana",
		"traits": []interface{}{"patient", "thorough"},
		"age":    41,
	}))
	require.NoError(t, fx.agent.SetIntent(ctx, "buy a red sweater"))
}

// -- Tests --

func TestStartSessionRequiresPersonaAndIntent(t *testing.T) {
	ctx := context.Background()

	fx := newFixture(t, testAgentConfig())
	_, err := fx.agent.StartSession(ctx, "https://shop.example/")
	assert.ErrorIs(t, err, ErrPersonaNotSet)

	require.NoError(t, fx.agent.SetPersona(ctx, schemas.Persona{"name": "Dana"}))
	_, err = fx.agent.StartSession(ctx, "https://shop.example/")
	assert.ErrorIs(t, err, ErrIntentNotSet)
}

func TestSetPersonaSeedsMemory(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)

	details := fx.stream.ByType(memory.TypePersonaDetail)
	// One record for the name, one per list item; the numeric age is skipped.
	require.Len(t, details, 3)
	for _, rec := range details {
		assert.Equal(t, "PersonaLoader", rec.Source)
		assert.Equal(t, 8.0, rec.Importance)
	}

	intents := fx.stream.ByType(memory.TypeIntent)
	require.Len(t, intents, 1)
	assert.Equal(t, "My goal is to: buy a red sweater", intents[0].Content)
	assert.Equal(t, 10.0, intents[0].Importance)
}

func TestStartSessionRecordsNavigation(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)

	_, err := fx.agent.StartSession(context.Background(), "https://shop.example/")
	require.NoError(t, err)

	actions := fx.stream.ByType(memory.TypeActionTaken)
	require.Len(t, actions, 1)
	assert.Equal(t, "Navigated to https://shop.example/", actions[0].Content)
	assert.Equal(t, "Agent", actions[0].Source)
	assert.Equal(t, 7.0, actions[0].Importance)
}

func TestRunCycleFlowsThroughMemory(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)

	result := fx.agent.RunCycle(context.Background())
	assert.True(t, result.Success)

	observations := fx.stream.ByType(memory.TypeObservation)
	require.Len(t, observations, 1)
	assert.Equal(t, "PerceptionModule", observations[0].Source)
	// The observation mentions "button" and "search", so the heuristic lifts
	// it above the 5.0 base.
	assert.Greater(t, observations[0].Importance, 5.0)

	plans := fx.stream.ByType(memory.TypePlanStep)
	require.Len(t, plans, 1)
	assert.Contains(t, plans[0].Content, "Plan: Step 1: search for the item")
	assert.Contains(t, plans[0].Content, "Next step: click the search button")

	actions := fx.stream.ByType(memory.TypeActionTaken)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Content, "Clicked on button_search")

	require.Len(t, fx.connector.executed, 1)
	assert.Equal(t, schemas.ActionClick, fx.connector.executed[0].Type)
	assert.Equal(t, "button_search", fx.connector.executed[0].Name)
}

func TestActFailureIsRecordedAtHighImportance(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)
	fx.connector.results = []schemas.ActionResult{
		{Success: false, Message: "unknown element \"button_search\""},
	}

	result := fx.agent.RunCycle(context.Background())
	assert.False(t, result.Success)

	actions := fx.stream.ByType(memory.TypeActionTaken)
	// The decided action plus its failure record.
	require.Len(t, actions, 2)
	assert.Contains(t, actions[0].Content, "Clicked on button_search")
	assert.Equal(t, 8.0, actions[0].Importance)
	assert.Contains(t, actions[1].Content, "Action failed:")
	assert.Equal(t, 9.0, actions[1].Importance)
}

func TestPlanRetainedOnUnparseableResponse(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)

	// Establish a plan with a clean response first.
	fx.agent.plan(context.Background())
	require.Equal(t, "click the search button", fx.agent.nextStep)

	fx.llm.byMarker["detailed plan"] = "I cannot produce JSON right now."
	got := fx.agent.plan(context.Background())

	assert.Equal(t, "Step 1: search for the item", got.Plan)
	assert.Equal(t, "click the search button", got.NextStep)
	assert.Equal(t, "click the search button", fx.agent.nextStep)
}

func TestPerceptionFallbackOnListOutput(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)
	fx.llm.byMarker["PERCEIVE module"] = "- The page has a search form\n- A promo banner mentions sweaters"

	observations := fx.agent.perceive(context.Background())
	assert.Len(t, observations, 2)
	assert.Len(t, fx.stream.ByType(memory.TypeObservation), 2)
}

func TestReflectAndWonderStoreRecords(t *testing.T) {
	fx := newFixture(t, testAgentConfig())
	fx.prime(t)

	insights := fx.agent.Reflect(context.Background())
	require.Len(t, insights, 1)
	reflections := fx.stream.ByType(memory.TypeReflection)
	require.Len(t, reflections, 1)
	assert.Equal(t, "ReflectionModule", reflections[0].Source)
	assert.Equal(t, 7.0, reflections[0].Importance)

	thoughts := fx.agent.Wonder(context.Background())
	require.Len(t, thoughts, 1)
	wonders := fx.stream.ByType(memory.TypeWonder)
	require.Len(t, wonders, 1)
	assert.Equal(t, "WonderModule", wonders[0].Source)
	assert.Equal(t, 4.0, wonders[0].Importance)
}

func TestScoreObservationImportance(t *testing.T) {
	// Intent overlap and UI keywords both raise the score.
	score := scoreObservationImportance("A red sweater is shown next to a search button", "buy a red sweater")
	assert.Greater(t, score, 6.0)
	assert.LessOrEqual(t, score, 10.0)

	// A bland observation stays at the base.
	assert.Equal(t, 5.0, scoreObservationImportance("some unrelated text", "buy a red sweater"))

	// Scores clamp at 10.
	loaded := strings.Repeat("button link menu search input form error navigation ", 4)
	assert.Equal(t, 10.0, scoreObservationImportance(loaded+" buy a red sweater", "buy a red sweater"))
}

func TestKeywordJudge(t *testing.T) {
	judge := KeywordJudge{}

	assert.False(t, judge.Completed(nil))
	assert.False(t, judge.Completed([]memory.Record{
		{Type: memory.TypeReflection, Content: "The task is going well"},
	}))
	assert.True(t, judge.Completed([]memory.Record{
		{Type: memory.TypeReflection, Content: "I feel the Task has been COMPLETED successfully"},
	}))
}
