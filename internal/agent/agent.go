// Package agent implements the two-loop cognitive architecture driving a
// persona through a browsing session. The fast loop runs perceive, plan and
// act every cycle; the slow loop runs reflect and wonder periodically. All
// module output flows through the shared memory stream.
package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/config"
	"github.com/persimmon-labs/uxagent-cli/internal/llmutil"
	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

var (
	ErrPersonaNotSet = errors.New("persona must be set before starting a session")
	ErrIntentNotSet  = errors.New("intent must be set before starting a session")
)

// ActionRecorder receives every action the agent decides on. The session
// trace recorder implements it; a nil recorder disables tracing.
type ActionRecorder interface {
	RecordAction(ctx context.Context, action schemas.Action)
}

// Agent owns one simulated user: its persona, its goal, its accumulating
// memory, and the browser tab it operates. Not safe for concurrent use.
type Agent struct {
	stream    *memory.Stream
	connector schemas.BrowserConnector
	client    schemas.LLMClient
	recorder  ActionRecorder
	judge     CompletionJudge
	logger    *zap.Logger
	cfg       config.AgentConfig

	persona schemas.Persona
	intent  string

	currentPlan string
	nextStep    string
}

// AgentOption customizes an Agent at construction time.
type AgentOption func(*Agent)

// WithRecorder attaches a trace recorder notified of every decided action.
func WithRecorder(r ActionRecorder) AgentOption {
	return func(a *Agent) { a.recorder = r }
}

// WithCompletionJudge replaces the default keyword completion heuristic.
func WithCompletionJudge(j CompletionJudge) AgentOption {
	return func(a *Agent) { a.judge = j }
}

// New assembles an agent over its collaborators.
func New(
	stream *memory.Stream,
	connector schemas.BrowserConnector,
	client schemas.LLMClient,
	cfg config.AgentConfig,
	logger *zap.Logger,
	opts ...AgentOption,
) *Agent {
	a := &Agent{
		stream:    stream,
		connector: connector,
		client:    client,
		judge:     KeywordJudge{},
		logger:    logger.Named("agent"),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Memory exposes the agent's memory stream.
func (a *Agent) Memory() *memory.Stream { return a.stream }

// SetPersona installs the persona and seeds the memory stream with one
// persona_detail record per string trait and per list item. Non-string
// scalars (ages, counts) stay out of memory; they still reach prompts
// through the persona itself.
func (a *Agent) SetPersona(ctx context.Context, persona schemas.Persona) error {
	a.persona = persona

	for key, value := range persona {
		switch v := value.(type) {
		case string:
			if err := a.remember(ctx, memory.TypePersonaDetail, fmt.Sprintf("%s: %s", key, v), "PersonaLoader", 8.0, nil); err != nil {
				return err
			}
		case []interface{}:
			for _, item := range v {
				if err := a.remember(ctx, memory.TypePersonaDetail, fmt.Sprintf("%s: %v", key, item), "PersonaLoader", 8.0, nil); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// SetIntent installs the session goal and records it at maximum importance.
func (a *Agent) SetIntent(ctx context.Context, intent string) error {
	a.intent = intent
	return a.remember(ctx, memory.TypeIntent, "My goal is to: "+intent, "IntentLoader", 10.0, nil)
}

// StartSession checks preconditions, navigates to the starting URL and
// records the navigation.
func (a *Agent) StartSession(ctx context.Context, url string) (*schemas.PageSnapshot, error) {
	if len(a.persona) == 0 {
		return nil, ErrPersonaNotSet
	}
	if a.intent == "" {
		return nil, ErrIntentNotSet
	}

	snap, err := a.connector.Navigate(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := a.remember(ctx, memory.TypeActionTaken, "Navigated to "+url, "Agent", 7.0, nil); err != nil {
		return nil, err
	}
	return snap, nil
}

// RunCycle executes one fast loop iteration: perceive, plan, act.
func (a *Agent) RunCycle(ctx context.Context) schemas.ActionResult {
	a.perceive(ctx)
	a.plan(ctx)
	return a.act(ctx)
}

// perceive reads the current page and turns it into observation records. A
// module failure yields no observations, never an aborted cycle.
func (a *Agent) perceive(ctx context.Context) []string {
	a.logger.Debug("Running perception module")

	page, err := a.connector.ObservePage(ctx)
	if err != nil {
		a.logger.Error("Perception could not observe the page", zap.Error(err))
		return nil
	}

	response, err := a.generate(ctx, perceptionPrompt(page, a.persona, a.intent))
	if err != nil {
		a.logger.Error("Perception model call failed", zap.Error(err))
		return nil
	}

	observations, outcome := llmutil.StringList(response, "observations")
	if outcome == llmutil.ParseFallback {
		a.logger.Warn("Perception output was not clean JSON, used list fallback",
			zap.Int("recovered", len(observations)))
	}

	for _, obs := range observations {
		importance := scoreObservationImportance(obs, a.intent)
		if err := a.remember(ctx, memory.TypeObservation, obs, "PerceptionModule", importance, nil); err != nil {
			a.logger.Error("Could not store observation", zap.Error(err))
		}
	}
	return observations
}

// planResult is the planning module's JSON contract.
type planResult struct {
	Rationale string `json:"rationale"`
	Plan      string `json:"plan"`
	NextStep  string `json:"next_step"`
}

// plan creates or updates the plan from retrieved memories. On any failure
// the previous plan and next step stay in force.
func (a *Agent) plan(ctx context.Context) planResult {
	a.logger.Debug("Running planning module")

	retained := planResult{Plan: a.currentPlan, NextStep: a.nextStep}

	query := "Current situation and how to accomplish: " + a.intent
	memories, err := a.stream.Retrieve(ctx, query, 0, a.cfg.PlanningMemories, planningWeights())
	if err != nil {
		a.logger.Error("Planning memory retrieval failed", zap.Error(err))
		return retained
	}

	response, err := a.generate(ctx, planningPrompt(memories, a.persona, a.intent, a.currentPlan))
	if err != nil {
		a.logger.Error("Planning model call failed", zap.Error(err))
		return retained
	}

	result, err := llmutil.ExtractJSON[planResult](response)
	if err != nil {
		a.logger.Error("Could not parse planning response", zap.Error(err))
		return retained
	}

	if result.Plan != "" {
		a.currentPlan = result.Plan
	}
	if result.NextStep != "" {
		a.nextStep = result.NextStep
	}

	content := fmt.Sprintf("Plan: %s\nNext step: %s", a.currentPlan, a.nextStep)
	if err := a.remember(ctx, memory.TypePlanStep, content, "PlanningModule", 8.0, nil); err != nil {
		a.logger.Error("Could not store plan step", zap.Error(err))
	}
	return *result
}

// actionsEnvelope is the action module's JSON contract.
type actionsEnvelope struct {
	Actions []schemas.Action `json:"actions"`
}

// act translates the current plan step into one browser action and executes
// it. The decided action is committed to memory before execution so a
// crashed action still leaves its intent on record.
func (a *Agent) act(ctx context.Context) schemas.ActionResult {
	a.logger.Debug("Running action module")

	page, err := a.connector.ObservePage(ctx)
	if err != nil {
		a.logger.Error("Action module could not observe the page", zap.Error(err))
		return schemas.ActionResult{Success: false, Message: "Action failed: " + err.Error()}
	}

	query := "How to execute this step: " + a.nextStep
	memories, err := a.stream.Retrieve(ctx, query, 0, a.cfg.ActionMemories, actionWeights())
	if err != nil {
		a.logger.Error("Action memory retrieval failed", zap.Error(err))
		return schemas.ActionResult{Success: false, Message: "Action failed: " + err.Error()}
	}

	response, err := a.generate(ctx, actionPrompt(page, memories, a.persona, a.intent, a.nextStep))
	if err != nil {
		a.logger.Error("Action model call failed", zap.Error(err))
		return schemas.ActionResult{Success: false, Message: "Failed to generate action"}
	}

	envelope, err := llmutil.ExtractJSON[actionsEnvelope](response)
	if err != nil || len(envelope.Actions) == 0 {
		a.logger.Error("Could not parse action response", zap.Error(err))
		return schemas.ActionResult{Success: false, Message: "Failed to parse action response"}
	}

	var result schemas.ActionResult
	for _, action := range envelope.Actions {
		action = action.Normalize()

		if err := a.remember(ctx, memory.TypeActionTaken, action.Describe(), "ActionModule", 8.0,
			map[string]interface{}{"action": action}); err != nil {
			a.logger.Error("Could not store decided action", zap.Error(err))
		}
		if a.recorder != nil {
			a.recorder.RecordAction(ctx, action)
		}

		result = a.connector.Execute(ctx, action)
		if !result.Success {
			if err := a.remember(ctx, memory.TypeActionTaken, "Action failed: "+result.Message, "ActionModule", 9.0, nil); err != nil {
				a.logger.Error("Could not store action failure", zap.Error(err))
			}
			return result
		}
	}
	return result
}

// Reflect distills recent observations, actions and plan steps into
// higher-level insights, stored as reflection records.
func (a *Agent) Reflect(ctx context.Context) []string {
	a.logger.Debug("Running reflection module")

	memories := a.recentByTypes(
		[]memory.Type{memory.TypeObservation, memory.TypeActionTaken, memory.TypePlanStep},
		10, 15,
	)

	response, err := a.generate(ctx, reflectionPrompt(memories, a.persona, a.intent))
	if err != nil {
		a.logger.Error("Reflection model call failed", zap.Error(err))
		return nil
	}

	insights, _ := llmutil.StringList(response, "insights")
	for _, insight := range insights {
		if err := a.remember(ctx, memory.TypeReflection, insight, "ReflectionModule", 7.0, nil); err != nil {
			a.logger.Error("Could not store reflection", zap.Error(err))
		}
	}
	return insights
}

// Wonder produces the persona's idle thoughts and questions, stored as
// low-importance wonder records.
func (a *Agent) Wonder(ctx context.Context) []string {
	a.logger.Debug("Running wonder module")

	memories := a.recentByTypes(
		[]memory.Type{memory.TypeObservation, memory.TypeReflection, memory.TypeActionTaken},
		5, 10,
	)

	response, err := a.generate(ctx, wonderPrompt(memories, a.persona, a.intent))
	if err != nil {
		a.logger.Error("Wonder model call failed", zap.Error(err))
		return nil
	}

	thoughts, _ := llmutil.StringList(response, "thoughts")
	for _, thought := range thoughts {
		if err := a.remember(ctx, memory.TypeWonder, thought, "WonderModule", 4.0, nil); err != nil {
			a.logger.Error("Could not store wonder", zap.Error(err))
		}
	}
	return thoughts
}

// recentByTypes gathers the perType most recent records of each listed type,
// merges them, and returns the total most recent overall, newest first.
func (a *Agent) recentByTypes(types []memory.Type, perType, total int) []memory.Record {
	var merged []memory.Record
	for _, t := range types {
		records := a.stream.ByType(t)
		sortByTimestampDesc(records)
		if len(records) > perType {
			records = records[:perType]
		}
		merged = append(merged, records...)
	}
	sortByTimestampDesc(merged)
	if len(merged) > total {
		merged = merged[:total]
	}
	return merged
}

func (a *Agent) generate(ctx context.Context, prompt string) (string, error) {
	return a.client.Generate(ctx, schemas.GenerationRequest{
		SystemPrompt: "You are a helpful AI assistant.",
		UserPrompt:   prompt,
		Options: schemas.GenerationOptions{
			Temperature:     0.7,
			ForceJSONFormat: true,
		},
	})
}

func (a *Agent) remember(ctx context.Context, t memory.Type, content, source string, importance float64, metadata map[string]interface{}) error {
	_, err := a.stream.Append(ctx, memory.Entry{
		Type:       t,
		Content:    content,
		Source:     source,
		Importance: importance,
		Metadata:   metadata,
	})
	return err
}
