package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

// uiKeywords boost the importance of observations that mention interface
// machinery the persona will have to operate.
var uiKeywords = []string{"button", "link", "menu", "search", "input", "form", "error", "navigation"}

// formatPersona renders the persona as "key: value" lines, joining list
// values with commas. Keys are sorted so the same persona always produces
// the same prompt.
func formatPersona(p schemas.Persona) string {
	if len(p) == 0 {
		return "No persona defined"
	}

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		switch v := p[k].(type) {
		case []interface{}:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			lines = append(lines, fmt.Sprintf("%s: %s", k, strings.Join(parts, ", ")))
		default:
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
	}
	return strings.Join(lines, "\n")
}

// formatMemories renders records as "[HH:MM:SS | type] content" lines,
// newest first.
func formatMemories(records []memory.Record) string {
	if len(records) == 0 {
		return "No relevant memories"
	}

	sorted := make([]memory.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp > sorted[j].Timestamp
	})

	lines := make([]string, 0, len(sorted))
	for _, rec := range sorted {
		ts := time.Unix(int64(rec.Timestamp), 0).Format("15:04:05")
		lines = append(lines, fmt.Sprintf("[%s | %s] %s", ts, rec.Type, rec.Content))
	}
	return strings.Join(lines, "\n")
}

func formatClickables(clickables []schemas.ClickableElement) string {
	lines := make([]string, 0, len(clickables))
	for _, c := range clickables {
		lines = append(lines, fmt.Sprintf("- %s: %s", c.Name, c.Description))
	}
	return strings.Join(lines, "\n")
}

func formatInputs(inputs []schemas.InputElement) string {
	lines := make([]string, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, fmt.Sprintf("- %s: %s", in.Name, in.Description))
	}
	return strings.Join(lines, "\n")
}

func formatTextBlocks(blocks []schemas.TextBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "heading":
			parts = append(parts, "HEADING: "+b.Text)
		case "paragraph":
			parts = append(parts, "PARAGRAPH: "+b.Text)
		case "list":
			parts = append(parts, "LIST:\n  * "+strings.Join(b.Items, "\n  * "))
		}
	}
	return strings.Join(parts, "\n\n")
}

func perceptionPrompt(page *schemas.PageSnapshot, persona schemas.Persona, intent string) string {
	return fmt.Sprintf(`You are the PERCEIVE module of a web browsing agent. Your job is to carefully observe the current web page and generate meaningful observations.

The web page is at URL: %s
Title: %s

CLICKABLE ELEMENTS:
%s

INPUT ELEMENTS:
%s

TEXT CONTENT:
%s

Based on what you see on this page, list all observations that would be relevant to a user with this profile:
%s

Their current goal is: %s

Generate at least 3-7 observations that note important features, content, options, or potential issues on the page. Focus on what would be most relevant to the user's goal.

Output as a JSON object: {"observations": ["<obs1>", "<obs2>", ...]}`,
		page.URL, page.Title,
		formatClickables(page.Clickables),
		formatInputs(page.Inputs),
		formatTextBlocks(page.TextBlocks),
		formatPersona(persona), intent)
}

func planningPrompt(memories []memory.Record, persona schemas.Persona, intent, currentPlan string) string {
	return fmt.Sprintf(`You are tasked with creating/updating a detailed plan for a web browsing agent with the following persona:
%s

INTENT:
%s

RELEVANT MEMORIES:
%s

PREVIOUS PLAN (if any):
%s

Based on the persona, intent, and memories, create or update a plan to accomplish the goal.
Think step by step about the most effective way to navigate the website and complete the task.
Be specific about what actions to take next.

Output as a JSON object with the following structure:
{
  "rationale": "Explain why this plan makes sense given the current situation",
  "plan": "Step 1: ...\nStep 2: ...\nStep 3: ...",
  "next_step": "The specific next step that should be executed now (just one action)"
}

Your output MUST be valid JSON.`,
		formatPersona(persona), intent, formatMemories(memories), currentPlan)
}

func actionPrompt(page *schemas.PageSnapshot, memories []memory.Record, persona schemas.Persona, intent, nextStep string) string {
	return fmt.Sprintf(`You are the ACTION module of a web browsing agent. Your job is to translate the current plan step into specific actions that can be executed on the web page.

PERSONA:
%s

INTENT:
%s

CURRENT PLAN STEP:
%s

ENVIRONMENT:
URL: %s
Title: %s

CLICKABLE ELEMENTS:
%s

INPUT ELEMENTS:
%s

RELEVANT MEMORIES:
%s

Translate the current plan step into ONE specific action that can be executed on the web page.
Choose from these action types:
1. click - Click on a clickable element
2. input - Enter text into an input element
3. scroll - Scroll the page (value: "up", "down", "top", or "bottom")
4. navigate - Go to a specific URL
5. back - Go back to the previous page
6. wait - Wait for a specified number of seconds

Output as a JSON array with a SINGLE action object:
{
  "actions": [
    {
      "type": "click|input|scroll|navigate|back|wait",
      "name": "element_name (for click/input)",
      "value": "text to input or scroll direction",
      "description": "Human-readable description of what this action accomplishes"
    }
  ]
}

Your output MUST be valid JSON.`,
		formatPersona(persona), intent, nextStep,
		page.URL, page.Title,
		formatClickables(page.Clickables),
		formatInputs(page.Inputs),
		formatMemories(memories))
}

func reflectionPrompt(memories []memory.Record, persona schemas.Persona, intent string) string {
	return fmt.Sprintf(`You are the REFLECTION module of a web browsing agent. Your job is to generate high-level insights and reflections based on recent memories and the agent's persona.

PERSONA:
%s

INTENT:
%s

RECENT MEMORIES:
%s

Based on these memories and the persona, generate 3-5 thoughtful reflections or insights about the experience so far.
These should be higher-level thoughts that connect observations and actions to the persona's characteristics and goals.

Examples:
- "I'm finding this site's navigation confusing since there are too many options, which is frustrating given my limited technical experience."
- "The product descriptions are very detailed, which I appreciate as someone who likes to make informed decisions."
- "This checkout process has multiple steps which is making me anxious about making a mistake."

Output as a JSON object:
{
  "insights": [
    "reflection 1",
    "reflection 2",
    "reflection 3"
  ]
}

Your output MUST be valid JSON.`,
		formatPersona(persona), intent, formatMemories(memories))
}

func wonderPrompt(memories []memory.Record, persona schemas.Persona, intent string) string {
	return fmt.Sprintf(`You are the WONDER module of a web browsing agent. Your job is to generate random thoughts, curiosities, and questions that might cross the persona's mind.

PERSONA:
%s

INTENT:
%s

RECENT MEMORIES:
%s

Based on these memories and the persona, generate 2-3 random thoughts or questions that might naturally occur to this persona.
These should feel natural and reflect the persona's characteristics, preferences, and curiosities.

Examples:
- "I wonder if they offer free shipping for orders over a certain amount?"
- "Would the blue color option match my living room better than the gray one?"
- "I'm not sure if I should check reviews on another site before making a decision."

Output as a JSON object:
{
  "thoughts": [
    "thought 1",
    "thought 2"
  ]
}

Your output MUST be valid JSON.`,
		formatPersona(persona), intent, formatMemories(memories))
}

// scoreObservationImportance estimates how much an observation matters to
// the current goal. Word overlap with the intent and mentions of interface
// elements raise the score; the result stays within [1, 10].
func scoreObservationImportance(observation, intent string) float64 {
	intentWords := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(intent)) {
		intentWords[w] = true
	}

	overlap := 0
	seen := map[string]bool{}
	lower := strings.ToLower(observation)
	for _, w := range strings.Fields(lower) {
		if intentWords[w] && !seen[w] {
			overlap++
			seen[w] = true
		}
	}

	score := 5.0
	if overlap > 0 {
		score += minFloat(float64(overlap)*0.5, 3.0)
	}
	for _, kw := range uiKeywords {
		if strings.Contains(lower, kw) {
			score += 0.5
		}
	}

	if score < 1.0 {
		return 1.0
	}
	if score > 10.0 {
		return 10.0
	}
	return score
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
