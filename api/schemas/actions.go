package schemas

import (
	"fmt"
	"strings"
)

// ActionType enumerates every action the agent can decide on. The browser
// connector contains the single exhaustive dispatch over these values.
type ActionType string

const (
	ActionClick    ActionType = "click"    // Click a named clickable element.
	ActionInput    ActionType = "input"    // Type text into a named input field.
	ActionScroll   ActionType = "scroll"   // Scroll the page ("up", "down", "top", "bottom").
	ActionNavigate ActionType = "navigate" // Load a specific URL.
	ActionBack     ActionType = "back"     // Go back to the previous page.
	ActionWait     ActionType = "wait"     // Pause for a number of seconds.
)

// Action is the tagged variant the planner emits: Type selects which of the
// optional fields are meaningful. Click and Input use Name, Navigate uses
// Target, Scroll and Wait use Value.
type Action struct {
	Type        ActionType `json:"type"`
	Name        string     `json:"name,omitempty"`
	Target      string     `json:"target,omitempty"`
	Value       string     `json:"value,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Describe renders a human-readable account of the action, used for memory
// records and trace logs.
func (a Action) Describe() string {
	switch a.Type {
	case ActionClick:
		name := a.Name
		if name == "" {
			name = "unknown element"
		}
		if a.Description != "" {
			return fmt.Sprintf("Clicked on %s: %s", name, a.Description)
		}
		return fmt.Sprintf("Clicked on %s", name)
	case ActionInput:
		name := a.Name
		if name == "" {
			name = "unknown element"
		}
		return fmt.Sprintf("Entered text %q into %s", a.Value, name)
	case ActionScroll:
		direction := a.Value
		if direction == "" {
			direction = "down"
		}
		return fmt.Sprintf("Scrolled %s on the page", direction)
	case ActionNavigate:
		return fmt.Sprintf("Navigated to URL: %s", a.targetOrName())
	case ActionBack:
		return "Navigated back to previous page"
	case ActionWait:
		seconds := a.Value
		if seconds == "" {
			seconds = "2"
		}
		return fmt.Sprintf("Waited for %s seconds", seconds)
	default:
		return fmt.Sprintf("Unknown action: %s", a.Type)
	}
}

// targetOrName tolerates models that put the navigation URL in "value" or
// "name" instead of "target".
func (a Action) targetOrName() string {
	if a.Target != "" {
		return a.Target
	}
	if a.Value != "" {
		return a.Value
	}
	return a.Name
}

// NavigationURL returns the URL a navigate action points at.
func (a Action) NavigationURL() string { return a.targetOrName() }

// Normalize lower-cases the action type so model output like "CLICK" still
// dispatches.
func (a Action) Normalize() Action {
	a.Type = ActionType(strings.ToLower(strings.TrimSpace(string(a.Type))))
	return a
}
