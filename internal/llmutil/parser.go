// Package llmutil parses structured data out of free-form model output. The
// parser is two-staged: a strict JSON extraction first, then a heuristic
// bullet/numbered list fallback, with the outcome reported so callers can
// track how often the fallback fires.
package llmutil

import (
	"fmt"
	"regexp"
	"strings"

	json "github.com/json-iterator/go"
)

// ParseOutcome tells the caller which stage produced the result.
type ParseOutcome int

const (
	// ParseClean means the strict JSON stage succeeded.
	ParseClean ParseOutcome = iota
	// ParseFallback means the heuristic list extraction was used.
	ParseFallback
)

var (
	// Regexes use \x60 for backticks since Go raw strings cannot contain them.
	jsonObjectFence = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*({.*})\\s*\x60\x60\x60")
	jsonArrayFence  = regexp.MustCompile("(?s)\x60\x60\x60(?:json)?\\s*(\\[.*\\])\\s*\x60\x60\x60")

	numberedItem = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)
	bulletItem   = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+)$`)
)

// ExtractJSON unmarshals the first JSON object or array found in an LLM
// response into T, tolerating markdown fences and surrounding prose.
func ExtractJSON[T any](response string) (*T, error) {
	candidate := locateJSON(response)
	if candidate == "" {
		return nil, fmt.Errorf("no JSON object or array found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(candidate), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal LLM JSON response: %w (extracted: %s)", err, truncate(candidate, 300))
	}
	return &result, nil
}

// locateJSON returns the best JSON candidate substring of the response:
// fenced block first, then the widest balanced object/array span.
func locateJSON(response string) string {
	response = strings.TrimSpace(response)

	if strings.Contains(response, "```") {
		if m := jsonObjectFence.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
		if m := jsonArrayFence.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}

	objStart := strings.Index(response, "{")
	arrStart := strings.Index(response, "[")

	start, closing := objStart, byte('}')
	if objStart == -1 || (arrStart != -1 && arrStart < objStart) {
		start, closing = arrStart, ']'
	}
	if start == -1 {
		return ""
	}

	end := strings.LastIndexByte(response, closing)
	if end <= start {
		return ""
	}
	return response[start : end+1]
}

// StringList extracts a list of strings keyed under `key` in a JSON object,
// or falls back to pulling bullet/numbered items out of the raw text. An
// empty slice with ParseFallback means nothing could be recovered.
func StringList(response, key string) ([]string, ParseOutcome) {
	parsed, err := ExtractJSON[map[string][]string](response)
	if err == nil {
		if items, ok := (*parsed)[key]; ok && len(items) > 0 {
			return cleanItems(items), ParseClean
		}
	}
	return ExtractListItems(response), ParseFallback
}

// ExtractListItems pulls bulleted ("- x", "* x") and numbered ("1. x") lines
// out of free text. Used when the model ignores the JSON instruction.
func ExtractListItems(text string) []string {
	var items []string
	for _, m := range numberedItem.FindAllStringSubmatch(text, -1) {
		items = append(items, strings.TrimSpace(m[1]))
	}
	for _, m := range bulletItem.FindAllStringSubmatch(text, -1) {
		items = append(items, strings.TrimSpace(m[1]))
	}
	return cleanItems(items)
}

func cleanItems(items []string) []string {
	out := items[:0]
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
