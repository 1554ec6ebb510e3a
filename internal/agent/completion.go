package agent

import (
	"strings"

	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

// CompletionJudge decides whether the session's goal has been reached from
// the reflections accumulated so far. Pluggable so a model-backed judge can
// replace the keyword heuristic.
type CompletionJudge interface {
	Completed(reflections []memory.Record) bool
}

// KeywordJudge declares the task done when any reflection mentions both
// "completed" and "task", case-insensitively.
type KeywordJudge struct{}

var _ CompletionJudge = KeywordJudge{}

func (KeywordJudge) Completed(reflections []memory.Record) bool {
	for _, rec := range reflections {
		content := strings.ToLower(rec.Content)
		if strings.Contains(content, "completed") && strings.Contains(content, "task") {
			return true
		}
	}
	return false
}
