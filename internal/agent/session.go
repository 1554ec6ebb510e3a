package agent

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

// SessionResult summarizes a finished browsing session.
type SessionResult struct {
	StartURL        string          `json:"start_url"`
	FinalURL        string          `json:"final_url"`
	CyclesCompleted int             `json:"cycles_completed"`
	TaskCompleted   bool            `json:"task_completed"`
	Memories        []memory.Record `json:"memories"`
	Reflections     []string        `json:"reflections"`
	Wonderings      []string        `json:"wonderings"`
}

// RunSession drives a full session: navigate to url, run fast loop cycles up
// to the configured maximum, interleave the slow loop on its interval, and
// close with a final reflection and wonder pass. Module failures are
// absorbed along the way; only precondition violations, navigation failures
// and context cancellation surface as errors.
func (a *Agent) RunSession(ctx context.Context, url string) (*SessionResult, error) {
	if _, err := a.StartSession(ctx, url); err != nil {
		return nil, err
	}

	cyclesRun := 0
	for cycle := 0; cycle < a.cfg.MaxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a.logger.Info("Running cycle",
			zap.Int("cycle", cycle+1),
			zap.Int("max_cycles", a.cfg.MaxCycles),
		)
		a.RunCycle(ctx)
		cyclesRun = cycle + 1

		if cycle > 0 && cycle%a.cfg.SlowLoopInterval == 0 {
			a.Reflect(ctx)
			a.Wonder(ctx)
		}

		if a.shouldTerminate() {
			break
		}
	}

	reflections := a.Reflect(ctx)
	wonderings := a.Wonder(ctx)

	finalURL, err := a.connector.CurrentURL(ctx)
	if err != nil {
		a.logger.Warn("Could not read final URL", zap.Error(err))
		finalURL = url
	}

	result := &SessionResult{
		StartURL:        url,
		FinalURL:        finalURL,
		CyclesCompleted: cyclesRun,
		TaskCompleted:   a.taskCompleted(),
		Memories:        a.stream.All(),
		Reflections:     reflections,
		Wonderings:      wonderings,
	}
	a.logger.Info("Session finished",
		zap.Int("cycles", result.CyclesCompleted),
		zap.Bool("completed", result.TaskCompleted),
		zap.Int("memories", len(result.Memories)),
	)
	return result, nil
}

// shouldTerminate ends the session early when the goal looks reached or
// when the agent is stuck failing.
func (a *Agent) shouldTerminate() bool {
	if a.taskCompleted() {
		return true
	}

	actions := a.stream.ByType(memory.TypeActionTaken)
	if len(actions) < a.cfg.FailureWindowSize {
		return false
	}
	sortByTimestampDesc(actions)

	failures := 0
	for _, rec := range actions[:a.cfg.FailureWindowSize] {
		if strings.Contains(strings.ToLower(rec.Content), "failed") {
			failures++
		}
	}
	if failures >= a.cfg.FailureStreak {
		a.logger.Info("Terminating session due to repeated failed actions",
			zap.Int("failures", failures),
			zap.Int("window", a.cfg.FailureWindowSize),
		)
		return true
	}
	return false
}

func (a *Agent) taskCompleted() bool {
	return a.judge.Completed(a.stream.ByType(memory.TypeReflection))
}

func sortByTimestampDesc(records []memory.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp > records[j].Timestamp
	})
}
