package recorder

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// TraceEntry is one recorded action with the wall-clock moment it was
// decided. The action is embedded so the serialized entry is a flat object
// with type/name/target/value/description next to the timestamp.
type TraceEntry struct {
	schemas.Action
	Timestamp float64 `json:"timestamp"`
}

// Recorder captures the action trace of a simulation session and can replay
// a saved trace through a browser connector. The memory stream is optional;
// when present every recorded action is mirrored into it.
type Recorder struct {
	logger *zap.Logger
	stream *memory.Stream

	mu        sync.Mutex
	recording bool
	trace     []TraceEntry
	sessionID string
	startedAt time.Time
}

// New creates a recorder. Pass a nil stream to record the trace only.
func New(stream *memory.Stream, logger *zap.Logger) *Recorder {
	return &Recorder{
		logger: logger.Named("recorder"),
		stream: stream,
	}
}

// Start begins a fresh recording, discarding any previous trace.
func (r *Recorder) Start(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recording = true
	r.trace = nil
	r.sessionID = sessionID
	r.startedAt = time.Now()
	r.logger.Info("Started recording session", zap.String("session_id", sessionID))
}

// Stop ends the recording and returns the captured trace.
func (r *Recorder) Stop() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recording = false
	out := make([]TraceEntry, len(r.trace))
	copy(out, r.trace)
	r.logger.Info("Stopped recording", zap.Int("actions", len(out)))
	return out
}

// RecordAction appends the action to the trace and mirrors it into the
// memory stream. A no-op unless Start was called.
func (r *Recorder) RecordAction(ctx context.Context, action schemas.Action) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return
	}
	r.trace = append(r.trace, TraceEntry{
		Action:    action,
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	})
	r.mu.Unlock()

	if r.stream == nil {
		return
	}
	description := action.Description
	if description == "" {
		description = action.Describe()
	}
	_, err := r.stream.Append(ctx, memory.Entry{
		Type:       memory.TypeActionTaken,
		Content:    fmt.Sprintf("Performed %s action: %s", action.Type, description),
		Source:     "SimulationRecorder",
		Importance: 7.0,
		Metadata:   map[string]interface{}{"action": action},
	})
	if err != nil {
		r.logger.Warn("Could not mirror action into memory", zap.Error(err))
	}
}

// SaveTrace writes the current trace to path as JSON.
func (r *Recorder) SaveTrace(path string) error {
	r.mu.Lock()
	trace := make([]TraceEntry, len(r.trace))
	copy(trace, r.trace)
	r.mu.Unlock()

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal action trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write action trace: %w", err)
	}
	r.logger.Info("Saved action trace", zap.String("path", path), zap.Int("actions", len(trace)))
	return nil
}

// LoadTrace reads a trace written by SaveTrace and installs it as the
// current trace.
func (r *Recorder) LoadTrace(path string) ([]TraceEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read action trace: %w", err)
	}
	var trace []TraceEntry
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("failed to parse action trace %s: %w", path, err)
	}

	r.mu.Lock()
	r.trace = trace
	r.mu.Unlock()

	r.logger.Info("Loaded action trace", zap.String("path", path), zap.Int("actions", len(trace)))
	return trace, nil
}

// ReplayTrace re-executes a trace against the connector, pausing delay
// between actions. A nil trace replays the currently loaded one. Individual
// action failures are logged and counted, not fatal.
func (r *Recorder) ReplayTrace(ctx context.Context, connector schemas.BrowserConnector, trace []TraceEntry, delay time.Duration) error {
	if trace == nil {
		r.mu.Lock()
		trace = make([]TraceEntry, len(r.trace))
		copy(trace, r.trace)
		r.mu.Unlock()
	}
	if len(trace) == 0 {
		return fmt.Errorf("no actions to replay")
	}

	failures := 0
	for i, entry := range trace {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Info("Replaying action",
			zap.Int("index", i+1),
			zap.Int("total", len(trace)),
			zap.String("description", entry.Action.Describe()),
		)
		result := connector.Execute(ctx, entry.Action)
		if !result.Success {
			failures++
			r.logger.Warn("Replayed action failed", zap.String("message", result.Message))
		}

		if delay > 0 && i < len(trace)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	r.logger.Info("Replay finished", zap.Int("actions", len(trace)), zap.Int("failures", failures))
	return nil
}
