package recorder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
	"github.com/persimmon-labs/uxagent-cli/internal/memory"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float64, error) {
	return []float64{1, 0, 0}, nil
}
func (stubEmbedder) Dimensions() int { return 3 }

// replayConnector counts executed actions and fails on demand.
type replayConnector struct {
	executed []schemas.Action
	failAll  bool
}

func (c *replayConnector) Navigate(_ context.Context, url string) (*schemas.PageSnapshot, error) {
	return &schemas.PageSnapshot{URL: url}, nil
}
func (c *replayConnector) ObservePage(context.Context) (*schemas.PageSnapshot, error) {
	return &schemas.PageSnapshot{}, nil
}
func (c *replayConnector) Execute(_ context.Context, action schemas.Action) schemas.ActionResult {
	c.executed = append(c.executed, action)
	if c.failAll {
		return schemas.ActionResult{Success: false, Message: "element went away"}
	}
	return schemas.ActionResult{Success: true, Message: "ok"}
}
func (c *replayConnector) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (c *replayConnector) CurrentURL(context.Context) (string, error) { return "", nil }
func (c *replayConnector) Close(context.Context) error                { return nil }

var _ schemas.BrowserConnector = (*replayConnector)(nil)

func sampleActions() []schemas.Action {
	return []schemas.Action{
		{Type: schemas.ActionNavigate, Target: "https://shop.example/"},
		{Type: schemas.ActionClick, Name: "link_sweaters", Description: "Open the sweaters category"},
		{Type: schemas.ActionInput, Name: "text_q", Value: "red sweater"},
	}
}

func TestRecordActionOnlyWhileRecording(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	rec.RecordAction(ctx, sampleActions()[0])
	assert.Empty(t, rec.Stop())

	rec.Start("s1")
	for _, a := range sampleActions() {
		rec.RecordAction(ctx, a)
	}
	trace := rec.Stop()
	require.Len(t, trace, 3)
	assert.Equal(t, schemas.ActionNavigate, trace[0].Action.Type)
	assert.NotZero(t, trace[0].Timestamp)

	// Stop freezes the trace.
	rec.RecordAction(ctx, sampleActions()[0])
	assert.Len(t, rec.Stop(), 3)
}

func TestStartDiscardsPreviousTrace(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	rec.Start("s1")
	rec.RecordAction(ctx, sampleActions()[0])
	rec.Start("s2")
	rec.RecordAction(ctx, sampleActions()[1])

	trace := rec.Stop()
	require.Len(t, trace, 1)
	assert.Equal(t, schemas.ActionClick, trace[0].Action.Type)
}

func TestRecordActionMirrorsIntoMemory(t *testing.T) {
	logger := zaptest.NewLogger(t)
	stream := memory.NewStream(stubEmbedder{}, logger)
	rec := New(stream, logger)
	ctx := context.Background()

	rec.Start("s1")
	rec.RecordAction(ctx, sampleActions()[1])

	records := stream.ByType(memory.TypeActionTaken)
	require.Len(t, records, 1)
	assert.Equal(t, "Performed click action: Open the sweaters category", records[0].Content)
	assert.Equal(t, "SimulationRecorder", records[0].Source)
	assert.Equal(t, 7.0, records[0].Importance)
	assert.Contains(t, records[0].Metadata, "action")
}

func TestSaveAndLoadTraceRoundTrip(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	rec.Start("s1")
	for _, a := range sampleActions() {
		rec.RecordAction(ctx, a)
	}
	recorded := rec.Stop()

	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, rec.SaveTrace(path))

	loaded, err := New(nil, zaptest.NewLogger(t)).LoadTrace(path)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	if diff := cmp.Diff(recorded, loaded); diff != "" {
		t.Errorf("trace changed across save/load (-recorded +loaded):\n%s", diff)
	}
	assert.Equal(t, "link_sweaters", loaded[1].Action.Name)
	assert.Equal(t, "red sweater", loaded[2].Action.Value)
}

func TestSaveTraceWritesFlatEntries(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	ctx := context.Background()

	rec.Start("s1")
	rec.RecordAction(ctx, schemas.Action{
		Type:        schemas.ActionInput,
		Name:        "text_q",
		Target:      "#q",
		Value:       "red sweater",
		Description: "Search for a red sweater",
	})
	rec.Stop()

	path := filepath.Join(t.TempDir(), "trace.json")
	require.NoError(t, rec.SaveTrace(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Each entry is a flat object: the action fields sit next to the
	// timestamp, not nested under a wrapper key.
	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.NotContains(t, entry, "action")
	assert.Equal(t, "input", entry["type"])
	assert.Equal(t, "text_q", entry["name"])
	assert.Equal(t, "#q", entry["target"])
	assert.Equal(t, "red sweater", entry["value"])
	assert.Equal(t, "Search for a red sweater", entry["description"])
	assert.Contains(t, entry, "timestamp")
}

func TestLoadTraceMissingFile(t *testing.T) {
	_, err := New(nil, zaptest.NewLogger(t)).LoadTrace(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestReplayTraceExecutesEveryAction(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	connector := &replayConnector{}

	trace := make([]TraceEntry, 0, 3)
	for _, a := range sampleActions() {
		trace = append(trace, TraceEntry{Action: a})
	}

	require.NoError(t, rec.ReplayTrace(context.Background(), connector, trace, 0))
	require.Len(t, connector.executed, 3)
	assert.Equal(t, schemas.ActionInput, connector.executed[2].Type)
}

func TestReplayTraceToleratesFailures(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	connector := &replayConnector{failAll: true}

	trace := []TraceEntry{{Action: sampleActions()[1]}, {Action: sampleActions()[2]}}
	require.NoError(t, rec.ReplayTrace(context.Background(), connector, trace, 0))
	assert.Len(t, connector.executed, 2)
}

func TestReplayTraceEmpty(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	err := rec.ReplayTrace(context.Background(), &replayConnector{}, nil, 0)
	require.Error(t, err)
}

func TestReplayTraceHonorsCancellation(t *testing.T) {
	rec := New(nil, zaptest.NewLogger(t))
	connector := &replayConnector{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trace := []TraceEntry{{Action: sampleActions()[0]}}
	err := rec.ReplayTrace(ctx, connector, trace, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, connector.executed)
}
