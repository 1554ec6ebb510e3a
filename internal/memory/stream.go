package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
)

// recencyHalfLifeSeconds is the decay constant of the recency score: a
// record one hour old scores 1/e.
const recencyHalfLifeSeconds = 3600.0

// Stream is the append-only ledger of memory records. A single controller
// owns writes; any number of readers may retrieve concurrently.
type Stream struct {
	mu       sync.RWMutex
	records  []Record
	embedder schemas.Embedder
	logger   *zap.Logger
	now      func() float64
}

// Option customizes a Stream at construction time.
type Option func(*Stream)

// WithClock replaces the wall clock, letting tests control timestamps.
func WithClock(now func() float64) Option {
	return func(s *Stream) { s.now = now }
}

// NewStream creates an empty stream backed by the given embedder.
func NewStream(embedder schemas.Embedder, logger *zap.Logger, opts ...Option) *Stream {
	s := &Stream{
		embedder: embedder,
		logger:   logger.Named("memory"),
		now:      func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append embeds the entry's content and appends a new record, returning its
// id. An embedder failure fails the whole call; no partial record is stored.
func (s *Stream) Append(ctx context.Context, entry Entry) (string, error) {
	embeddingVec, err := s.embedder.Embed(ctx, entry.Content)
	if err != nil {
		return "", fmt.Errorf("failed to embed memory content: %w", err)
	}

	importance := entry.Importance
	if importance == 0 {
		importance = DefaultImportance
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	// Timestamps stay strictly increasing within a stream so insertion order
	// survives a timestamp sort even under a coarse clock.
	if n := len(s.records); n > 0 && ts <= s.records[n-1].Timestamp {
		ts = s.records[n-1].Timestamp + 1e-6
	}

	rec := Record{
		ID:         uuid.NewString(),
		Type:       entry.Type,
		Content:    entry.Content,
		Timestamp:  ts,
		Source:     entry.Source,
		Embedding:  embeddingVec,
		Importance: importance,
		RelatedIDs: entry.RelatedIDs,
		Metadata:   entry.Metadata,
	}
	s.records = append(s.records, rec)

	s.logger.Debug("Appended memory record",
		zap.String("id", rec.ID),
		zap.String("type", string(rec.Type)),
		zap.String("source", rec.Source),
		zap.Float64("importance", rec.Importance),
	)
	return rec.ID, nil
}

// Retrieve returns up to limit records ranked by the weighted combination of
// importance, relevance to the query, and recency at time now (seconds since
// epoch; <= 0 means the current time). It never fails on an empty store or a
// zeroed weight configuration: the former yields an empty slice and the
// latter falls back to DefaultWeights.
func (s *Stream) Retrieve(ctx context.Context, query string, now float64, limit int, w Weights) ([]Record, error) {
	s.mu.RLock()
	if len(s.records) == 0 {
		s.mu.RUnlock()
		return nil, nil
	}
	s.mu.RUnlock()

	if !w.usable() {
		w = DefaultWeights()
	}
	if now <= 0 {
		now = s.now()
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed retrieval query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		score float64
		rec   Record
	}
	candidates := make([]scored, 0, len(s.records))
	for _, rec := range s.records {
		relevance := cosineSimilarity(queryVec, rec.Embedding)
		recency := math.Exp(-math.Max(0, now-rec.Timestamp) / recencyHalfLifeSeconds)

		base := (rec.Importance/10.0)*w.Importance + relevance*w.Relevance + recency*w.Recency
		candidates = append(candidates, scored{
			score: base * w.typeWeight(rec.Type),
			rec:   rec,
		})
	}

	// Stable keeps insertion order as the tiebreak.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	out := make([]Record, limit)
	for i := 0; i < limit; i++ {
		out[i] = candidates[i].rec
	}
	return out, nil
}

// ByType returns all records of the given type in insertion order.
func (s *Stream) ByType(t Type) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.Type == t {
			out = append(out, rec)
		}
	}
	return out
}

// Recent returns the count most recent records, newest first.
func (s *Stream) Recent(count int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	if count > 0 && count < len(out) {
		out = out[:count]
	}
	return out
}

// All returns the full ledger in insertion order.
func (s *Stream) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len reports the number of records in the stream.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// cosineSimilarity of two vectors, in [-1, 1]. Mismatched or zero-norm
// vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
