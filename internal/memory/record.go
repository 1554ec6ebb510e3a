// Package memory implements the agent's append-only memory stream: typed,
// embedded, timestamped records with importance/relevance/recency weighted
// retrieval and JSON persistence.
package memory

// Type classifies a memory record.
type Type string

const (
	TypeObservation   Type = "observation"
	TypeActionTaken   Type = "action_taken"
	TypePlanStep      Type = "plan_step"
	TypeReflection    Type = "reflection"
	TypeWonder        Type = "wonder"
	TypePersonaDetail Type = "persona_detail"
	TypeIntent        Type = "intent"
)

// DefaultImportance is assigned when the caller does not score a record.
const DefaultImportance = 5.0

// Record is one immutable fact in the ledger. Once appended it is never
// mutated or deleted; the embedding is computed exactly once at creation.
type Record struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	Content    string                 `json:"content"`
	Timestamp  float64                `json:"timestamp"` // seconds since epoch
	Source     string                 `json:"source_module"`
	Embedding  []float64              `json:"embedding"`
	Importance float64                `json:"importance_score"`
	RelatedIDs []string               `json:"related_ids,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Entry is the caller-supplied part of a record; the stream fills in the id,
// timestamp and embedding. A zero Importance means DefaultImportance.
type Entry struct {
	Type       Type
	Content    string
	Source     string
	Importance float64
	RelatedIDs []string
	Metadata   map[string]interface{}
}
