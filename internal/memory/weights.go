package memory

// Weights configures one retrieval call: the three component weights plus a
// per-type multiplier applied after they are combined. Types absent from
// TypeWeights score with a multiplier of 1.0.
type Weights struct {
	Importance  float64          `json:"importance"`
	Relevance   float64          `json:"relevance"`
	Recency     float64          `json:"recency"`
	TypeWeights map[Type]float64 `json:"type_weights,omitempty"`
}

// DefaultWeights returns the retrieval profile used when a caller passes a
// zeroed or otherwise unusable Weights value.
func DefaultWeights() Weights {
	return Weights{
		Importance: 0.3,
		Relevance:  0.4,
		Recency:    0.3,
		TypeWeights: map[Type]float64{
			TypeObservation:   1.0,
			TypeActionTaken:   1.0,
			TypePlanStep:      1.0,
			TypeReflection:    1.0,
			TypeWonder:        0.7,
			TypePersonaDetail: 1.2,
			TypeIntent:        1.5,
		},
	}
}

// typeWeight looks up the multiplier for a record type.
func (w Weights) typeWeight(t Type) float64 {
	if w.TypeWeights == nil {
		return 1.0
	}
	if tw, ok := w.TypeWeights[t]; ok {
		return tw
	}
	return 1.0
}

// usable reports whether the weights carry any signal at all. All-zero
// component weights would make every record score identically, which is
// always a caller mistake, so retrieval substitutes the defaults instead.
func (w Weights) usable() bool {
	return w.Importance != 0 || w.Relevance != 0 || w.Recency != 0
}
