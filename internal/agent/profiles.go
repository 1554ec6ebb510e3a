package agent

import "github.com/persimmon-labs/uxagent-cli/internal/memory"

// Retrieval weight profiles for the retrieving cognitive modules. Each looks
// at the memory stream through a different lens: planning favors prior plan
// steps, action favors the plan step being executed right now. Perception
// reads the page, not the stream, so it carries no profile. Intent records
// stay heavily boosted everywhere so the goal never drops out of context.

func planningWeights() memory.Weights {
	return memory.Weights{
		Importance: 0.3,
		Relevance:  0.5,
		Recency:    0.2,
		TypeWeights: map[memory.Type]float64{
			memory.TypeObservation:   1.0,
			memory.TypeActionTaken:   1.2,
			memory.TypePlanStep:      1.5,
			memory.TypeReflection:    0.8,
			memory.TypeWonder:        0.3,
			memory.TypePersonaDetail: 0.7,
			memory.TypeIntent:        1.4,
		},
	}
}

func actionWeights() memory.Weights {
	return memory.Weights{
		Importance: 0.35,
		Relevance:  0.45,
		Recency:    0.2,
		TypeWeights: map[memory.Type]float64{
			memory.TypeObservation:   0.9,
			memory.TypeActionTaken:   0.7,
			memory.TypePlanStep:      1.5,
			memory.TypeReflection:    0.5,
			memory.TypeWonder:        0.3,
			memory.TypePersonaDetail: 0.6,
			memory.TypeIntent:        1.3,
		},
	}
}
