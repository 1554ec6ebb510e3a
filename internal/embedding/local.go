package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/persimmon-labs/uxagent-cli/api/schemas"
)

// LocalEmbedder is a deterministic, dependency-free embedder: each token is
// hashed into a handful of vector buckets and the result is L2-normalized.
// Texts sharing tokens land near each other, which is enough signal for the
// relevance term of memory retrieval when no embedding API is available, and
// makes retrieval fully reproducible in tests.
type LocalEmbedder struct {
	dimensions int
}

// NewLocalEmbedder builds an embedder producing vectors of the given length.
func NewLocalEmbedder(dimensions int) *LocalEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &LocalEmbedder{dimensions: dimensions}
}

// Embed hashes the tokens of text into a normalized vector. It never fails.
func (l *LocalEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	vector := make([]float64, l.dimensions)

	for _, token := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(token))
		sum := h.Sum64()

		// Three buckets per token soften hash collisions; the sign bit keeps
		// unrelated tokens from accumulating in the same direction.
		for i := 0; i < 3; i++ {
			bucket := int((sum >> (i * 16)) % uint64(l.dimensions))
			sign := 1.0
			if (sum>>(i*16+15))&1 == 1 {
				sign = -1.0
			}
			vector[bucket] += sign
		}
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vector {
			vector[i] /= norm
		}
	}
	return vector, nil
}

// Dimensions reports the vector length.
func (l *LocalEmbedder) Dimensions() int { return l.dimensions }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

var _ schemas.Embedder = (*LocalEmbedder)(nil)
