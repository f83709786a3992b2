package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"time"
	"unicode"
)

// DefaultHashingDimensions is the vector size used by HashingEmbedder when none is set.
const DefaultHashingDimensions = 384

// HashingEmbedder embeds text offline by hashing word unigrams, bigrams and character
// trigrams into a fixed number of buckets. It is the fallback when no model is configured.
type HashingEmbedder struct {
	dimensions int
}

// NewHashingEmbedder creates an embedder with the given dimensionality.
func NewHashingEmbedder(dimensions int) *HashingEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashingDimensions
	}
	return &HashingEmbedder{dimensions: dimensions}
}

// Name identifies the provider in plagiarism details.
func (h *HashingEmbedder) Name() string { return "hashing-semantic" }

// EmbedText returns an L2-normalized feature-hashed vector.
func (h *HashingEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	start := time.Now()
	defer func() { embedDuration.WithLabelValues("hashing").Observe(time.Since(start).Seconds()) }()

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		embedFailures.WithLabelValues("hashing").Inc()
		return nil, ErrEmptyInput
	}

	vector := make([]float64, h.dimensions)
	for i, word := range words {
		h.add(vector, "w:"+word, 1.0)
		if i > 0 {
			h.add(vector, "b:"+words[i-1]+" "+word, 0.7)
		}
		runes := []rune(" " + word + " ")
		for j := 0; j+3 <= len(runes); j++ {
			h.add(vector, "c:"+string(runes[j:j+3]), 0.3)
		}
	}

	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, h.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vector {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (h *HashingEmbedder) add(vector []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	bucket := int(sum % uint64(h.dimensions))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vector[bucket] += weight
}
