// Package similarity implements the vector and string similarity measures used by plagiarism detection.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// ErrDimensionMismatch signals that two vectors of different length were compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ShortTextThreshold is the normalized length below which character similarity is blended in.
const ShortTextThreshold = 200

const (
	semanticWeight  = 0.7
	characterWeight = 0.3
)

// Cosine returns the cosine similarity of a and b in [-1, 1]. All-zero input yields 0.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return clamp(dot/(math.Sqrt(normA)*math.Sqrt(normB)), -1, 1), nil
}

// DotProduct returns the raw dot product, meant for vectors that are already unit length.
func DotProduct(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// Normalize scales v to unit length. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Average combines vectors of equal length by element-wise mean.
func Average(vectors ...[]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dims := len(vectors[0])
	sum := make([]float64, dims)
	for _, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(v), dims)
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
	}
	out := make([]float32, dims)
	for i := range sum {
		out[i] = float32(sum[i] / float64(len(vectors)))
	}
	return out, nil
}

// CharSimilarity is the longest common subsequence length divided by the longer input length.
// It runs in O(n*m) time and keeps a single row of O(min(n, m)) cells.
func CharSimilarity(s1, s2 string) float64 {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(b) > len(a) {
		a, b = b, a
	}

	row := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		diagonal := 0
		for j := 1; j <= len(b); j++ {
			above := row[j]
			if a[i-1] == b[j-1] {
				row[j] = diagonal + 1
			} else if row[j-1] > row[j] {
				row[j] = row[j-1]
			}
			diagonal = above
		}
	}

	return float64(row[len(b)]) / float64(len(a))
}

// NormalizeText lowercases, collapses whitespace and strips bracket and quote characters.
func NormalizeText(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	joined := strings.Join(fields, " ")
	return strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '{', '}', '(', ')', '"':
			return -1
		}
		return r
	}, joined)
}

// Blend mixes semantic and character similarity when either text is short.
// Inputs are expected to be normalized already.
func Blend(semantic float64, text1, text2 string) float64 {
	if utf8.RuneCountInString(text1) < ShortTextThreshold || utf8.RuneCountInString(text2) < ShortTextThreshold {
		return semanticWeight*semantic + characterWeight*CharSimilarity(text1, text2)
	}
	return semantic
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
