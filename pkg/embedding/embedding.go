// Package embedding turns text and images into fixed-length feature vectors.
package embedding

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("embedding input is empty")

// ErrUnsupportedImage is returned for payloads that are not a decodable image.
var ErrUnsupportedImage = errors.New("unsupported image format")

var (
	embedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qbank",
		Subsystem: "embedding",
		Name:      "duration_seconds",
		Help:      "Duration of embedding extraction",
	}, []string{"provider"})

	embedFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbank",
		Subsystem: "embedding",
		Name:      "failures_total",
		Help:      "Number of failed embedding extractions",
	}, []string{"provider"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbank",
		Subsystem: "embedding",
		Name:      "cache_lookups_total",
		Help:      "Embedding cache lookups by result",
	}, []string{"result"})
)

// TextEmbedder produces a deterministic vector for a piece of text.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ImageEmbedder produces a deterministic vector for an encoded image.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
}

// Named is implemented by providers that report a method label for plagiarism details.
type Named interface {
	Name() string
}

// NameOf returns the provider name or fallback.
func NameOf(provider interface{}, fallback string) string {
	if named, ok := provider.(Named); ok && named.Name() != "" {
		return named.Name()
	}
	return fallback
}
