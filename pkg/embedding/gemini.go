package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "text-embedding-004"

// GeminiConfig configures the Gemini embeddings client.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// GeminiEmbedder calls the Gemini embedding model.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	tracer trace.Tracer
}

// NewGeminiEmbedder opens a Gemini client. Close releases it.
func NewGeminiEmbedder(ctx context.Context, cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	return &GeminiEmbedder{
		client: client,
		model:  model,
		tracer: otel.Tracer("github.com/noah-isme/questionbank-api/pkg/embedding/gemini"),
	}, nil
}

// Name identifies the provider in plagiarism details.
func (e *GeminiEmbedder) Name() string { return "gemini-" + e.model }

// EmbedText returns the embedding vector for text.
func (e *GeminiEmbedder) EmbedText(parent context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	ctx, span := e.tracer.Start(parent, "gemini.embed", trace.WithAttributes(
		attribute.String("model", e.model),
	))
	defer span.End()

	start := time.Now()
	model := e.client.EmbeddingModel(e.model)
	model.TaskType = genai.TaskTypeSemanticSimilarity
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	embedDuration.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		embedFailures.WithLabelValues("gemini").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		embedFailures.WithLabelValues("gemini").Inc()
		err := errors.New("gemini embed: empty response")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp.Embedding.Values, nil
}

// Close releases the underlying client.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
