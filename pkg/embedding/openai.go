package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIConfig configures the OpenAI embeddings client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	tracer trace.Tracer
}

// NewOpenAIEmbedder builds an embedder for the configured model.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	model := openai.SmallEmbedding3
	if cfg.Model != "" {
		model = openai.EmbeddingModel(cfg.Model)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(config),
		model:  model,
		tracer: otel.Tracer("github.com/noah-isme/questionbank-api/pkg/embedding/openai"),
	}, nil
}

// Name identifies the provider in plagiarism details.
func (e *OpenAIEmbedder) Name() string { return "openai-" + string(e.model) }

// EmbedText returns the embedding vector for text.
func (e *OpenAIEmbedder) EmbedText(parent context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	ctx, span := e.tracer.Start(parent, "openai.embed", trace.WithAttributes(
		attribute.String("model", string(e.model)),
	))
	defer span.End()

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: e.model,
	})
	embedDuration.WithLabelValues("openai").Observe(time.Since(start).Seconds())
	if err != nil {
		embedFailures.WithLabelValues("openai").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		embedFailures.WithLabelValues("openai").Inc()
		err := fmt.Errorf("openai embed: empty response")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return resp.Data[0].Embedding, nil
}
