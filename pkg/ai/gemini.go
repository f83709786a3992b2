package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiConfig configures the Gemini grader.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Temperature       float32
	RequestsPerSecond float64
	Burst             int
	Logger            zerolog.Logger
}

// GeminiGrader implements Grader with Google's generative language API.
type GeminiGrader struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	name      string
	limiter   *rate.Limiter
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewGeminiGrader opens the client. Close releases it.
func NewGeminiGrader(ctx context.Context, cfg GeminiConfig) (*GeminiGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel("gemini")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Model)
	temperature := cfg.Temperature
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}

	return &GeminiGrader{
		client:    client,
		model:     model,
		name:      cfg.Model,
		limiter:   newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/questionbank-api/pkg/ai/gemini"),
		logger:    cfg.Logger.With().Str("component", "ai_grader").Str("provider", "gemini").Logger(),
	}, nil
}

// Grade implements Grader.
func (g *GeminiGrader) Grade(parent context.Context, req Request) (Assessment, error) {
	ctx, span := g.tracer.Start(parent, "ai.grade", trace.WithAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.name),
		attribute.String("ai.kind", string(req.Kind)),
	))
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		aiFailures.WithLabelValues("gemini", "rate_limited").Inc()
		span.RecordError(err)
		return Assessment{}, fmt.Errorf("wait for ai rate limit: %w", err)
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(BuildPrompt(req)))
	aiDuration.WithLabelValues("gemini", g.name).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues("gemini", "request").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, fmt.Errorf("gemini grade: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		aiFailures.WithLabelValues("gemini", "empty").Inc()
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return Assessment{}, fmt.Errorf("gemini grade: %w", ErrEmptyResponse)
	}

	assessment, err := parseAssessment(text, req.MaxScore, "GEMINI", g.sanitizer)
	if err != nil {
		aiFailures.WithLabelValues("gemini", "parse").Inc()
		g.logger.Warn().Err(err).Msg("unparseable ai assessment, using fallback")
		return Fallback(req.MaxScore), nil
	}
	return assessment, nil
}

// Close releases the client.
func (g *GeminiGrader) Close() error {
	return g.client.Close()
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	builder := strings.Builder{}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				builder.WriteString(string(text))
			}
		}
		if builder.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(builder.String())
}
