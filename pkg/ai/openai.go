package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qbank",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of AI grading requests",
	}, []string{"provider", "model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbank",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "AI grading requests that failed or returned unusable content",
	}, []string{"provider", "reason"})
)

const systemPrompt = "You grade student work. Reply with a single JSON object and nothing else."

// ChatConfig configures an OpenAI compatible chat grader. Mistral is served through the same
// client by pointing BaseURL at its API.
type ChatConfig struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float32
	RequestsPerSecond float64
	Burst             int
	Logger            zerolog.Logger
}

// ChatGrader implements Grader against a chat completion endpoint.
type ChatGrader struct {
	client    *openai.Client
	cfg       ChatConfig
	limiter   *rate.Limiter
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewChatGrader builds a grader for the configured provider.
func NewChatGrader(cfg ChatConfig) (*ChatGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s api key is required", providerName(cfg.Provider))
	}
	cfg.Provider = providerName(cfg.Provider)
	if cfg.Model == "" {
		cfg.Model = defaultModel(cfg.Provider)
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}

	config := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	case cfg.Provider == "mistral":
		config.BaseURL = "https://api.mistral.ai/v1"
	}

	return &ChatGrader{
		client:    openai.NewClientWithConfig(config),
		cfg:       cfg,
		limiter:   newLimiter(cfg.RequestsPerSecond, cfg.Burst),
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/questionbank-api/pkg/ai/chat"),
		logger:    cfg.Logger.With().Str("component", "ai_grader").Str("provider", cfg.Provider).Logger(),
	}, nil
}

// Grade sends the prompt and parses the reply. Transport failures are returned as errors; a
// reply that cannot be parsed yields the fallback assessment.
func (g *ChatGrader) Grade(parent context.Context, req Request) (Assessment, error) {
	ctx, span := g.tracer.Start(parent, "ai.grade", trace.WithAttributes(
		attribute.String("ai.provider", g.cfg.Provider),
		attribute.String("ai.model", g.cfg.Model),
		attribute.String("ai.kind", string(req.Kind)),
	))
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		aiFailures.WithLabelValues(g.cfg.Provider, "rate_limited").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, fmt.Errorf("wait for ai rate limit: %w", err)
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
	})
	aiDuration.WithLabelValues(g.cfg.Provider, g.cfg.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Provider, "request").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, fmt.Errorf("%s grade: %w", g.cfg.Provider, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		aiFailures.WithLabelValues(g.cfg.Provider, "empty").Inc()
		span.RecordError(ErrEmptyResponse)
		span.SetStatus(codes.Error, ErrEmptyResponse.Error())
		return Assessment{}, fmt.Errorf("%s grade: %w", g.cfg.Provider, ErrEmptyResponse)
	}

	assessment, err := parseAssessment(resp.Choices[0].Message.Content, req.MaxScore, strings.ToUpper(g.cfg.Provider), g.sanitizer)
	if err != nil {
		aiFailures.WithLabelValues(g.cfg.Provider, "parse").Inc()
		g.logger.Warn().Err(err).Msg("unparseable ai assessment, using fallback")
		return Fallback(req.MaxScore), nil
	}

	span.SetAttributes(attribute.Float64("ai.score", assessment.Score))
	return assessment, nil
}

func providerName(provider string) string {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return "openai"
	}
	return provider
}

func defaultModel(provider string) string {
	switch provider {
	case "mistral":
		return "mistral-small-latest"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "gpt-4o-mini"
	}
}

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
