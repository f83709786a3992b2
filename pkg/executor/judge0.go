package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultJudge0URL     = "https://judge0-ce.p.rapidapi.com"
	defaultJudge0Host    = "judge0-ce.p.rapidapi.com"
	defaultJudge0Timeout = 30 * time.Second
	maxJudge0Response    = 1 << 20
)

// Judge0Config configures the Judge0 client.
type Judge0Config struct {
	BaseURL    string
	APIKey     string
	APIHost    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Judge0Executor submits programs to a Judge0 instance and waits for the verdict.
type Judge0Executor struct {
	cfg       Judge0Config
	client    *http.Client
	languages *LanguageTable
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewJudge0Executor builds the client.
func NewJudge0Executor(cfg Judge0Config, languages *LanguageTable) *Judge0Executor {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultJudge0URL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.APIHost == "" {
		cfg.APIHost = defaultJudge0Host
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultJudge0Timeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Judge0Executor{
		cfg:       cfg,
		client:    client,
		languages: languages,
		tracer:    otel.Tracer("github.com/noah-isme/questionbank-api/pkg/executor/judge0"),
		logger:    cfg.Logger.With().Str("component", "judge0_executor").Logger(),
	}
}

type judge0Request struct {
	LanguageID     int    `json:"language_id"`
	SourceCode     string `json:"source_code"`
	Stdin          string `json:"stdin"`
	ExpectedOutput string `json:"expected_output"`
}

type judge0Response struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Memory        *int64  `json:"memory"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// Run submits the program with wait=true and maps the Judge0 status onto Result.
func (e *Judge0Executor) Run(parent context.Context, submission Submission) (Result, error) {
	language, ok := e.languages.Lookup(submission.Language)
	if !ok || language.Judge0ID == 0 {
		return UnsupportedLanguageResult(submission.Language), nil
	}

	ctx, span := e.tracer.Start(parent, "judge0.run", trace.WithAttributes(
		attribute.String("language", language.Name),
		attribute.Int("judge0.language_id", language.Judge0ID),
	))
	defer span.End()

	body, err := json.Marshal(judge0Request{
		LanguageID:     language.Judge0ID,
		SourceCode:     submission.Source,
		Stdin:          submission.Stdin,
		ExpectedOutput: submission.ExpectedOutput,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode judge0 request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.BaseURL+"/submissions?base64_encoded=false&wait=true", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build judge0 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("X-RapidAPI-Key", e.cfg.APIKey)
		req.Header.Set("X-RapidAPI-Host", e.cfg.APIHost)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	runDuration.WithLabelValues("judge0", language.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("judge0 request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxJudge0Response))
	if err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("read judge0 response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		err := fmt.Errorf("judge0 returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	var decoded judge0Response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, fmt.Errorf("decode judge0 response: %w", err)
	}

	result := Describe(Result{
		Stdout:            deref(decoded.Stdout),
		Stderr:            deref(decoded.Stderr),
		CompileOutput:     deref(decoded.CompileOutput),
		Status:            judge0Status(decoded.Status.ID),
		StatusCode:        decoded.Status.ID,
		StatusDescription: decoded.Status.Description,
		ExecutionTime:     deref(decoded.Time),
		Method:            "Compiler",
	}, submission.ExpectedOutput)
	if decoded.Memory != nil {
		result.MemoryUsage = fmt.Sprintf("%d", *decoded.Memory)
	}

	runOutcomes.WithLabelValues("judge0", string(result.Status)).Inc()
	span.SetAttributes(attribute.String("judge0.status", result.StatusDescription))
	e.logger.Debug().
		Str("language", language.Name).
		Int("status_id", result.StatusCode).
		Str("status", string(result.Status)).
		Msg("judge0 submission finished")

	return result, nil
}

// judge0Status maps Judge0 status ids: 3 accepted, 4 wrong answer, 5 time limit and 7-12
// runtime failures, 6 compilation error.
func judge0Status(id int) Status {
	switch {
	case id == 3:
		return StatusAccepted
	case id == 4:
		return StatusWrongAnswer
	case id == 6:
		return StatusCompileError
	case id == 5 || (id >= 7 && id <= 12):
		return StatusRuntimeError
	default:
		return StatusOther
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
