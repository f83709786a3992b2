// Package grading scores answers to question types that have a closed answer space.
package grading

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/observability"
)

// ErrMalformedConfiguration marks a question whose answer key cannot be read.
var ErrMalformedConfiguration = errors.New("malformed question configuration")

// ErrMalformedAnswer marks a submission that cannot be parsed for its question type.
var ErrMalformedAnswer = errors.New("malformed answer")

// FeedbackProcessingError is shown when grading could not run for reasons outside the student's control.
const FeedbackProcessingError = "Error processing answer. Please contact your instructor."

// Result is the outcome of grading one answer.
type Result struct {
	Correct  bool    `json:"correct"`
	Score    float64 `json:"score"`
	MaxScore float64 `json:"max_score"`
	Feedback string  `json:"feedback"`
}

// Failure carries the feedback a grader wants shown when it cannot score an answer.
type Failure struct {
	Kind     error
	Detail   string
	Feedback string
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return f.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", f.Kind.Error(), f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Kind
}

func configFailure(detail, feedback string) error {
	return &Failure{Kind: ErrMalformedConfiguration, Detail: detail, Feedback: feedback}
}

func answerFailure(feedback string) error {
	return &Failure{Kind: ErrMalformedAnswer, Detail: feedback, Feedback: feedback}
}

// Input is what a grader sees of a question and its answer.
type Input struct {
	Config  json.RawMessage
	Content string
	Points  float64
}

// Grader scores a single question type. The set of graders is closed to this package.
type Grader interface {
	questionType() models.QuestionType
	grade(in Input) (Result, error)
}

func builtinGraders() []Grader {
	return []Grader{
		mcqGrader{},
		trueFalseGrader{},
		matchingGrader{},
		fillInBlankGrader{},
		rearrangeGrader{},
		sliderGrader{},
		puzzleGrader{},
		selectOnPhotoGrader{},
	}
}

// Engine dispatches answers to the grader registered for their question type.
type Engine struct {
	graders map[models.QuestionType]Grader
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewEngine builds an engine with one grader per deterministic question type.
// It panics when a deterministic type has no grader, which can only happen at development time.
func NewEngine(logger zerolog.Logger) *Engine {
	graders := make(map[models.QuestionType]Grader)
	for _, g := range builtinGraders() {
		graders[g.questionType()] = g
	}
	for _, t := range models.DeterministicQuestionTypes() {
		if _, ok := graders[t]; !ok {
			panic(fmt.Sprintf("grading: no grader registered for %s", t))
		}
	}

	return &Engine{
		graders: graders,
		logger:  logger.With().Str("component", "grading_engine").Logger(),
		tracer:  otel.Tracer("github.com/noah-isme/questionbank-api/internal/grading"),
	}
}

// Supports reports whether the engine can grade the question type.
func (e *Engine) Supports(t models.QuestionType) bool {
	_, ok := e.graders[t]
	return ok
}

// Grade scores the answer against the question configuration. It never fails: malformed
// configuration or input degrades to a zero score with explanatory feedback.
func (e *Engine) Grade(ctx context.Context, question models.Question, answer models.Answer) (result Result) {
	maxPoints := question.Points
	grader, ok := e.graders[question.Type]
	if !ok {
		return Result{MaxScore: maxPoints, Feedback: fmt.Sprintf("Question type %s is not graded automatically.", question.Type)}
	}

	_, span := e.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.String("question.type", string(question.Type)),
		attribute.String("question.id", question.ID.String()),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Interface("panic", r).Str("question_id", question.ID.String()).Msg("grader panicked")
			span.SetStatus(codes.Error, "grader panicked")
			result = Result{MaxScore: maxPoints, Feedback: FeedbackProcessingError}
		}
		observability.GradingDuration().WithLabelValues(string(question.Type)).Observe(time.Since(start).Seconds())
		observability.GradingResults().WithLabelValues(string(question.Type), outcomeLabel(result)).Inc()
	}()

	res, err := grader.grade(Input{
		Config:  json.RawMessage(question.ConfigurationData),
		Content: answer.Content,
		Points:  maxPoints,
	})
	if err != nil {
		feedback := FeedbackProcessingError
		var failure *Failure
		if errors.As(err, &failure) && failure.Feedback != "" {
			feedback = failure.Feedback
		}
		level := e.logger.Warn()
		if errors.Is(err, ErrMalformedConfiguration) {
			level = e.logger.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		level.Err(err).Str("question_id", question.ID.String()).Str("question_type", string(question.Type)).Msg("answer graded with zero score")
		return Result{MaxScore: maxPoints, Feedback: feedback}
	}

	return res.bounded(maxPoints)
}

func (r Result) bounded(maxPoints float64) Result {
	r.MaxScore = maxPoints
	if r.Score < 0 {
		r.Score = 0
	}
	if r.Score > maxPoints {
		r.Score = maxPoints
	}
	return r
}

func outcomeLabel(r Result) string {
	switch {
	case r.Correct:
		return "correct"
	case r.Score > 0:
		return "partial"
	default:
		return "incorrect"
	}
}

func decodeConfig(raw json.RawMessage, target interface{}) error {
	if len(raw) == 0 {
		return configFailure("configuration is empty", "")
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return configFailure(err.Error(), "")
	}
	return nil
}
