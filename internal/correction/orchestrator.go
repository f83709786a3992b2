// Package correction routes answers to the deterministic graders or to the compiler and AI
// grader, and merges their results.
package correction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/questionbank-api/internal/grading"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/observability"
	"github.com/noah-isme/questionbank-api/pkg/ai"
	"github.com/noah-isme/questionbank-api/pkg/executor"
)

var (
	// ErrUnsupportedType is returned when AI correction is requested for a closed question type.
	ErrUnsupportedType = errors.New("question type is not corrected by ai")
	// ErrStoreUnavailable is returned by the stored-answer operations when no store was configured.
	ErrStoreUnavailable = errors.New("answer store not configured")
)

// BatchFailurePrefix starts the error recorded for each answer a batch could not correct.
const BatchFailurePrefix = "AI correction failed: "

// Store loads and persists the answers corrected by id.
type Store interface {
	GetAnswer(ctx context.Context, id uuid.UUID) (models.Answer, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (models.Question, error)
	SaveGrade(ctx context.Context, answer *models.Answer) error
}

// Config wires the orchestrator's collaborators. Executor and Store are optional.
type Config struct {
	Grading         *grading.Engine
	AI              ai.Grader
	Executor        executor.CodeExecutor
	Languages       *executor.LanguageTable
	DefaultLanguage string
	Store           Store
	Logger          zerolog.Logger
}

// Orchestrator grades answers. It holds no per-answer state and is safe for concurrent use.
type Orchestrator struct {
	grading         *grading.Engine
	ai              ai.Grader
	executor        executor.CodeExecutor
	languages       *executor.LanguageTable
	defaultLanguage string
	store           Store
	tracer          trace.Tracer
	logger          zerolog.Logger
}

// NewOrchestrator builds an orchestrator. A missing AI grader is replaced by one that always
// returns the fallback assessment.
func NewOrchestrator(cfg Config) *Orchestrator {
	if cfg.Grading == nil {
		cfg.Grading = grading.NewEngine(cfg.Logger)
	}
	if cfg.AI == nil {
		cfg.AI = ai.UnavailableGrader{}
	}
	if cfg.Languages == nil {
		cfg.Languages = executor.NewLanguageTable(executor.DefaultLanguages())
	}
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "python"
	}

	return &Orchestrator{
		grading:         cfg.Grading,
		ai:              cfg.AI,
		executor:        cfg.Executor,
		languages:       cfg.Languages,
		defaultLanguage: strings.ToLower(cfg.DefaultLanguage),
		store:           cfg.Store,
		tracer:          otel.Tracer("github.com/noah-isme/questionbank-api/internal/correction"),
		logger:          cfg.Logger.With().Str("component", "correction_orchestrator").Logger(),
	}
}

// Grade routes the answer by question type.
func (o *Orchestrator) Grade(ctx context.Context, question models.Question, answer models.Answer) (Outcome, error) {
	if question.Type.SupportsAI() {
		return o.GradeWithAI(ctx, question, answer)
	}
	return o.GradeDeterministic(ctx, question, answer), nil
}

// GradeDeterministic scores the closed question types. It never fails.
func (o *Orchestrator) GradeDeterministic(ctx context.Context, question models.Question, answer models.Answer) Outcome {
	outcome := fromGrading(o.grading.Grade(ctx, question, answer))
	observability.CorrectionOutcomes().WithLabelValues(string(question.Type), string(outcome.State)).Inc()
	return outcome
}

// GradeWithAI scores essays and coding answers. An error is returned only when the AI grader
// failed and no compiler result could stand in for it.
func (o *Orchestrator) GradeWithAI(parent context.Context, question models.Question, answer models.Answer) (Outcome, error) {
	if !question.Type.SupportsAI() {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnsupportedType, question.Type)
	}

	ctx, span := o.tracer.Start(parent, "correction.grade_with_ai", trace.WithAttributes(
		attribute.String("question.type", string(question.Type)),
		attribute.String("answer.id", answer.ID.String()),
	))
	defer span.End()

	var (
		outcome Outcome
		err     error
	)
	if question.Type == models.QuestionTypeCoding {
		outcome, err = o.gradeCoding(ctx, question, answer)
	} else {
		outcome, err = o.gradeEssay(ctx, question, answer)
	}

	span.SetAttributes(attribute.String("correction.state", string(outcome.State)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	observability.CorrectionOutcomes().WithLabelValues(string(question.Type), string(outcome.State)).Inc()
	return outcome, err
}

func (o *Orchestrator) gradeEssay(ctx context.Context, question models.Question, answer models.Answer) (Outcome, error) {
	kind := ai.KindShortEssay
	if question.Type == models.QuestionTypeEssayLong {
		kind = ai.KindLongEssay
	}

	m := newMerger(question.Points)
	assessment, err := o.ai.Grade(ctx, ai.Request{
		Kind:            kind,
		QuestionTitle:   question.Title,
		QuestionContent: question.Content,
		Answer:          answer.Content,
		MaxScore:        question.Points,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Msg("ai grading failed")
		return m.aiErrored(err)
	}
	return m.assessed(assessment), nil
}

func (o *Orchestrator) gradeCoding(ctx context.Context, question models.Question, answer models.Answer) (Outcome, error) {
	m := newMerger(question.Points)

	code := answer.CodeSource
	if strings.TrimSpace(code) == "" {
		code = answer.Content
	}
	if strings.TrimSpace(code) == "" {
		return m.failed(feedbackNoCode), nil
	}

	cfg := parseCodingConfig(question.ConfigurationData)
	language := resolveLanguage(answer.Language, cfg.Language, o.defaultLanguage, o.languages)
	tc := cfg.firstTestCase()

	if o.executor != nil {
		run, err := o.executor.Run(ctx, executor.Submission{
			Source:         code,
			Language:       language,
			Stdin:          tc.Input,
			ExpectedOutput: tc.Output,
		})
		switch {
		case err != nil:
			o.logger.Warn().Err(err).Str("answer_id", answer.ID.String()).Str("language", language).Msg("code execution unavailable")
			m.executorFailed(err)
		case !run.Succeeded:
			return m.rejected(run), nil
		default:
			m.compiled(run, tc.Output)
		}
	}

	assessment, err := o.ai.Grade(ctx, ai.Request{
		Kind:                ai.KindCoding,
		QuestionTitle:       question.Title,
		QuestionContent:     question.Content,
		Answer:              code,
		Language:            language,
		CompilationFeedback: m.feedback,
		MaxScore:            question.Points,
	})
	if err != nil {
		o.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Msg("ai grading failed")
		return m.aiErrored(err)
	}
	return m.assessed(assessment), nil
}

// Correct runs AI correction for a stored answer and persists the result.
func (o *Orchestrator) Correct(ctx context.Context, answerID uuid.UUID) (models.Answer, Outcome, error) {
	if o.store == nil {
		return models.Answer{}, Outcome{}, ErrStoreUnavailable
	}

	answer, err := o.store.GetAnswer(ctx, answerID)
	if err != nil {
		return models.Answer{}, Outcome{}, err
	}
	question, err := o.store.GetQuestion(ctx, answer.QuestionID)
	if err != nil {
		return models.Answer{}, Outcome{}, err
	}

	outcome, err := o.GradeWithAI(ctx, question, answer)
	if err != nil {
		return answer, outcome, err
	}

	answer.ApplyGrade(outcome.Correct, outcome.Score, outcome.MaxScore, outcome.Feedback)
	if err := o.store.SaveGrade(ctx, &answer); err != nil {
		return answer, outcome, fmt.Errorf("save corrected answer: %w", err)
	}
	return answer, outcome, nil
}

// BatchItem is the result slot for one answer of a batch.
type BatchItem struct {
	AnswerID uuid.UUID      `json:"answerId"`
	Success  bool           `json:"success"`
	Answer   *models.Answer `json:"answer,omitempty"`
	Outcome  *Outcome       `json:"outcome,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// CorrectBatch corrects answers one after another. A failure is confined to its own slot.
func (o *Orchestrator) CorrectBatch(ctx context.Context, answerIDs []uuid.UUID) []BatchItem {
	items := make([]BatchItem, 0, len(answerIDs))
	for _, id := range answerIDs {
		if err := ctx.Err(); err != nil {
			items = append(items, BatchItem{AnswerID: id, Error: BatchFailurePrefix + err.Error()})
			continue
		}

		answer, outcome, err := o.Correct(ctx, id)
		if err != nil {
			o.logger.Warn().Err(err).Str("answer_id", id.String()).Msg("batch correction failed")
			items = append(items, BatchItem{AnswerID: id, Error: BatchFailurePrefix + err.Error()})
			continue
		}
		items = append(items, BatchItem{AnswerID: id, Success: true, Answer: &answer, Outcome: &outcome})
	}
	return items
}
