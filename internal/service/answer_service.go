package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/correction"
	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/plagiarism"
	"github.com/noah-isme/questionbank-api/internal/repository"
	"github.com/noah-isme/questionbank-api/internal/similarity"
	"github.com/noah-isme/questionbank-api/pkg/executor"
	"github.com/noah-isme/questionbank-api/pkg/storage"
)

const (
	maxAnswerContentLength = 10000
	feedbackAIScoringDown  = "AI scoring temporarily unavailable. Please contact your instructor."
)

var (
	// ErrAnswerNotFound indicates the answer does not exist.
	ErrAnswerNotFound = errors.New("answer not found")
	// ErrAnswerTypeMismatch indicates the answer type cannot answer the question type.
	ErrAnswerTypeMismatch = errors.New("answer type does not match question type")
	// ErrEmptyAnswer indicates neither content nor files were submitted.
	ErrEmptyAnswer = errors.New("content cannot be empty")
	// ErrAnswerTooLong indicates the content exceeds the stored limit.
	ErrAnswerTooLong = fmt.Errorf("content cannot exceed %d characters", maxAnswerContentLength)
)

// PlagiarismChecker compares new submissions against earlier ones.
type PlagiarismChecker interface {
	CheckText(ctx context.Context, content string, questionID, excludeAnswerID uuid.UUID) plagiarism.Result
	CheckImage(ctx context.Context, data []byte, questionID, excludeAnswerID uuid.UUID) plagiarism.Result
}

// AnswerGrader scores a persisted answer.
type AnswerGrader interface {
	Grade(ctx context.Context, question models.Question, answer models.Answer) (correction.Outcome, error)
}

// AnswerService handles submissions: persistence, plagiarism checks, media and grading.
type AnswerService interface {
	Create(ctx context.Context, payload dto.AnswerRequest, files []dto.UploadedFile) (dto.AnswerResponse, error)
	Get(ctx context.Context, id uuid.UUID) (dto.AnswerResponse, error)
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]dto.AnswerResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error)
	Regrade(ctx context.Context, id uuid.UUID) (dto.AnswerResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
}

// AnswerServiceDeps groups the collaborators of the answer service. Media and Alerts are optional.
type AnswerServiceDeps struct {
	Questions  repository.QuestionRepository
	Answers    repository.AnswerRepository
	Plagiarism PlagiarismChecker
	Grader     AnswerGrader
	Media      storage.MediaStore
	Alerts     AlertService
	Languages  *executor.LanguageTable
	Validator  *validator.Validate
	Logger     zerolog.Logger
}

type answerService struct {
	questions  repository.QuestionRepository
	answers    repository.AnswerRepository
	plagiarism PlagiarismChecker
	grader     AnswerGrader
	media      storage.MediaStore
	alerts     AlertService
	languages  *executor.LanguageTable
	validator  *validator.Validate
	logger     zerolog.Logger
	tracer     trace.Tracer
}

// NewAnswerService builds the answer service.
func NewAnswerService(deps AnswerServiceDeps) AnswerService {
	languages := deps.Languages
	if languages == nil {
		languages = executor.NewLanguageTable(executor.DefaultLanguages())
	}
	return &answerService{
		questions:  deps.Questions,
		answers:    deps.Answers,
		plagiarism: deps.Plagiarism,
		grader:     deps.Grader,
		media:      deps.Media,
		alerts:     deps.Alerts,
		languages:  languages,
		validator:  deps.Validator,
		logger:     deps.Logger.With().Str("component", "answer_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/questionbank-api/internal/service/answer"),
	}
}

func (s *answerService) Create(ctx context.Context, payload dto.AnswerRequest, files []dto.UploadedFile) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}
	questionID, err := uuid.Parse(payload.QuestionID)
	if err != nil {
		return dto.AnswerResponse{}, ErrQuestionNotFound
	}
	answerType, err := models.ParseAnswerType(payload.Type)
	if err != nil {
		return dto.AnswerResponse{}, fmt.Errorf("%w: %s", err, payload.Type)
	}
	if strings.TrimSpace(payload.Content) == "" && len(files) == 0 {
		return dto.AnswerResponse{}, ErrEmptyAnswer
	}
	if utf8.RuneCountInString(payload.Content) > maxAnswerContentLength {
		return dto.AnswerResponse{}, ErrAnswerTooLong
	}

	spanCtx, span := s.tracer.Start(ctx, "answers.create", trace.WithAttributes(
		attribute.String("question.id", questionID.String()),
		attribute.String("answer.type", string(answerType)),
	))
	defer span.End()

	question, err := s.question(spanCtx, questionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	if err := compatible(question.Type, answerType); err != nil {
		return dto.AnswerResponse{}, err
	}

	answer := models.Answer{
		QuestionID:  question.ID,
		Type:        answerType,
		Content:     payload.Content,
		Language:    strings.ToLower(strings.TrimSpace(payload.Language)),
		SubmittedBy: strings.TrimSpace(payload.SubmittedBy),
		MaxScore:    question.Points,
		IsActive:    true,
	}
	answer.SetMediaFiles(nil)
	if err := s.answers.Create(spanCtx, &answer); err != nil {
		span.RecordError(err)
		return dto.AnswerResponse{}, err
	}

	if answerType.HasTextContent() && strings.TrimSpace(answer.Content) != "" {
		s.checkText(spanCtx, &answer)
	}
	if len(files) > 0 {
		s.attachMedia(spanCtx, &answer, files)
	}

	s.grade(spanCtx, question, &answer)
	span.SetAttributes(attribute.Float64("answer.score", answer.Score), attribute.Bool("answer.plagiarized", answer.IsPlagiarized))
	return dto.NewAnswerResponse(answer), nil
}

func (s *answerService) Get(ctx context.Context, id uuid.UUID) (dto.AnswerResponse, error) {
	answer, err := s.answer(ctx, id)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	return dto.NewAnswerResponse(answer), nil
}

func (s *answerService) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]dto.AnswerResponse, error) {
	if _, err := s.question(ctx, questionID); err != nil {
		return nil, err
	}
	answers, err := s.answers.ListByQuestion(ctx, questionID)
	if err != nil {
		return nil, err
	}
	return dto.NewAnswerResponseSlice(answers), nil
}

func (s *answerService) Update(ctx context.Context, id uuid.UUID, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AnswerResponse{}, err
	}
	answer, err := s.answer(ctx, id)
	if err != nil {
		return dto.AnswerResponse{}, err
	}

	if payload.Content != nil {
		if utf8.RuneCountInString(*payload.Content) > maxAnswerContentLength {
			return dto.AnswerResponse{}, ErrAnswerTooLong
		}
		answer.Content = *payload.Content
	}
	if payload.Language != nil {
		answer.Language = strings.ToLower(strings.TrimSpace(*payload.Language))
	}
	if payload.Score != nil || payload.Feedback != nil {
		score, feedback := answer.Score, answer.Feedback
		if payload.Score != nil {
			score = *payload.Score
		}
		if payload.Feedback != nil {
			feedback = *payload.Feedback
		}
		answer.ApplyGrade(answer.MaxScore > 0 && score >= answer.MaxScore, score, answer.MaxScore, feedback)
	}
	if payload.IsActive != nil {
		answer.IsActive = *payload.IsActive
	}

	if err := s.answers.Update(ctx, &answer); err != nil {
		return dto.AnswerResponse{}, err
	}
	return dto.NewAnswerResponse(answer), nil
}

func (s *answerService) Regrade(ctx context.Context, id uuid.UUID) (dto.AnswerResponse, error) {
	answer, err := s.answer(ctx, id)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	question, err := s.question(ctx, answer.QuestionID)
	if err != nil {
		return dto.AnswerResponse{}, err
	}
	s.grade(ctx, question, &answer)
	return dto.NewAnswerResponse(answer), nil
}

func (s *answerService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.answers.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnswerNotFound
		}
		return err
	}
	return nil
}

func (s *answerService) HardDelete(ctx context.Context, id uuid.UUID) error {
	answer, err := s.answer(ctx, id)
	if err != nil {
		return err
	}
	if err := s.answers.Delete(ctx, id); err != nil {
		return err
	}
	if s.media != nil {
		for _, key := range answer.MediaFileList() {
			if err := s.media.Delete(ctx, key); err != nil {
				s.logger.Warn().Err(err).Str("answer_id", id.String()).Str("key", key).Msg("failed to delete answer media")
			}
		}
	}
	return nil
}

// grade runs the orchestrator and persists the grading columns. An AI failure without a
// compiler fallback is recorded on the answer instead of failing the request.
func (s *answerService) grade(ctx context.Context, question models.Question, answer *models.Answer) {
	outcome, err := s.grader.Grade(ctx, question, *answer)
	if err != nil {
		s.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Msg("ai scoring failed")
		answer.ApplyGrade(false, 0, question.Points, feedbackAIScoringDown)
	} else {
		maxScore := outcome.MaxScore
		if maxScore <= 0 {
			maxScore = question.Points
		}
		answer.ApplyGrade(outcome.Correct, outcome.Score, maxScore, outcome.Feedback)
	}

	if err := s.answers.SaveGrade(ctx, answer); err != nil {
		s.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Msg("failed to persist grade")
	}
}

func (s *answerService) checkText(ctx context.Context, answer *models.Answer) {
	if s.plagiarism == nil {
		return
	}
	result := s.plagiarism.CheckText(ctx, answer.Content, answer.QuestionID, answer.ID)
	if !result.IsPlagiarized && !result.Failed() {
		return
	}
	s.recordPlagiarism(ctx, answer, result, nil)
}

// attachMedia stores the uploaded files, keeps the first code file as the program to run and
// checks every image for copying. The highest scoring image result is kept and the image
// features are averaged into the answer's embedding.
func (s *answerService) attachMedia(ctx context.Context, answer *models.Answer, files []dto.UploadedFile) {
	keys := make([]string, 0, len(files))
	var (
		best     *plagiarism.Result
		features [][]float32
	)

	for _, file := range files {
		if s.media != nil {
			key := storage.ObjectKey("answers/"+answer.ID.String(), file.Name)
			contentType := file.ContentType
			if contentType == "" {
				contentType = mimetype.Detect(file.Data).String()
			}
			if _, err := s.media.Put(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType); err != nil {
				s.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Str("file", file.Name).Msg("failed to store answer media")
			} else {
				keys = append(keys, key)
			}
		}

		switch {
		case s.languages.IsCodeFile(file.Name):
			if answer.CodeSource == "" {
				answer.CodeSource = string(file.Data)
				if answer.Language == "" {
					answer.Language, _ = s.languages.LanguageForFile(file.Name)
				}
			}
		case isImage(file.Data) && s.plagiarism != nil:
			result := s.plagiarism.CheckImage(ctx, file.Data, answer.QuestionID, answer.ID)
			if len(result.Features) > 0 {
				features = append(features, result.Features)
			}
			if best == nil || result.MaxSimilarity > best.MaxSimilarity {
				current := result
				best = &current
			}
		}
	}

	answer.SetMediaFiles(keys)
	if err := s.answers.Update(ctx, answer); err != nil {
		s.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Msg("failed to persist answer media")
	}

	if len(features) == 0 && best == nil {
		return
	}
	var combined []float32
	if len(features) > 0 {
		averaged, err := similarity.Average(features...)
		if err != nil {
			s.logger.Warn().Err(err).Str("answer_id", answer.ID.String()).Msg("image features could not be combined")
			averaged = features[0]
		}
		combined = averaged
	}
	if best == nil {
		best = &plagiarism.Result{Details: plagiarism.Details{Type: plagiarism.ModalityImage, Matches: []plagiarism.Match{}}}
	}
	s.recordPlagiarism(ctx, answer, *best, combined)
}

func (s *answerService) recordPlagiarism(ctx context.Context, answer *models.Answer, result plagiarism.Result, features []float32) {
	details, err := json.Marshal(result.Details)
	if err != nil {
		details = []byte("{}")
	}

	answer.PlagiarismScore = result.MaxSimilarity
	answer.IsPlagiarized = result.IsPlagiarized
	answer.PlagiarismDetails = datatypes.JSON(details)
	update := repository.PlagiarismUpdate{
		Score:   result.MaxSimilarity,
		Flagged: result.IsPlagiarized,
		Details: answer.PlagiarismDetails,
	}
	if len(features) > 0 {
		answer.SetImageEmbedding(features, time.Now())
		update.ImageEmbeddings = answer.ImageEmbeddings
	}

	if err := s.answers.SavePlagiarism(ctx, answer.ID, update); err != nil {
		s.logger.Error().Err(err).Str("answer_id", answer.ID.String()).Msg("failed to persist plagiarism result")
	}

	if !result.IsPlagiarized {
		return
	}
	s.logger.Warn().
		Str("answer_id", answer.ID.String()).
		Str("type", string(result.Details.Type)).
		Float64("similarity", result.MaxSimilarity).
		Msg("plagiarism detected")
	if s.alerts != nil {
		s.alerts.Publish(ctx, dto.PlagiarismAlert{
			AnswerID:      answer.ID,
			QuestionID:    answer.QuestionID,
			SubmittedBy:   answer.SubmittedBy,
			Type:          string(result.Details.Type),
			MaxSimilarity: result.MaxSimilarity,
			MatchCount:    len(result.Matches),
			DetectedAt:    time.Now().UTC(),
		})
	}
}

func (s *answerService) question(ctx context.Context, id uuid.UUID) (models.Question, error) {
	return findQuestion(ctx, s.questions, id)
}

func (s *answerService) answer(ctx context.Context, id uuid.UUID) (models.Answer, error) {
	answer, err := s.answers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Answer{}, ErrAnswerNotFound
		}
		return models.Answer{}, err
	}
	return answer, nil
}

func compatible(questionType models.QuestionType, answerType models.AnswerType) error {
	if questionType == models.QuestionTypeCoding {
		if answerType.IsCodeSubmission() {
			return nil
		}
	} else if expected := questionType.ExpectedAnswerType(); expected == "" || expected == answerType {
		return nil
	}
	return fmt.Errorf("%w: %s questions require %s answers", ErrAnswerTypeMismatch,
		questionType.DisplayName(), questionType.ExpectedAnswerType().DisplayName())
}

func isImage(data []byte) bool {
	return strings.HasPrefix(mimetype.Detect(data).String(), "image/")
}
