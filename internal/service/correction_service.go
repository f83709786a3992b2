package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/correction"
	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/repository"
)

// Corrector runs AI correction over stored answers.
type Corrector interface {
	Correct(ctx context.Context, answerID uuid.UUID) (models.Answer, correction.Outcome, error)
	CorrectBatch(ctx context.Context, answerIDs []uuid.UUID) []correction.BatchItem
}

// CorrectionService exposes AI correction of stored answers.
type CorrectionService interface {
	Correct(ctx context.Context, answerID uuid.UUID) (dto.CorrectionResponse, error)
	CorrectBatch(ctx context.Context, payload dto.BatchCorrectionRequest) (dto.BatchCorrectionResponse, error)
}

type correctionService struct {
	corrector Corrector
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCorrectionService builds the correction service.
func NewCorrectionService(corrector Corrector, validate *validator.Validate, logger zerolog.Logger) CorrectionService {
	return &correctionService{
		corrector: corrector,
		validator: validate,
		logger:    logger.With().Str("component", "correction_service").Logger(),
	}
}

func (s *correctionService) Correct(ctx context.Context, answerID uuid.UUID) (dto.CorrectionResponse, error) {
	answer, outcome, err := s.corrector.Correct(ctx, answerID)
	if err != nil {
		return dto.CorrectionResponse{}, err
	}

	s.logger.Info().
		Str("answer_id", answerID.String()).
		Str("state", string(outcome.State)).
		Float64("score", answer.Score).
		Msg("answer corrected")
	return dto.CorrectionResponse{
		Answer: dto.NewAnswerResponse(answer),
		State:  string(outcome.State),
		Method: outcome.Method,
	}, nil
}

func (s *correctionService) CorrectBatch(ctx context.Context, payload dto.BatchCorrectionRequest) (dto.BatchCorrectionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchCorrectionResponse{}, err
	}

	ids := make([]uuid.UUID, 0, len(payload.AnswerIDs))
	for _, raw := range payload.AnswerIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return dto.BatchCorrectionResponse{}, err
		}
		ids = append(ids, id)
	}

	response := dto.BatchCorrectionResponse{Items: make([]dto.BatchCorrectionItem, 0, len(ids))}
	for _, item := range s.corrector.CorrectBatch(ctx, ids) {
		slot := dto.BatchCorrectionItem{AnswerID: item.AnswerID, Success: item.Success, Error: item.Error}
		if item.Answer != nil {
			answer := dto.NewAnswerResponse(*item.Answer)
			slot.Answer = &answer
		}
		if item.Outcome != nil {
			slot.State = string(item.Outcome.State)
		}
		if item.Success {
			response.Succeeded++
		} else {
			response.Failed++
		}
		response.Items = append(response.Items, slot)
	}

	s.logger.Info().Int("succeeded", response.Succeeded).Int("failed", response.Failed).Msg("batch correction finished")
	return response, nil
}

type correctionStore struct {
	questions repository.QuestionRepository
	answers   repository.AnswerRepository
}

// NewCorrectionStore adapts the repositories to the orchestrator, translating missing rows
// into the service not-found errors.
func NewCorrectionStore(questions repository.QuestionRepository, answers repository.AnswerRepository) correction.Store {
	return &correctionStore{questions: questions, answers: answers}
}

func (s *correctionStore) GetAnswer(ctx context.Context, id uuid.UUID) (models.Answer, error) {
	answer, err := s.answers.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Answer{}, ErrAnswerNotFound
	}
	return answer, err
}

func (s *correctionStore) GetQuestion(ctx context.Context, id uuid.UUID) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Question{}, ErrQuestionNotFound
	}
	return question, err
}

func (s *correctionStore) SaveGrade(ctx context.Context, answer *models.Answer) error {
	return s.answers.SaveGrade(ctx, answer)
}
