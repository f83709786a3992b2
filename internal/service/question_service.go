package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/repository"
)

// ErrQuestionNotFound indicates the question does not exist.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages the question bank.
type QuestionService interface {
	Create(ctx context.Context, payload dto.QuestionRequest, createdBy string) (dto.QuestionResponse, error)
	Get(ctx context.Context, id uuid.UUID, includeConfiguration bool) (dto.QuestionResponse, error)
	List(ctx context.Context, filter dto.QuestionFilter) (dto.QuestionListResponse, error)
	Update(ctx context.Context, id uuid.UUID, payload dto.QuestionRequest) (dto.QuestionResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type questionService struct {
	repo      repository.QuestionRepository
	schemas   *questionschema.Validator
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionService builds the question service.
func NewQuestionService(repo repository.QuestionRepository, schemas *questionschema.Validator, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		repo:      repo,
		schemas:   schemas,
		validator: validate,
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionRequest, createdBy string) (dto.QuestionResponse, error) {
	question := models.Question{IsActive: true, CreatedBy: strings.TrimSpace(createdBy)}
	if err := s.apply(&question, payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	if err := s.repo.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().
		Str("question_id", question.ID.String()).
		Str("question_type", string(question.Type)).
		Msg("question created")
	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) Get(ctx context.Context, id uuid.UUID, includeConfiguration bool) (dto.QuestionResponse, error) {
	question, err := s.find(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question, includeConfiguration), nil
}

func (s *questionService) List(ctx context.Context, filter dto.QuestionFilter) (dto.QuestionListResponse, error) {
	page, pageSize := dto.NormalisePaging(filter.Page, filter.PageSize)

	query := repository.QuestionQuery{
		Module: strings.TrimSpace(filter.Module),
		Unit:   strings.TrimSpace(filter.Unit),
		Search: strings.TrimSpace(filter.Search),
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	}
	if filter.Type != "" {
		questionType, err := models.ParseQuestionType(filter.Type)
		if err != nil {
			return dto.QuestionListResponse{}, err
		}
		query.Type = questionType
	}

	questions, total, err := s.repo.List(ctx, query)
	if err != nil {
		return dto.QuestionListResponse{}, err
	}

	items := make([]dto.QuestionResponse, 0, len(questions))
	for _, question := range questions {
		items = append(items, dto.NewQuestionResponse(question, false))
	}
	return dto.QuestionListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

func (s *questionService) Update(ctx context.Context, id uuid.UUID, payload dto.QuestionRequest) (dto.QuestionResponse, error) {
	question, err := s.find(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.apply(&question, payload); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.repo.Update(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}
	return nil
}

func (s *questionService) find(ctx context.Context, id uuid.UUID) (models.Question, error) {
	return findQuestion(ctx, s.repo, id)
}

func findQuestion(ctx context.Context, repo repository.QuestionRepository, id uuid.UUID) (models.Question, error) {
	question, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	return question, nil
}

// apply validates payload and copies it onto question. Configuration is checked against the
// schema of the question type before anything is written.
func (s *questionService) apply(question *models.Question, payload dto.QuestionRequest) error {
	if err := s.validator.Struct(payload); err != nil {
		return err
	}

	questionType, err := models.ParseQuestionType(payload.Type)
	if err != nil {
		return fmt.Errorf("%w: %s", err, payload.Type)
	}

	config := []byte(payload.ConfigurationData)
	if len(strings.TrimSpace(string(config))) == 0 || string(config) == "null" {
		if questionType.RequiresPresetAnswers() || questionType == models.QuestionTypeCoding {
			config = nil
		} else {
			config = []byte("{}")
		}
	}
	if s.schemas != nil {
		if err := s.schemas.Validate(questionType, config); err != nil {
			return err
		}
	} else if !json.Valid(config) {
		return fmt.Errorf("%w: configuration data must be valid JSON", questionschema.ErrInvalidConfiguration)
	}

	question.Title = strings.TrimSpace(payload.Title)
	question.Type = questionType
	question.Module = strings.TrimSpace(payload.Module)
	question.Unit = strings.TrimSpace(payload.Unit)
	question.Content = payload.Content
	question.SetMediaFiles(payload.MediaFiles)
	question.DifficultyLevel = payload.DifficultyLevel
	if question.DifficultyLevel == 0 {
		question.DifficultyLevel = 1
	}
	question.Points = payload.Points
	question.TimeLimitMinutes = payload.TimeLimitMinutes
	question.ConfigurationData = datatypes.JSON(config)
	if payload.IsActive != nil {
		question.IsActive = *payload.IsActive
	}
	return nil
}
