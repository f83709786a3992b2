package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/models"
)

// QuestionQuery filters and pages the question bank.
type QuestionQuery struct {
	Type          models.QuestionType
	Module        string
	Unit          string
	Search        string
	IncludeHidden bool
	Offset        int
	Limit         int
}

// QuestionRepository persists questions.
type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Question, error)
	List(ctx context.Context, query QuestionQuery) ([]models.Question, int64, error)
	Update(ctx context.Context, question *models.Question) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(db *gorm.DB) QuestionRepository {
	return &questionRepository{db: db}
}

type questionRepository struct {
	db *gorm.DB
}

func (r *questionRepository) Create(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Create(question).Error
}

func (r *questionRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Question, error) {
	var question models.Question
	if err := r.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return models.Question{}, err
	}
	return question, nil
}

func (r *questionRepository) List(ctx context.Context, query QuestionQuery) ([]models.Question, int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Question{})

	if !query.IncludeHidden {
		db = db.Where("is_active = ?", true)
	}
	if query.Type != "" {
		db = db.Where("type = ?", query.Type)
	}
	if query.Module != "" {
		db = db.Where("LOWER(module) = ?", strings.ToLower(query.Module))
	}
	if query.Unit != "" {
		db = db.Where("LOWER(unit) = ?", strings.ToLower(query.Unit))
	}
	if query.Search != "" {
		pattern := fmt.Sprintf("%%%s%%", strings.ToLower(query.Search))
		db = db.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}

	var questions []models.Question
	if err := db.Order("created_at DESC").Find(&questions).Error; err != nil {
		return nil, 0, err
	}
	return questions, total, nil
}

func (r *questionRepository) Update(ctx context.Context, question *models.Question) error {
	return r.db.WithContext(ctx).Save(question).Error
}

func (r *questionRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Question{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
