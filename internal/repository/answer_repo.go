package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/models"
)

// PlagiarismUpdate is the outcome of a plagiarism check written back onto an answer.
type PlagiarismUpdate struct {
	Score           float64
	Flagged         bool
	Details         datatypes.JSON
	ImageEmbeddings datatypes.JSON
}

// AnswerRepository persists answers and their grading and plagiarism outcomes.
type AnswerRepository interface {
	Create(ctx context.Context, answer *models.Answer) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Answer, error)
	Update(ctx context.Context, answer *models.Answer) error
	SaveGrade(ctx context.Context, answer *models.Answer) error
	SavePlagiarism(ctx context.Context, id uuid.UUID, update PlagiarismUpdate) error
	ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error)
	ListActiveByQuestion(ctx context.Context, questionID, excludeID uuid.UUID) ([]models.Answer, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// NewAnswerRepository constructs an answer repository.
func NewAnswerRepository(db *gorm.DB) AnswerRepository {
	return &answerRepository{db: db}
}

type answerRepository struct {
	db *gorm.DB
}

func (r *answerRepository) Create(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Create(answer).Error
}

func (r *answerRepository) GetByID(ctx context.Context, id uuid.UUID) (models.Answer, error) {
	var answer models.Answer
	if err := r.db.WithContext(ctx).First(&answer, "id = ?", id).Error; err != nil {
		return models.Answer{}, err
	}
	return answer, nil
}

func (r *answerRepository) Update(ctx context.Context, answer *models.Answer) error {
	return r.db.WithContext(ctx).Save(answer).Error
}

// SaveGrade writes only the grading columns so a concurrent plagiarism update is not overwritten.
func (r *answerRepository) SaveGrade(ctx context.Context, answer *models.Answer) error {
	return r.updateColumns(ctx, answer.ID, map[string]interface{}{
		"is_correct": answer.IsCorrect,
		"score":      answer.Score,
		"max_score":  answer.MaxScore,
		"feedback":   answer.Feedback,
	})
}

func (r *answerRepository) SavePlagiarism(ctx context.Context, id uuid.UUID, update PlagiarismUpdate) error {
	columns := map[string]interface{}{
		"plagiarism_score":   update.Score,
		"is_plagiarized":     update.Flagged,
		"plagiarism_details": update.Details,
	}
	if len(update.ImageEmbeddings) > 0 {
		columns["image_embeddings"] = update.ImageEmbeddings
	}
	return r.updateColumns(ctx, id, columns)
}

func (r *answerRepository) ListByQuestion(ctx context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Where("question_id = ? AND is_active = ?", questionID, true).
		Order("created_at ASC").
		Find(&answers).Error
	return answers, err
}

// ListActiveByQuestion returns the plagiarism candidates for an answer: every other active
// answer to the same question.
func (r *answerRepository) ListActiveByQuestion(ctx context.Context, questionID, excludeID uuid.UUID) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.WithContext(ctx).
		Where("question_id = ? AND is_active = ? AND id <> ?", questionID, true, excludeID).
		Order("created_at ASC").
		Find(&answers).Error
	return answers, err
}

func (r *answerRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.updateColumns(ctx, id, map[string]interface{}{"is_active": false})
}

func (r *answerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Answer{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *answerRepository) updateColumns(ctx context.Context, id uuid.UUID, columns map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Answer{}).Where("id = ?", id).Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
