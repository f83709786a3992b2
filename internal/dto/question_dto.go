package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/questionbank-api/internal/models"
)

// QuestionRequest is the payload for creating or replacing a question.
type QuestionRequest struct {
	Title             string          `json:"title" validate:"required,max=255"`
	Type              string          `json:"type" validate:"required"`
	Module            string          `json:"module" validate:"omitempty,max=100"`
	Unit              string          `json:"unit" validate:"omitempty,max=100"`
	Content           string          `json:"content"`
	MediaFiles        []string        `json:"media_files"`
	DifficultyLevel   int             `json:"difficulty_level" validate:"omitempty,min=1,max=5"`
	Points            float64         `json:"points" validate:"gt=0"`
	TimeLimitMinutes  int             `json:"time_limit_minutes" validate:"omitempty,min=0"`
	ConfigurationData json.RawMessage `json:"configuration_data"`
	IsActive          *bool           `json:"is_active"`
}

// QuestionFilter defines the list query parameters.
type QuestionFilter struct {
	Type     string `query:"type"`
	Module   string `query:"module"`
	Unit     string `query:"unit"`
	Search   string `query:"search"`
	Page     int    `query:"page"`
	PageSize int    `query:"page_size"`
}

// QuestionResponse represents a question to API consumers.
type QuestionResponse struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Type              string          `json:"type"`
	TypeName          string          `json:"type_name"`
	Module            string          `json:"module"`
	Unit              string          `json:"unit"`
	Content           string          `json:"content"`
	MediaFiles        []string        `json:"media_files"`
	DifficultyLevel   int             `json:"difficulty_level"`
	Points            float64         `json:"points"`
	TimeLimitMinutes  int             `json:"time_limit_minutes"`
	ConfigurationData json.RawMessage `json:"configuration_data,omitempty"`
	IsActive          bool            `json:"is_active"`
	CreatedBy         string          `json:"created_by,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// QuestionListResponse wraps a page of questions.
type QuestionListResponse struct {
	Items      []QuestionResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewQuestionResponse builds a response DTO. The answer key is included only when asked for.
func NewQuestionResponse(question models.Question, includeConfiguration bool) QuestionResponse {
	response := QuestionResponse{
		ID:               question.ID,
		Title:            question.Title,
		Type:             string(question.Type),
		TypeName:         question.Type.DisplayName(),
		Module:           question.Module,
		Unit:             question.Unit,
		Content:          question.Content,
		MediaFiles:       question.MediaFileList(),
		DifficultyLevel:  question.DifficultyLevel,
		Points:           question.Points,
		TimeLimitMinutes: question.TimeLimitMinutes,
		IsActive:         question.IsActive,
		CreatedBy:        question.CreatedBy,
		CreatedAt:        question.CreatedAt,
		UpdatedAt:        question.UpdatedAt,
	}
	if response.MediaFiles == nil {
		response.MediaFiles = []string{}
	}
	if includeConfiguration && len(question.ConfigurationData) > 0 {
		response.ConfigurationData = json.RawMessage(question.ConfigurationData)
	}
	return response
}
