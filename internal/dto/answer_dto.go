package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/questionbank-api/internal/models"
)

// AnswerRequest is the JSON payload for submitting an answer.
type AnswerRequest struct {
	QuestionID  string `json:"question_id" form:"question_id" validate:"required,uuid"`
	Type        string `json:"type" form:"type" validate:"required"`
	Content     string `json:"content" form:"content"`
	Language    string `json:"language" form:"language" validate:"omitempty,max=32"`
	SubmittedBy string `json:"submitted_by" form:"submitted_by" validate:"omitempty,max=100"`
}

// UploadedFile is a multipart file already read into memory.
type UploadedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// AnswerUpdateRequest carries instructor overrides.
type AnswerUpdateRequest struct {
	Content  *string  `json:"content"`
	Language *string  `json:"language" validate:"omitempty,max=32"`
	Score    *float64 `json:"score" validate:"omitempty,gte=0"`
	Feedback *string  `json:"feedback"`
	IsActive *bool    `json:"is_active"`
}

// AnswerResponse represents an answer with its grading and plagiarism outcome.
type AnswerResponse struct {
	ID                uuid.UUID       `json:"id"`
	QuestionID        uuid.UUID       `json:"question_id"`
	Type              string          `json:"type"`
	Content           string          `json:"content"`
	Language          string          `json:"language,omitempty"`
	MediaFiles        []string        `json:"media_files"`
	IsCorrect         bool            `json:"is_correct"`
	Score             float64         `json:"score"`
	MaxScore          float64         `json:"max_score"`
	Feedback          string          `json:"feedback"`
	SubmittedBy       string          `json:"submitted_by,omitempty"`
	PlagiarismScore   float64         `json:"plagiarism_score"`
	IsPlagiarized     bool            `json:"is_plagiarized"`
	PlagiarismDetails json.RawMessage `json:"plagiarism_details,omitempty"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewAnswerResponse converts an answer model into a DTO.
func NewAnswerResponse(answer models.Answer) AnswerResponse {
	response := AnswerResponse{
		ID:              answer.ID,
		QuestionID:      answer.QuestionID,
		Type:            string(answer.Type),
		Content:         answer.Content,
		Language:        answer.Language,
		MediaFiles:      answer.MediaFileList(),
		IsCorrect:       answer.IsCorrect,
		Score:           answer.Score,
		MaxScore:        answer.MaxScore,
		Feedback:        answer.Feedback,
		SubmittedBy:     answer.SubmittedBy,
		PlagiarismScore: answer.PlagiarismScore,
		IsPlagiarized:   answer.IsPlagiarized,
		IsActive:        answer.IsActive,
		CreatedAt:       answer.CreatedAt,
		UpdatedAt:       answer.UpdatedAt,
	}
	if response.MediaFiles == nil {
		response.MediaFiles = []string{}
	}
	if len(answer.PlagiarismDetails) > 0 {
		response.PlagiarismDetails = json.RawMessage(answer.PlagiarismDetails)
	}
	return response
}

// NewAnswerResponseSlice converts a list of answers.
func NewAnswerResponseSlice(answers []models.Answer) []AnswerResponse {
	responses := make([]AnswerResponse, 0, len(answers))
	for _, answer := range answers {
		responses = append(responses, NewAnswerResponse(answer))
	}
	return responses
}
