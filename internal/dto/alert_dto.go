package dto

import (
	"time"

	"github.com/google/uuid"
)

// PlagiarismAlert is published whenever an answer is flagged.
type PlagiarismAlert struct {
	AnswerID      uuid.UUID `json:"answer_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	SubmittedBy   string    `json:"submitted_by,omitempty"`
	Type          string    `json:"type"`
	MaxSimilarity float64   `json:"max_similarity"`
	MatchCount    int       `json:"match_count"`
	DetectedAt    time.Time `json:"detected_at"`
}
