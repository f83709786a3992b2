package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Answer is a student's submission to a question together with its grading and plagiarism outcome.
type Answer struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	QuestionID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"question_id"`
	Type              AnswerType     `gorm:"size:32;not null" json:"type"`
	Content           string         `gorm:"type:text" json:"content"`
	CodeSource        string         `gorm:"type:text" json:"-"`
	MediaFiles        datatypes.JSON `gorm:"type:json" json:"-"`
	Language          string         `gorm:"size:32" json:"language"`
	IsCorrect         bool           `json:"is_correct"`
	Score             float64        `json:"score"`
	MaxScore          float64        `json:"max_score"`
	Feedback          string         `gorm:"type:text" json:"feedback"`
	SubmittedBy       string         `gorm:"size:100;index" json:"submitted_by"`
	ImageEmbeddings   datatypes.JSON `gorm:"type:json" json:"-"`
	PlagiarismScore   float64        `json:"plagiarism_score"`
	IsPlagiarized     bool           `json:"is_plagiarized"`
	PlagiarismDetails datatypes.JSON `gorm:"type:json" json:"plagiarism_details"`
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ImageEmbedding is the serialized feature vector extracted from an answer's images.
type ImageEmbedding struct {
	Features    []float32 `json:"features"`
	Dimensions  int       `json:"dimensions"`
	ExtractedAt time.Time `json:"extractedAt"`
}

// BeforeCreate assigns a random identifier when none was set.
func (a *Answer) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SetMediaFiles serializes the media path list into the JSON column.
func (a *Answer) SetMediaFiles(paths []string) {
	a.MediaFiles = encodeStringList(paths)
}

// MediaFileList returns the stored media paths.
func (a Answer) MediaFileList() []string {
	return decodeStringList(a.MediaFiles)
}

// SetImageEmbedding stores the feature vector along with its extraction time.
func (a *Answer) SetImageEmbedding(features []float32, extractedAt time.Time) {
	data, err := json.Marshal(ImageEmbedding{
		Features:    features,
		Dimensions:  len(features),
		ExtractedAt: extractedAt.UTC(),
	})
	if err != nil {
		return
	}
	a.ImageEmbeddings = datatypes.JSON(data)
}

// ImageFeatures returns the stored feature vector, or nil when none was extracted.
func (a Answer) ImageFeatures() []float32 {
	if len(a.ImageEmbeddings) == 0 {
		return nil
	}
	var embedding ImageEmbedding
	if err := json.Unmarshal(a.ImageEmbeddings, &embedding); err != nil {
		return nil
	}
	return embedding.Features
}

// ApplyGrade copies a grading outcome onto the answer, keeping the score inside [0, maxScore].
func (a *Answer) ApplyGrade(correct bool, score, maxScore float64, feedback string) {
	if maxScore < 0 {
		maxScore = 0
	}
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	a.IsCorrect = correct
	a.Score = score
	a.MaxScore = maxScore
	a.Feedback = feedback
}
