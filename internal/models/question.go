package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Question is a bank entry whose configuration carries the type specific answer key.
type Question struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Type              QuestionType   `gorm:"size:32;not null;index" json:"type"`
	Module            string         `gorm:"size:100;index" json:"module"`
	Unit              string         `gorm:"size:100;index" json:"unit"`
	Content           string         `gorm:"type:text" json:"content"`
	MediaFiles        datatypes.JSON `gorm:"type:json" json:"-"`
	DifficultyLevel   int            `gorm:"default:1" json:"difficulty_level"`
	Points            float64        `gorm:"not null" json:"points"`
	TimeLimitMinutes  int            `json:"time_limit_minutes"`
	ConfigurationData datatypes.JSON `gorm:"type:json" json:"configuration_data"`
	IsActive          bool           `gorm:"default:true;index" json:"is_active"`
	CreatedBy         string         `gorm:"size:100" json:"created_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// BeforeCreate assigns a random identifier when none was set.
func (q *Question) BeforeCreate(*gorm.DB) error {
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	return nil
}

// SetMediaFiles serializes the media path list into the JSON column.
func (q *Question) SetMediaFiles(paths []string) {
	q.MediaFiles = encodeStringList(paths)
}

// MediaFileList returns the stored media paths.
func (q Question) MediaFileList() []string {
	return decodeStringList(q.MediaFiles)
}

func encodeStringList(values []string) datatypes.JSON {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}

func decodeStringList(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil
	}
	return values
}
