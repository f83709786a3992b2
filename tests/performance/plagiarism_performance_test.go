package performance_test

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/database"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/plagiarism"
	"github.com/noah-isme/questionbank-api/internal/repository"
	"github.com/noah-isme/questionbank-api/pkg/embedding"
)

func setupPlagiarismDataset(t *testing.T, answers int) (*plagiarism.Detector, uuid.UUID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:plagiarism_perf?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	question := models.Question{
		Title:             "Describe the water cycle",
		Type:              models.QuestionTypeEssayLong,
		Points:            10,
		ConfigurationData: datatypes.JSON(`{}`),
		IsActive:          true,
	}
	require.NoError(t, db.Create(&question).Error)

	for i := 0; i < answers; i++ {
		answer := models.Answer{
			QuestionID:  question.ID,
			Type:        models.AnswerTypeLongAnswer,
			Content:     fmt.Sprintf("Answer %d: water evaporates, condenses into clouds and falls as precipitation number %d.", i, i*7),
			SubmittedBy: fmt.Sprintf("student-%d", i),
			IsActive:    true,
		}
		require.NoError(t, db.Create(&answer).Error)
	}

	detector := plagiarism.NewDetector(
		repository.NewAnswerRepository(db),
		embedding.NewHashingEmbedder(384),
		embedding.NewImageFeatureExtractor(),
		plagiarism.Config{},
		zerolog.Nop(),
	)
	return detector, question.ID
}

func TestTextPlagiarismCheckP95Below250ms(t *testing.T) {
	detector, questionID := setupPlagiarismDataset(t, 200)

	runs := 30
	durations := make([]time.Duration, 0, runs)
	for i := 0; i < runs; i++ {
		start := time.Now()
		result := detector.CheckText(context.Background(), "Water evaporates from the sea, condenses into clouds and returns as rain.", questionID, uuid.New())
		durations = append(durations, time.Since(start))
		require.False(t, result.Failed())
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	require.LessOrEqual(t, percentile(durations, 0.95), 250*time.Millisecond)
}
