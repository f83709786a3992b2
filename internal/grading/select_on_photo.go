package grading

import (
	"math"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

type selectOnPhotoConfig struct {
	GridRows       int           `json:"gridRows"`
	GridCols       int           `json:"gridCols"`
	SelectedBlocks []interface{} `json:"selectedBlocks"`
}

type selectOnPhotoGrader struct{}

func (selectOnPhotoGrader) questionType() models.QuestionType { return models.QuestionTypeSelectOnPhoto }

func (selectOnPhotoGrader) grade(in Input) (Result, error) {
	var cfg selectOnPhotoConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	expected := dedupe(blockIDs(cfg.SelectedBlocks))
	if len(expected) == 0 {
		return Result{}, configFailure("selectedBlocks missing", "")
	}

	value, ok := decodeJSON(in.Content)
	if !ok {
		return Result{}, answerFailure("Invalid answer format")
	}
	list, _ := value.([]interface{})
	picked := dedupe(blockIDs(list))

	wanted := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		wanted[id] = struct{}{}
	}
	chosen := make(map[string]struct{}, len(picked))
	var correct, incorrect, missing []string
	for _, id := range picked {
		chosen[id] = struct{}{}
		if _, ok := wanted[id]; ok {
			correct = append(correct, id)
			continue
		}
		incorrect = append(incorrect, id)
	}
	for _, id := range expected {
		if _, ok := chosen[id]; !ok {
			missing = append(missing, id)
		}
	}

	if len(missing) == 0 && len(incorrect) == 0 {
		return Result{Correct: true, Score: in.Points, MaxScore: in.Points, Feedback: "Perfect! All blocks selected correctly."}, nil
	}
	if len(correct) == 0 {
		return Result{MaxScore: in.Points, Feedback: "No correct blocks selected."}, nil
	}

	ratio := math.Max(0, float64(len(correct)-len(incorrect))/float64(len(expected)))
	score := ratio * in.Points
	return Result{
		Score:    score,
		MaxScore: in.Points,
		Feedback: partialFeedback(len(correct), len(expected), score, in.Points, correct, incorrect, missing),
	}, nil
}

func blockIDs(values []interface{}) []string {
	ids := make([]string, 0, len(values))
	for _, v := range values {
		if text, ok := scalarText(v); ok && strings.TrimSpace(text) != "" {
			ids = append(ids, strings.TrimSpace(text))
		}
	}
	return ids
}
