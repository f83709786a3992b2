package grading

import (
	"fmt"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

type puzzleConfig struct {
	CorrectAnswer []string `json:"correctAnswer"`
}

type puzzleGrader struct{}

func (puzzleGrader) questionType() models.QuestionType { return models.QuestionTypePuzzle }

func (puzzleGrader) grade(in Input) (Result, error) {
	var cfg puzzleConfig
	if len(in.Config) > 0 {
		if err := decodeConfig(in.Config, &cfg); err != nil {
			return Result{}, err
		}
	}
	if len(cfg.CorrectAnswer) == 0 {
		return Result{}, configFailure("correctAnswer missing", "No correct puzzle configuration found.")
	}

	pieces := splitPositional(in.Content)
	if len(pieces) != len(cfg.CorrectAnswer) {
		return Result{
			MaxScore: in.Points,
			Feedback: fmt.Sprintf("Incorrect number of pieces. Expected %d, got %d.", len(cfg.CorrectAnswer), len(pieces)),
		}, nil
	}

	var correct, incorrect []string
	for i, want := range cfg.CorrectAnswer {
		want = strings.TrimSpace(want)
		if want == pieces[i] {
			correct = append(correct, fmt.Sprintf("Position %d: %s", i+1, want))
			continue
		}
		incorrect = append(incorrect, fmt.Sprintf("Position %d: Expected %s, got %s", i+1, want, pieces[i]))
	}

	total := len(cfg.CorrectAnswer)
	score := partialScore(len(correct), total, in.Points)
	return Result{
		Correct:  len(correct) == total,
		Score:    score,
		MaxScore: in.Points,
		Feedback: partialFeedback(len(correct), total, score, in.Points, correct, incorrect, nil),
	}, nil
}
