package grading

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

type trueFalseConfig struct {
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
}

type trueFalseGrader struct{}

func (trueFalseGrader) questionType() models.QuestionType { return models.QuestionTypeTrueFalse }

func (trueFalseGrader) grade(in Input) (Result, error) {
	var cfg trueFalseConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	expected, err := trueFalseKey(cfg.CorrectAnswer)
	if err != nil {
		return Result{}, err
	}

	given := splitPositional(in.Content)
	if len(expected) == 1 {
		if len(given) == 1 && strings.EqualFold(given[0], expected[0]) {
			return Result{Correct: true, Score: in.Points, MaxScore: in.Points, Feedback: feedbackCorrect}, nil
		}
		return Result{MaxScore: in.Points, Feedback: "Incorrect answer. The correct answer is: " + expected[0]}, nil
	}

	var mismatches []string
	for i, want := range expected {
		got := ""
		if i < len(given) {
			got = given[i]
		}
		if !strings.EqualFold(got, want) {
			mismatches = append(mismatches, fmt.Sprintf("  Statement %d: Expected '%s', Got '%s'", i+1, want, got))
		}
	}
	if len(given) > len(expected) {
		for i := len(expected); i < len(given); i++ {
			mismatches = append(mismatches, fmt.Sprintf("  Statement %d: Expected '', Got '%s'", i+1, given[i]))
		}
	}

	if len(mismatches) == 0 {
		return Result{Correct: true, Score: in.Points, MaxScore: in.Points, Feedback: "Perfect! All statements are correct."}, nil
	}
	return Result{
		MaxScore: in.Points,
		Feedback: "Incorrect. All statements must be correct for full points.\nIncorrect statements:\n" + strings.Join(mismatches, "\n"),
	}, nil
}

// trueFalseKey accepts a boolean or a comma separated list of true/false values.
func trueFalseKey(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, configFailure("correctAnswer missing", "")
	}
	var flag bool
	if err := json.Unmarshal(raw, &flag); err == nil {
		return []string{strconv.FormatBool(flag)}, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, configFailure("correctAnswer must be a boolean or string", "")
	}
	values := splitList(text)
	if len(values) == 0 {
		return nil, configFailure("correctAnswer is empty", "")
	}
	return values, nil
}
