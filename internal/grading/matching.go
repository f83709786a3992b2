package grading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

const maxMatchingColumns = 4

type matchingPair struct {
	PairNumber int    `json:"pairNumber"`
	Column1    string `json:"column_1"`
	Column2    string `json:"column_2"`
	Column3    string `json:"column_3"`
	Column4    string `json:"column_4"`
}

func (p matchingPair) columns() [maxMatchingColumns]string {
	return [maxMatchingColumns]string{p.Column1, p.Column2, p.Column3, p.Column4}
}

type matchingConfig struct {
	Pairs       []matchingPair `json:"pairs"`
	ColumnCount int            `json:"columnCount"`
}

type matchingGrader struct{}

func (matchingGrader) questionType() models.QuestionType { return models.QuestionTypeMatching }

func (matchingGrader) grade(in Input) (Result, error) {
	var cfg matchingConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	if len(cfg.Pairs) == 0 {
		return Result{}, configFailure("pairs missing", "")
	}

	value, ok := decodeJSON(in.Content)
	studentPairs, isObject := value.(map[string]interface{})
	if !ok || !isObject {
		return Result{}, answerFailure("Invalid answer format. Expected JSON format.")
	}

	var correct, incorrect []string
	for i, pair := range cfg.Pairs {
		number := pair.PairNumber
		if number == 0 {
			number = i + 1
		}
		expected := pair.columns()
		used := usedColumns(expected, cfg.ColumnCount)

		entry, found := studentPairs[strconv.Itoa(number)].(map[string]interface{})
		if !found {
			incorrect = append(incorrect, fmt.Sprintf("Pair %d: (no answer)", number))
			continue
		}

		var got [maxMatchingColumns]string
		matches := true
		for c := 0; c < used; c++ {
			got[c], _ = scalarText(entry[fmt.Sprintf("column_%d", c+1)])
			got[c] = strings.TrimSpace(got[c])
			if expected[c] != "" && !strings.EqualFold(got[c], strings.TrimSpace(expected[c])) {
				matches = false
			}
		}

		if matches {
			correct = append(correct, fmt.Sprintf("Pair %d: %s", number, strings.Join(expected[:used], " - ")))
			continue
		}
		incorrect = append(incorrect, fmt.Sprintf("Pair %d: Expected '%s', Got '%s'",
			number, strings.Join(expected[:used], "-"), strings.Join(got[:used], "-")))
	}

	total := len(cfg.Pairs)
	score := partialScore(len(correct), total, in.Points)
	return Result{
		Correct:  len(correct) == total,
		Score:    score,
		MaxScore: in.Points,
		Feedback: partialFeedback(len(correct), total, score, in.Points, correct, incorrect, nil),
	}, nil
}

// usedColumns is the declared column count, widened to the last populated column.
func usedColumns(columns [maxMatchingColumns]string, declared int) int {
	used := 2
	if declared > used && declared <= maxMatchingColumns {
		used = declared
	}
	for c := maxMatchingColumns - 1; c >= used; c-- {
		if columns[c] != "" {
			return c + 1
		}
	}
	return used
}
