package grading

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

type blank struct {
	Index          *int     `json:"index"`
	Position       *int     `json:"position"`
	CorrectAnswers []string `json:"correctAnswers"`
}

func (b blank) order() int {
	switch {
	case b.Index != nil:
		return *b.Index
	case b.Position != nil:
		return *b.Position
	default:
		return 0
	}
}

// accepted expands every configured answer on "|" into its alternatives.
func (b blank) accepted() []string {
	var out []string
	for _, answer := range b.CorrectAnswers {
		for _, alt := range strings.Split(answer, "|") {
			if trimmed := strings.TrimSpace(alt); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

type fillInBlankConfig struct {
	Sentence string  `json:"sentence"`
	Blanks   []blank `json:"blanks"`
}

type fillInBlankGrader struct{}

func (fillInBlankGrader) questionType() models.QuestionType { return models.QuestionTypeFillInBlank }

func (fillInBlankGrader) grade(in Input) (Result, error) {
	var cfg fillInBlankConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	if len(cfg.Blanks) == 0 {
		return Result{}, configFailure("blanks missing", "")
	}
	blanks := append([]blank(nil), cfg.Blanks...)
	sort.SliceStable(blanks, func(i, j int) bool { return blanks[i].order() < blanks[j].order() })

	answers := blankAnswers(in.Content, len(blanks))

	var correct, incorrect, expectations []string
	for i, b := range blanks {
		options := b.accepted()
		expected := strings.Join(options, " or ")
		expectations = append(expectations, expected)
		given := answers[i]

		if given == "" {
			incorrect = append(incorrect, fmt.Sprintf("Blank %d: (empty) - expected: %s", i+1, expected))
			continue
		}
		if containsFold(options, given) {
			correct = append(correct, fmt.Sprintf("Blank %d: %s", i+1, given))
			continue
		}
		incorrect = append(incorrect, fmt.Sprintf("Blank %d: %s - expected: %s", i+1, given, expected))
	}

	total := len(blanks)
	score := partialScore(len(correct), total, in.Points)
	switch {
	case len(correct) == total:
		return Result{Correct: true, Score: in.Points, MaxScore: in.Points, Feedback: feedbackAllCorrect}, nil
	case len(correct) > 0:
		return Result{
			Score:    score,
			MaxScore: in.Points,
			Feedback: partialFeedback(len(correct), total, score, in.Points, correct, incorrect, nil),
		}, nil
	default:
		return Result{MaxScore: in.Points, Feedback: "Incorrect. The correct answers are: " + strings.Join(expectations, ", ")}, nil
	}
}

// blankAnswers reads a JSON object keyed by blank index, a JSON array, or a comma list.
// The result always has one trimmed entry per blank.
func blankAnswers(content string, count int) []string {
	answers := make([]string, count)
	if value, ok := decodeJSON(content); ok {
		switch v := value.(type) {
		case map[string]interface{}:
			for i := 0; i < count; i++ {
				text, _ := scalarText(v[strconv.Itoa(i)])
				answers[i] = strings.TrimSpace(text)
			}
			return answers
		case []interface{}:
			for i := 0; i < count && i < len(v); i++ {
				text, _ := scalarText(v[i])
				answers[i] = strings.TrimSpace(text)
			}
			return answers
		case string:
			content = v
		case json.Number:
			content = v.String()
		}
	}
	parts := splitPositional(content)
	for i := 0; i < count && i < len(parts); i++ {
		answers[i] = parts[i]
	}
	return answers
}

func containsFold(options []string, value string) bool {
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return true
		}
	}
	return false
}
