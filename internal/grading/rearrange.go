package grading

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

type rearrangeConfig struct {
	CorrectOrder []string `json:"correctOrder"`
}

type rearrangeGrader struct{}

func (rearrangeGrader) questionType() models.QuestionType { return models.QuestionTypeRearrange }

func (rearrangeGrader) grade(in Input) (Result, error) {
	var cfg rearrangeConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	if len(cfg.CorrectOrder) == 0 {
		return Result{}, configFailure("correctOrder missing", "")
	}

	given := arrangedItems(in.Content)
	var correct, incorrect []string
	for i, want := range cfg.CorrectOrder {
		want = strings.TrimSpace(want)
		got := ""
		if i < len(given) {
			got = given[i]
		}
		if strings.EqualFold(want, got) {
			correct = append(correct, fmt.Sprintf("Position %d: '%s'", i+1, want))
			continue
		}
		incorrect = append(incorrect, fmt.Sprintf("Position %d: Expected '%s', Got '%s'", i+1, want, got))
	}

	total := len(cfg.CorrectOrder)
	score := partialScore(len(correct), total, in.Points)
	return Result{
		Correct:  len(correct) == total,
		Score:    score,
		MaxScore: in.Points,
		Feedback: partialFeedback(len(correct), total, score, in.Points, correct, incorrect, nil),
	}, nil
}

type placedItem struct {
	item     string
	position float64
}

// arrangedItems reads either a JSON array of strings, a JSON array of {item, position}
// objects ordered by position, or a comma list.
func arrangedItems(content string) []string {
	value, ok := decodeJSON(content)
	list, isList := value.([]interface{})
	if !ok || !isList {
		return splitList(content)
	}

	placed := make([]placedItem, 0, len(list))
	for i, raw := range list {
		entry := placedItem{position: float64(i)}
		switch v := raw.(type) {
		case map[string]interface{}:
			entry.item, _ = scalarText(v["item"])
			if pos, ok := scalarText(v["position"]); ok {
				if parsed, err := strconv.ParseFloat(pos, 64); err == nil {
					entry.position = parsed
				}
			}
		default:
			entry.item, _ = scalarText(v)
		}
		entry.item = strings.TrimSpace(entry.item)
		placed = append(placed, entry)
	}
	sort.SliceStable(placed, func(i, j int) bool { return placed[i].position < placed[j].position })

	items := make([]string, 0, len(placed))
	for _, p := range placed {
		items = append(items, p.item)
	}
	return items
}
