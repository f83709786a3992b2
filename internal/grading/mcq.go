package grading

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

type mcqOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

type mcqConfig struct {
	Options map[string]mcqOption `json:"options"`
}

type mcqGrader struct{}

func (mcqGrader) questionType() models.QuestionType { return models.QuestionTypeMCQ }

func (mcqGrader) grade(in Input) (Result, error) {
	var cfg mcqConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	if len(cfg.Options) == 0 {
		return Result{}, configFailure("options missing", "")
	}

	ids := make([]string, 0, len(cfg.Options))
	for id := range cfg.Options {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	correctIDs := make(map[string]struct{})
	var correctTexts []string
	for _, id := range ids {
		if cfg.Options[id].Correct {
			correctIDs[id] = struct{}{}
			correctTexts = append(correctTexts, cfg.Options[id].Text)
		}
	}
	if len(correctIDs) == 0 {
		return Result{}, configFailure("no correct option configured", "")
	}

	selections := dedupe(resolveSelections(cfg, ids, in.Content))
	var hit, wrong []string
	for _, sel := range selections {
		if _, ok := correctIDs[sel]; ok {
			hit = append(hit, sel)
			continue
		}
		wrong = append(wrong, sel)
	}

	if len(correctIDs) == 1 {
		if len(selections) == 1 && len(hit) == 1 {
			return Result{Correct: true, Score: in.Points, MaxScore: in.Points, Feedback: feedbackCorrect}, nil
		}
		return Result{MaxScore: in.Points, Feedback: "Incorrect answer. The correct answer is: " + correctTexts[0]}, nil
	}

	score := partialScore(len(hit), len(correctIDs), in.Points)
	if len(hit) == len(correctIDs) && len(wrong) == 0 {
		return Result{Correct: true, Score: in.Points, MaxScore: in.Points, Feedback: feedbackAllCorrect}, nil
	}
	if len(hit) == 0 {
		return Result{Score: score, MaxScore: in.Points, Feedback: "Incorrect. The correct answers are: " + strings.Join(correctTexts, ", ")}, nil
	}

	selected := make(map[string]struct{}, len(hit))
	for _, id := range hit {
		selected[id] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, isCorrect := correctIDs[id]; !isCorrect {
			continue
		}
		if _, ok := selected[id]; !ok {
			missing = append(missing, cfg.Options[id].Text)
		}
	}

	return Result{
		Score:    score,
		MaxScore: in.Points,
		Feedback: partialFeedback(len(hit), len(correctIDs), score, in.Points, optionTexts(cfg, hit), optionTexts(cfg, wrong), missing),
	}, nil
}

// resolveSelections turns the student answer into option ids. Items matching neither an id nor
// an option text are kept verbatim so they count as wrong selections.
func resolveSelections(cfg mcqConfig, ids []string, content string) []string {
	var raw []string
	if value, ok := decodeJSON(content); ok {
		switch v := value.(type) {
		case []interface{}:
			for _, item := range v {
				if text, ok := scalarText(item); ok && strings.TrimSpace(text) != "" {
					raw = append(raw, strings.TrimSpace(text))
				}
			}
		default:
			if text, ok := scalarText(v); ok && strings.TrimSpace(text) != "" {
				raw = append(raw, strings.TrimSpace(text))
			}
		}
	} else {
		raw = splitList(content)
	}

	resolved := make([]string, 0, len(raw))
	for _, item := range raw {
		resolved = append(resolved, resolveOption(cfg, ids, item))
	}
	return resolved
}

func resolveOption(cfg mcqConfig, ids []string, item string) string {
	if _, ok := cfg.Options[item]; ok {
		return item
	}
	for _, id := range ids {
		if strings.EqualFold(strings.TrimSpace(cfg.Options[id].Text), item) {
			return id
		}
	}
	return item
}

func optionTexts(cfg mcqConfig, ids []string) []string {
	texts := make([]string, 0, len(ids))
	for _, id := range ids {
		if option, ok := cfg.Options[id]; ok {
			texts = append(texts, option.Text)
			continue
		}
		texts = append(texts, fmt.Sprintf("%q", id))
	}
	return texts
}
