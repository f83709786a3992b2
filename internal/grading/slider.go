package grading

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/questionbank-api/internal/models"
)

const (
	defaultSliderMin  = 0.0
	defaultSliderMax  = 100.0
	defaultSliderStep = 1.0
)

type sliderConfig struct {
	MinValue     *float64 `json:"minValue"`
	MaxValue     *float64 `json:"maxValue"`
	Step         *float64 `json:"step"`
	CorrectValue *float64 `json:"correctValue"`
	Unit         string   `json:"unit"`
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

type sliderGrader struct{}

func (sliderGrader) questionType() models.QuestionType { return models.QuestionTypeSlider }

func (sliderGrader) grade(in Input) (Result, error) {
	var cfg sliderConfig
	if err := decodeConfig(in.Config, &cfg); err != nil {
		return Result{}, err
	}
	if cfg.CorrectValue == nil {
		return Result{}, configFailure("correctValue missing", "No correct answer configured for this slider question.")
	}

	minValue := valueOr(cfg.MinValue, defaultSliderMin)
	maxValue := valueOr(cfg.MaxValue, defaultSliderMax)
	step := valueOr(cfg.Step, defaultSliderStep)
	correctValue := *cfg.CorrectValue
	unit := cfg.Unit

	given, err := strconv.ParseFloat(strings.TrimSpace(in.Content), 64)
	if err != nil || math.IsNaN(given) || math.IsInf(given, 0) {
		return Result{}, answerFailure("Invalid number format. Please provide a numeric value.")
	}

	if given < minValue || given > maxValue {
		return Result{
			MaxScore: in.Points,
			Feedback: fmt.Sprintf("Your answer %.2f%s is outside the valid range (%.2f - %.2f%s).", given, unit, minValue, maxValue, unit),
		}, nil
	}

	tolerance := sliderTolerance(correctValue, step, maxValue-minValue)
	diff := math.Abs(given - correctValue)
	correct := diff <= tolerance

	var score float64
	if tolerance > 0 {
		score = math.Max(0, (2*tolerance-diff)/(2*tolerance)) * in.Points
	}

	if correct {
		return Result{
			Correct:  true,
			Score:    score,
			MaxScore: in.Points,
			Feedback: fmt.Sprintf("Correct! Your answer: %.2f%s, Correct answer: %.2f%s. Score: %.1f/%.1f",
				given, unit, correctValue, unit, score, in.Points),
		}, nil
	}
	return Result{
		Score:    score,
		MaxScore: in.Points,
		Feedback: fmt.Sprintf("Your answer: %.2f%s, Correct answer: %.2f%s (tolerance: ±%.2f%s). Score: %.1f/%.1f",
			given, unit, correctValue, unit, tolerance, unit, score, in.Points),
	}, nil
}

// sliderTolerance is the largest of 5% of the correct value, one step, and 2% of the range.
// A negative correct value contributes a negative term, leaving step or range to decide.
func sliderTolerance(correctValue, step, span float64) float64 {
	return math.Max(math.Max(correctValue*0.05, step), span*0.02)
}
