// Package ai grades free-form answers with a hosted language model.
package ai

import (
	"context"
	"errors"
)

// Kind selects the grading rubric.
type Kind string

const (
	KindShortEssay Kind = "ESSAY_SHORT"
	KindLongEssay  Kind = "ESSAY_LONG"
	KindCoding     Kind = "CODING"
)

// MethodFallback marks an assessment that was not produced by a model.
const MethodFallback = "FALLBACK"

// FallbackFeedback is attached to assessments the model could not produce.
const FallbackFeedback = "AI correction unavailable. Please review manually."

// ErrEmptyResponse is returned when the provider answers without content.
var ErrEmptyResponse = errors.New("ai provider returned no content")

// Request carries everything the prompt needs.
type Request struct {
	Kind                Kind
	QuestionTitle       string
	QuestionContent     string
	Answer              string
	Language            string
	CompilationFeedback string
	MaxScore            float64
}

// Assessment is the model's verdict. Available is false for fallback assessments.
type Assessment struct {
	Score      float64  `json:"score"`
	MaxScore   float64  `json:"maxScore"`
	Correct    bool     `json:"isCorrect"`
	Feedback   string   `json:"feedback"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Available  bool     `json:"available"`
	Method     string   `json:"method"`
}

// Grader scores a single answer.
type Grader interface {
	Grade(ctx context.Context, req Request) (Assessment, error)
}

// Fallback is the assessment used when no model verdict could be obtained.
func Fallback(maxScore float64) Assessment {
	return Assessment{
		MaxScore:   maxScore,
		Feedback:   FallbackFeedback,
		Strengths:  []string{},
		Weaknesses: []string{},
		Method:     MethodFallback,
	}
}

// UnavailableGrader answers every request with the fallback assessment. It is used when no
// provider is configured.
type UnavailableGrader struct{}

// Grade implements Grader.
func (UnavailableGrader) Grade(_ context.Context, req Request) (Assessment, error) {
	return Fallback(req.MaxScore), nil
}
