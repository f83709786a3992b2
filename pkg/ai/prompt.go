package ai

import (
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const promptTemplate = "You are a high school %s evaluating a %s.\n\n" +
	"Question: %s\n" +
	"Question Content: %s\n" +
	"%s: %s\n" +
	"%s\n" +
	"Max Score: %s\n\n" +
	"Evaluate the answer and respond with a JSON object containing:\n" +
	"- score: number between 0 and the max score\n" +
	"- maxScore: the max score\n" +
	"- isCorrect: true when the score is at least 70%% of the max score\n" +
	"- feedback: constructive feedback for the student\n" +
	"- strengths: array of strengths\n" +
	"- weaknesses: array of areas to improve\n\n" +
	"Consider: %s. Provide encouraging feedback suitable for high school students."

var considerations = map[Kind]string{
	KindShortEssay: "accuracy, completeness, clarity, and relevance",
	KindLongEssay:  "depth of analysis, argument structure, evidence usage, writing quality, and comprehensive coverage",
	KindCoding:     "code correctness, efficiency, readability, best practices, adherence to requirements, and compilation results",
}

var taskNames = map[Kind]string{
	KindShortEssay: "short essay answer",
	KindLongEssay:  "long essay answer",
	KindCoding:     "coding solution",
}

// BuildPrompt renders the grading prompt for req.
func BuildPrompt(req Request) string {
	role, label, extra := "teacher", "Student Answer", ""
	if req.Kind == KindCoding {
		role, label = "programming teacher", "Student Code"
		extra = codingContext(req)
	}

	consider, ok := considerations[req.Kind]
	if !ok {
		consider = considerations[KindShortEssay]
	}
	task, ok := taskNames[req.Kind]
	if !ok {
		task = "student answer"
	}

	return fmt.Sprintf(promptTemplate,
		role, task,
		req.QuestionTitle,
		req.QuestionContent,
		label, req.Answer,
		extra,
		strconv.FormatFloat(req.MaxScore, 'f', -1, 64),
		consider,
	)
}

func codingContext(req Request) string {
	language := req.Language
	if language == "" {
		language = "python"
	}
	builder := strings.Builder{}
	builder.WriteString("Language: ")
	builder.WriteString(language)

	switch {
	case strings.Contains(req.CompilationFeedback, "Code Compilation Results:"):
		builder.WriteString("\n\nCompilation Results: ")
		builder.WriteString(req.CompilationFeedback)
	case strings.Contains(req.CompilationFeedback, "Code compilation failed:"):
		builder.WriteString("\n\nCompilation Status: ")
		builder.WriteString(req.CompilationFeedback)
	}
	return builder.String()
}

// cleanResponse strips markdown fences and anything outside the outermost JSON object.
func cleanResponse(content string) string {
	cleaned := strings.TrimSpace(content)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}
	return cleaned
}

type assessmentPayload struct {
	Score      json.Number `json:"score"`
	MaxScore   json.Number `json:"maxScore"`
	IsCorrect  *bool       `json:"isCorrect"`
	Feedback   string      `json:"feedback"`
	Strengths  []string    `json:"strengths"`
	Weaknesses []string    `json:"weaknesses"`
}

// parseAssessment turns the raw model reply into an Assessment bounded by maxScore.
func parseAssessment(content string, maxScore float64, method string, sanitizer *bluemonday.Policy) (Assessment, error) {
	var payload assessmentPayload
	decoder := json.NewDecoder(strings.NewReader(cleanResponse(content)))
	decoder.UseNumber()
	if err := decoder.Decode(&payload); err != nil {
		return Assessment{}, fmt.Errorf("parse assessment json: %w", err)
	}

	score, err := payload.Score.Float64()
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return Assessment{}, fmt.Errorf("parse assessment score %q", payload.Score.String())
	}

	if maxScore <= 0 {
		if reported, err := payload.MaxScore.Float64(); err == nil && reported > 0 {
			maxScore = reported
		}
	}
	score = math.Max(0, math.Min(score, maxScore))

	correct := maxScore > 0 && score >= 0.7*maxScore
	if payload.IsCorrect != nil {
		correct = *payload.IsCorrect
	}

	return Assessment{
		Score:      score,
		MaxScore:   maxScore,
		Correct:    correct,
		Feedback:   sanitizeText(sanitizer, payload.Feedback),
		Strengths:  sanitizeList(sanitizer, payload.Strengths),
		Weaknesses: sanitizeList(sanitizer, payload.Weaknesses),
		Available:  true,
		Method:     method,
	}, nil
}

func sanitizeList(sanitizer *bluemonday.Policy, values []string) []string {
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		if v := sanitizeText(sanitizer, value); v != "" {
			cleaned = append(cleaned, v)
		}
	}
	return cleaned
}

// sanitizeText drops markup from model output. Entities escaped by the policy are restored so
// plain punctuation survives.
func sanitizeText(sanitizer *bluemonday.Policy, value string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(value)))
}
