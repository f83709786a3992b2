package grading

import (
	"fmt"
	"strings"
)

const (
	feedbackAllCorrect = "Perfect! All answers are correct."
	feedbackCorrect    = "Correct answer!"
)

func partialScore(correct, total int, points float64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) * points / float64(total)
}

// partialFeedback renders the summary shared by the multi-part graders.
func partialFeedback(correctCount, total int, score, maxScore float64, correct, incorrect, missing []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You got %d out of %d correct. Score: %.1f/%.1f\n", correctCount, total, score, maxScore)
	if len(correct) > 0 {
		b.WriteString("Correct: " + strings.Join(correct, ", ") + "\n")
	}
	if len(incorrect) > 0 {
		b.WriteString("Incorrect: " + strings.Join(incorrect, ", ") + "\n")
	}
	if len(missing) > 0 {
		b.WriteString("Missing: " + strings.Join(missing, ", "))
	}
	return strings.TrimSpace(b.String())
}
