package correction

import (
	"strings"

	"github.com/noah-isme/questionbank-api/internal/grading"
	"github.com/noah-isme/questionbank-api/pkg/ai"
	"github.com/noah-isme/questionbank-api/pkg/executor"
)

// State tracks how far the AI/compiler path got for one answer.
//
//	NotStarted -> CompilerOnly   compiler result kept, AI missing or unusable
//	NotStarted -> AIMerged       AI verdict applied, compiler feedback prepended when present
//	NotStarted -> Failed         nothing usable: no code, or no compiler result and no AI verdict
//
// Deterministic grading bypasses the machine and reports StateGraded.
type State string

const (
	StateNotStarted   State = "NOT_STARTED"
	StateCompilerOnly State = "COMPILER_ONLY"
	StateAIMerged     State = "AI_MERGED"
	StateFailed       State = "FAILED"
	StateGraded       State = "GRADED"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s != StateNotStarted
}

const (
	feedbackNoCode           = "No code submitted. Please upload a code file or enter code in the text area."
	feedbackCompileFailed    = "Code compilation failed: "
	feedbackAIUnavailable    = "AI evaluation temporarily unavailable. Score based on compilation results."
	feedbackAISeparator      = "\n\nAI Evaluation: "
	compilerPartialCreditPct = 0.6
)

// Outcome is the single result shape persisted for every terminal state.
type Outcome struct {
	State       State            `json:"state"`
	Correct     bool             `json:"correct"`
	Score       float64          `json:"score"`
	MaxScore    float64          `json:"max_score"`
	Feedback    string           `json:"feedback"`
	Method      string           `json:"method,omitempty"`
	Compilation *executor.Result `json:"compilation,omitempty"`
	Assessment  *ai.Assessment   `json:"assessment,omitempty"`
}

func fromGrading(result grading.Result) Outcome {
	return Outcome{
		State:    StateGraded,
		Correct:  result.Correct,
		Score:    result.Score,
		MaxScore: result.MaxScore,
		Feedback: result.Feedback,
		Method:   "DETERMINISTIC",
	}
}

// merger accumulates the compiler result and the AI verdict and resolves them into one Outcome.
type merger struct {
	state    State
	maxScore float64
	feedback string
	compiler *Outcome
	run      *executor.Result
}

func newMerger(maxScore float64) *merger {
	return &merger{state: StateNotStarted, maxScore: maxScore}
}

// compiled records a successful compile and its provisional score.
func (m *merger) compiled(run executor.Result, expected string) {
	score := m.maxScore * compilerPartialCreditPct
	correct := false
	if exp := strings.TrimSpace(expected); exp != "" && exp == strings.TrimSpace(run.Stdout) {
		score = m.maxScore
		correct = true
	}
	m.feedback = compilerFeedback(run)
	m.run = &run
	m.compiler = &Outcome{
		State:       StateCompilerOnly,
		Correct:     correct,
		Score:       score,
		MaxScore:    m.maxScore,
		Feedback:    m.feedback,
		Method:      run.Method,
		Compilation: m.run,
	}
}

// executorFailed notes a transport failure; the AI still runs without a compiler result.
func (m *merger) executorFailed(err error) {
	m.feedback = feedbackCompileFailed + err.Error() + ". "
}

// rejected is the terminal state for programs that did not compile or run.
func (m *merger) rejected(run executor.Result) Outcome {
	m.state = StateCompilerOnly
	return Outcome{
		State:       m.state,
		MaxScore:    m.maxScore,
		Feedback:    feedbackCompileFailed + run.Feedback,
		Method:      run.Method,
		Compilation: &run,
	}
}

func (m *merger) failed(feedback string) Outcome {
	m.state = StateFailed
	return Outcome{State: m.state, MaxScore: m.maxScore, Feedback: feedback}
}

// aiErrored resolves the machine when the grader returned an error. Without a compiler result
// the error is surfaced to the caller.
func (m *merger) aiErrored(err error) (Outcome, error) {
	if m.compiler == nil {
		m.state = StateFailed
		return Outcome{State: m.state, MaxScore: m.maxScore, Feedback: m.feedback}, err
	}
	return m.compilerOnly(), nil
}

// assessed resolves the machine with the grader's verdict.
func (m *merger) assessed(assessment ai.Assessment) Outcome {
	if unavailable(assessment) && m.compiler != nil {
		return m.compilerOnly()
	}

	feedback := assessment.Feedback
	if m.feedback != "" {
		feedback = m.feedback + feedbackAISeparator + assessment.Feedback
	}
	maxScore := assessment.MaxScore
	if maxScore <= 0 {
		maxScore = m.maxScore
	}

	m.state = StateAIMerged
	if unavailable(assessment) {
		m.state = StateFailed
	}
	return Outcome{
		State:       m.state,
		Correct:     assessment.Correct,
		Score:       assessment.Score,
		MaxScore:    maxScore,
		Feedback:    feedback,
		Method:      assessment.Method,
		Compilation: m.run,
		Assessment:  &assessment,
	}
}

func (m *merger) compilerOnly() Outcome {
	m.state = StateCompilerOnly
	outcome := *m.compiler
	outcome.Feedback = m.compiler.Feedback + "\n\n" + feedbackAIUnavailable
	return outcome
}

// unavailable recognises fallback verdicts, including ones produced by older graders that only
// signal through their feedback text.
func unavailable(assessment ai.Assessment) bool {
	if assessment.Method == ai.MethodFallback {
		return true
	}
	feedback := strings.ToLower(assessment.Feedback)
	return strings.Contains(feedback, "unavailable") || (assessment.Score == 0 && strings.Contains(feedback, "review manually"))
}
