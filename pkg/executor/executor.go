// Package executor runs student programs against a test case.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrUnsupportedLanguage is reported when a language has no runtime in the table.
var ErrUnsupportedLanguage = errors.New("unsupported language")

var (
	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qbank",
		Subsystem: "executor",
		Name:      "run_duration_seconds",
		Help:      "Duration of code executions",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend", "language"})

	runOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbank",
		Subsystem: "executor",
		Name:      "run_outcomes_total",
		Help:      "Code executions by resulting status",
	}, []string{"backend", "status"})
)

// Status classifies the outcome of a run.
type Status string

const (
	StatusAccepted     Status = "accepted"
	StatusWrongAnswer  Status = "wrong-answer"
	StatusRuntimeError Status = "runtime-error"
	StatusCompileError Status = "compile-error"
	StatusOther        Status = "other"
)

// Submission is the program and test case to run.
type Submission struct {
	Source         string
	Language       string
	Stdin          string
	ExpectedOutput string
}

// Result describes a finished run. Succeeded is true when the program compiled and ran to
// completion, whether or not its output matched.
type Result struct {
	Succeeded         bool   `json:"succeeded"`
	Stdout            string `json:"stdout"`
	Stderr            string `json:"stderr"`
	CompileOutput     string `json:"compile_output"`
	Status            Status `json:"status"`
	StatusCode        int    `json:"status_code"`
	StatusDescription string `json:"status_description"`
	ExecutionTime     string `json:"execution_time,omitempty"`
	MemoryUsage       string `json:"memory_usage,omitempty"`
	Feedback          string `json:"feedback"`
	Method            string `json:"method"`
}

// CodeExecutor runs a submission. Errors are reserved for transport failures; programs that
// fail to compile or crash produce a Result.
type CodeExecutor interface {
	Run(ctx context.Context, submission Submission) (Result, error)
}

// UnsupportedLanguageResult is returned for languages missing from the table.
func UnsupportedLanguageResult(language string) Result {
	return Result{
		Status:   StatusOther,
		Feedback: fmt.Sprintf("Language '%s' is not supported for compilation", language),
		Method:   "Unsupported",
	}
}

// Describe fills Succeeded and Feedback from the status.
func Describe(result Result, expected string) Result {
	switch result.Status {
	case StatusAccepted:
		result.Succeeded = true
		result.Feedback = "Code compiled and executed successfully! Output: " + result.Stdout
	case StatusWrongAnswer:
		result.Succeeded = true
		result.Feedback = fmt.Sprintf("Code executed successfully but output doesn't match expected. Got: '%s', Expected: '%s'",
			strings.TrimSpace(result.Stdout), expected)
	case StatusRuntimeError:
		result.Feedback = "Runtime error: " + result.Stderr
	case StatusCompileError:
		result.Feedback = "Compilation error: " + result.CompileOutput
	default:
		result.Feedback = "Execution failed with status: " + result.StatusDescription
	}
	return result
}
