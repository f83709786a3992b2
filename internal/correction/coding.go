package correction

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/noah-isme/questionbank-api/pkg/executor"
)

// testCase is the stdin and expected stdout used to run a coding answer.
type testCase struct {
	Input  string
	Output string
}

type codingConfig struct {
	Language  string          `json:"language"`
	TestCases json.RawMessage `json:"testCases"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
}

type rawTestCase struct {
	Input          json.RawMessage `json:"input"`
	Output         json.RawMessage `json:"output"`
	ExpectedOutput json.RawMessage `json:"expectedOutput"`
}

func parseCodingConfig(raw []byte) codingConfig {
	var cfg codingConfig
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &cfg)
	}
	return cfg
}

// firstTestCase returns the first configured test case. testCases may be an array or a JSON
// encoded string holding one; top level input/output is used otherwise.
func (c codingConfig) firstTestCase() testCase {
	cases := c.TestCases
	var encoded string
	if json.Unmarshal(cases, &encoded) == nil {
		cases = json.RawMessage(encoded)
	}

	var list []rawTestCase
	if len(bytes.TrimSpace(cases)) > 0 && json.Unmarshal(cases, &list) == nil && len(list) > 0 {
		first := list[0]
		output := first.Output
		if len(output) == 0 || string(output) == "null" {
			output = first.ExpectedOutput
		}
		return testCase{Input: scalar(first.Input), Output: scalar(output)}
	}
	return testCase{Input: scalar(c.Input), Output: scalar(c.Output)}
}

// resolveLanguage prefers the answer's language, then the configured one when it can run,
// then the default.
func resolveLanguage(answerLanguage, configured, fallback string, languages *executor.LanguageTable) string {
	if lang := strings.TrimSpace(answerLanguage); lang != "" {
		return strings.ToLower(lang)
	}
	if lang := strings.TrimSpace(configured); lang != "" && languages != nil {
		if language, ok := languages.Lookup(lang); ok && language.Executable() {
			return language.Name
		}
	}
	return fallback
}

func compilerFeedback(run executor.Result) string {
	builder := strings.Builder{}
	builder.WriteString("Code Compilation Results: ")
	builder.WriteString(run.Feedback)
	builder.WriteString(" Method: ")
	builder.WriteString(run.Method)
	if out := strings.TrimSpace(run.Stdout); out != "" {
		builder.WriteString(" Output: ")
		builder.WriteString(out)
	}
	if run.ExecutionTime != "" {
		builder.WriteString(" Execution Time: ")
		builder.WriteString(run.ExecutionTime)
	}
	if run.MemoryUsage != "" {
		builder.WriteString(" Memory Usage: ")
		builder.WriteString(run.MemoryUsage)
	}
	if errs := strings.TrimSpace(run.Stderr); errs != "" {
		builder.WriteString(" Errors: ")
		builder.WriteString(errs)
	}
	return builder.String()
}

func scalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	return string(raw)
}
