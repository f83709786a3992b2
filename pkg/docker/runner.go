package docker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/pkg/executor"
)

const stdinFileName = "stdin.txt"

// RunnerConfig groups the sandbox limits applied to every student program.
type RunnerConfig struct {
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	WorkspaceRoot string
	Logger        zerolog.Logger
}

// CodeRunner executes submissions in throwaway containers: an optional compile step followed
// by the program with stdin redirected from a workspace file.
type CodeRunner struct {
	containers Executor
	languages  *executor.LanguageTable
	cfg        RunnerConfig
	logger     zerolog.Logger
}

// NewCodeRunner wires the runner on top of a container executor.
func NewCodeRunner(containers Executor, languages *executor.LanguageTable, cfg RunnerConfig) *CodeRunner {
	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = os.TempDir()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &CodeRunner{
		containers: containers,
		languages:  languages,
		cfg:        cfg,
		logger:     cfg.Logger.With().Str("component", "container_code_runner").Logger(),
	}
}

// Run implements executor.CodeExecutor.
func (r *CodeRunner) Run(ctx context.Context, submission executor.Submission) (executor.Result, error) {
	language, ok := r.languages.Lookup(submission.Language)
	if !ok || language.Image == "" || len(language.Run) == 0 {
		return executor.UnsupportedLanguageResult(submission.Language), nil
	}

	workspace, err := os.MkdirTemp(r.cfg.WorkspaceRoot, "answer-")
	if err != nil {
		return executor.Result{}, fmt.Errorf("create workspace: %w", err)
	}
	defer os.RemoveAll(workspace)

	if err := os.WriteFile(filepath.Join(workspace, language.FileName), []byte(submission.Source), 0o600); err != nil {
		return executor.Result{}, fmt.Errorf("write source: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workspace, stdinFileName), []byte(submission.Stdin), 0o600); err != nil {
		return executor.Result{}, fmt.Errorf("write stdin: %w", err)
	}

	if len(language.Compile) > 0 {
		compiled, err := r.containers.Run(ctx, r.request(language, workspace, language.Compile))
		if err != nil && !compiled.TimedOut {
			return executor.Result{}, fmt.Errorf("compile step: %w", err)
		}
		if compiled.TimedOut || compiled.ExitCode != 0 {
			output := strings.TrimSpace(compiled.Stderr + "\n" + compiled.Stdout)
			if compiled.TimedOut {
				output = "compilation timed out"
			}
			return r.finish(language.Name, executor.Result{
				Status:            executor.StatusCompileError,
				StatusCode:        compiled.ExitCode,
				StatusDescription: "Compilation Error",
				CompileOutput:     output,
			}, submission.ExpectedOutput), nil
		}
	}

	runCommand := []string{"sh", "-c", strings.Join(language.Run, " ") + " < " + stdinFileName}
	ran, err := r.containers.Run(ctx, r.request(language, workspace, runCommand))
	if err != nil && !ran.TimedOut {
		if errors.Is(err, context.Canceled) {
			return executor.Result{}, err
		}
		return executor.Result{}, fmt.Errorf("run step: %w", err)
	}

	result := executor.Result{
		Stdout:        ran.Stdout,
		Stderr:        ran.Stderr,
		StatusCode:    ran.ExitCode,
		ExecutionTime: fmt.Sprintf("%.3f", ran.Duration.Seconds()),
	}
	if ran.MemoryUsageBytes > 0 {
		result.MemoryUsage = fmt.Sprintf("%d", ran.MemoryUsageBytes/1024)
	}

	switch {
	case ran.TimedOut:
		result.Status = executor.StatusRuntimeError
		result.StatusDescription = "Time Limit Exceeded"
		if result.Stderr == "" {
			result.Stderr = fmt.Sprintf("time limit of %s exceeded", r.cfg.Timeout)
		}
	case ran.ExitCode != 0:
		result.Status = executor.StatusRuntimeError
		result.StatusDescription = fmt.Sprintf("Runtime Error (exit code %d)", ran.ExitCode)
	case submission.ExpectedOutput == "" || strings.TrimSpace(ran.Stdout) == strings.TrimSpace(submission.ExpectedOutput):
		result.Status = executor.StatusAccepted
		result.StatusDescription = "Accepted"
	default:
		result.Status = executor.StatusWrongAnswer
		result.StatusDescription = "Wrong Answer"
	}

	return r.finish(language.Name, result, submission.ExpectedOutput), nil
}

func (r *CodeRunner) request(language executor.Language, workspace string, cmd []string) ExecutionRequest {
	return ExecutionRequest{
		Image:           language.Image,
		Cmd:             cmd,
		Timeout:         r.cfg.Timeout,
		Workspace:       workspace,
		WorkingDir:      "/workspace",
		MemoryLimitMB:   r.cfg.MemoryLimitMB,
		CPUShares:       r.cfg.CPUShares,
		NetworkDisabled: true,
	}
}

func (r *CodeRunner) finish(language string, result executor.Result, expected string) executor.Result {
	result.Method = "Container"
	result = executor.Describe(result, expected)
	r.logger.Debug().Str("language", language).Str("status", string(result.Status)).Msg("container run finished")
	return result
}
