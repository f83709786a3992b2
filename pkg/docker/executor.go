// Package docker runs student programs inside throwaway containers.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	containerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "qbank",
		Subsystem: "sandbox",
		Name:      "container_duration_seconds",
		Help:      "Duration of sandbox container runs",
		Buckets:   prometheus.DefBuckets,
	}, []string{"image"})

	containerTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbank",
		Subsystem: "sandbox",
		Name:      "container_timeouts_total",
		Help:      "Sandbox container runs killed at the time limit",
	}, []string{"image"})

	containerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "qbank",
		Subsystem: "sandbox",
		Name:      "container_failures_total",
		Help:      "Sandbox container runs that could not be completed",
	}, []string{"image"})
)

// Executor runs one command in a fresh container.
type Executor interface {
	Run(ctx context.Context, req ExecutionRequest) (ExecutionResult, error)
}

// ExecutionRequest is a single container invocation. Workspace is bind mounted at WorkingDir.
type ExecutionRequest struct {
	Image           string
	Cmd             []string
	Env             []string
	Timeout         time.Duration
	Workspace       string
	WorkingDir      string
	MemoryLimitMB   int64
	CPUShares       int64
	NetworkDisabled bool
	ReadOnlyFS      bool
}

// ExecutionResult is what the container produced before it exited or was killed.
type ExecutionResult struct {
	Stdout           string
	Stderr           string
	ExitCode         int
	Duration         time.Duration
	TimedOut         bool
	MemoryUsageBytes int64
}

// Config holds daemon connection settings and default limits.
type Config struct {
	Host          string
	Timeout       time.Duration
	MemoryLimitMB int64
	CPUShares     int64
	WorkingDir    string
	Logger        zerolog.Logger
}

// DockerExecutor talks to the Docker daemon.
type DockerExecutor struct {
	client *client.Client
	cfg    Config
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewDockerExecutor connects to the daemon named by cfg.Host, or the environment default.
func NewDockerExecutor(cfg Config) (*DockerExecutor, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if cfg.WorkingDir == "" {
		cfg.WorkingDir = "/workspace"
	}

	return &DockerExecutor{
		client: cli,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/questionbank-api/pkg/docker"),
		logger: cfg.Logger.With().Str("component", "docker_executor").Logger(),
	}, nil
}

// Run creates, starts and waits for a container, then collects its logs and memory usage.
// A timeout is reported through ExecutionResult.TimedOut together with an error.
func (e *DockerExecutor) Run(parent context.Context, req ExecutionRequest) (ExecutionResult, error) {
	if req.Image == "" {
		return ExecutionResult{}, errors.New("image is required")
	}

	ctx, span := e.tracer.Start(parent, "docker.run", trace.WithAttributes(
		attribute.String("docker.image", req.Image),
	))
	defer span.End()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.cfg.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	containerID, err := e.create(ctx, req)
	if err != nil {
		containerFailures.WithLabelValues(req.Image).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ExecutionResult{}, err
	}
	defer e.remove(containerID)

	start := time.Now()
	if err := e.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		containerFailures.WithLabelValues(req.Image).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ExecutionResult{}, fmt.Errorf("container start: %w", err)
	}

	result := ExecutionResult{}
	exitCode, waitErr := e.wait(ctx, containerID)
	result.ExitCode = exitCode
	result.Duration = time.Since(start)
	containerDuration.WithLabelValues(req.Image).Observe(result.Duration.Seconds())

	if waitErr != nil {
		if !errors.Is(waitErr, context.DeadlineExceeded) {
			containerFailures.WithLabelValues(req.Image).Inc()
			span.RecordError(waitErr)
			span.SetStatus(codes.Error, waitErr.Error())
			return result, fmt.Errorf("container wait: %w", waitErr)
		}
		result.TimedOut = true
		containerTimeouts.WithLabelValues(req.Image).Inc()
		e.kill(containerID)
		span.SetStatus(codes.Error, "execution timed out")
	}

	result.Stdout, result.Stderr = e.logs(parent, containerID)
	result.MemoryUsageBytes = e.memoryUsage(parent, containerID)

	if result.TimedOut {
		return result, fmt.Errorf("execution timed out after %s", timeout)
	}
	return result, nil
}

func (e *DockerExecutor) create(ctx context.Context, req ExecutionRequest) (string, error) {
	workingDir := req.WorkingDir
	if workingDir == "" {
		workingDir = e.cfg.WorkingDir
	}

	memory := req.MemoryLimitMB
	if memory == 0 {
		memory = e.cfg.MemoryLimitMB
	}
	shares := req.CPUShares
	if shares == 0 {
		shares = e.cfg.CPUShares
	}

	hostCfg := &container.HostConfig{
		Resources: container.Resources{
			Memory:    memory * 1024 * 1024,
			CPUShares: shares,
		},
		NetworkMode:    "bridge",
		ReadonlyRootfs: req.ReadOnlyFS,
	}
	if req.NetworkDisabled {
		hostCfg.NetworkMode = "none"
	}
	if req.Workspace != "" {
		hostCfg.Mounts = []mount.Mount{{
			Type:   mount.TypeBind,
			Source: req.Workspace,
			Target: workingDir,
		}}
	}

	resp, err := e.client.ContainerCreate(ctx, &container.Config{
		Image:        req.Image,
		Cmd:          req.Cmd,
		Env:          req.Env,
		WorkingDir:   workingDir,
		AttachStdout: true,
		AttachStderr: true,
	}, hostCfg, &network.NetworkingConfig{}, nil, "")
	if err != nil {
		return "", fmt.Errorf("container create: %w", err)
	}
	return resp.ID, nil
}

func (e *DockerExecutor) wait(ctx context.Context, containerID string) (int, error) {
	statusCh, errCh := e.client.ContainerWait(ctx, containerID, container.WaitConditionNextExit)
	select {
	case err := <-errCh:
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	case status := <-statusCh:
		return int(status.StatusCode), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (e *DockerExecutor) kill(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.client.ContainerKill(ctx, containerID, "KILL"); err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to kill timed out container")
	}
}

func (e *DockerExecutor) remove(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to remove container")
	}
}

func (e *DockerExecutor) logs(ctx context.Context, containerID string) (string, string) {
	reader, err := e.client.ContainerLogs(ctx, containerID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to fetch container logs")
		return "", ""
	}
	defer reader.Close()

	stdout, stderr, err := splitDockerLogs(reader)
	if err != nil {
		e.logger.Error().Err(err).Str("container_id", containerID).Msg("failed to read container logs")
	}
	return stdout, stderr
}

func (e *DockerExecutor) memoryUsage(parent context.Context, containerID string) int64 {
	ctx, cancel := context.WithTimeout(parent, 2*time.Second)
	defer cancel()
	stats, err := e.client.ContainerStatsOneShot(ctx, containerID)
	if err != nil {
		return 0
	}
	defer stats.Body.Close()

	var data types.StatsJSON
	if err := json.NewDecoder(stats.Body).Decode(&data); err != nil {
		return 0
	}
	return int64(data.MemoryStats.MaxUsage)
}

func splitDockerLogs(reader io.Reader) (string, string, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdoutBuf, &stderrBuf, reader); err != nil {
		return "", "", err
	}
	return stdoutBuf.String(), stderrBuf.String(), nil
}

// Close releases the daemon connection.
func (e *DockerExecutor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}
