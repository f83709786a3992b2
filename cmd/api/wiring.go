package main

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/config"
	"github.com/noah-isme/questionbank-api/pkg/ai"
	"github.com/noah-isme/questionbank-api/pkg/docker"
	"github.com/noah-isme/questionbank-api/pkg/embedding"
	"github.com/noah-isme/questionbank-api/pkg/executor"
	"github.com/noah-isme/questionbank-api/pkg/storage"
)

// buildTextEmbedder selects the embedding provider and wraps remote providers in the Redis cache.
func buildTextEmbedder(ctx context.Context, cfg config.Config, cache redis.UniversalClient, log zerolog.Logger) (embedding.TextEmbedder, io.Closer, error) {
	var (
		embedder embedding.TextEmbedder
		closer   io.Closer
	)

	switch cfg.EmbeddingProvider {
	case "openai":
		openaiEmbedder, err := embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:  cfg.EmbeddingAPIKey,
			BaseURL: cfg.EmbeddingBaseURL,
			Model:   cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, nil, err
		}
		embedder = openaiEmbedder
	case "gemini":
		geminiEmbedder, err := embedding.NewGeminiEmbedder(ctx, embedding.GeminiConfig{
			APIKey: cfg.EmbeddingAPIKey,
			Model:  cfg.EmbeddingModel,
		})
		if err != nil {
			return nil, nil, err
		}
		embedder, closer = geminiEmbedder, geminiEmbedder
	default:
		return embedding.NewHashingEmbedder(cfg.EmbeddingDimensions), nil, nil
	}

	if cache != nil && cfg.EmbeddingCacheTTL > 0 {
		embedder = embedding.NewCachedTextEmbedder(embedder, cache, cfg.EmbeddingCacheTTL, log)
	}
	log.Info().Str("provider", embedding.NameOf(embedder, cfg.EmbeddingProvider)).Msg("text embedder ready")
	return embedder, closer, nil
}

func buildAIGrader(ctx context.Context, cfg config.Config, log zerolog.Logger) (ai.Grader, io.Closer, error) {
	switch cfg.AIProvider {
	case "openai", "mistral":
		grader, err := ai.NewChatGrader(ai.ChatConfig{
			Provider:          cfg.AIProvider,
			APIKey:            cfg.AIAPIKey,
			BaseURL:           cfg.AIBaseURL,
			Model:             cfg.AIModel,
			MaxTokens:         cfg.AIMaxTokens,
			Temperature:       cfg.AITemperature,
			RequestsPerSecond: cfg.AIRequestsPerSecond,
			Burst:             cfg.AIBurst,
			Logger:            log,
		})
		return grader, nil, err
	case "gemini":
		grader, err := ai.NewGeminiGrader(ctx, ai.GeminiConfig{
			APIKey:            cfg.AIAPIKey,
			Model:             cfg.AIModel,
			Temperature:       cfg.AITemperature,
			RequestsPerSecond: cfg.AIRequestsPerSecond,
			Burst:             cfg.AIBurst,
			Logger:            log,
		})
		if err != nil {
			return nil, nil, err
		}
		return grader, grader, nil
	default:
		log.Warn().Msg("no ai provider configured, essays and code fall back to manual review")
		return ai.UnavailableGrader{}, nil, nil
	}
}

func buildExecutor(cfg config.Config, languages *executor.LanguageTable, log zerolog.Logger) (executor.CodeExecutor, io.Closer, error) {
	switch cfg.ExecutorBackend {
	case "judge0":
		return executor.NewJudge0Executor(executor.Judge0Config{
			BaseURL: cfg.Judge0URL,
			APIKey:  cfg.Judge0APIKey,
			APIHost: cfg.Judge0APIHost,
			Timeout: cfg.ExecutionTimeout,
			Logger:  log,
		}, languages), nil, nil
	case "docker":
		containers, err := docker.NewDockerExecutor(docker.Config{
			Host:          cfg.DockerHost,
			Timeout:       cfg.ExecutionTimeout,
			MemoryLimitMB: cfg.CodeRunMemoryMB,
			CPUShares:     cfg.CodeRunCPUShares,
			Logger:        log,
		})
		if err != nil {
			return nil, nil, err
		}
		return docker.NewCodeRunner(containers, languages, docker.RunnerConfig{
			Timeout:       cfg.ExecutionTimeout,
			MemoryLimitMB: cfg.CodeRunMemoryMB,
			CPUShares:     cfg.CodeRunCPUShares,
			WorkspaceRoot: cfg.CodeRunWorkspace,
			Logger:        log,
		}), containers, nil
	default:
		return nil, nil, nil
	}
}

func buildMediaStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (storage.MediaStore, error) {
	switch cfg.StorageBackend {
	case "local":
		return storage.NewLocalStore(cfg.LocalStorageRoot, cfg.LocalStorageBaseURL)
	case "cloudinary":
		return storage.NewCloudinaryStore(storage.CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, log)
	case "minio":
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		}, log)
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
