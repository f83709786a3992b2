package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 0.8, cfg.TextThreshold)
	require.Equal(t, 0.85, cfg.ImageThreshold)
	require.Equal(t, "hashing", cfg.EmbeddingProvider)
	require.Equal(t, "none", cfg.AIProvider)
	require.Equal(t, "judge0", cfg.ExecutorBackend)
	require.Equal(t, 10*time.Second, cfg.ExecutionTimeout)
	require.Equal(t, 24*time.Hour, cfg.EmbeddingCacheTTL)
	require.Contains(t, cfg.LanguageNames(), "python")
	require.Contains(t, cfg.LanguageNames(), "sudo")
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QBANK_APP_PORT", ":9090")
	t.Setenv("QBANK_PLAGIARISM_TEXT_THRESHOLD", "0.9")
	t.Setenv("QBANK_AI_PROVIDER", "Mistral")
	t.Setenv("QBANK_AI_API_KEY", "secret")
	t.Setenv("QBANK_APP_ALLOW_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 0.9, cfg.TextThreshold)
	require.Equal(t, "mistral", cfg.AIProvider)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("QBANK_PLAGIARISM_IMAGE_THRESHOLD", "1.5")
	_, err := Load()
	require.ErrorContains(t, err, "image threshold")

	t.Setenv("QBANK_PLAGIARISM_IMAGE_THRESHOLD", "0.85")
	t.Setenv("QBANK_AI_PROVIDER", "openai")
	_, err = Load()
	require.ErrorContains(t, err, "QBANK_AI_API_KEY")

	t.Setenv("QBANK_AI_PROVIDER", "none")
	t.Setenv("QBANK_EXECUTOR_BACKEND", "lambda")
	_, err = Load()
	require.ErrorContains(t, err, "executor backend")
}

func TestLoadLanguageTableFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "qbank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
languages:
  - name: python
    judge0_id: 71
    image: python:3.12-alpine
    file_name: main.py
    run: ["python", "main.py"]
    extensions: [".py"]
  - name: go
    judge0_id: 60
    image: golang:1.22-alpine
    file_name: main.go
    run: ["go", "run", "main.go"]
    extensions: [".go"]
`), 0o600))
	t.Setenv("QBANK_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"python", "go"}, cfg.LanguageNames())
	require.Equal(t, 60, cfg.Languages[1].Judge0ID)
	require.Equal(t, []string{"go", "run", "main.go"}, cfg.Languages[1].Run)
}
