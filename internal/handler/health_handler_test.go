package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionbank-api/internal/config"
	"github.com/noah-isme/questionbank-api/internal/handler"
)

func TestHealthCheck_ReportsDependencies(t *testing.T) {
	cfg := config.Config{AppName: "Question Bank API", AppEnv: "test"}

	app := fiber.New()
	app.Get("/health", handler.HealthCheck(cfg, map[string]handler.DependencyCheck{
		"database": func(context.Context) error { return nil },
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "ok", body.Data.Status)
	require.Equal(t, "ok", body.Data.Dependencies["database"])
	require.WithinDuration(t, time.Now().UTC(), body.Data.Timestamp, 2*time.Second)
}

func TestHealthCheck_DegradedDependency(t *testing.T) {
	app := fiber.New()
	app.Get("/health", handler.HealthCheck(config.Config{}, map[string]handler.DependencyCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Success bool                   `json:"success"`
		Details handler.HealthResponse `json:"details"`
	}
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, "degraded", body.Details.Status)
	require.Equal(t, "connection refused", body.Details.Dependencies["redis"])
}
