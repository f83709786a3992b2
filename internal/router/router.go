package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/questionbank-api/internal/config"
	"github.com/noah-isme/questionbank-api/internal/handler"
	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	QuestionHandler   *handler.QuestionHandler
	AnswerHandler     *handler.AnswerHandler
	CorrectionHandler *handler.CorrectionHandler
	AlertHandler      *handler.AlertHandler
	HealthChecks      map[string]handler.DependencyCheck
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	app.Get("/metrics", observability.MetricsHandler())

	v2 := app.Group("/api/v2")

	if deps.QuestionHandler != nil {
		deps.QuestionHandler.Register(v2.Group("/questions"))
	}

	if deps.AnswerHandler != nil {
		var submitLimit fiber.Handler
		if cfg.SubmissionsPerMin > 0 {
			submitLimit = middleware.RateLimit("answers", cfg.SubmissionsPerMin, time.Minute)
		}
		deps.AnswerHandler.Register(v2.Group("/answers"), submitLimit)
	}

	if deps.CorrectionHandler != nil {
		correction := v2.Group("/ai-correction")
		if cfg.CorrectionPerMin > 0 {
			correction.Use(middleware.RateLimit("ai-correction", cfg.CorrectionPerMin, time.Minute))
		}
		deps.CorrectionHandler.Register(correction)
	}

	if deps.AlertHandler != nil {
		deps.AlertHandler.Register(v2.Group("/plagiarism"))
	}
}
