package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/utils"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%s is required", name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// validationProblems flattens field and configuration errors into readable messages.
func validationProblems(err error) []string {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		problems := make([]string, 0, len(fieldErrors))
		for _, fieldErr := range fieldErrors {
			problem := fmt.Sprintf("%s failed on %s", fieldErr.Field(), fieldErr.Tag())
			if fieldErr.Param() != "" {
				problem += "=" + fieldErr.Param()
			}
			problems = append(problems, problem)
		}
		return problems
	}
	var configErr *questionschema.ValidationError
	if errors.As(err, &configErr) {
		return configErr.Problems
	}
	return nil
}

func sendValidationError(c *fiber.Ctx, err error) error {
	return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationProblems(err))
}
