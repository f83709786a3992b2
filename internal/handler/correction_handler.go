package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/correction"
	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/service"
	"github.com/noah-isme/questionbank-api/internal/utils"
)

// CorrectionHandler triggers AI correction of stored answers.
type CorrectionHandler struct {
	service service.CorrectionService
	logger  zerolog.Logger
}

// NewCorrectionHandler constructs a correction handler.
func NewCorrectionHandler(service service.CorrectionService, logger zerolog.Logger) *CorrectionHandler {
	return &CorrectionHandler{
		service: service,
		logger:  logger.With().Str("component", "correction_handler").Logger(),
	}
}

// Register binds correction routes.
func (h *CorrectionHandler) Register(router fiber.Router) {
	router.Post("/answers/:id", h.correct)
	router.Post("/batch", h.batch)
}

func (h *CorrectionHandler) correct(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	resp, err := h.service.Correct(requestContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAnswerNotFound), errors.Is(err, service.ErrQuestionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, correction.ErrUnsupportedType):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, correction.ErrStoreUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Str("answer_id", id.String()).Msg("ai correction failed")
			return utils.SendError(c, fiber.StatusBadGateway, correction.BatchFailurePrefix+err.Error())
		}
	}
	return utils.SendSuccess(c, "answer corrected", resp)
}

func (h *CorrectionHandler) batch(c *fiber.Ctx) error {
	var payload dto.BatchCorrectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.CorrectBatch(requestContext(c), payload)
	if err != nil {
		return sendValidationError(c, err)
	}
	return utils.SendSuccess(c, "batch correction finished", resp)
}
