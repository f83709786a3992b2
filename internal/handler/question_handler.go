package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/service"
	"github.com/noah-isme/questionbank-api/internal/utils"
)

// QuestionHandler exposes the question bank.
type QuestionHandler struct {
	questions service.QuestionService
	answers   service.AnswerService
	reports   service.ReportService
	logger    zerolog.Logger
}

// NewQuestionHandler constructs a question handler. answers and reports may be nil, in which
// case their routes are not registered.
func NewQuestionHandler(questions service.QuestionService, answers service.AnswerService, reports service.ReportService, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		answers:   answers,
		reports:   reports,
		logger:    logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register binds question routes.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	if h.answers != nil {
		router.Get("/:id/answers", h.answersFor)
	}
	if h.reports != nil {
		router.Get("/:id/report.xlsx", h.report)
	}
}

func (h *QuestionHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.questions.Create(requestContext(c), payload, middleware.UserID(c))
	if err != nil {
		return h.handleError(c, err, "failed to create question")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", resp)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	var filter dto.QuestionFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	resp, err := h.questions.List(requestContext(c), filter)
	if err != nil {
		return h.handleError(c, err, "failed to list questions")
	}
	return utils.OK(c, resp.Items, "questions", resp.Pagination)
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	includeConfiguration, _ := strconv.ParseBool(c.Query("include_configuration"))

	resp, err := h.questions.Get(requestContext(c), id, includeConfiguration)
	if err != nil {
		return h.handleError(c, err, "failed to load question")
	}
	return utils.SendSuccess(c, "question", resp)
}

func (h *QuestionHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.QuestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.questions.Update(requestContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update question")
	}
	return utils.SendSuccess(c, "question updated", resp)
}

func (h *QuestionHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.questions.Delete(requestContext(c), id); err != nil {
		return h.handleError(c, err, "failed to delete question")
	}
	return utils.SendSuccess(c, "question deleted", nil)
}

func (h *QuestionHandler) answersFor(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	answers, err := h.answers.ListByQuestion(requestContext(c), id)
	if err != nil {
		return h.handleError(c, err, "failed to list answers")
	}
	return utils.SendSuccess(c, "answers", answers)
}

func (h *QuestionHandler) report(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	report, err := h.reports.QuestionReport(requestContext(c), id)
	if err != nil {
		return h.handleError(c, err, "failed to build report")
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+report.Filename+`"`)
	return c.Send(report.Data)
}

func (h *QuestionHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err), errors.Is(err, questionschema.ErrInvalidConfiguration):
		return sendValidationError(c, err)
	case errors.Is(err, models.ErrUnknownQuestionType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}
