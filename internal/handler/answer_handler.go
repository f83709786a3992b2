package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/service"
	"github.com/noah-isme/questionbank-api/internal/utils"
)

const (
	uploadFilesField = "files"
	maxUploadFiles   = 10
)

// AnswerHandler accepts submissions and instructor overrides.
type AnswerHandler struct {
	service service.AnswerService
	logger  zerolog.Logger
}

// NewAnswerHandler constructs an answer handler.
func NewAnswerHandler(service service.AnswerService, logger zerolog.Logger) *AnswerHandler {
	return &AnswerHandler{
		service: service,
		logger:  logger.With().Str("component", "answer_handler").Logger(),
	}
}

// Register binds answer routes. submitLimit guards the submission endpoints when non-nil.
func (h *AnswerHandler) Register(router fiber.Router, submitLimit fiber.Handler) {
	if submitLimit == nil {
		submitLimit = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("", submitLimit, h.create)
	router.Post("/upload", submitLimit, h.upload)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Delete("/:id/hard", h.hardDelete)
	router.Post("/:id/regrade", h.regrade)
}

func (h *AnswerHandler) create(c *fiber.Ctx) error {
	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	return h.submit(c, payload, nil)
}

func (h *AnswerHandler) upload(c *fiber.Ctx) error {
	var payload dto.AnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid form data")
	}
	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "multipart form required")
	}

	headers := form.File[uploadFilesField]
	if len(headers) > maxUploadFiles {
		return utils.SendError(c, fiber.StatusBadRequest, fmt.Sprintf("at most %d files may be uploaded", maxUploadFiles))
	}
	files := make([]dto.UploadedFile, 0, len(headers))
	for _, header := range headers {
		file, err := readUpload(header)
		if err != nil {
			requestLogger(h.logger, c).Warn().Err(err).Str("file", header.Filename).Msg("failed to read upload")
			return utils.SendError(c, fiber.StatusBadRequest, "failed to read uploaded file")
		}
		files = append(files, file)
	}
	return h.submit(c, payload, files)
}

func (h *AnswerHandler) submit(c *fiber.Ctx, payload dto.AnswerRequest, files []dto.UploadedFile) error {
	if payload.SubmittedBy == "" {
		payload.SubmittedBy = middleware.UserID(c)
	}

	resp, err := h.service.Create(requestContext(c), payload, files)
	if err != nil {
		return h.handleError(c, err, "failed to submit answer")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "answer submitted", resp)
}

func (h *AnswerHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return h.handleError(c, err, "failed to load answer")
	}
	return utils.SendSuccess(c, "answer", resp)
}

func (h *AnswerHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	var payload dto.AnswerUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	resp, err := h.service.Update(requestContext(c), id, payload)
	if err != nil {
		return h.handleError(c, err, "failed to update answer")
	}
	return utils.SendSuccess(c, "answer updated", resp)
}

func (h *AnswerHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.service.Delete(requestContext(c), id); err != nil {
		return h.handleError(c, err, "failed to delete answer")
	}
	return utils.SendSuccess(c, "answer deleted", nil)
}

func (h *AnswerHandler) hardDelete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	if err := h.service.HardDelete(requestContext(c), id); err != nil {
		return h.handleError(c, err, "failed to delete answer")
	}
	return utils.SendSuccess(c, "answer permanently deleted", nil)
}

func (h *AnswerHandler) regrade(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	resp, err := h.service.Regrade(requestContext(c), id)
	if err != nil {
		return h.handleError(c, err, "failed to regrade answer")
	}
	return utils.SendSuccess(c, "answer regraded", resp)
}

func (h *AnswerHandler) handleError(c *fiber.Ctx, err error, message string) error {
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrEmptyAnswer),
		errors.Is(err, service.ErrAnswerTooLong),
		errors.Is(err, service.ErrAnswerTypeMismatch),
		errors.Is(err, models.ErrUnknownAnswerType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAnswerNotFound), errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg(message)
		return utils.SendError(c, fiber.StatusInternalServerError, message)
	}
}

func readUpload(header *multipart.FileHeader) (dto.UploadedFile, error) {
	file, err := header.Open()
	if err != nil {
		return dto.UploadedFile{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return dto.UploadedFile{}, err
	}
	return dto.UploadedFile{
		Name:        header.Filename,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}, nil
}
