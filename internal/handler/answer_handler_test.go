package handler_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/handler"
	"github.com/noah-isme/questionbank-api/internal/models"
	"github.com/noah-isme/questionbank-api/internal/service"
)

type answerServiceStub struct {
	payload    dto.AnswerRequest
	files      []dto.UploadedFile
	update     dto.AnswerUpdateRequest
	deleted    []uuid.UUID
	hardDelete []uuid.UUID
	regraded   []uuid.UUID
	err        error
}

func (s *answerServiceStub) Create(_ context.Context, payload dto.AnswerRequest, files []dto.UploadedFile) (dto.AnswerResponse, error) {
	s.payload = payload
	s.files = files
	if s.err != nil {
		return dto.AnswerResponse{}, s.err
	}
	return dto.AnswerResponse{ID: uuid.New(), Type: payload.Type, Content: payload.Content, Score: 5, MaxScore: 5, IsCorrect: true}, nil
}

func (s *answerServiceStub) Get(_ context.Context, id uuid.UUID) (dto.AnswerResponse, error) {
	return dto.AnswerResponse{ID: id}, s.err
}

func (s *answerServiceStub) ListByQuestion(_ context.Context, questionID uuid.UUID) ([]dto.AnswerResponse, error) {
	return []dto.AnswerResponse{{ID: uuid.New(), QuestionID: questionID}}, s.err
}

func (s *answerServiceStub) Update(_ context.Context, id uuid.UUID, payload dto.AnswerUpdateRequest) (dto.AnswerResponse, error) {
	s.update = payload
	return dto.AnswerResponse{ID: id}, s.err
}

func (s *answerServiceStub) Regrade(_ context.Context, id uuid.UUID) (dto.AnswerResponse, error) {
	s.regraded = append(s.regraded, id)
	return dto.AnswerResponse{ID: id}, s.err
}

func (s *answerServiceStub) Delete(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *answerServiceStub) HardDelete(_ context.Context, id uuid.UUID) error {
	s.hardDelete = append(s.hardDelete, id)
	return s.err
}

func newAnswerApp(svc service.AnswerService, limit fiber.Handler) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/answers", func(c *fiber.Ctx) error {
		c.Locals("user_id", "student-42")
		return c.Next()
	})
	handler.NewAnswerHandler(svc, zerolog.New(io.Discard)).Register(group, limit)
	return app
}

func TestAnswerHandler_CreateDefaultsSubmitter(t *testing.T) {
	svc := &answerServiceStub{}
	app := newAnswerApp(svc, nil)
	questionID := uuid.NewString()

	req := jsonRequest(t, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{QuestionID: questionID, Type: "mcq", Content: "2"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Success bool               `json:"success"`
		Data    dto.AnswerResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.True(t, body.Data.IsCorrect)
	require.Equal(t, "student-42", svc.payload.SubmittedBy)
	require.Equal(t, questionID, svc.payload.QuestionID)
	require.Empty(t, svc.files)
}

func TestAnswerHandler_UploadReadsFiles(t *testing.T) {
	svc := &answerServiceStub{}
	app := newAnswerApp(svc, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("question_id", uuid.NewString()))
	require.NoError(t, writer.WriteField("type", "code"))
	require.NoError(t, writer.WriteField("language", "python"))
	part, err := writer.CreateFormFile("files", "main.py")
	require.NoError(t, err)
	_, err = part.Write([]byte("print('hello')\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v2/answers/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Equal(t, "code", svc.payload.Type)
	require.Equal(t, "python", svc.payload.Language)
	require.Len(t, svc.files, 1)
	require.Equal(t, "main.py", svc.files[0].Name)
	require.Equal(t, "print('hello')\n", string(svc.files[0].Data))
	require.Contains(t, svc.files[0].ContentType, "text/plain")
}

func TestAnswerHandler_UploadRequiresMultipart(t *testing.T) {
	app := newAnswerApp(&answerServiceStub{}, nil)
	req := jsonRequest(t, http.MethodPost, "/api/v2/answers/upload", map[string]string{"type": "text"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAnswerHandler_SubmitLimitApplied(t *testing.T) {
	svc := &answerServiceStub{}
	limit := func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false})
	}
	app := newAnswerApp(svc, limit)

	req := jsonRequest(t, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{QuestionID: uuid.NewString(), Type: "text", Content: "x"})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Empty(t, svc.payload.QuestionID)

	id := uuid.New()
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/answers/"+id.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAnswerHandler_InstructorRoutes(t *testing.T) {
	svc := &answerServiceStub{}
	app := newAnswerApp(svc, nil)
	id := uuid.New()

	score := 3.5
	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/v2/answers/"+id.String(), dto.AnswerUpdateRequest{Score: &score}))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.update.Score)
	require.Equal(t, 3.5, *svc.update.Score)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/api/v2/answers/"+id.String()+"/regrade", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v2/answers/"+id.String(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodDelete, "/api/v2/answers/"+id.String()+"/hard", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, []uuid.UUID{id}, svc.regraded)
	require.Equal(t, []uuid.UUID{id}, svc.deleted)
	require.Equal(t, []uuid.UUID{id}, svc.hardDelete)
}

func TestAnswerHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "empty", err: service.ErrEmptyAnswer, status: fiber.StatusBadRequest},
		{name: "too long", err: service.ErrAnswerTooLong, status: fiber.StatusBadRequest},
		{name: "mismatch", err: service.ErrAnswerTypeMismatch, status: fiber.StatusBadRequest},
		{name: "unknown type", err: models.ErrUnknownAnswerType, status: fiber.StatusBadRequest},
		{name: "missing question", err: service.ErrQuestionNotFound, status: fiber.StatusNotFound},
		{name: "generic", err: errors.New("boom"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAnswerApp(&answerServiceStub{err: tc.err}, nil)
			req := jsonRequest(t, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{QuestionID: uuid.NewString(), Type: "text"})

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}

	app := newAnswerApp(&answerServiceStub{err: service.ErrAnswerNotFound}, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/answers/"+uuid.NewString(), nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
