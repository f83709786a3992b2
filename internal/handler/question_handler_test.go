package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
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
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/service"
)

type questionServiceStub struct {
	created       dto.QuestionRequest
	createdBy     string
	includeConfig bool
	filter        dto.QuestionFilter
	response      dto.QuestionResponse
	err           error
}

func (s *questionServiceStub) Create(_ context.Context, payload dto.QuestionRequest, createdBy string) (dto.QuestionResponse, error) {
	s.created = payload
	s.createdBy = createdBy
	return s.response, s.err
}

func (s *questionServiceStub) Get(_ context.Context, id uuid.UUID, includeConfiguration bool) (dto.QuestionResponse, error) {
	s.includeConfig = includeConfiguration
	if s.err != nil {
		return dto.QuestionResponse{}, s.err
	}
	resp := s.response
	resp.ID = id
	return resp, nil
}

func (s *questionServiceStub) List(_ context.Context, filter dto.QuestionFilter) (dto.QuestionListResponse, error) {
	s.filter = filter
	if s.err != nil {
		return dto.QuestionListResponse{}, s.err
	}
	return dto.QuestionListResponse{
		Items:      []dto.QuestionResponse{s.response},
		Pagination: dto.NewPaginationMeta(1, 20, 1),
	}, nil
}

func (s *questionServiceStub) Update(_ context.Context, _ uuid.UUID, _ dto.QuestionRequest) (dto.QuestionResponse, error) {
	return s.response, s.err
}

func (s *questionServiceStub) Delete(context.Context, uuid.UUID) error {
	return s.err
}

type reportServiceStub struct {
	report service.Report
	err    error
}

func (s *reportServiceStub) QuestionReport(context.Context, uuid.UUID) (service.Report, error) {
	return s.report, s.err
}

func newQuestionApp(questions service.QuestionService, answers service.AnswerService, reports service.ReportService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/questions", func(c *fiber.Ctx) error {
		c.Locals("user_id", "instructor-7")
		return c.Next()
	})
	handler.NewQuestionHandler(questions, answers, reports, zerolog.New(io.Discard)).Register(group)
	return app
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(body, target))
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestQuestionHandler_CreateUsesCaller(t *testing.T) {
	svc := &questionServiceStub{response: dto.QuestionResponse{ID: uuid.New(), Title: "Capitals", Type: "mcq"}}
	app := newQuestionApp(svc, nil, nil)

	req := jsonRequest(t, http.MethodPost, "/api/v2/questions", map[string]interface{}{
		"title":              "Capitals",
		"type":               "mcq",
		"points":             5,
		"configuration_data": map[string]interface{}{"options": []string{"Paris", "Rome"}, "correctAnswer": 0},
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var body struct {
		Success bool                 `json:"success"`
		Data    dto.QuestionResponse `json:"data"`
	}
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, "Capitals", body.Data.Title)
	require.Equal(t, "instructor-7", svc.createdBy)
	require.JSONEq(t, `{"options":["Paris","Rome"],"correctAnswer":0}`, string(svc.created.ConfigurationData))
}

func TestQuestionHandler_ListReturnsPagination(t *testing.T) {
	svc := &questionServiceStub{response: dto.QuestionResponse{ID: uuid.New(), Title: "Loops"}}
	app := newQuestionApp(svc, nil, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/questions?type=coding&page=1&search=loop", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Data []dto.QuestionResponse `json:"data"`
		Meta dto.PaginationMeta     `json:"meta"`
	}
	decodeResponse(t, resp, &body)
	require.Len(t, body.Data, 1)
	require.Equal(t, int64(1), body.Meta.TotalItems)
	require.Equal(t, "coding", svc.filter.Type)
	require.Equal(t, "loop", svc.filter.Search)
}

func TestQuestionHandler_GetIncludesConfigurationOnRequest(t *testing.T) {
	svc := &questionServiceStub{}
	app := newQuestionApp(svc, nil, nil)
	id := uuid.New()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/questions/"+id.String()+"?include_configuration=true", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, svc.includeConfig)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/questions/not-a-uuid", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQuestionHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not found", err: service.ErrQuestionNotFound, status: fiber.StatusNotFound},
		{name: "unknown type", err: models.ErrUnknownQuestionType, status: fiber.StatusBadRequest},
		{name: "invalid configuration", err: &questionschema.ValidationError{Type: models.QuestionTypeMCQ, Problems: []string{"/options: too short"}}, status: fiber.StatusBadRequest},
		{name: "generic", err: errors.New("boom"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newQuestionApp(&questionServiceStub{err: tc.err}, nil, nil)
			req := jsonRequest(t, http.MethodPut, "/api/v2/questions/"+uuid.NewString(), map[string]interface{}{"title": "x", "type": "mcq", "points": 1})

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body struct {
				Success bool     `json:"success"`
				Details []string `json:"details"`
			}
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			if tc.name == "invalid configuration" {
				require.Equal(t, []string{"/options: too short"}, body.Details)
			}
		})
	}
}

func TestQuestionHandler_ReportDownload(t *testing.T) {
	reports := &reportServiceStub{report: service.Report{Filename: "question-1234abcd-report.xlsx", Data: []byte("xlsx")}}
	app := newQuestionApp(&questionServiceStub{}, nil, reports)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/questions/"+uuid.NewString()+"/report.xlsx", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "question-1234abcd-report.xlsx")
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get(fiber.HeaderContentType))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "xlsx", string(data))
}

func TestQuestionHandler_ReportRouteOptional(t *testing.T) {
	app := newQuestionApp(&questionServiceStub{}, nil, nil)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/questions/"+uuid.NewString()+"/report.xlsx", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
