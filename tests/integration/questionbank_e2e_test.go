package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/questionbank-api/internal/config"
	"github.com/noah-isme/questionbank-api/internal/correction"
	"github.com/noah-isme/questionbank-api/internal/database"
	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/handler"
	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/plagiarism"
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/repository"
	"github.com/noah-isme/questionbank-api/internal/router"
	"github.com/noah-isme/questionbank-api/internal/service"
	"github.com/noah-isme/questionbank-api/pkg/ai"
	"github.com/noah-isme/questionbank-api/pkg/embedding"
	"github.com/noah-isme/questionbank-api/pkg/storage"
)

type scriptedGrader struct {
	calls int
}

func (g *scriptedGrader) Grade(_ context.Context, req ai.Request) (ai.Assessment, error) {
	g.calls++
	return ai.Assessment{
		Score:     req.MaxScore * 0.8,
		MaxScore:  req.MaxScore,
		Correct:   true,
		Feedback:  "Clear explanation.",
		Available: true,
		Method:    "AI",
	}, nil
}

func setupQuestionBankApp(t *testing.T) (*fiber.App, *scriptedGrader) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:questionbank_e2e?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		db.Exec("DELETE FROM answers")
		db.Exec("DELETE FROM questions")
	})

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	schemas, err := questionschema.New([]string{"python", "go"})
	require.NoError(t, err)

	questions := repository.NewQuestionRepository(db)
	answers := repository.NewAnswerRepository(db)

	detector := plagiarism.NewDetector(answers, embedding.NewHashingEmbedder(256), embedding.NewImageFeatureExtractor(), plagiarism.Config{}, logger)

	grader := &scriptedGrader{}
	orchestrator := correction.NewOrchestrator(correction.Config{
		AI:     grader,
		Store:  service.NewCorrectionStore(questions, answers),
		Logger: logger,
	})

	media, err := storage.NewLocalStore(t.TempDir(), "http://files.test")
	require.NoError(t, err)
	alerts := service.NewAlertService(nil, nil, "", logger)

	questionService := service.NewQuestionService(questions, schemas, validate, logger)
	answerService := service.NewAnswerService(service.AnswerServiceDeps{
		Questions:  questions,
		Answers:    answers,
		Plagiarism: detector,
		Grader:     orchestrator,
		Media:      media,
		Alerts:     alerts,
		Validator:  validate,
		Logger:     logger,
	})
	correctionService := service.NewCorrectionService(orchestrator, validate, logger)
	reportService := service.NewReportService(questions, answers, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test"}, router.Dependencies{
		QuestionHandler:   handler.NewQuestionHandler(questionService, answerService, reportService, logger),
		AnswerHandler:     handler.NewAnswerHandler(answerService, logger),
		CorrectionHandler: handler.NewCorrectionHandler(correctionService, logger),
		AlertHandler:      handler.NewAlertHandler(alerts, logger),
	})

	return app, grader
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Message string `json:"message"`
}

func call[T any](t *testing.T, app *fiber.App, method, target string, payload interface{}, wantStatus int) T {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, string(data))

	var decoded envelope[T]
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded.Data
}

func TestQuestionBankEndToEndFlow(t *testing.T) {
	app, grader := setupQuestionBankApp(t)

	// Step 1: a closed question is graded deterministically.
	mcq := call[dto.QuestionResponse](t, app, http.MethodPost, "/api/v2/questions", map[string]interface{}{
		"title":  "Capital of France",
		"type":   "mcq",
		"points": 10,
		"configuration_data": map[string]interface{}{"options": map[string]interface{}{
			"a": map[string]interface{}{"text": "Paris", "correct": true},
			"b": map[string]interface{}{"text": "Rome", "correct": false},
		}},
	}, fiber.StatusCreated)
	require.Equal(t, "MCQ", mcq.Type)

	mcqAnswer := call[dto.AnswerResponse](t, app, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{
		QuestionID: mcq.ID.String(), Type: "MULTIPLE_CHOICE", Content: "a", SubmittedBy: "student-1",
	}, fiber.StatusCreated)
	require.True(t, mcqAnswer.IsCorrect)
	require.Equal(t, 10.0, mcqAnswer.Score)
	require.Zero(t, grader.calls)

	// Step 2: essays go through the AI grader and the text plagiarism check.
	essay := call[dto.QuestionResponse](t, app, http.MethodPost, "/api/v2/questions", map[string]interface{}{
		"title":  "Explain recursion",
		"type":   "ESSAY_SHORT",
		"points": 10,
	}, fiber.StatusCreated)

	text := "Recursion is when a function calls itself on a smaller input until it reaches a base case."
	first := call[dto.AnswerResponse](t, app, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{
		QuestionID: essay.ID.String(), Type: "SHORT_ANSWER", Content: text, SubmittedBy: "student-1",
	}, fiber.StatusCreated)
	require.Equal(t, 8.0, first.Score)
	require.False(t, first.IsPlagiarized)

	second := call[dto.AnswerResponse](t, app, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{
		QuestionID: essay.ID.String(), Type: "SHORT_ANSWER", Content: text, SubmittedBy: "student-2",
	}, fiber.StatusCreated)
	require.True(t, second.IsPlagiarized)
	require.InDelta(t, 1.0, second.PlagiarismScore, 1e-4)

	// Step 3: an incompatible answer type is rejected.
	call[json.RawMessage](t, app, http.MethodPost, "/api/v2/answers", dto.AnswerRequest{
		QuestionID: essay.ID.String(), Type: "MULTIPLE_CHOICE", Content: "a",
	}, fiber.StatusBadRequest)

	// Step 4: stored answers can be re-corrected by AI, closed types cannot.
	corrected := call[dto.CorrectionResponse](t, app, http.MethodPost, "/api/v2/ai-correction/answers/"+first.ID.String(), nil, fiber.StatusOK)
	require.Equal(t, string(correction.StateAIMerged), corrected.State)
	require.Equal(t, 8.0, corrected.Answer.Score)

	call[json.RawMessage](t, app, http.MethodPost, "/api/v2/ai-correction/answers/"+mcqAnswer.ID.String(), nil, fiber.StatusUnprocessableEntity)

	batch := call[dto.BatchCorrectionResponse](t, app, http.MethodPost, "/api/v2/ai-correction/batch", map[string]interface{}{
		"answer_ids": []string{first.ID.String(), uuid.NewString(), second.ID.String()},
	}, fiber.StatusOK)
	require.Equal(t, 2, batch.Succeeded)
	require.Equal(t, 1, batch.Failed)
	require.False(t, batch.Items[1].Success)

	// Step 5: instructor override is clamped to the answer's max score.
	score := 25.0
	updated := call[dto.AnswerResponse](t, app, http.MethodPut, "/api/v2/answers/"+second.ID.String(), map[string]interface{}{"score": score}, fiber.StatusOK)
	require.Equal(t, 10.0, updated.Score)

	// Step 6: the report covers every active answer.
	listed := call[[]dto.AnswerResponse](t, app, http.MethodGet, "/api/v2/questions/"+essay.ID.String()+"/answers", nil, fiber.StatusOK)
	require.Len(t, listed, 2)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v2/questions/"+essay.ID.String()+"/report.xlsx", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	workbook, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer workbook.Close()
	flagged, err := workbook.GetCellValue("Summary", "B7")
	require.NoError(t, err)
	require.Equal(t, "1", flagged)

	// Step 7: soft-deleted answers leave the listing.
	call[json.RawMessage](t, app, http.MethodDelete, "/api/v2/answers/"+second.ID.String(), nil, fiber.StatusOK)
	listed = call[[]dto.AnswerResponse](t, app, http.MethodGet, "/api/v2/questions/"+essay.ID.String()+"/answers", nil, fiber.StatusOK)
	require.Len(t, listed, 1)
}

func TestQuestionBankRejectsInvalidConfiguration(t *testing.T) {
	app, _ := setupQuestionBankApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/questions", bytes.NewReader([]byte(`{"title":"Broken","type":"MCQ","points":5,"configuration_data":{"options":{"a":{"text":"only","correct":true}}}}`)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var body struct {
		Success bool     `json:"success"`
		Message string   `json:"message"`
		Details []string `json:"details"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.False(t, body.Success)
	require.Equal(t, "validation failed", body.Message)
	require.NotEmpty(t, body.Details)
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	app, _ := setupQuestionBankApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "qbank_api_requests_total")
}
