package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/repository"
)

func newQuestionService(t *testing.T) QuestionService {
	t.Helper()
	schemas, err := questionschema.New([]string{"python", "java"})
	require.NoError(t, err)
	return NewQuestionService(repository.NewQuestionRepository(setupServiceDB(t)), schemas, testValidator(), testLogger())
}

func mcqRequest() dto.QuestionRequest {
	return dto.QuestionRequest{
		Title:             "Capital of France",
		Type:              "mcq",
		Module:            "Geography",
		Points:            2,
		ConfigurationData: json.RawMessage(`{"options":{"a":{"text":"Paris","correct":true},"b":{"text":"Lyon","correct":false}}}`),
	}
}

func TestQuestionServiceCreateAndGet(t *testing.T) {
	svc := newQuestionService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, mcqRequest(), "teacher-1")
	require.NoError(t, err)
	require.Equal(t, "MCQ", created.Type)
	require.Equal(t, 1, created.DifficultyLevel)
	require.True(t, created.IsActive)
	require.Equal(t, "teacher-1", created.CreatedBy)

	hidden, err := svc.Get(ctx, created.ID, false)
	require.NoError(t, err)
	require.Empty(t, hidden.ConfigurationData)

	full, err := svc.Get(ctx, created.ID, true)
	require.NoError(t, err)
	require.JSONEq(t, string(mcqRequest().ConfigurationData), string(full.ConfigurationData))

	_, err = svc.Get(ctx, uuid.New(), false)
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionServiceRejectsInvalidConfiguration(t *testing.T) {
	svc := newQuestionService(t)
	ctx := context.Background()

	payload := mcqRequest()
	payload.ConfigurationData = json.RawMessage(`{"options":{"a":{"text":"Paris","correct":false},"b":{"text":"Lyon","correct":false}}}`)
	_, err := svc.Create(ctx, payload, "")
	require.ErrorIs(t, err, questionschema.ErrInvalidConfiguration)

	payload = mcqRequest()
	payload.ConfigurationData = nil
	_, err = svc.Create(ctx, payload, "")
	require.ErrorIs(t, err, questionschema.ErrInvalidConfiguration)

	payload = mcqRequest()
	payload.Points = 0
	_, err = svc.Create(ctx, payload, "")
	require.Error(t, err)

	payload = mcqRequest()
	payload.Type = "crossword"
	_, err = svc.Create(ctx, payload, "")
	require.Error(t, err)
}

func TestQuestionServiceEssayDefaultsConfiguration(t *testing.T) {
	svc := newQuestionService(t)

	created, err := svc.Create(context.Background(), dto.QuestionRequest{Title: "Explain recursion", Type: "Short Essay", Points: 5}, "")
	require.NoError(t, err)
	require.Equal(t, "ESSAY_SHORT", created.Type)
	require.JSONEq(t, `{}`, string(created.ConfigurationData))
}

func TestQuestionServiceListUpdateDelete(t *testing.T) {
	svc := newQuestionService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, mcqRequest(), "")
	require.NoError(t, err)
	second := mcqRequest()
	second.Title = "Largest ocean"
	second.Module = "Oceans"
	_, err = svc.Create(ctx, second, "")
	require.NoError(t, err)

	list, err := svc.List(ctx, dto.QuestionFilter{Module: "Geography"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, int64(1), list.Pagination.TotalItems)

	update := mcqRequest()
	update.Title = "Capital city of France"
	update.Points = 3
	updated, err := svc.Update(ctx, first.ID, update)
	require.NoError(t, err)
	require.Equal(t, "Capital city of France", updated.Title)
	require.Equal(t, 3.0, updated.Points)

	require.NoError(t, svc.Delete(ctx, first.ID))
	list, err = svc.List(ctx, dto.QuestionFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	require.ErrorIs(t, svc.Delete(ctx, uuid.New()), ErrQuestionNotFound)

	_, err = svc.List(ctx, dto.QuestionFilter{Type: "crossword"})
	require.Error(t, err)
}
