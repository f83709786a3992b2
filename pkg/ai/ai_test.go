package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptForCoding(t *testing.T) {
	prompt := BuildPrompt(Request{
		Kind:                KindCoding,
		QuestionTitle:       "Sum",
		QuestionContent:     "Add two numbers",
		Answer:              "print(1+2)",
		Language:            "python",
		CompilationFeedback: "Code Compilation Results: ok Method: Compiler",
		MaxScore:            10,
	})

	require.True(t, strings.HasPrefix(prompt, "You are a high school programming teacher evaluating a coding solution."))
	require.Contains(t, prompt, "Student Code: print(1+2)")
	require.Contains(t, prompt, "Language: python\n\nCompilation Results: Code Compilation Results: ok")
	require.Contains(t, prompt, "Max Score: 10\n")
	require.Contains(t, prompt, "Consider: code correctness, efficiency")
}

func TestBuildPromptForEssays(t *testing.T) {
	short := BuildPrompt(Request{Kind: KindShortEssay, Answer: "Photosynthesis", MaxScore: 2.5})
	require.Contains(t, short, "high school teacher")
	require.Contains(t, short, "Student Answer: Photosynthesis")
	require.Contains(t, short, "Max Score: 2.5")
	require.Contains(t, short, "accuracy, completeness, clarity, and relevance")
	require.NotContains(t, short, "Language:")

	long := BuildPrompt(Request{Kind: KindLongEssay})
	require.Contains(t, long, "depth of analysis")

	failed := BuildPrompt(Request{Kind: KindCoding, CompilationFeedback: "Code compilation failed: boom. "})
	require.Contains(t, failed, "Language: python\n\nCompilation Status: Code compilation failed: boom.")
}

func TestCleanResponse(t *testing.T) {
	require.Equal(t, `{"score":1}`, cleanResponse("```json\n{\"score\":1}\n```"))
	require.Equal(t, `{"a":{"b":1}}`, cleanResponse("Here you go: {\"a\":{\"b\":1}} thanks"))
	require.Equal(t, "no json", cleanResponse("no json"))
}

func TestParseAssessmentClampsAndSanitizes(t *testing.T) {
	policy := bluemonday.StrictPolicy()

	assessment, err := parseAssessment("```json\n{\"score\": 14, \"maxScore\": 10, \"isCorrect\": true, \"feedback\": \"<b>Great</b> work, don't stop\", \"strengths\": [\"clear\", \"<i></i>\"], \"weaknesses\": []}\n```", 10, "OPENAI", policy)
	require.NoError(t, err)
	require.Equal(t, 10.0, assessment.Score)
	require.Equal(t, 10.0, assessment.MaxScore)
	require.True(t, assessment.Correct)
	require.True(t, assessment.Available)
	require.Equal(t, "Great work, don't stop", assessment.Feedback)
	require.Equal(t, []string{"clear"}, assessment.Strengths)
	require.Equal(t, "OPENAI", assessment.Method)

	assessment, err = parseAssessment(`{"score": -3, "feedback": "x"}`, 5, "OPENAI", policy)
	require.NoError(t, err)
	require.Equal(t, 0.0, assessment.Score)
	require.False(t, assessment.Correct)

	assessment, err = parseAssessment(`{"score": 4, "feedback": "x"}`, 5, "OPENAI", policy)
	require.NoError(t, err)
	require.True(t, assessment.Correct)

	_, err = parseAssessment("I cannot grade this", 5, "OPENAI", policy)
	require.Error(t, err)
}

func newChatServer(t *testing.T, content string, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		prompts = append(prompts, body.Messages[len(body.Messages)-1].Content)

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down","type":"server_error"}}`))
			return
		}
		reply, _ := json.Marshal(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
		_, _ = w.Write(reply)
	}))
	t.Cleanup(server.Close)
	return server, &prompts
}

func TestChatGraderGrade(t *testing.T) {
	server, prompts := newChatServer(t, `{"score": 7, "maxScore": 10, "isCorrect": true, "feedback": "Solid", "strengths": ["structure"], "weaknesses": ["examples"]}`, http.StatusOK)

	grader, err := NewChatGrader(ChatConfig{APIKey: "test", BaseURL: server.URL + "/v1", RequestsPerSecond: 100, Logger: zerolog.Nop()})
	require.NoError(t, err)

	assessment, err := grader.Grade(context.Background(), Request{Kind: KindLongEssay, QuestionTitle: "Causes of WW1", Answer: "Alliances...", MaxScore: 10})
	require.NoError(t, err)
	require.Equal(t, 7.0, assessment.Score)
	require.True(t, assessment.Available)
	require.Equal(t, []string{"examples"}, assessment.Weaknesses)
	require.Len(t, *prompts, 1)
	require.Contains(t, (*prompts)[0], "Question: Causes of WW1")
}

func TestChatGraderFallbackAndErrors(t *testing.T) {
	server, _ := newChatServer(t, "Sorry, I can't help with that.", http.StatusOK)
	grader, err := NewChatGrader(ChatConfig{Provider: "Mistral", APIKey: "test", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	require.Equal(t, "mistral-small-latest", grader.cfg.Model)

	assessment, err := grader.Grade(context.Background(), Request{Kind: KindShortEssay, MaxScore: 4})
	require.NoError(t, err)
	require.Equal(t, Fallback(4), assessment)
	require.False(t, assessment.Available)

	failing, _ := newChatServer(t, "", http.StatusInternalServerError)
	grader, err = NewChatGrader(ChatConfig{APIKey: "test", BaseURL: failing.URL + "/v1"})
	require.NoError(t, err)
	_, err = grader.Grade(context.Background(), Request{Kind: KindShortEssay, MaxScore: 4})
	require.Error(t, err)

	_, err = NewChatGrader(ChatConfig{})
	require.Error(t, err)
}

func TestChatGraderHonoursCancelledContext(t *testing.T) {
	server, prompts := newChatServer(t, `{"score":1}`, http.StatusOK)
	grader, err := NewChatGrader(ChatConfig{APIKey: "test", BaseURL: server.URL + "/v1", RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = grader.Grade(context.Background(), Request{Kind: KindShortEssay, MaxScore: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = grader.Grade(ctx, Request{Kind: KindShortEssay, MaxScore: 1})
	require.Error(t, err)
	require.Len(t, *prompts, 1)
}

func TestUnavailableGrader(t *testing.T) {
	assessment, err := UnavailableGrader{}.Grade(context.Background(), Request{MaxScore: 3})
	require.NoError(t, err)
	require.Equal(t, MethodFallback, assessment.Method)
	require.Equal(t, FallbackFeedback, assessment.Feedback)
	require.Equal(t, 3.0, assessment.MaxScore)
}
