package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/questionbank-api/internal/dto"
)

func TestAlertServiceLocalFanOut(t *testing.T) {
	svc := NewAlertService(nil, nil, "", testLogger())
	questionID := uuid.New()

	scoped, cancelScoped := svc.Subscribe(questionID)
	defer cancelScoped()
	all, cancelAll := svc.Subscribe(uuid.Nil)
	defer cancelAll()
	other, cancelOther := svc.Subscribe(uuid.New())
	defer cancelOther()

	svc.Publish(context.Background(), dto.PlagiarismAlert{AnswerID: uuid.New(), QuestionID: questionID, Type: "text", MaxSimilarity: 0.95})

	select {
	case alert := <-scoped:
		require.Equal(t, questionID, alert.QuestionID)
		require.False(t, alert.DetectedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("scoped subscriber did not receive alert")
	}
	select {
	case alert := <-all:
		require.Equal(t, "text", alert.Type)
	case <-time.After(time.Second):
		t.Fatal("wildcard subscriber did not receive alert")
	}
	select {
	case <-other:
		t.Fatal("subscriber for another question received alert")
	default:
	}
}

func TestAlertServiceCleanupClosesChannel(t *testing.T) {
	svc := NewAlertService(nil, nil, "", testLogger())
	ch, cleanup := svc.Subscribe(uuid.Nil)
	cleanup()
	cleanup()

	_, open := <-ch
	require.False(t, open)
}

func TestAlertServiceRedisAcrossNodes(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	clientA := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientA.Close()
	clientB := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer clientB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewAlertService(clientA, nil, "qbank", testLogger())
	nodeB := NewAlertService(clientB, nil, "qbank", testLogger())
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	require.Eventually(t, func() bool {
		return server.PubSubNumSub("qbank:plagiarism")["qbank:plagiarism"] == 2
	}, 2*time.Second, 10*time.Millisecond)

	localA, cleanupA := nodeA.Subscribe(uuid.Nil)
	defer cleanupA()
	remoteB, cleanupB := nodeB.Subscribe(uuid.Nil)
	defer cleanupB()

	answerID := uuid.New()
	nodeA.Publish(ctx, dto.PlagiarismAlert{AnswerID: answerID, QuestionID: uuid.New(), Type: "image"})

	select {
	case alert := <-remoteB:
		require.Equal(t, answerID, alert.AnswerID)
	case <-time.After(2 * time.Second):
		t.Fatal("remote node did not receive alert")
	}

	select {
	case alert := <-localA:
		require.Equal(t, answerID, alert.AnswerID)
	case <-time.After(time.Second):
		t.Fatal("publishing node did not deliver locally")
	}

	select {
	case <-localA:
		t.Fatal("publishing node delivered its own redis echo")
	case <-time.After(100 * time.Millisecond):
	}
}
