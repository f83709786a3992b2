package performance_test

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/handler"
	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/service"
)

func TestPlagiarismAlertWebsocketP95Under250ms(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())

	alerts := service.NewAlertService(nil, nil, "", zerolog.Nop())
	handler.NewAlertHandler(alerts, zerolog.Nop()).Register(app.Group("/api/v2/plagiarism"))

	baseURL, shutdown := startFiberServer(t, app)
	defer shutdown()

	questionID := uuid.New()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/api/v2/plagiarism/alerts/ws?question_id=" + questionID.String()
	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}

	clients := 100
	conns := make([]*websocket.Conn, 0, clients)
	for i := 0; i < clients; i++ {
		conn, resp, err := dialer.Dial(url, http.Header{"X-Correlation-ID": {"perf-" + strconv.Itoa(i)}})
		if err != nil {
			t.Fatalf("websocket dial failed: %v", err)
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		conns = append(conns, conn)
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	// let every handler register its subscription
	time.Sleep(100 * time.Millisecond)

	var (
		mu        sync.Mutex
		durations = make([]time.Duration, 0, clients)
		wg        sync.WaitGroup
	)
	start := time.Now()
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *websocket.Conn) {
			defer wg.Done()
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var alert dto.PlagiarismAlert
			if err := conn.ReadJSON(&alert); err != nil {
				return
			}
			mu.Lock()
			durations = append(durations, time.Since(start))
			mu.Unlock()
		}(conn)
	}

	alerts.Publish(context.Background(), dto.PlagiarismAlert{
		AnswerID:      uuid.New(),
		QuestionID:    questionID,
		Type:          "text",
		MaxSimilarity: 0.91,
		MatchCount:    1,
		DetectedAt:    time.Now().UTC(),
	})
	wg.Wait()

	if len(durations) != clients {
		t.Fatalf("expected %d clients to receive the alert, got %d", clients, len(durations))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := percentile(durations, 0.95)

	if p95 > 250*time.Millisecond {
		t.Fatalf("expected alert delivery P95 <= 250ms, got %s", p95)
	}
}

func percentile(values []time.Duration, pct float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	index := int(math.Ceil(pct*float64(len(values)))) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(values) {
		index = len(values) - 1
	}
	return values[index]
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}
