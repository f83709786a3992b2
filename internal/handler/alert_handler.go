package handler

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/service"
)

const alertPingInterval = 30 * time.Second

// AlertHandler streams plagiarism alerts over a websocket.
type AlertHandler struct {
	alerts service.AlertService
	logger zerolog.Logger
}

// NewAlertHandler constructs an alert handler.
func NewAlertHandler(alerts service.AlertService, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		logger: logger.With().Str("component", "alert_handler").Logger(),
	}
}

// Register binds the alert stream under the provided router group.
func (h *AlertHandler) Register(router fiber.Router) {
	router.Use("/alerts/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		questionID := uuid.Nil
		if raw := alertFilter(c.Query); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "invalid question id")
			}
			questionID = parsed
		}
		c.Locals("alert_question_id", questionID)
		c.Locals("correlation_id", middleware.GetCorrelationID(c))
		return c.Next()
	})

	router.Get("/alerts/ws", websocket.New(h.handleConnection))
}

func (h *AlertHandler) handleConnection(conn *websocket.Conn) {
	questionID, _ := conn.Locals("alert_question_id").(uuid.UUID)

	logger := h.logger.With().
		Str("question_id", questionID.String()).
		Interface("correlation_id", conn.Locals("correlation_id")).
		Logger()

	alerts, cleanup := h.alerts.Subscribe(questionID)
	defer cleanup()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	logger.Info().Msg("alert websocket connected")
	defer logger.Info().Msg("alert websocket disconnected")

	ticker := time.NewTicker(alertPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			if err := conn.WriteJSON(alert); err != nil {
				logger.Debug().Err(err).Msg("alert write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// alertFilter accepts both question_id and questionId.
func alertFilter(query func(key string, defaultValue ...string) string) string {
	if raw := strings.TrimSpace(query("question_id")); raw != "" {
		return raw
	}
	return strings.TrimSpace(query("questionId"))
}
