package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/dto"
	"github.com/noah-isme/questionbank-api/internal/observability"
)

const alertBufferSize = 16

// AlertService fans plagiarism alerts out to local websocket subscribers and, when
// configured, to other API nodes through Redis pub/sub and NATS.
type AlertService interface {
	Publish(ctx context.Context, alert dto.PlagiarismAlert)
	Subscribe(questionID uuid.UUID) (<-chan dto.PlagiarismAlert, func())
	Start(ctx context.Context)
}

type alertService struct {
	redis        redis.UniversalClient
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	broker       *alertBroker
	nodeID       string
	logger       zerolog.Logger
}

type alertEvent struct {
	Source string              `json:"source"`
	Alert  dto.PlagiarismAlert `json:"alert"`
	SentAt time.Time           `json:"sent_at"`
}

type alertBroker struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]map[chan dto.PlagiarismAlert]struct{}
}

// NewAlertService constructs the alert fan-out. Either transport may be nil.
func NewAlertService(redisClient redis.UniversalClient, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) AlertService {
	channel, subject := "", ""
	if channelBase != "" {
		channel = channelBase + ":plagiarism"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".plagiarism"
	}

	return &alertService{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		broker:       &alertBroker{subscribers: make(map[uuid.UUID]map[chan dto.PlagiarismAlert]struct{})},
		nodeID:       uuid.NewString(),
		logger:       logger.With().Str("component", "alert_service").Logger(),
	}
}

func (s *alertService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// Publish never fails; transport errors are logged and counted.
func (s *alertService) Publish(ctx context.Context, alert dto.PlagiarismAlert) {
	if alert.DetectedAt.IsZero() {
		alert.DetectedAt = time.Now().UTC()
	}
	s.broker.broadcast(alert)
	observability.AlertsPublished().WithLabelValues("local", "ok").Inc()

	payload, err := json.Marshal(alertEvent{Source: s.nodeID, Alert: alert, SentAt: time.Now().UTC()})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode plagiarism alert")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		status := "ok"
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			status = "error"
			s.logger.Warn().Err(err).Str("answer_id", alert.AnswerID.String()).Msg("failed to publish alert to redis")
		}
		observability.AlertsPublished().WithLabelValues("redis", status).Inc()
	}

	if s.nats != nil && s.natsSubject != "" {
		status := "ok"
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			status = "error"
			s.logger.Warn().Err(err).Str("answer_id", alert.AnswerID.String()).Msg("failed to publish alert to nats")
		}
		observability.AlertsPublished().WithLabelValues("nats", status).Inc()
	}
}

// Subscribe registers a listener. uuid.Nil receives alerts for every question.
func (s *alertService) Subscribe(questionID uuid.UUID) (<-chan dto.PlagiarismAlert, func()) {
	channel := make(chan dto.PlagiarismAlert, alertBufferSize)
	s.broker.subscribe(questionID, channel)

	var once sync.Once
	cleanup := func() {
		once.Do(func() { s.broker.unsubscribe(questionID, channel) })
	}
	return channel, cleanup
}

func (s *alertService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("alert redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *alertService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats alert subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain alert nats subscription")
		}
	}()
}

func (s *alertService) handleEvent(payload []byte) {
	var event alertEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid plagiarism alert payload")
		return
	}
	if event.Source == s.nodeID {
		return
	}
	s.broker.broadcast(event.Alert)
}

func (b *alertBroker) subscribe(questionID uuid.UUID, ch chan dto.PlagiarismAlert) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[questionID]; !exists {
		b.subscribers[questionID] = make(map[chan dto.PlagiarismAlert]struct{})
	}
	b.subscribers[questionID][ch] = struct{}{}
}

func (b *alertBroker) unsubscribe(questionID uuid.UUID, ch chan dto.PlagiarismAlert) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[questionID]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, questionID)
		}
	}
}

// broadcast drops the alert for subscribers whose buffer is full.
func (b *alertBroker) broadcast(alert dto.PlagiarismAlert) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, key := range []uuid.UUID{alert.QuestionID, uuid.Nil} {
		for ch := range b.subscribers[key] {
			select {
			case ch <- alert:
			default:
			}
		}
		if alert.QuestionID == uuid.Nil {
			break
		}
	}
}
