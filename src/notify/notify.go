// Package notify persists user notifications and fans them out over Redis
// pub/sub to connected websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	m "linked_friend_services/src/models"
)

const (
	DefaultChannel = "notifications"
	listLimit      = 50
	channelSize    = 250
)

type Publisher interface {
	Publish(ctx context.Context, event m.NotificationEvent) error
}

type Repository interface {
	Insert(ctx context.Context, notification m.Notification) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]m.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// RedisPublisher publishes events on a single channel; subscribers filter
// by user id.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event m.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.channel, err)
	}
	return nil
}

// Stream relays every event addressed to userID to send until ctx is done,
// the subscription closes, or send fails.
func (p *RedisPublisher) Stream(ctx context.Context, userID uuid.UUID, send func([]byte) error) error {
	pubSub := p.rdb.Subscribe(ctx, p.channel)
	defer pubSub.Close()

	messages := pubSub.Channel(redis.WithChannelSize(channelSize))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if !addressedTo([]byte(msg.Payload), userID) {
				continue
			}
			if err := send([]byte(msg.Payload)); err != nil {
				return err
			}
		}
	}
}

func addressedTo(payload []byte, userID uuid.UUID) bool {
	var event struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return false
	}
	return event.UserID == userID
}

type Service struct {
	repo      Repository
	publisher Publisher
	logger    *zap.Logger
}

func NewService(repo Repository, publisher Publisher, logger *zap.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Notify stores the notification and then publishes it. Only the store
// failing is an error; a lost publish is logged.
func (s *Service) Notify(ctx context.Context, n m.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}
	event := m.NotificationEvent{
		Operation: "INSERT",
		Type:      string(n.Type),
		UserID:    n.UserID,
		Payload:   n,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish notification",
			zap.Stringer("user_id", n.UserID),
			zap.Stringer("notification_id", n.ID),
			zap.Error(err))
	}
	return nil
}

// List returns the user's most recent notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]m.Notification, error) {
	return s.repo.ListForUser(ctx, userID, listLimit)
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
