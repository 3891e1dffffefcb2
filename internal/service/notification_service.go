package service

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/noc-incidents/internal/events"
)

// ChannelPublisher sends a message to a pub/sub channel.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, message []byte) error
}

// RedisPublisher publishes through a go-redis client.
type RedisPublisher struct {
	Client *redis.Client
}

func (p RedisPublisher) Publish(ctx context.Context, channel string, message []byte) error {
	return p.Client.Publish(ctx, channel, message).Err()
}

// NotificationService logs pipeline events and fans them out to a pub/sub
// channel when a publisher is configured.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	publisher  ChannelPublisher
	channel    string
}

// NewNotificationService creates the service. publisher may be nil.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, publisher ChannelPublisher, channel string) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		publisher:  publisher,
		channel:    channel,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventAnomalyDetected, n.handleAnomalyDetected)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	return n.fanOut(ctx, event)
}

func (n *NotificationService) handleAnomalyDetected(ctx context.Context, event events.Event) error {
	n.logger.Info("AnomalyDetected", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return n.fanOut(ctx, event)
}

func (n *NotificationService) fanOut(ctx context.Context, event events.Event) error {
	if n.publisher == nil || n.channel == "" {
		return nil
	}
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := n.publisher.Publish(ctx, n.channel, message); err != nil {
		n.logger.Warn("publish event",
			zap.String("channel", n.channel),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		return err
	}
	return nil
}
