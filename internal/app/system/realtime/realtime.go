// Package realtime fans stored notifications out over Redis pub/sub so that
// connected clients can refresh without polling. Each recipient has its own
// channel; subscribers are outside this service.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel for recipient.
func Channel(recipient primitive.ObjectID) string {
	return "notifications:" + recipient.Hex()
}

// Connect returns a Redis client, or nil when addr is blank.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Event is the message body published for each notification.
type Event struct {
	Kind         string              `json:"kind"`
	Notification models.Notification `json:"notification"`
}

type Publisher struct {
	client *redis.Client
	log    *zap.Logger
}

func NewPublisher(client *redis.Client, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, log: logger}
}

// Publish sends n to its recipient's channel.
func (p *Publisher) Publish(ctx context.Context, n models.Notification) error {
	body, err := Encode(n)
	if err != nil {
		return err
	}
	receivers, err := p.client.Publish(ctx, Channel(n.Recipient), body).Result()
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.log.Debug("notification published",
		zap.String("notification_type", string(n.Type)),
		zap.String("user_id", n.Recipient.Hex()),
		zap.Int64("receivers", receivers))
	return nil
}

// Encode renders the published payload for n.
func Encode(n models.Notification) ([]byte, error) {
	return json.Marshal(Event{Kind: "notification.created", Notification: n})
}
