package realtime

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestChannel(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex("64b7f0c2a1b2c3d4e5f60718")
	if got := Channel(id); got != "notifications:64b7f0c2a1b2c3d4e5f60718" {
		t.Errorf("Channel() = %q", got)
	}
}

func TestEncode(t *testing.T) {
	n := models.Notification{
		ID:        primitive.NewObjectID(),
		Recipient: primitive.NewObjectID(),
		Type:      models.NotifyTaskAssigned,
		Title:     "New task assigned",
		Target:    models.TaskTarget(primitive.NewObjectID()),
	}
	body, err := Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var ev struct {
		Kind         string         `json:"kind"`
		Notification map[string]any `json:"notification"`
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Kind != "notification.created" {
		t.Errorf("kind = %q", ev.Kind)
	}
	if ev.Notification["type"] != "task-assigned" {
		t.Errorf("type = %v", ev.Notification["type"])
	}
}

func TestConnect_BlankAddrDisables(t *testing.T) {
	c, err := Connect(context.Background(), "", "", 0)
	if err != nil || c != nil {
		t.Fatalf("Connect(\"\") = %v, %v; want nil, nil", c, err)
	}
}

// TestPublish_RoundTrip needs a Redis server; set PROJECTHUB_TEST_REDIS_ADDR.
func TestPublish_RoundTrip(t *testing.T) {
	addr := os.Getenv("PROJECTHUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("PROJECTHUB_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := Connect(ctx, addr, "", 0)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	defer client.Close()

	n := models.Notification{ID: primitive.NewObjectID(), Recipient: primitive.NewObjectID(), Type: models.NotifySystemAnnouncement}
	sub := client.Subscribe(ctx, Channel(n.Recipient))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := NewPublisher(client, zap.NewNop()).Publish(ctx, n); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("ReceiveMessage: %v", err)
	}
	if msg.Channel != Channel(n.Recipient) {
		t.Errorf("channel = %q", msg.Channel)
	}
}
