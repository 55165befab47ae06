package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"github.com/skillsync/skillsync-backend/internal/infrastructure/redis"
)

// TopicPurchases carries purchase lifecycle events emitted by the
// reconciliation flow.
const TopicPurchases = "purchases"

// Consumer watches purchase lifecycle events and drops the cached
// dashboard aggregates they invalidate. Deliveries are at-least-once;
// a cache delete is naturally idempotent, so redeliveries are harmless.
type Consumer struct {
	reader      *kafka.Reader
	redisClient redis.RedisClient
}

func NewConsumer(brokers []string, topic, groupID string, redisClient redis.RedisClient) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		redisClient: redisClient,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key))

		var event struct {
			EventType    string  `json:"event_type"`
			PurchaseID   string  `json:"purchase_id"`
			UserID       string  `json:"user_id"`
			CourseID     string  `json:"course_id"`
			InstructorID string  `json:"instructor_id"`
			Amount       float64 `json:"amount"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal purchase event", "error", err)
			continue
		}

		switch event.EventType {
		case "purchase.completed", "purchase.failed":
			keys := []string{"admin:dashboard"}
			if event.InstructorID != "" {
				keys = append(keys, fmt.Sprintf("instructor:%s:dashboard", event.InstructorID))
			}
			if err := c.redisClient.Del(ctx, keys...); err != nil {
				slog.Error("failed to invalidate dashboard cache",
					"purchase_id", event.PurchaseID,
					"instructor_id", event.InstructorID,
					"error", err)
				continue
			}
			slog.Info("dashboard cache invalidated",
				"event_type", event.EventType,
				"purchase_id", event.PurchaseID,
				"instructor_id", event.InstructorID)
		default:
			slog.Warn("unknown purchase event type", "event_type", event.EventType)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
