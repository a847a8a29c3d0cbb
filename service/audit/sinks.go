package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	auditEntity "backoffice.GO/model/entity/audit"
)

// RedisSink publishes audit logs on a Redis pub/sub channel.
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Publish(ctx context.Context, log *auditEntity.AuditLog) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}
	return s.client.Publish(ctx, s.channel, payload).Err()
}

// Close is a no-op: the client is shared with the rest of the process.
func (s *RedisSink) Close() error { return nil }

// KafkaSink writes audit logs to a topic keyed by model and object id.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &KafkaSink{writer: writer}
}

func (s *KafkaSink) Publish(ctx context.Context, log *auditEntity.AuditLog) error {
	payload, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}
	message := kafka.Message{
		Key:   []byte(log.Model + ":" + log.ObjectID),
		Value: payload,
		Time:  log.CreatedAt,
		Headers: []kafka.Header{
			{Key: "audit-action", Value: []byte(log.Action)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write audit log to kafka: %w", err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
