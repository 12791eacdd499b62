// Package mq wraps segmentio/kafka-go for the notification layer's Kafka
// sender.
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wyfcoding/etfarb/internal/platform/logger"
)

// Config configures a Kafka producer.
type Config struct {
	Brokers        []string
	MaxRetries     int
	RetryBackoffMS int
}

// Producer publishes JSON-encoded values to Kafka topics.
type Producer struct {
	writer *kafka.Writer
	config Config
}

// NewProducer opens a Kafka writer against cfg.Brokers.
func NewProducer(cfg Config) (*Producer, error) {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoffMS <= 0 {
		cfg.RetryBackoffMS = 200
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxRetries,
		WriteBackoffMin:        time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoffMS*10) * time.Millisecond,
	}
	logger.Info(context.Background(), "kafka producer created", "brokers", cfg.Brokers)
	return &Producer{writer: writer, config: cfg}, nil
}

// SendMessage marshals value as JSON and publishes it keyed by key.
func (p *Producer) SendMessage(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal kafka message: %w", err)
	}
	msg := kafka.Message{Topic: topic, Key: []byte(key), Value: data}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error(ctx, "kafka send failed", "topic", topic, "key", key, "error", err)
		return err
	}
	logger.Debug(ctx, "kafka message sent", "topic", topic, "key", key)
	return nil
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
