package notifier

import (
	"context"

	"github.com/wyfcoding/etfarb/internal/platform/mq"
)

// command is the unified payload shape published to Kafka, grounded on the
// teacher's kafka_sender.go NotificationCommand.
type command struct {
	Target  string `json:"target"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// KafkaSender publishes notification commands to a Kafka topic for a
// downstream consumer (SMS/webhook/email adapter) to execute.
type KafkaSender struct {
	producer *mq.Producer
	topic    string
}

// NewKafkaSender wires a Kafka producer as a Sender.
func NewKafkaSender(producer *mq.Producer, topic string) Sender {
	return &KafkaSender{producer: producer, topic: topic}
}

// Send publishes cmd keyed by target, so messages for the same recipient
// stay ordered within a partition.
func (s *KafkaSender) Send(ctx context.Context, target, subject, content string) error {
	cmd := command{Target: target, Subject: subject, Content: content}
	return s.producer.SendMessage(ctx, s.topic, target, cmd)
}
