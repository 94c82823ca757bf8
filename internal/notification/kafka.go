package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used for publishing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender publishes each task as a JSON message for a downstream mailer.
type KafkaSender struct {
	writer MessageWriter
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaSender(writer MessageWriter) *KafkaSender {
	return &KafkaSender{writer: writer}
}

type kafkaEnvelope struct {
	ID       string   `json:"id"`
	Type     Type     `json:"type"`
	Priority Priority `json:"priority"`
	Attempt  int      `json:"attempt"`
	Payload  any      `json:"payload"`
}

func (s *KafkaSender) Send(ctx context.Context, task Task) error {
	value, err := json.Marshal(kafkaEnvelope{
		ID:       task.ID,
		Type:     task.Type,
		Priority: task.Priority,
		Attempt:  task.Attempts + 1,
		Payload:  task.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal notification %s: %w", task.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(task.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "notification_type", Value: []byte(task.Type)},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish notification %s: %w", task.ID, err)
	}
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}
