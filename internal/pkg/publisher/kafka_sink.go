package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/kestrelodds/arbiter/internal/pkg/models"
)

// KafkaSink publishes events to a Kafka topic.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Send(ctx context.Context, event models.Event) error {
	payload, err := json.Marshal(wireEvent(event))
	if err != nil {
		return fmt.Errorf("publisher: marshaling event: %w", err)
	}
	return s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.MatchID), Value: payload})
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
