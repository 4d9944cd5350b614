package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"problems-service/internal/logging"
	"problems-service/internal/models"
	"problems-service/internal/utils"
)

// Producer publishes one audit event per completed problem update so
// downstream consumers can follow operator activity. Publishing is best
// effort: a failure is logged by the caller, never surfaced to the user.
type Producer struct {
	writer *kafka.Writer
	logger *logging.Logger
}

func NewProducer(broker, topic string, logger *logging.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	logger.Infof("Kafka producer ready for topic %s at %s", topic, broker)
	return &Producer{writer: writer, logger: logger}
}

// PublishUpdate writes one update record keyed by event id.
func (p *Producer) PublishUpdate(ctx context.Context, rec models.UpdateRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal update event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(rec.EventID),
		Value: payload,
		Time:  rec.CreatedAt,
	}

	return utils.Retry(p.logger, 3, time.Second, func() error {
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			return fmt.Errorf("write update event: %w", err)
		}
		return nil
	})
}

func (p *Producer) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Errorf("Failed to close kafka writer: %v", err)
	}
}
