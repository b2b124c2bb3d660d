package producer

import (
	"context"
	"encoding/json"
	"time"

	"pickup-service/internal/notify"

	"github.com/segmentio/kafka-go"
)

// NotificationProducer пишет сообщения рассылки в топик; доставку выполняет сервис уведомлений.
type NotificationProducer struct {
	writer *kafka.Writer
}

func NewNotificationProducer(brokers []string, topic string) *NotificationProducer {
	return &NotificationProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

func (p *NotificationProducer) Publish(ctx context.Context, msg notify.Message) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.RecipientID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Event.Type)},
		},
	})
}

func (p *NotificationProducer) Close() error {
	return p.writer.Close()
}
