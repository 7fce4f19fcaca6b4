package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/honeynil/ParcelMatchService/internal/infrastructure/observability"
	"github.com/honeynil/ParcelMatchService/internal/models"
	"github.com/segmentio/kafka-go"
)

const publishTimeout = 5 * time.Second

// messageWriter is the part of *kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, topic: topic}
}

func (p *Producer) Send(ctx context.Context, key string, value []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("failed to send Kafka message", "topic", p.topic, "key", key, "error", err)
		return err
	}
	slog.Info("Kafka message sent", "topic", p.topic, "key", key)
	return nil
}

// NotifyStatusChange publishes the event in the background, keyed by parcel
// so one parcel's events stay ordered. Failures are logged and counted only.
func (p *Producer) NotifyStatusChange(ctx context.Context, event models.StatusEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		observability.NotificationFailures.Inc()
		slog.Error("failed to marshal status event", "parcel_id", event.ParcelID, "error", err)
		return
	}

	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := p.Send(ctx, event.ParcelID, value); err != nil {
			observability.NotificationFailures.Inc()
			slog.Warn("status notification dropped", "parcel_id", event.ParcelID, "status", event.Status, "error", err)
		}
	}()
}

func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		slog.Error("failed to close Kafka writer", "error", err)
		return err
	}
	slog.Info("Kafka writer closed")
	return nil
}
