package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// PaymentApplier applies payment collaborator events to transactions.
type PaymentApplier interface {
	ApplyPaymentStatus(ctx context.Context, event models.PaymentEvent) (*models.Transaction, error)
}

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader     messageReader
	topic      string
	applier    PaymentApplier
	newBackOff func() backoff.BackOff
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

func NewConsumer(brokers []string, topic, groupID string, applier PaymentApplier) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		topic:      topic,
		applier:    applier,
		newBackOff: defaultBackOff,
	}
}

// Consume reads payment events until ctx is cancelled. Offsets are committed
// per partition, so a message is retried until it is applied or rejected for
// good before the next one is fetched.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("payment consumer stopped", "topic", c.topic)
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.topic, "error", err)
			continue
		}

		if err := c.process(ctx, msg); err != nil {
			slog.Info("payment consumer stopped", "topic", c.topic, "pending_offset", msg.Offset)
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("failed to commit Kafka message", "topic", c.topic, "offset", msg.Offset, "error", err)
		}
	}
}

// process retries msg with backoff. It fails only when ctx ends first.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	return backoff.RetryNotify(
		func() error { return c.handle(ctx, msg) },
		backoff.WithContext(c.newBackOff(), ctx),
		func(err error, wait time.Duration) {
			slog.Warn("retrying payment event", "offset", msg.Offset, "wait", wait, "error", err)
		},
	)
}

// handle returns an error only when msg should be retried.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "offset", msg.Offset)

	var event models.PaymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		slog.Error("failed to unmarshal payment event", "offset", msg.Offset, "error", err)
		return nil
	}
	if event.TransactionID == "" {
		slog.Error("invalid payment event: missing transaction_id", "offset", msg.Offset)
		return nil
	}

	tx, err := c.applier.ApplyPaymentStatus(ctx, event)
	switch {
	case err == nil:
		slog.Info("payment event applied", "transaction_id", tx.ID, "status", tx.PaymentStatus)
		return nil
	case stderrors.Is(err, pkgerrors.ErrValidation),
		stderrors.Is(err, pkgerrors.ErrNotFound),
		stderrors.Is(err, pkgerrors.ErrTransactionCompleted):
		// TODO: route rejected payment events to a dead-letter topic
		slog.Warn("payment event rejected", "transaction_id", event.TransactionID, "status", event.PaymentStatus, "error", err)
		return nil
	default:
		slog.Error("failed to apply payment event", "transaction_id", event.TransactionID, "error", err)
		return err
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
