// Package kafka wraps segmentio/kafka-go for the analytics event stream:
// a batching JSON producer and a consumer-group reader.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/String-Analysis-Service/pkg/config"
)

// MessageHandler processes one message. A returned error is logged and the
// message is still committed, so one bad payload cannot stall the partition.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

const fetchBackoff = time.Second

type Consumer struct {
	reader    *kafka.Reader
	handler   MessageHandler
	logger    *slog.Logger
	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer joins cfg.ConsumerGroup on topic. New groups start at the tail
// of the topic.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     time.Second,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled and closes the reader on the way out.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer func() {
		c.logger.Info("consumer stopped",
			"processed", c.processed.Load(),
			"failed", c.failed.Load(),
		)
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		switch {
		case ctx.Err() != nil:
			return c.reader.Close()
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			c.logger.Error("fetch failed, backing off", "error", err, "backoff", fetchBackoff)
			select {
			case <-time.After(fetchBackoff):
			case <-ctx.Done():
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	log := c.logger.With("partition", msg.Partition, "offset", msg.Offset)
	if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
		c.failed.Add(1)
		log.Error("handler failed, skipping message", "error", err)
	} else {
		c.processed.Add(1)
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		log.Error("commit failed", "error", err)
	}
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var out T
	if err := json.Unmarshal(value, &out); err != nil {
		return out, fmt.Errorf("decoding kafka message: %w", err)
	}
	return out, nil
}
