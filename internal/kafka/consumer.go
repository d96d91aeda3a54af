package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-deposits/internal/logger"
	"ms-deposits/internal/models"
)

// messageReader is the part of *kafka.Reader the consumer needs.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer follows the deposit topics so that every instance can feed its
// own live streams.
type Consumer struct {
	reader     messageReader
	logger     *logger.Logger
	retryDelay time.Duration
}

func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log, retryDelay: 2 * time.Second}
}

// Start blocks until ctx is cancelled, passing each deposit event to handler.
func (c *Consumer) Start(ctx context.Context, handler func(models.DepositEvent)) {
	c.logger.Info("KAFKA", "Deposit event consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("KAFKA", "Deposit event consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message, retrying in %s: %v", c.retryDelay, err))
			select {
			case <-ctx.Done():
				c.logger.Info("KAFKA", "Deposit event consumer stopped")
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		event, err := decodeDepositEvent(msg)
		if err != nil {
			c.logger.Warn("KAFKA", err.Error())
			continue
		}
		handler(event)
	}
}

func decodeDepositEvent(msg kafka.Message) (models.DepositEvent, error) {
	var event models.DepositEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal message from %s: %w", msg.Topic, err)
	}
	if event.Type == "" || event.Deposit.ID == "" {
		return event, fmt.Errorf("message from %s is not a deposit event", msg.Topic)
	}
	return event, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
