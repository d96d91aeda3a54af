package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-deposits/internal/logger"
)

// Publisher sends domain events somewhere. Failures are for the caller to
// log; they never undo the change that produced the event.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Producer struct {
	Writer *kafka.Writer
	Logger *logger.Logger
}

func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Logger: log}
}

// Publish streams value as JSON to topic, keyed so that events for the same
// deposit stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msg, err := newMessage(topic, key, value)
	if err != nil {
		return err
	}

	p.Logger.LogKafka("PUBLISH", topic, fmt.Sprintf("key=%s %s", key, string(msg.Value)))

	if err := p.Writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

func newMessage(topic, key string, value interface{}) (kafka.Message, error) {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", topic, err)
	}
	return kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
		Time:  time.Now().UTC(),
	}, nil
}

// LogPublisher stands in for Kafka when it is disabled and only logs events.
type LogPublisher struct {
	Logger *logger.Logger
}

func (p LogPublisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	msg, err := newMessage(topic, key, value)
	if err != nil {
		return err
	}
	p.Logger.LogKafka("SKIPPED", topic, fmt.Sprintf("kafka disabled, key=%s %s", key, string(msg.Value)))
	return nil
}
