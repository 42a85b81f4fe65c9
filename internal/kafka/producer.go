package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-festbuzz/internal/config"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/models"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
}

// NewProducer returns a producer whose messages name their own topic.
func NewProducer(brokers []string) *Producer {
	return &Producer{Writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	return p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// EventPublisher routes domain events to their topic by type prefix. A nil
// *EventPublisher drops events, which is how a disabled Kafka is wired.
type EventPublisher struct {
	producer *Producer
	topics   config.TopicConfig
	log      *logger.Logger
}

func NewEventPublisher(p *Producer, topics config.TopicConfig, log *logger.Logger) *EventPublisher {
	return &EventPublisher{producer: p, topics: topics, log: log}
}

// TopicFor maps an event type onto its configured topic.
func (e *EventPublisher) TopicFor(t models.DomainEventType) (string, error) {
	prefix, _, _ := strings.Cut(string(t), ".")
	switch prefix {
	case "fest_registration":
		return e.topics.FestRegistration, nil
	case "event_registration":
		return e.topics.EventRegistration, nil
	case "team":
		return e.topics.Team, nil
	case "certificate":
		return e.topics.Certificate, nil
	}
	return "", fmt.Errorf("no topic for event type %q", t)
}

// Publish sends each event in order. Failures are logged and skipped so a
// committed change never fails on the broker.
func (e *EventPublisher) Publish(ctx context.Context, events ...models.DomainEvent) {
	if e == nil || e.producer == nil {
		return
	}
	for _, ev := range events {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = time.Now().UTC()
		}
		topic, err := e.TopicFor(ev.Type)
		if err != nil {
			e.log.LogKafka("SKIP", "", err.Error())
			continue
		}
		value, err := json.Marshal(ev)
		if err != nil {
			e.log.LogKafka("ERROR", topic, fmt.Sprintf("encode %s: %v", ev.Type, err))
			continue
		}
		if err := e.producer.Publish(ctx, topic, ev.Key(), value); err != nil {
			e.log.LogKafka("ERROR", topic, fmt.Sprintf("publish %s: %v", ev.Type, err))
			continue
		}
		e.log.LogKafka("PUBLISH", topic, string(ev.Type))
	}
}
