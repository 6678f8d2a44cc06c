package repository

import (
	"context"
	"time"

	"LPRange/internal/domain/models"
	domrepo "LPRange/internal/domain/repository"
)

// EventType tags evaluation events on the wire.
const EventType = "lprange.evaluation.v1"

// MessageProducer is the subset of the Kafka producer used here.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// EvaluationEvent is the message published for each evaluation.
type EvaluationEvent struct {
	Type        string    `json:"type"`
	PublishedAt time.Time `json:"published_at"`
	*models.Evaluation
}

// KafkaPublisher implements EvaluationPublisher for Kafka.
type KafkaPublisher struct {
	producer MessageProducer
	topic    string
	now      func() time.Time
}

var _ domrepo.EvaluationPublisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates Kafka publisher. producer is usually a *kafka.Producer.
func NewKafkaPublisher(producer MessageProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, now: time.Now}
}

// Publish sends the evaluation keyed by pair so events for one pair stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, ev *models.Evaluation) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Pair), EvaluationEvent{
		Type:        EventType,
		PublishedAt: p.now().UTC(),
		Evaluation:  ev,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
