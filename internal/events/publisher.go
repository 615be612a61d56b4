package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/dyike/ivy/internal/logger"
	"github.com/dyike/ivy/internal/models"
)

var log = logger.New("events")

const DefaultSource = "ivy"

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishSwipe(context.Context, models.SwipeData) error { return nil }
func (NopPublisher) PublishRecommendations(context.Context, models.RecommendationData) error {
	return nil
}
func (NopPublisher) Close() error { return nil }

// KafkaPublisher writes swipe and recommendation events as JSON envelopes.
// Swipes are keyed by symbol so one stock's history stays in one partition.
type KafkaPublisher struct {
	producer            sarama.SyncProducer
	swipeTopic          string
	recommendationTopic string
	source              string
	now                 func() time.Time
}

// NewKafkaPublisher dials brokers with a synchronous, fully acknowledged
// producer.
func NewKafkaPublisher(brokers []string, swipeTopic, recommendationTopic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewPublisherWithProducer(producer, swipeTopic, recommendationTopic), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.SyncProducer, swipeTopic, recommendationTopic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer:            producer,
		swipeTopic:          swipeTopic,
		recommendationTopic: recommendationTopic,
		source:              DefaultSource,
		now:                 time.Now,
	}
}

func (p *KafkaPublisher) PublishSwipe(ctx context.Context, data models.SwipeData) error {
	ev := models.SwipeEvent{
		EventID:       uuid.NewString(),
		EventType:     models.EventSwipe,
		Source:        p.source,
		SchemaVersion: models.EventSchemaVersion,
		Timestamp:     p.now().UTC(),
		Data:          data,
	}
	return p.send(ctx, p.swipeTopic, data.Symbol, ev)
}

func (p *KafkaPublisher) PublishRecommendations(ctx context.Context, data models.RecommendationData) error {
	ev := models.RecommendationEvent{
		EventID:       uuid.NewString(),
		EventType:     models.EventRecommendations,
		Source:        p.source,
		SchemaVersion: models.EventSchemaVersion,
		Timestamp:     p.now().UTC(),
		Data:          data,
	}
	return p.send(ctx, p.recommendationTopic, "", ev)
}

func (p *KafkaPublisher) send(ctx context.Context, topic, key string, ev any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	log.Debug().Str("topic", topic).Int32("partition", partition).Int64("offset", offset).Msg("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
