package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/IBM/sarama"

	"github.com/dyike/ivy/internal/models"
)

// Applier executes a swipe on behalf of a remote actor.
type Applier interface {
	Apply(ctx context.Context, symbol string, action models.SwipeAction) error
}

// Consumer reads swipe requests from a topic and applies them in order.
type Consumer struct {
	client  sarama.ConsumerGroup
	topic   string
	applier Applier
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConsumer(brokers []string, groupID, topic string, applier Applier) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_8_0_0

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return newConsumer(client, topic, applier), nil
}

func newConsumer(client sarama.ConsumerGroup, topic string, applier Applier) *Consumer {
	return &Consumer{client: client, topic: topic, applier: applier}
}

// Start joins the group and returns once the first session is set up. If the
// first join fails the error is returned and the consumer stops.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)
	ready := make(chan struct{})
	failed := make(chan error, 1)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.consumeLoop(ctx, ready, failed)
	}()

	select {
	case <-ready:
	case err := <-failed:
		c.cancel()
		c.wg.Wait()
		return fmt.Errorf("join consumer group: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Info().Str("topic", c.topic).Msg("swipe request consumer ready")
	return nil
}

// consumeLoop rejoins after every rebalance. Each session gets its own ready
// channel; only the first one is watched by Start.
func (c *Consumer) consumeLoop(ctx context.Context, ready chan struct{}, failed chan<- error) {
	started := false
	for {
		handler := &groupHandler{applier: c.applier, ready: ready}
		err := c.client.Consume(ctx, []string{c.topic}, handler)
		if err != nil {
			log.Error().Err(err).Msg("consume failed")
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ready:
			started = true
			ready = make(chan struct{})
		default:
			if !started && err != nil {
				failed <- err
				return
			}
		}
	}
}

func (c *Consumer) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	return c.client.Close()
}

type groupHandler struct {
	applier Applier
	ready   chan struct{}
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := HandleSwipeRequest(session.Context(), h.applier, message.Value); err != nil {
				log.Warn().Err(err).Int64("offset", message.Offset).Msg("swipe request rejected")
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// ErrMalformedRequest marks payloads that can never be applied.
var ErrMalformedRequest = errors.New("malformed swipe request")

// HandleSwipeRequest decodes one request payload and applies it.
func HandleSwipeRequest(ctx context.Context, applier Applier, payload []byte) error {
	var req models.SwipeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	if req.EventType != "" && req.EventType != models.EventSwipeRequest {
		return fmt.Errorf("%w: unexpected event type %q", ErrMalformedRequest, req.EventType)
	}
	symbol := strings.TrimSpace(req.Data.Symbol)
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrMalformedRequest)
	}

	log.Debug().Str("symbol", symbol).Str("action", string(req.Data.Action)).Str("source", req.Source).Msg("applying swipe request")
	return applier.Apply(ctx, symbol, req.Data.Action)
}
