package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// MessageHandler processes one consumed message.
// shouldMark reports whether the offset may be committed; returning false
// leaves the message for redelivery. Offsets commit cumulatively, so an
// unmarked message ends the claim and the group rejoins from it.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

// Consumer reads a topic through a consumer group and hands every message
// to a MessageHandler.
type Consumer struct {
	consumer sarama.ConsumerGroup
	handler  MessageHandler
	topic    string
	groupID  string
	ready    chan bool
	backoff  time.Duration
	logger   *zap.Logger
}

// redeliveryBackoff is the pause before rejoining after an unmarked message.
const redeliveryBackoff = 30 * time.Second

// ConsumerConfig holds Kafka consumer configuration
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	Logger  *zap.Logger
	// RetryBackoff overrides the pause before a failed message is retried
	RetryBackoff time.Duration
}

func NewConsumer(config ConsumerConfig) (*Consumer, error) {
	if config.Handler == nil {
		return nil, errors.New("kafka consumer requires a handler")
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	client, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	backoff := config.RetryBackoff
	if backoff <= 0 {
		backoff = redeliveryBackoff
	}

	return &Consumer{
		consumer: client,
		handler:  config.Handler,
		topic:    config.Topic,
		groupID:  config.GroupID,
		ready:    make(chan bool),
		backoff:  backoff,
		logger:   logger,
	}, nil
}

// Start joins the group and returns once the first session is set up.
// Consumption continues in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		messageHandler: c.handler,
		ready:          c.ready,
		logger:         c.logger,
	}

	go func() {
		for {
			if err := c.consumer.Consume(ctx, []string{c.topic}, handler); err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, sarama.ErrClosedConsumerGroup) {
					c.logger.Info("Kafka consumer stopped")
					return
				}
				c.logger.Error("Kafka consume failed", zap.Error(err))
			}

			if ctx.Err() != nil {
				return
			}
			if handler.redeliver.Swap(false) {
				c.logger.Info("Rejoining to retry failed message", zap.Duration("backoff", c.backoff))
				select {
				case <-ctx.Done():
					return
				case <-time.After(c.backoff):
				}
			}
			handler.ready = make(chan bool)
		}
	}()

	select {
	case <-c.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	c.logger.Info("Kafka consumer started", zap.String("group", c.groupID), zap.String("topic", c.topic))

	go func() {
		for err := range c.consumer.Errors() {
			c.logger.Error("Kafka consumer error", zap.Error(err))
		}
	}()

	return nil
}

func (c *Consumer) Close() error {
	c.logger.Info("Closing Kafka consumer")
	return c.consumer.Close()
}

// groupHandler implements sarama.ConsumerGroupHandler
type groupHandler struct {
	messageHandler MessageHandler
	ready          chan bool
	redeliver      atomic.Bool
	logger         *zap.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	select {
	case <-h.ready:
	default:
		close(h.ready)
	}
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}

			h.logger.Info("Received run request",
				zap.Int32("partition", message.Partition),
				zap.Int64("offset", message.Offset),
				zap.ByteString("key", message.Key))

			shouldMark, err := h.messageHandler.HandleMessage(session.Context(), message.Value)
			if err != nil {
				h.logger.Error("Run request failed", zap.Int64("offset", message.Offset), zap.Error(err))
			}
			if !shouldMark {
				// Marking a later offset would commit past this one
				h.redeliver.Store(true)
				return fmt.Errorf("message %d/%d left for redelivery", message.Partition, message.Offset)
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}
