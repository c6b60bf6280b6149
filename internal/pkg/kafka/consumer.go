package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/config"
)

// MessageHandler processes one consumed record.
type MessageHandler func(ctx context.Context, message *sarama.ConsumerMessage) error

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Such records are acknowledged
// without being forwarded to the dead letter topic.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Consumer reads topics as part of a consumer group, retrying failed records
// and forwarding exhausted ones to the DLQ topic.
type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *config.KafkaConfig
	handler       MessageHandler
	dlqProducer   MessageProducer
	topics        []string
	log           *zap.Logger

	readyOnce sync.Once
	ready     chan struct{}
	wg        sync.WaitGroup
	cancel    context.CancelFunc
}

type consumerGroupHandler struct {
	consumer *Consumer
}

func NewConsumer(cfg *config.KafkaConfig, topics []string, handler MessageHandler, log *zap.Logger) (*Consumer, error) {
	saramaConfig := newSaramaConfig(cfg)
	saramaConfig.Version = sarama.V2_6_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer group: %w", err)
	}

	dlqProducer, err := NewProducer(cfg)
	if err != nil {
		consumerGroup.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	return newConsumer(consumerGroup, dlqProducer, cfg, topics, handler, log), nil
}

func newConsumer(group sarama.ConsumerGroup, dlq MessageProducer, cfg *config.KafkaConfig, topics []string, handler MessageHandler, log *zap.Logger) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		consumerGroup: group,
		config:        cfg,
		handler:       handler,
		dlqProducer:   dlq,
		topics:        topics,
		log:           log.Named("kafka-consumer"),
		ready:         make(chan struct{}),
	}
}

// Start joins the group in the background and returns once the first session
// is set up or ctx ends.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		handler := &consumerGroupHandler{consumer: c}
		for {
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.log.Error("consume session ended", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if err := c.consumerGroup.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer group: %w", err)
	}
	if err := c.dlqProducer.Close(); err != nil {
		return fmt.Errorf("failed to close DLQ producer: %w", err)
	}
	return nil
}

func (c *Consumer) Ready() <-chan struct{} {
	return c.ready
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.consumer.readyOnce.Do(func() { close(h.consumer.ready) })
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			h.consumer.handle(session.Context(), message)
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

// handle runs the handler with retries and routes the outcome.
func (c *Consumer) handle(ctx context.Context, message *sarama.ConsumerMessage) {
	err := c.processWithRetry(ctx, message)
	switch {
	case err == nil:
	case IsPermanent(err):
		c.log.Warn("record rejected",
			zap.String("topic", message.Topic),
			zap.Int64("offset", message.Offset),
			zap.Error(err),
		)
	default:
		if dlqErr := c.sendToDLQ(ctx, message, err); dlqErr != nil {
			c.log.Error("failed to forward record to DLQ", zap.Error(dlqErr), zap.NamedError("cause", err))
		}
	}
}

func (c *Consumer) processWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	maxRetries := c.config.Consumer.MaxRetries
	backoff := time.Duration(c.config.Consumer.RetryBackoffMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := c.handler(ctx, message)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		lastErr = err

		if attempt < maxRetries {
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (c *Consumer) sendToDLQ(ctx context.Context, message *sarama.ConsumerMessage, cause error) error {
	headers := []sarama.RecordHeader{
		{Key: []byte("x-original-topic"), Value: []byte(message.Topic)},
		{Key: []byte("x-original-offset"), Value: []byte(strconv.FormatInt(message.Offset, 10))},
		{Key: []byte("x-error"), Value: []byte(cause.Error())},
	}
	if _, _, err := c.dlqProducer.Produce(ctx, c.config.Topics.DLQ, message.Key, message.Value, headers...); err != nil {
		return err
	}

	c.log.Warn("record sent to DLQ",
		zap.String("topic", message.Topic),
		zap.Int32("partition", message.Partition),
		zap.Int64("offset", message.Offset),
		zap.Error(cause),
	)
	return nil
}
