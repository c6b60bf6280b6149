package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Gopher0727/FeedbackBot/config"
)

// MessageProducer is the publishing side used by notifiers and the DLQ.
type MessageProducer interface {
	Produce(ctx context.Context, topic string, key, value []byte, headers ...sarama.RecordHeader) (partition int32, offset int64, err error)
	Close() error
}

// Producer is a synchronous Kafka producer.
type Producer struct {
	producer sarama.SyncProducer
	config   *config.KafkaConfig
}

func newSaramaConfig(cfg *config.KafkaConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.Producer.MaxRetries
	saramaConfig.Producer.Retry.Backoff = time.Duration(cfg.Producer.RetryBackoffMs) * time.Millisecond
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Metadata.Timeout = 10 * time.Second
	return saramaConfig
}

// NewProducer connects to the configured brokers.
func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, newSaramaConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewProducerFromClient(producer, cfg), nil
}

// NewProducerFromClient wraps an existing sarama producer, e.g. a mock.
func NewProducerFromClient(producer sarama.SyncProducer, cfg *config.KafkaConfig) *Producer {
	return &Producer{producer: producer, config: cfg}
}

func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte, headers ...sarama.RecordHeader) (int32, int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(value),
		Headers: headers,
	}
	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}
	return partition, offset, nil
}

// ProduceWithRetry retries Produce with exponential backoff on top of the
// client's own retries.
func (p *Producer) ProduceWithRetry(ctx context.Context, topic string, key, value []byte, maxRetries int) (int32, int64, error) {
	var lastErr error
	backoff := time.Duration(p.config.Producer.RetryBackoffMs) * time.Millisecond
	for attempt := 0; attempt <= maxRetries; attempt++ {
		partition, offset, err := p.Produce(ctx, topic, key, value)
		if err == nil {
			return partition, offset, nil
		}
		lastErr = err

		if attempt < maxRetries {
			if err := sleep(ctx, backoff); err != nil {
				return 0, 0, err
			}
			backoff *= 2
		}
	}
	return 0, 0, fmt.Errorf("failed to send message after %d attempts: %w", maxRetries+1, lastErr)
}

func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close kafka producer: %w", err)
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
