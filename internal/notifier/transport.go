package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/internal/pkg/kafka"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

// KafkaNotifier publishes notifications to a topic keyed by recipient so a
// recipient's notices stay ordered within one partition.
type KafkaNotifier struct {
	producer kafka.MessageProducer
	topic    string
}

func NewKafkaNotifier(producer kafka.MessageProducer, topic string) *KafkaNotifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	key := []byte(strconv.FormatInt(n.Recipient, 10))
	_, _, err = k.producer.Produce(ctx, k.topic, key, payload,
		sarama.RecordHeader{Key: []byte("kind"), Value: []byte(n.Kind)},
	)
	return err
}

// Publisher is the subset of the NATS client used for notifications.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, hdr map[string]string, msgID string) error
}

type NATSNotifier struct {
	pub     Publisher
	subject string
}

func NewNATSNotifier(pub Publisher, subject string) *NATSNotifier {
	return &NATSNotifier{pub: pub, subject: subject}
}

func (s *NATSNotifier) Notify(ctx context.Context, n *Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	hdr := map[string]string{"Kind": string(n.Kind)}
	return s.pub.Publish(ctx, s.subject, payload, hdr, strconv.FormatInt(n.ID, 10))
}

// LogNotifier writes notifications to the log instead of a chat transport.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log.Named("notify")}
}

func (l *LogNotifier) Notify(ctx context.Context, n *Notification) error {
	logger.Ctx(ctx, l.log).Info("notification",
		zap.Int64("id", n.ID),
		zap.Int64("recipient", n.Recipient),
		zap.String("kind", string(n.Kind)),
		zap.String("format", n.Format),
		zap.String("text", n.Text),
	)
	return nil
}
