package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/internal/pkg/kafka"
	"github.com/Gopher0727/FeedbackBot/internal/service"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

// Event types accepted on the events topic.
const (
	EventSubmission = "submission"
	EventReply      = "reply"
	EventTaskStatus = "task_status"
)

const headerTraceID = "x-trace-id"

// Event is the envelope the chat gateway publishes. Exactly one payload is
// set, matching Type.
type Event struct {
	Type       string                 `json:"type"`
	Submission *service.SubmitRequest `json:"submission,omitempty"`
	Reply      *ReplyPayload          `json:"reply,omitempty"`
	TaskStatus *TaskStatusPayload     `json:"task_status,omitempty"`
}

type ReplyPayload struct {
	MessageID uint   `json:"message_id"`
	Admin     int64  `json:"admin"`
	Text      string `json:"text"`
}

type TaskStatusPayload struct {
	TaskID uint   `json:"task_id"`
	Status string `json:"status"`
	Actor  int64  `json:"actor"`
}

var ErrMalformedEvent = errors.New("malformed event")

// EventConsumer applies gateway events to the services.
type EventConsumer struct {
	feedbackService service.IFeedbackService
	taskService     service.ITaskService
	log             *zap.Logger
}

func NewEventConsumer(feedbackService service.IFeedbackService, taskService service.ITaskService, log *zap.Logger) *EventConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventConsumer{
		feedbackService: feedbackService,
		taskService:     taskService,
		log:             log,
	}
}

// Handle is a kafka.MessageHandler. Undecodable records and domain rejections
// are marked permanent so they are neither retried nor dead-lettered.
func (c *EventConsumer) Handle(ctx context.Context, message *sarama.ConsumerMessage) error {
	ctx = logger.WithTraceID(ctx, traceID(message))
	log := logger.Ctx(ctx, c.log)

	var event Event
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return kafka.Permanent(fmt.Errorf("%w: %v", ErrMalformedEvent, err))
	}

	err := c.dispatch(ctx, &event)
	switch {
	case err == nil:
		log.Debug("event applied", zap.String("type", event.Type), zap.Int64("offset", message.Offset))
		return nil
	case errors.Is(err, ErrMalformedEvent):
		return kafka.Permanent(err)
	case service.IsDomainError(err) && !errors.Is(err, service.ErrPersistence):
		log.Info("event rejected", zap.String("type", event.Type), zap.Error(err))
		return kafka.Permanent(err)
	default:
		return err
	}
}

func (c *EventConsumer) dispatch(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventSubmission:
		if event.Submission == nil || event.Submission.Identity == 0 {
			return fmt.Errorf("%w: submission payload missing", ErrMalformedEvent)
		}
		_, err := c.feedbackService.Submit(ctx, *event.Submission)
		return err

	case EventReply:
		if event.Reply == nil || event.Reply.MessageID == 0 {
			return fmt.Errorf("%w: reply payload missing", ErrMalformedEvent)
		}
		_, err := c.feedbackService.Reply(ctx, event.Reply.MessageID, event.Reply.Admin, event.Reply.Text)
		return err

	case EventTaskStatus:
		if event.TaskStatus == nil || event.TaskStatus.TaskID == 0 {
			return fmt.Errorf("%w: task_status payload missing", ErrMalformedEvent)
		}
		p := event.TaskStatus
		return c.taskService.SetStatus(ctx, p.TaskID, p.Status, p.Actor)
	}
	return fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, event.Type)
}

func traceID(message *sarama.ConsumerMessage) string {
	for _, h := range message.Headers {
		if h != nil && string(h.Key) == headerTraceID {
			return string(h.Value)
		}
	}
	return ""
}
