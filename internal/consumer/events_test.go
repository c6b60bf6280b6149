package consumer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/config"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/pkg/kafka"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	"github.com/Gopher0727/FeedbackBot/internal/service"
	"github.com/Gopher0727/FeedbackBot/internal/storage"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

const admin int64 = 1001

type env struct {
	db       *gorm.DB
	consumer *EventConsumer
	feedback service.IFeedbackService
	tasks    service.ITaskService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := storage.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close(db) })
	store := repository.NewStore(db)

	settings := config.BotConfig{Admins: []int64{admin}, MaxLength: 100, RetentionDays: 90}
	rec := notifier.NewRecorder()
	admins := service.NewAdminService(store, settings, rec)
	require.NoError(t, admins.SeedAdmins(context.Background()))

	feedback := service.NewFeedbackService(store, service.NewStatsService(store), settings, rec)
	tasks := service.NewTaskService(store, rec)
	return &env{
		db:       db,
		consumer: NewEventConsumer(feedback, tasks, zap.NewNop()),
		feedback: feedback,
		tasks:    tasks,
	}
}

func record(t *testing.T, event any, headers ...*sarama.RecordHeader) *sarama.ConsumerMessage {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Topic: "feedback.events", Value: value, Headers: headers}
}

func TestEventConsumer_Submission(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	err := e.consumer.Handle(ctx, record(t, Event{
		Type:       EventSubmission,
		Submission: &service.SubmitRequest{Profile: service.Profile{Identity: 42}, Text: "hello", Category: "bug"},
	}))
	require.NoError(t, err)

	list, err := e.feedback.ListForUser(ctx, 42, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "hello", list[0].Text)
}

func TestEventConsumer_Reply(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	msg, err := e.feedback.Submit(ctx, service.SubmitRequest{Profile: service.Profile{Identity: 42}, Text: "hello"})
	require.NoError(t, err)

	err = e.consumer.Handle(ctx, record(t, Event{
		Type:  EventReply,
		Reply: &ReplyPayload{MessageID: msg.ID, Admin: admin, Text: "thanks"},
	}))
	require.NoError(t, err)

	pending, err := e.feedback.ListNew(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestEventConsumer_TaskStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	assignee := int64(600)
	task, err := e.tasks.Create(ctx, service.CreateTaskRequest{Title: "ship", CreatedBy: 500, AssignedTo: &assignee})
	require.NoError(t, err)

	err = e.consumer.Handle(ctx, record(t, Event{
		Type:       EventTaskStatus,
		TaskStatus: &TaskStatusPayload{TaskID: task.ID, Status: "in_progress", Actor: assignee},
	}))
	require.NoError(t, err)

	got, err := e.tasks.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.EqualValues(t, "in_progress", got.Status)

	err = e.consumer.Handle(ctx, record(t, Event{
		Type:       EventTaskStatus,
		TaskStatus: &TaskStatusPayload{TaskID: task.ID, Status: "completed", Actor: 700},
	}))
	assert.True(t, kafka.IsPermanent(err), "a stranger's update is rejected for good")
	assert.ErrorIs(t, err, service.ErrAuthorization)
}

func TestEventConsumer_Rejections(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name  string
		value []byte
		want  error
	}{
		{name: "not json", value: []byte("{"), want: ErrMalformedEvent},
		{name: "unknown type", value: []byte(`{"type":"poke"}`), want: ErrMalformedEvent},
		{name: "missing payload", value: []byte(`{"type":"reply"}`), want: ErrMalformedEvent},
		{name: "empty text", value: []byte(`{"type":"submission","submission":{"identity":1,"text":" "}}`), want: service.ErrValidation},
		{name: "unknown message", value: []byte(`{"type":"reply","reply":{"message_id":9,"admin":1001,"text":"x"}}`), want: service.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.consumer.Handle(context.Background(), &sarama.ConsumerMessage{Value: tt.value})
			require.Error(t, err)
			assert.True(t, kafka.IsPermanent(err))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEventConsumer_PersistenceFailureIsRetried(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, storage.Close(e.db))

	err := e.consumer.Handle(context.Background(), record(t, Event{
		Type:       EventSubmission,
		Submission: &service.SubmitRequest{Profile: service.Profile{Identity: 42}, Text: "hello"},
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrPersistence)
	assert.False(t, kafka.IsPermanent(err))
}

func TestTraceID(t *testing.T) {
	msg := record(t, Event{Type: EventSubmission}, &sarama.RecordHeader{Key: []byte(headerTraceID), Value: []byte("abc")})
	assert.Equal(t, "abc", traceID(msg))
	assert.Empty(t, traceID(&sarama.ConsumerMessage{}))

	ctx := logger.WithTraceID(context.Background(), traceID(msg))
	assert.Equal(t, "abc", logger.GetTraceID(ctx))
}
