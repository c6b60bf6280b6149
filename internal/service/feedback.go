package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

const (
	defaultUserListLimit = 20
	defaultNewListLimit  = 50

	permReply = "reply"
)

type SubmitRequest struct {
	Profile
	Text      string `json:"text"`
	Category  string `json:"category"`
	Anonymous bool   `json:"anonymous"`
}

type IFeedbackService interface {
	Submit(ctx context.Context, req SubmitRequest) (*model.Message, error)
	NotifyAdmins(ctx context.Context, msg *model.Message, sender Profile)
	Reply(ctx context.Context, messageID uint, adminIdentity int64, text string) (*model.Reply, error)
	ListForUser(ctx context.Context, identity int64, limit int) ([]*model.MessageWithReply, error)
	ListNew(ctx context.Context, limit int) ([]*model.PendingMessage, error)
	CleanupExpired(ctx context.Context) (int64, error)
}

type FeedbackService struct {
	store    *repository.Store
	stats    IStatsService
	settings Settings
	notifier notifier.Notifier
	opts     options
}

func NewFeedbackService(store *repository.Store, stats IStatsService, settings Settings, n notifier.Notifier, opts ...Option) IFeedbackService {
	return &FeedbackService{
		store:    store,
		stats:    stats,
		settings: settings,
		notifier: n,
		opts:     buildOptions(opts),
	}
}

// Submit validates and stores a new message, refreshes the day's statistic in
// the same transaction and then notifies the administrators.
func (s *FeedbackService) Submit(ctx context.Context, req SubmitRequest) (*model.Message, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(req.Text) > s.settings.MaxMessageLength() {
		return nil, ErrMessageTooLong
	}
	category, err := model.ParseCategory(req.Category)
	if err != nil {
		return nil, ErrInvalidCategory
	}

	now := s.opts.now()
	var msg *model.Message
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		userID, err := upsertUser(ctx, tx, req.Profile, now)
		if err != nil {
			return err
		}

		msg = &model.Message{
			UserID:      userID,
			Text:        req.Text,
			Category:    category,
			Status:      model.StatusNew,
			IsAnonymous: req.Anonymous,
			CreatedAt:   now,
		}
		if err := tx.Messages.Create(ctx, msg); err != nil {
			return err
		}
		return s.stats.RecomputeTx(ctx, tx, now)
	})
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "submit message", err, zap.Int64("identity", req.Identity))
	}

	s.stats.Invalidate(ctx)
	logger.Ctx(ctx, s.opts.log).Info("message submitted",
		zap.Uint("message_id", msg.ID),
		zap.String("category", string(msg.Category)),
		zap.Bool("anonymous", msg.IsAnonymous),
	)

	if s.settings.AdminNotificationsEnabled() {
		s.NotifyAdmins(ctx, msg, req.Profile)
	}
	return msg, nil
}

// NotifyAdmins sends one notice per configured administrator. A failed
// delivery is logged and the remaining administrators are still tried.
func (s *FeedbackService) NotifyAdmins(ctx context.Context, msg *model.Message, sender Profile) {
	text := formatAdminNotice(msg, sender)
	for _, admin := range s.settings.AdminIDs() {
		err := s.notifier.Notify(ctx, &notifier.Notification{
			Recipient: admin,
			Text:      text,
			Kind:      notifier.KindNewMessage,
		})
		if err != nil {
			logger.Ctx(ctx, s.opts.log).Error("admin notification failed",
				zap.Int64("admin", admin),
				zap.Uint("message_id", msg.ID),
				zap.Error(err),
			)
		}
	}
}

// Reply stores an administrator's answer. Only the first reply moves the
// message to replied and fixes its response time.
func (s *FeedbackService) Reply(ctx context.Context, messageID uint, adminIdentity int64, text string) (*model.Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyReply
	}

	now := s.opts.now()
	var (
		msg   *model.Message
		reply *model.Reply
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		admin, err := tx.Admins.FindByTelegramID(ctx, adminIdentity)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		if err != nil {
			return err
		}
		if !admin.HasPermission(permReply) {
			return ErrPermissionDenied
		}

		msg, err = tx.Messages.FindByID(ctx, messageID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		if err != nil {
			return err
		}

		reply = &model.Reply{MessageID: msg.ID, AdminID: admin.ID, Text: text, CreatedAt: now}
		if err := tx.Replies.Create(ctx, reply); err != nil {
			return err
		}

		if msg.Status == model.StatusNew {
			if _, err := tx.Messages.MarkReplied(ctx, msg.ID, now, model.ResponseMinutes(msg.CreatedAt, now)); err != nil {
				return err
			}
		}

		if err := s.stats.RecomputeTx(ctx, tx, now); err != nil {
			return err
		}
		if model.DayKey(msg.CreatedAt) != model.DayKey(now) {
			return s.stats.RecomputeTx(ctx, tx, msg.CreatedAt)
		}
		return nil
	})
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "reply to message", err,
			zap.Uint("message_id", messageID), zap.Int64("admin", adminIdentity))
	}

	s.stats.Invalidate(ctx)
	logger.Ctx(ctx, s.opts.log).Info("message replied", zap.Uint("message_id", msg.ID), zap.Int64("admin", adminIdentity))

	if msg.User != nil {
		err := s.notifier.Notify(ctx, &notifier.Notification{
			Recipient: msg.User.TelegramID,
			Text:      formatReplyNotice(msg.ID, text),
			Kind:      notifier.KindReply,
		})
		if err != nil {
			logger.Ctx(ctx, s.opts.log).Error("reply delivery failed", zap.Uint("message_id", msg.ID), zap.Error(err))
		}
	}
	return reply, nil
}

// ListForUser returns the identity's messages newest first, each with its
// earliest reply when there is one.
func (s *FeedbackService) ListForUser(ctx context.Context, identity int64, limit int) ([]*model.MessageWithReply, error) {
	if limit <= 0 {
		limit = defaultUserListLimit
	}

	user, err := s.store.Users.FindByTelegramID(ctx, identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []*model.MessageWithReply{}, nil
	}
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list user messages", err, zap.Int64("identity", identity))
	}

	messages, err := s.store.Messages.ListByUser(ctx, user.ID, limit)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list user messages", err, zap.Int64("identity", identity))
	}

	ids := make([]uint, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	first, err := s.store.Replies.FirstByMessages(ctx, ids)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list user messages", err, zap.Int64("identity", identity))
	}

	out := make([]*model.MessageWithReply, 0, len(messages))
	for _, m := range messages {
		item := &model.MessageWithReply{Message: *m}
		if r, ok := first[m.ID]; ok {
			text, at := r.Text, r.CreatedAt
			item.ReplyText, item.ReplyAt = &text, &at
		}
		out = append(out, item)
	}
	return out, nil
}

// ListNew returns unanswered messages oldest first with their sender. Names
// of anonymous senders are left out.
func (s *FeedbackService) ListNew(ctx context.Context, limit int) ([]*model.PendingMessage, error) {
	if limit <= 0 {
		limit = defaultNewListLimit
	}

	messages, err := s.store.Messages.ListByStatus(ctx, model.StatusNew, limit)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list new messages", err)
	}

	out := make([]*model.PendingMessage, 0, len(messages))
	for _, m := range messages {
		item := &model.PendingMessage{Message: *m}
		if m.User != nil {
			item.SenderIdentity = m.User.TelegramID
			if !m.IsAnonymous {
				item.SenderUsername = m.User.Username
				item.SenderName = m.User.DisplayName()
			}
		}
		out = append(out, item)
	}
	return out, nil
}

// CleanupExpired deletes replied messages older than the retention period
// together with their replies and refreshes the affected daily statistics.
func (s *FeedbackService) CleanupExpired(ctx context.Context) (int64, error) {
	days := s.settings.AutoDeleteDays()
	if days <= 0 {
		return 0, nil
	}
	cutoff := s.opts.now().Add(-time.Duration(days) * 24 * time.Hour)

	var deleted int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		expired, err := tx.Messages.FindRepliedBefore(ctx, cutoff)
		if err != nil || len(expired) == 0 {
			return err
		}

		ids := make([]uint, len(expired))
		affected := make(map[string]time.Time)
		for i, m := range expired {
			ids[i] = m.ID
			affected[model.DayKey(m.CreatedAt)] = m.CreatedAt
		}

		if _, err := tx.Replies.DeleteByMessages(ctx, ids); err != nil {
			return err
		}
		if deleted, err = tx.Messages.DeleteByIDs(ctx, ids); err != nil {
			return err
		}
		for _, day := range affected {
			if err := s.stats.RecomputeTx(ctx, tx, day); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, persistErr(ctx, s.opts.log, "cleanup expired messages", err, zap.Time("cutoff", cutoff))
	}

	if deleted > 0 {
		s.stats.Invalidate(ctx)
		logger.Ctx(ctx, s.opts.log).Info("expired messages deleted", zap.Int64("count", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}
