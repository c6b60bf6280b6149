package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

// maxMentions caps how many members one broadcast mentions.
const maxMentions = 15

// MentionService keeps the per-chat list of users who opted in to broadcast
// mentions. One implementation is chosen at startup.
type MentionService interface {
	Register(ctx context.Context, chat, user, identity int64, username, firstName string) error
	Members(ctx context.Context, chat int64) ([]*model.GroupMention, error)
	IsRegistered(ctx context.Context, chat, user int64) (bool, error)
}

type RealMentionService struct {
	store *repository.Store
	opts  options
}

func NewRealMentionService(store *repository.Store, opts ...Option) *RealMentionService {
	return &RealMentionService{store: store, opts: buildOptions(opts)}
}

// Register is idempotent: registering again is a success without a write.
func (s *RealMentionService) Register(ctx context.Context, chat, user, identity int64, username, firstName string) error {
	created, err := s.store.Mentions.Register(ctx, &model.GroupMention{
		ChatID:     chat,
		UserID:     user,
		TelegramID: identity,
		Username:   strings.TrimPrefix(username, "@"),
		FirstName:  firstName,
		CreatedAt:  s.opts.now(),
	})
	if err != nil {
		return persistErr(ctx, s.opts.log, "register mention", err, zap.Int64("chat", chat), zap.Int64("user", user))
	}
	if created {
		logger.Ctx(ctx, s.opts.log).Debug("mention registered", zap.Int64("chat", chat), zap.Int64("user", user))
	}
	return nil
}

func (s *RealMentionService) Members(ctx context.Context, chat int64) ([]*model.GroupMention, error) {
	members, err := s.store.Mentions.ListByChat(ctx, chat)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list mentions", err, zap.Int64("chat", chat))
	}
	return members, nil
}

func (s *RealMentionService) IsRegistered(ctx context.Context, chat, user int64) (bool, error) {
	ok, err := s.store.Mentions.Exists(ctx, chat, user)
	if err != nil {
		return false, persistErr(ctx, s.opts.log, "check mention", err, zap.Int64("chat", chat), zap.Int64("user", user))
	}
	return ok, nil
}

// NullMentionService is used when mentions are switched off.
type NullMentionService struct{}

func (NullMentionService) Register(context.Context, int64, int64, int64, string, string) error {
	return ErrMentionsDisabled
}

func (NullMentionService) Members(context.Context, int64) ([]*model.GroupMention, error) {
	return []*model.GroupMention{}, nil
}

func (NullMentionService) IsRegistered(context.Context, int64, int64) (bool, error) {
	return false, nil
}

// Mentionee is the chat member calling a broadcast.
type Mentionee struct {
	Identity  int64  `json:"identity"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

func (m Mentionee) handle() string {
	if m.Username != "" {
		return strings.TrimPrefix(m.Username, "@")
	}
	return m.FirstName
}

// Broadcast is a composed group announcement.
type Broadcast struct {
	Text      string `json:"text"`
	Format    string `json:"format,omitempty"`
	Mentioned int    `json:"mentioned"`
	Total     int    `json:"total"`
}

// ComposeBroadcast renders text with mentions of members. The caller is
// always counted. Members with a username are mentioned as @username, the
// rest through a markdown user link, which also switches the format to
// Markdown.
func ComposeBroadcast(caller Mentionee, members []*model.GroupMention, text string) *Broadcast {
	all := make([]Mentionee, 0, len(members)+1)
	callerIncluded := false
	for _, m := range members {
		if m.TelegramID == caller.Identity {
			callerIncluded = true
		}
		all = append(all, Mentionee{Identity: m.TelegramID, Username: m.Username, FirstName: m.FirstName})
	}
	if !callerIncluded {
		all = append(all, caller)
	}

	if len(all) == 1 {
		return &Broadcast{
			Text:      fmt.Sprintf("📢 %s\n\n👤 @%s", text, caller.handle()),
			Mentioned: 1,
			Total:     1,
		}
	}

	shown := all
	if len(shown) > maxMentions {
		shown = shown[:maxMentions]
	}

	mentions := make([]string, 0, len(shown))
	markdown := false
	for _, m := range shown {
		if m.Username != "" {
			mentions = append(mentions, "@"+strings.TrimPrefix(m.Username, "@"))
			continue
		}
		mentions = append(mentions, fmt.Sprintf("[%s](tg://user?id=%d)", m.FirstName, m.Identity))
		markdown = true
	}

	var b strings.Builder
	b.WriteString("📢 ATTENTION!\n\n")
	b.WriteString(strings.Join(mentions, " "))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "💬 %s\n\n👤 From: @%s", text, caller.handle())
	if len(all) > maxMentions {
		fmt.Fprintf(&b, "\n\n🔔 Mentioned: %d of %d users", len(mentions), len(all))
	}

	out := &Broadcast{Text: b.String(), Mentioned: len(mentions), Total: len(all)}
	if markdown {
		out.Format = notifier.FormatMarkdown
	}
	return out
}

// Broadcaster builds announcements for a chat from its registered members.
type Broadcaster struct {
	mentions MentionService
	opts     options
}

func NewBroadcaster(mentions MentionService, opts ...Option) *Broadcaster {
	return &Broadcaster{mentions: mentions, opts: buildOptions(opts)}
}

// Broadcast registers the caller when needed and composes the announcement.
func (b *Broadcaster) Broadcast(ctx context.Context, chat int64, caller Mentionee, text string) (*Broadcast, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	registered, err := b.mentions.IsRegistered(ctx, chat, caller.Identity)
	if err != nil {
		return nil, err
	}
	if !registered {
		err := b.mentions.Register(ctx, chat, caller.Identity, caller.Identity, caller.Username, caller.FirstName)
		if err != nil && !errors.Is(err, ErrMentionsDisabled) {
			return nil, err
		}
	}

	members, err := b.mentions.Members(ctx, chat)
	if err != nil {
		return nil, err
	}
	return ComposeBroadcast(caller, members, text), nil
}
