package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
)

// permanentBan is written as the expiry of a ban given without one, since a
// ban flag without an expiry does not block.
var permanentBan = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// Profile is the chat-platform profile of an end-user.
type Profile struct {
	Identity  int64  `json:"identity" binding:"required"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type IUserService interface {
	Upsert(ctx context.Context, p Profile) (uint, error)
	Get(ctx context.Context, identity int64) (*model.User, error)
	Ban(ctx context.Context, identity int64, reason string, until *time.Time) error
	Unban(ctx context.Context, identity int64) error
}

type UserService struct {
	store *repository.Store
	opts  options
}

func NewUserService(store *repository.Store, opts ...Option) IUserService {
	return &UserService{store: store, opts: buildOptions(opts)}
}

// Upsert registers or refreshes a user. A user whose ban has not expired
// gets ErrBannedUser and nothing is written.
func (s *UserService) Upsert(ctx context.Context, p Profile) (uint, error) {
	id, err := upsertUser(ctx, s.store, p, s.opts.now())
	if err != nil {
		return 0, persistErr(ctx, s.opts.log, "upsert user", err, zap.Int64("identity", p.Identity))
	}
	return id, nil
}

// upsertUser runs the ban gate and the upsert against store, which may be
// bound to a transaction.
func upsertUser(ctx context.Context, store *repository.Store, p Profile, now time.Time) (uint, error) {
	existing, err := store.Users.FindByTelegramID(ctx, p.Identity)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if existing != nil && existing.BannedAt(now) {
		return 0, ErrBannedUser
	}

	return store.Users.Upsert(ctx, &model.User{
		TelegramID:   p.Identity,
		Username:     strings.TrimPrefix(p.Username, "@"),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		CreatedAt:    now,
		LastActivity: now,
	})
}

func (s *UserService) Get(ctx context.Context, identity int64) (*model.User, error) {
	user, err := s.store.Users.FindByTelegramID(ctx, identity)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistErr(ctx, s.opts.log, "get user", err, zap.Int64("identity", identity))
	}
	return user, nil
}

// Ban blocks the user until the given time, or indefinitely when until is nil.
func (s *UserService) Ban(ctx context.Context, identity int64, reason string, until *time.Time) error {
	expiry := permanentBan
	if until != nil {
		expiry = *until
	}
	untilText := model.FormatBanUntil(expiry)

	var reasonPtr *string
	if reason = strings.TrimSpace(reason); reason != "" {
		reasonPtr = &reason
	}

	n, err := s.store.Users.SetBan(ctx, identity, true, reasonPtr, &untilText)
	if err != nil {
		return persistErr(ctx, s.opts.log, "ban user", err, zap.Int64("identity", identity))
	}
	if n == 0 {
		return ErrUserNotFound
	}
	s.opts.log.Info("user banned", zap.Int64("identity", identity), zap.String("until", untilText))
	return nil
}

func (s *UserService) Unban(ctx context.Context, identity int64) error {
	n, err := s.store.Users.SetBan(ctx, identity, false, nil, nil)
	if err != nil {
		return persistErr(ctx, s.opts.log, "unban user", err, zap.Int64("identity", identity))
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
