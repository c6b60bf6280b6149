package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

type IAdminService interface {
	SeedAdmins(ctx context.Context) error
	IsAdmin(ctx context.Context, identity int64) (bool, error)
	List(ctx context.Context) ([]*model.Admin, error)
	CallAdmins(ctx context.Context, caller int64, callerName, text string) (int, error)
}

type AdminService struct {
	store    *repository.Store
	settings Settings
	notifier notifier.Notifier
	opts     options
}

func NewAdminService(store *repository.Store, settings Settings, n notifier.Notifier, opts ...Option) IAdminService {
	return &AdminService{store: store, settings: settings, notifier: n, opts: buildOptions(opts)}
}

// SeedAdmins inserts every configured administrator that is not stored yet.
// Existing rows keep their role and permissions.
func (s *AdminService) SeedAdmins(ctx context.Context) error {
	now := s.opts.now()
	for _, id := range s.settings.AdminIDs() {
		err := s.store.Admins.EnsureExists(ctx, &model.Admin{
			TelegramID:  id,
			Role:        model.RoleAdmin,
			Permissions: model.DefaultAdminPermissions,
			CreatedAt:   now,
		})
		if err != nil {
			return persistErr(ctx, s.opts.log, "seed admins", err, zap.Int64("identity", id))
		}
	}
	s.opts.log.Info("administrators seeded", zap.Int("count", len(s.settings.AdminIDs())))
	return nil
}

func (s *AdminService) IsAdmin(ctx context.Context, identity int64) (bool, error) {
	_, err := s.store.Admins.FindByTelegramID(ctx, identity)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, persistErr(ctx, s.opts.log, "find admin", err, zap.Int64("identity", identity))
	}
	return true, nil
}

func (s *AdminService) List(ctx context.Context) ([]*model.Admin, error) {
	admins, err := s.store.Admins.List(ctx)
	if err != nil {
		return nil, persistErr(ctx, s.opts.log, "list admins", err)
	}
	return admins, nil
}

// CallAdmins pages every stored administrator except the caller and returns
// how many were reached.
func (s *AdminService) CallAdmins(ctx context.Context, caller int64, callerName, text string) (int, error) {
	admins, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	body := fmt.Sprintf("🔔 Call from %s\n\n%s", callerName, text)
	reached := 0
	for _, a := range admins {
		if a.TelegramID == caller {
			continue
		}
		if err := s.notifier.Notify(ctx, &notifier.Notification{
			Recipient: a.TelegramID,
			Text:      body,
			Kind:      notifier.KindAdminCall,
		}); err != nil {
			logger.Ctx(ctx, s.opts.log).Warn("admin call not delivered", zap.Int64("admin", a.TelegramID), zap.Error(err))
			continue
		}
		reached++
	}
	return reached, nil
}
