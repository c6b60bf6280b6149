package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
)

// Error kinds. Every sentinel below wraps exactly one of them so callers can
// branch with errors.Is on the kind alone.
var (
	ErrValidation    = errors.New("validation failed")
	ErrAuthorization = errors.New("not authorized")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence failure")
	ErrBannedUser    = errors.New("user is banned")

	ErrMentionsDisabled = errors.New("mentions are disabled")
)

var (
	ErrEmptyMessage      = fmt.Errorf("%w: message text is empty", ErrValidation)
	ErrMessageTooLong    = fmt.Errorf("%w: message text is too long", ErrValidation)
	ErrInvalidCategory   = fmt.Errorf("%w: unknown category", ErrValidation)
	ErrInvalidPriority   = fmt.Errorf("%w: unknown priority", ErrValidation)
	ErrInvalidTaskStatus = fmt.Errorf("%w: unknown task status", ErrValidation)
	ErrInvalidTeamRole   = fmt.Errorf("%w: unknown team role", ErrValidation)
	ErrEmptyTitle        = fmt.Errorf("%w: title is empty", ErrValidation)
	ErrEmptyReply        = fmt.Errorf("%w: reply text is empty", ErrValidation)
	ErrEmptyName         = fmt.Errorf("%w: name is empty", ErrValidation)
	ErrInvalidWindow     = fmt.Errorf("%w: window must be at least one day", ErrValidation)
	ErrTeamExists        = fmt.Errorf("%w: team name already taken", ErrValidation)

	ErrAdminNotFound    = fmt.Errorf("%w: administrator not found", ErrAuthorization)
	ErrNotAssignee      = fmt.Errorf("%w: actor is not the assignee", ErrAuthorization)
	ErrNotCreator       = fmt.Errorf("%w: actor is not the creator", ErrAuthorization)
	ErrNotLeader        = fmt.Errorf("%w: actor is not the team leader", ErrAuthorization)
	ErrPermissionDenied = fmt.Errorf("%w: permission denied", ErrAuthorization)

	ErrUserNotFound    = fmt.Errorf("%w: user", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("%w: message", ErrNotFound)
	ErrTaskNotFound    = fmt.Errorf("%w: task", ErrNotFound)
	ErrTeamNotFound    = fmt.Errorf("%w: team", ErrNotFound)
	ErrQuoteNotFound   = fmt.Errorf("%w: quote", ErrNotFound)
)

// IsDomainError reports whether err is one of the errors above rather than
// an unclassified store or transport failure.
func IsDomainError(err error) bool {
	for _, kind := range []error{ErrValidation, ErrAuthorization, ErrNotFound, ErrPersistence, ErrBannedUser, ErrMentionsDisabled} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// persistErr logs a store failure under op and hides it behind ErrPersistence.
// Domain errors returned from inside a transaction pass through unchanged.
func persistErr(ctx context.Context, log *zap.Logger, op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	if IsDomainError(err) {
		return err
	}
	logger.Ctx(ctx, log).Error("store operation failed",
		append([]zap.Field{zap.String("op", op), zap.Error(err)}, fields...)...,
	)
	return fmt.Errorf("%s: %w", op, ErrPersistence)
}
