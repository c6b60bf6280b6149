package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{ErrEmptyMessage, ErrValidation},
		{ErrMessageTooLong, ErrValidation},
		{ErrInvalidCategory, ErrValidation},
		{ErrInvalidPriority, ErrValidation},
		{ErrInvalidTaskStatus, ErrValidation},
		{ErrInvalidTeamRole, ErrValidation},
		{ErrEmptyTitle, ErrValidation},
		{ErrAdminNotFound, ErrAuthorization},
		{ErrNotAssignee, ErrAuthorization},
		{ErrNotCreator, ErrAuthorization},
		{ErrNotLeader, ErrAuthorization},
		{ErrMessageNotFound, ErrNotFound},
		{ErrTaskNotFound, ErrNotFound},
		{ErrTeamNotFound, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.True(t, IsDomainError(tt.err))
		})
	}
	assert.False(t, IsDomainError(errors.New("disk full")))
	assert.False(t, errors.Is(ErrBannedUser, ErrValidation))
}

func TestPersistErr(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	log := zap.New(core)
	ctx := context.Background()

	assert.NoError(t, persistErr(ctx, log, "op", nil))
	assert.Same(t, ErrBannedUser, persistErr(ctx, log, "op", ErrBannedUser))
	assert.Zero(t, logs.Len())

	err := persistErr(ctx, log, "submit message", errors.New("database is locked"), zap.Int64("identity", 7))
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotContains(t, err.Error(), "locked")
	assert.Contains(t, err.Error(), "submit message")

	entries := logs.FilterMessage("store operation failed").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "submit message", fields["op"])
		assert.Equal(t, int64(7), fields["identity"])
	}
}
