package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Upsert(t *testing.T) {
	env := newTestEnv(t)
	svc := env.users()
	ctx := context.Background()

	id, err := svc.Upsert(ctx, Profile{Identity: 42, Username: "@alice", FirstName: "Alice"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	env.clock.Advance(time.Hour)
	again, err := svc.Upsert(ctx, Profile{Identity: 42, Username: "alice2", FirstName: "Alice", LastName: "Smith"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	user, err := svc.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
	assert.Equal(t, "Smith", user.LastName)
	assert.True(t, user.LastActivity.Equal(base.Add(time.Hour)))
	assert.True(t, user.CreatedAt.Equal(base))
}

func TestUserService_GetUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users().Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserService_Ban(t *testing.T) {
	env := newTestEnv(t)
	svc := env.users()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, Profile{Identity: 7, FirstName: "Bob"})
	require.NoError(t, err)

	until := base.Add(48 * time.Hour)
	require.NoError(t, svc.Ban(ctx, 7, "  spam ", &until))

	user, err := svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, user.IsBanned)
	require.NotNil(t, user.BanReason)
	assert.Equal(t, "spam", *user.BanReason)
	require.NotNil(t, user.BanUntil)
	assert.Equal(t, "2025-04-12 12:00:00", *user.BanUntil)

	_, err = svc.Upsert(ctx, Profile{Identity: 7, FirstName: "Changed"})
	assert.ErrorIs(t, err, ErrBannedUser)

	user, err = svc.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.FirstName, "a banned upsert writes nothing")

	env.clock.Advance(49 * time.Hour)
	_, err = svc.Upsert(ctx, Profile{Identity: 7, FirstName: "Changed"})
	assert.NoError(t, err, "expired ban no longer blocks")
}

func TestUserService_BanWithoutExpiryIsPermanent(t *testing.T) {
	env := newTestEnv(t)
	svc := env.users()
	ctx := context.Background()

	_, err := svc.Upsert(ctx, Profile{Identity: 8})
	require.NoError(t, err)
	require.NoError(t, svc.Ban(ctx, 8, "", nil))

	user, err := svc.Get(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, user.BanReason)
	assert.Equal(t, "9999-12-31 23:59:59", *user.BanUntil)

	env.clock.Advance(24 * 365 * 100 * time.Hour)
	_, err = svc.Upsert(ctx, Profile{Identity: 8})
	assert.ErrorIs(t, err, ErrBannedUser)

	require.NoError(t, svc.Unban(ctx, 8))
	_, err = svc.Upsert(ctx, Profile{Identity: 8})
	assert.NoError(t, err)
}

func TestUserService_UnreadableBanDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.users().Upsert(ctx, Profile{Identity: 9})
	require.NoError(t, err)

	garbage := "next tuesday"
	_, err = env.store.Users.SetBan(ctx, 9, true, nil, &garbage)
	require.NoError(t, err)

	_, err = env.users().Upsert(ctx, Profile{Identity: 9})
	assert.NoError(t, err)
}

func TestUserService_BanUnknown(t *testing.T) {
	env := newTestEnv(t)
	svc := env.users()

	assert.ErrorIs(t, svc.Ban(context.Background(), 1, "x", nil), ErrUserNotFound)
	assert.ErrorIs(t, svc.Unban(context.Background(), 1), ErrUserNotFound)
}
