package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
)

func TestAdminService_SeedAdmins(t *testing.T) {
	env := newTestEnv(t)
	svc := env.admins()
	ctx := context.Background()

	require.NoError(t, svc.SeedAdmins(ctx))
	require.NoError(t, svc.SeedAdmins(ctx), "seeding twice is a no-op")

	admins, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	for _, a := range admins {
		assert.Equal(t, model.RoleAdmin, a.Role)
		assert.True(t, a.HasPermission("reply"))
	}

	ok, err := svc.IsAdmin(ctx, adminA)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsAdmin(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminService_SeedKeepsExistingPermissions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Admins.EnsureExists(ctx, &model.Admin{
		TelegramID:  adminA,
		Role:        "moderator",
		Permissions: "read",
		CreatedAt:   base,
	}))
	require.NoError(t, env.admins().SeedAdmins(ctx))

	a, err := env.store.Admins.FindByTelegramID(ctx, adminA)
	require.NoError(t, err)
	assert.Equal(t, "moderator", a.Role)
	assert.False(t, a.HasPermission("reply"))
}

func TestAdminService_CallAdmins(t *testing.T) {
	env := newTestEnv(t)
	env.settings.admins = []int64{adminA, adminB, 1003}
	env.seedAdmins()
	env.rec.Fail[1003] = true

	n, err := env.admins().CallAdmins(context.Background(), adminA, "Alice", "server is down")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Empty(t, env.rec.To(adminA))
	sent := env.rec.To(adminB)
	require.Len(t, sent, 1)
	assert.Equal(t, notifier.KindAdminCall, sent[0].Kind)
	assert.Contains(t, sent[0].Text, "Call from Alice")
	assert.Contains(t, sent[0].Text, "server is down")
}
