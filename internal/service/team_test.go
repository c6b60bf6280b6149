package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gopher0727/FeedbackBot/internal/model"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
)

const (
	leader int64 = 10
	deputy int64 = 11
	member int64 = 12
)

func TestTeamService_Create(t *testing.T) {
	env := newTestEnv(t)
	svc := env.teams()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateTeamRequest{Name: " "})
	assert.ErrorIs(t, err, ErrEmptyName)

	team, err := svc.Create(ctx, CreateTeamRequest{Name: " Backend ", Description: "api", Leader: i64(leader)})
	require.NoError(t, err)
	assert.Equal(t, "Backend", team.Name)

	members, err := svc.Members(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, leader, members[0].MemberID)
	assert.Equal(t, model.TeamRoleLeader, members[0].Role)

	_, err = svc.Create(ctx, CreateTeamRequest{Name: "Backend"})
	assert.ErrorIs(t, err, ErrTeamExists)

	orphan, err := svc.Create(ctx, CreateTeamRequest{Name: "Orphans"})
	require.NoError(t, err)
	members, err = svc.Members(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestTeamService_AddMember(t *testing.T) {
	env := newTestEnv(t)
	svc := env.teams()
	ctx := context.Background()

	team, err := svc.Create(ctx, CreateTeamRequest{Name: "Ops", Leader: i64(leader)})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.AddMember(ctx, team.ID, leader, member, "boss"), ErrInvalidTeamRole)
	assert.ErrorIs(t, svc.AddMember(ctx, team.ID+10, leader, member, ""), ErrTeamNotFound)
	assert.ErrorIs(t, svc.AddMember(ctx, team.ID, member, member, ""), ErrNotLeader)

	require.NoError(t, svc.AddMember(ctx, team.ID, leader, member, ""))
	require.NoError(t, svc.AddMember(ctx, team.ID, leader, deputy, "member"))
	require.NoError(t, svc.AddMember(ctx, team.ID, leader, deputy, "deputy"), "re-adding changes the role")

	members, err := svc.Members(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, []int64{leader, deputy, member}, []int64{members[0].MemberID, members[1].MemberID, members[2].MemberID})
	assert.Equal(t, model.TeamRoleDeputy, members[1].Role)

	sent := env.rec.To(member)
	require.Len(t, sent, 1)
	assert.Equal(t, notifier.KindTeamJoined, sent[0].Kind)
	assert.Contains(t, sent[0].Text, `"Ops"`)
}

func TestTeamService_TeamsOf(t *testing.T) {
	env := newTestEnv(t)
	svc := env.teams()
	ctx := context.Background()

	b, err := svc.Create(ctx, CreateTeamRequest{Name: "Beta", Leader: i64(leader)})
	require.NoError(t, err)
	a, err := svc.Create(ctx, CreateTeamRequest{Name: "Alpha", Leader: i64(leader)})
	require.NoError(t, err)
	require.NoError(t, svc.AddMember(ctx, b.ID, leader, member, ""))

	teams, err := svc.TeamsOf(ctx, leader)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, a.ID, teams[0].ID)
	assert.Equal(t, b.ID, teams[1].ID)

	teams, err = svc.TeamsOf(ctx, member)
	require.NoError(t, err)
	require.Len(t, teams, 1)

	teams, err = svc.TeamsOf(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, teams)

	_, err = svc.Members(ctx, 999)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}
