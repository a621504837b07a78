package teamrequests_test

import (
	"context"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/services/notify"
	"github.com/dalemusser/projecthub/internal/app/services/notify/notifytest"
	"github.com/dalemusser/projecthub/internal/app/services/servicetest"
	"github.com/dalemusser/projecthub/internal/app/services/teamrequests"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	svc   *teamrequests.Service
	teams *servicetest.Teams
	users *servicetest.Users
	notes *notifytest.MemStore

	leader authz.Actor
	member authz.Actor
	other  authz.Actor
	team   models.Team
	ctx    context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		teams: servicetest.NewTeams(),
		users: servicetest.NewUsers(),
		notes: notifytest.NewMemStore(),
		ctx:   context.Background(),
	}
	leader := e.users.Put(models.User{FullName: "Lena Leader", Role: "team_leader", IsActive: true})
	member := e.users.Put(models.User{FullName: "Mo Member", Role: "member", IsActive: true})
	other := e.users.Put(models.User{FullName: "Otto Other", Role: "member", IsActive: true})
	e.team = e.teams.Put(models.Team{Name: "Core", TeamLeader: leader.ID, Members: []primitive.ObjectID{member.ID}, IsActive: true})

	e.leader = authz.Actor{ID: leader.ID, Role: authz.RoleTeamLeader}
	e.member = authz.Actor{ID: member.ID, Role: authz.RoleMember}
	e.other = authz.Actor{ID: other.ID, Role: authz.RoleMember}

	e.svc = teamrequests.New(e.teams, e.users, notify.New(e.notes, zap.NewNop()), zap.NewNop())
	return e
}

func TestRequestJoin_GoesToLeader(t *testing.T) {
	e := newEnv(t)

	n, err := e.svc.RequestJoin(e.ctx, e.other, e.team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotifyTeamJoinRequest, n.Type)
	assert.Equal(t, e.leader.ID, n.Recipient)
	assert.Equal(t, models.RequestPending, n.Status)
	require.NotNil(t, n.Counterpart)
	assert.Equal(t, e.other.ID, *n.Counterpart)
	assert.Contains(t, n.Message, "Otto Other")
}

func TestRequestJoin_DuplicateWhilePending(t *testing.T) {
	e := newEnv(t)

	first, err := e.svc.RequestJoin(e.ctx, e.other, e.team.ID)
	require.NoError(t, err)

	_, err = e.svc.RequestJoin(e.ctx, e.other, e.team.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Len(t, e.notes.All(), 1)

	require.NoError(t, e.svc.Decline(e.ctx, e.leader, first.ID))
	_, err = e.svc.RequestJoin(e.ctx, e.other, e.team.ID)
	assert.NoError(t, err, "a new request is allowed once the first is answered")
}

func TestRequestJoin_AlreadyOnTeam(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.RequestJoin(e.ctx, e.member, e.team.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = e.svc.RequestJoin(e.ctx, e.leader, e.team.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = e.svc.RequestJoin(e.ctx, e.other, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAcceptJoinRequest_LinksBothSides(t *testing.T) {
	e := newEnv(t)
	n, err := e.svc.RequestJoin(e.ctx, e.other, e.team.ID)
	require.NoError(t, err)

	// The requester cannot answer their own request.
	assert.ErrorIs(t, e.svc.Accept(e.ctx, e.other, n.ID), apperr.ErrNotFound)

	require.NoError(t, e.svc.Accept(e.ctx, e.leader, n.ID))

	team, _ := e.teams.GetByID(e.ctx, e.team.ID)
	assert.True(t, team.HasMember(e.other.ID))
	u, _ := e.users.GetByID(e.ctx, e.other.ID)
	assert.Contains(t, u.Teams, e.team.ID)
	assert.Empty(t, e.notes.All(), "accepted requests are deleted")
}

func TestInvite_OnlyLeader(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Invite(e.ctx, e.member, e.team.ID, e.other.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.svc.Invite(e.ctx, e.leader, e.team.ID, e.member.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = e.svc.Invite(e.ctx, e.leader, e.team.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestInvite_AcceptByInvitee(t *testing.T) {
	e := newEnv(t)
	n, err := e.svc.Invite(e.ctx, e.leader, e.team.ID, e.other.ID)
	require.NoError(t, err)
	assert.Equal(t, e.other.ID, n.Recipient)
	require.NotNil(t, n.Counterpart)
	assert.Equal(t, e.other.ID, *n.Counterpart)

	_, err = e.svc.Invite(e.ctx, e.leader, e.team.ID, e.other.ID)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	require.NoError(t, e.svc.Accept(e.ctx, e.other, n.ID))
	team, _ := e.teams.GetByID(e.ctx, e.team.ID)
	assert.True(t, team.HasMember(e.other.ID))
}

func TestDecline_LeavesMembership(t *testing.T) {
	e := newEnv(t)
	n, err := e.svc.Invite(e.ctx, e.leader, e.team.ID, e.other.ID)
	require.NoError(t, err)

	require.NoError(t, e.svc.Decline(e.ctx, e.other, n.ID))
	team, _ := e.teams.GetByID(e.ctx, e.team.ID)
	assert.False(t, team.HasMember(e.other.ID))
	assert.Empty(t, e.notes.All())

	assert.ErrorIs(t, e.svc.Decline(e.ctx, e.other, n.ID), apperr.ErrNotFound)
}

func TestAccept_RejectsInformational(t *testing.T) {
	e := newEnv(t)
	d := notify.New(e.notes, zap.NewNop())
	require.True(t, d.Emit(e.ctx, notify.Message{
		Type:      models.NotifySystemAnnouncement,
		Recipient: e.other.ID,
		Title:     "Hi",
	}))
	n := e.notes.All()[0]

	assert.ErrorIs(t, e.svc.Accept(e.ctx, e.other, n.ID), apperr.ErrValidation)
	assert.ErrorIs(t, e.svc.Decline(e.ctx, e.other, n.ID), apperr.ErrValidation)
}
