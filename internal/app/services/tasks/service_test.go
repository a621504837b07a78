package tasks_test

import (
	"context"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/services/notify"
	"github.com/dalemusser/projecthub/internal/app/services/notify/notifytest"
	"github.com/dalemusser/projecthub/internal/app/services/servicetest"
	"github.com/dalemusser/projecthub/internal/app/services/tasks"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	svc      *tasks.Service
	tasks    *servicetest.Tasks
	projects *servicetest.Projects
	notes    *notifytest.MemStore

	admin   authz.Actor
	leader  authz.Actor
	other   authz.Actor
	worker  authz.Actor
	project models.Project
	ctx     context.Context
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	users := servicetest.NewUsers()
	teams := servicetest.NewTeams()
	e := &env{
		tasks:    servicetest.NewTasks(),
		projects: servicetest.NewProjects(),
		notes:    notifytest.NewMemStore(),
		ctx:      ctx,
	}

	admin := users.Put(models.User{FullName: "Admin", Role: "admin", IsActive: true})
	leader := users.Put(models.User{FullName: "Leader", Role: "team_leader", IsActive: true})
	other := users.Put(models.User{FullName: "Other", Role: "team_leader", IsActive: true})
	worker := users.Put(models.User{FullName: "Worker", Role: "member", IsActive: true})
	team := teams.Put(models.Team{Name: "Core", TeamLeader: leader.ID, Members: []primitive.ObjectID{worker.ID}, IsActive: true})
	teams.Put(models.Team{Name: "Else", TeamLeader: other.ID, IsActive: true})

	p, err := e.projects.Create(ctx, models.Project{Name: "Apollo", CreatedBy: admin.ID})
	require.NoError(t, err)
	require.NoError(t, e.projects.Assign(ctx, p.ID, team.ID, p.CreatedAt))
	e.project, _ = e.projects.GetByID(ctx, p.ID)

	e.admin = authz.Actor{ID: admin.ID, Role: authz.RoleAdmin}
	e.leader = authz.Actor{ID: leader.ID, Role: authz.RoleTeamLeader}
	e.other = authz.Actor{ID: other.ID, Role: authz.RoleTeamLeader}
	e.worker = authz.Actor{ID: worker.ID, Role: authz.RoleMember}

	e.svc = tasks.New(tasks.Deps{
		Tasks:    e.tasks,
		Projects: e.projects,
		Teams:    teams,
		Users:    users,
		Index:    teampolicy.NewIndex(teams),
		Notifier: notify.New(e.notes, zap.NewNop()),
		Logger:   zap.NewNop(),
	})
	return e
}

func TestCreate_WithAssigneeNotifies(t *testing.T) {
	e := newEnv(t)

	task, err := e.svc.Create(e.ctx, e.leader, e.project.ID, tasks.CreateInput{
		Title:      "Write outline",
		AssignedTo: &e.worker.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskTodo, task.Status)
	assert.Equal(t, e.leader.ID, task.CreatedBy)

	got := e.notes.For(e.worker.ID, models.NotifyTaskAssigned)
	require.Len(t, got, 1)
	assert.Equal(t, models.TaskTarget(task.ID), got[0].Target)
}

func TestCreate_UnassignedDoesNotNotify(t *testing.T) {
	e := newEnv(t)

	task, err := e.svc.Create(e.ctx, e.admin, e.project.ID, tasks.CreateInput{Title: "Backlog item"})
	require.NoError(t, err)
	assert.Nil(t, task.AssignedTo)
	assert.Empty(t, e.notes.All())
}

func TestCreate_Rules(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Create(e.ctx, e.other, e.project.ID, tasks.CreateInput{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.svc.Create(e.ctx, e.worker, e.project.ID, tasks.CreateInput{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = e.svc.Create(e.ctx, e.admin, e.project.ID, tasks.CreateInput{Title: " "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	ghost := primitive.NewObjectID()
	_, err = e.svc.Create(e.ctx, e.admin, e.project.ID, tasks.CreateInput{Title: "x", AssignedTo: &ghost})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.Create(e.ctx, e.admin, primitive.NewObjectID(), tasks.CreateInput{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateStatus_DoneNotifiesCreatorOnce(t *testing.T) {
	e := newEnv(t)
	task, err := e.svc.Create(e.ctx, e.leader, e.project.ID, tasks.CreateInput{Title: "Ship", AssignedTo: &e.worker.ID})
	require.NoError(t, err)

	updated, err := e.svc.UpdateStatus(e.ctx, e.worker, task.ID, models.TaskReview)
	require.NoError(t, err)
	assert.Equal(t, models.TaskReview, updated.Status)
	assert.Empty(t, e.notes.For(e.leader.ID, models.NotifyTaskUpdated))

	updated, err = e.svc.UpdateStatus(e.ctx, e.worker, task.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, models.TaskDone, updated.Status)
	assert.Equal(t, 100, updated.Progress)
	assert.Len(t, e.notes.For(e.leader.ID, models.NotifyTaskUpdated), 1)

	// Already done: no second notification.
	_, err = e.svc.UpdateStatus(e.ctx, e.worker, task.ID, models.TaskDone)
	require.NoError(t, err)
	assert.Len(t, e.notes.For(e.leader.ID, models.NotifyTaskUpdated), 1)
}

func TestUpdateStatus_Rules(t *testing.T) {
	e := newEnv(t)
	task, err := e.svc.Create(e.ctx, e.admin, e.project.ID, tasks.CreateInput{Title: "Ship"})
	require.NoError(t, err)

	_, err = e.svc.UpdateStatus(e.ctx, e.leader, task.ID, "someday")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = e.svc.UpdateStatus(e.ctx, e.worker, task.ID, models.TaskInProgress)
	assert.ErrorIs(t, err, apperr.ErrForbidden, "not the assignee")

	_, err = e.svc.UpdateStatus(e.ctx, e.leader, primitive.NewObjectID(), models.TaskInProgress)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateProgress_Range(t *testing.T) {
	e := newEnv(t)
	task, err := e.svc.Create(e.ctx, e.leader, e.project.ID, tasks.CreateInput{Title: "Ship", AssignedTo: &e.worker.ID})
	require.NoError(t, err)

	for _, bad := range []int{-1, 101} {
		_, err = e.svc.UpdateProgress(e.ctx, e.worker, task.ID, bad)
		assert.ErrorIs(t, err, apperr.ErrValidation, "progress %d", bad)
	}
	updated, err := e.svc.UpdateProgress(e.ctx, e.worker, task.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Progress)
}

func TestReassign(t *testing.T) {
	e := newEnv(t)
	task, err := e.svc.Create(e.ctx, e.leader, e.project.ID, tasks.CreateInput{Title: "Ship"})
	require.NoError(t, err)

	_, err = e.svc.Reassign(e.ctx, e.worker, task.ID, &e.worker.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	updated, err := e.svc.Reassign(e.ctx, e.leader, task.ID, &e.worker.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, e.worker.ID, *updated.AssignedTo)
	assert.Len(t, e.notes.For(e.worker.ID, models.NotifyTaskAssigned), 1)

	// Same assignee again: nothing new to announce.
	_, err = e.svc.Reassign(e.ctx, e.leader, task.ID, &e.worker.ID)
	require.NoError(t, err)
	assert.Len(t, e.notes.For(e.worker.ID, models.NotifyTaskAssigned), 1)

	updated, err = e.svc.Reassign(e.ctx, e.leader, task.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.AssignedTo)
}

func TestList_Visibility(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Create(e.ctx, e.leader, e.project.ID, tasks.CreateInput{Title: "a"})
	require.NoError(t, err)

	got, err := e.svc.List(e.ctx, e.worker, e.project.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = e.svc.List(e.ctx, e.other, e.project.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
