package projects_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/features/projects"
	"github.com/dalemusser/projecthub/internal/app/services/lifecycle"
	"github.com/dalemusser/projecthub/internal/app/services/tasks"
	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/auditlog"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// fakeLifecycle records the last call and returns err for every operation.
type fakeLifecycle struct {
	err error

	listIn    lifecycle.ListInput
	createIn  lifecycle.CreateInput
	updateIn  lifecycle.UpdateInput
	assignTo  primitive.ObjectID
	action    lifecycle.Action
	deletedID primitive.ObjectID
}

func (f *fakeLifecycle) List(_ context.Context, _ authz.Actor, in lifecycle.ListInput) ([]lifecycle.ProjectView, error) {
	f.listIn = in
	return []lifecycle.ProjectView{}, f.err
}

func (f *fakeLifecycle) Get(_ context.Context, _ authz.Actor, id primitive.ObjectID) (lifecycle.ProjectView, error) {
	return lifecycle.ProjectView{Project: models.Project{ID: id}}, f.err
}

func (f *fakeLifecycle) Create(_ context.Context, _ authz.Actor, in lifecycle.CreateInput) (lifecycle.ProjectView, error) {
	f.createIn = in
	return lifecycle.ProjectView{Project: models.Project{ID: primitive.NewObjectID(), Name: in.Name}}, f.err
}

func (f *fakeLifecycle) Update(_ context.Context, _ authz.Actor, id primitive.ObjectID, in lifecycle.UpdateInput) (lifecycle.ProjectView, error) {
	f.updateIn = in
	return lifecycle.ProjectView{Project: models.Project{ID: id}}, f.err
}

func (f *fakeLifecycle) Delete(_ context.Context, _ authz.Actor, id primitive.ObjectID) error {
	f.deletedID = id
	return f.err
}

func (f *fakeLifecycle) Assign(_ context.Context, _ authz.Actor, id, teamID primitive.ObjectID) (lifecycle.ProjectView, error) {
	f.assignTo = teamID
	return lifecycle.ProjectView{Project: models.Project{ID: id, Team: &teamID}, State: models.StatePending}, f.err
}

func (f *fakeLifecycle) Respond(_ context.Context, _ authz.Actor, id primitive.ObjectID, action lifecycle.Action) (lifecycle.ProjectView, error) {
	f.action = action
	return lifecycle.ProjectView{Project: models.Project{ID: id}}, f.err
}

func (f *fakeLifecycle) PermanentlyDelete(_ context.Context, _ authz.Actor, id primitive.ObjectID) (lifecycle.DeleteResult, error) {
	f.deletedID = id
	return lifecycle.DeleteResult{TasksDeleted: 4}, f.err
}

type fakeTasks struct {
	createIn tasks.CreateInput
	err      error
}

func (f *fakeTasks) List(context.Context, authz.Actor, primitive.ObjectID) ([]models.Task, error) {
	return []models.Task{}, f.err
}

func (f *fakeTasks) Create(_ context.Context, _ authz.Actor, projectID primitive.ObjectID, in tasks.CreateInput) (models.Task, error) {
	f.createIn = in
	return models.Task{ID: primitive.NewObjectID(), Project: projectID, Title: in.Title}, f.err
}

func newRouter(lc *fakeLifecycle, tk *fakeTasks) http.Handler {
	h := projects.NewHandler(lc, tk, zap.NewNop())
	return projects.Routes(h, auth.NewMiddleware(nil, nil, nil, zap.NewNop()))
}

func do(t *testing.T, router http.Handler, a *authz.Actor, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, method, target, body)
	if a != nil {
		req = testutil.WithActor(req, *a)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreate_AssignsTeamFromBody(t *testing.T) {
	lc := &fakeLifecycle{}
	admin := testutil.AdminActor()
	team := primitive.NewObjectID()

	rec := do(t, newRouter(lc, &fakeTasks{}), &admin, http.MethodPost, "/", map[string]any{
		"name":     "Website",
		"deadline": "2026-11-01T00:00:00Z",
		"team":     team.Hex(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Website", lc.createIn.Name)
	require.NotNil(t, lc.createIn.Team)
	assert.Equal(t, team, *lc.createIn.Team)
	require.NotNil(t, lc.createIn.Deadline)
}

func TestCreate_RejectsBadInput(t *testing.T) {
	admin := testutil.AdminActor()
	router := newRouter(&fakeLifecycle{}, &fakeTasks{})

	assert.Equal(t, http.StatusBadRequest, do(t, router, &admin, http.MethodPost, "/", map[string]any{"name": ""}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, &admin, http.MethodPost, "/", map[string]any{"name": "x", "team": "nope"}).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, router, &admin, http.MethodPost, "/", map[string]any{"name": "x", "color": "red"}).Code)
}

func TestRoleGates(t *testing.T) {
	router := newRouter(&fakeLifecycle{}, &fakeTasks{})
	leader := testutil.LeaderActor(primitive.NewObjectID())
	member := testutil.MemberActor(primitive.NewObjectID())
	admin := testutil.AdminActor()
	pid := primitive.NewObjectID().Hex()

	assert.Equal(t, http.StatusUnauthorized, do(t, router, nil, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, &leader, http.MethodPost, "/", map[string]any{"name": "x"}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, &member, http.MethodPost, "/"+pid+"/assign", map[string]any{"team_id": pid}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, &admin, http.MethodPut, "/"+pid+"/respond", map[string]any{"action": "accept"}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, router, &member, http.MethodDelete, "/"+pid+"/permanent", nil).Code)
}

func TestList_PassesFilters(t *testing.T) {
	lc := &fakeLifecycle{}
	admin := testutil.AdminActor()

	rec := do(t, newRouter(lc, &fakeTasks{}), &admin, http.MethodGet, "/?status=in_progress&search=web&include_inactive=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, lifecycle.ListInput{Status: "in_progress", Search: "web", IncludeInactive: true}, lc.listIn)
}

func TestAssign(t *testing.T) {
	lc := &fakeLifecycle{}
	admin := testutil.AdminActor()
	team := primitive.NewObjectID()
	pid := primitive.NewObjectID().Hex()

	rec := do(t, newRouter(lc, &fakeTasks{}), &admin, http.MethodPost, "/"+pid+"/assign", map[string]any{"team_id": team.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, team, lc.assignTo)

	var body map[string]any
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, string(models.StatePending), body["state"])
}

func TestRespond(t *testing.T) {
	leader := testutil.LeaderActor(primitive.NewObjectID())
	pid := primitive.NewObjectID().Hex()

	tests := []struct {
		action string
		want   int
		parsed lifecycle.Action
	}{
		{"accept", http.StatusOK, lifecycle.Accept},
		{"Rejected", http.StatusOK, lifecycle.Reject},
		{"maybe", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			lc := &fakeLifecycle{}
			rec := do(t, newRouter(lc, &fakeTasks{}), &leader, http.MethodPut, "/"+pid+"/respond", map[string]any{"action": tt.action})
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, tt.parsed, lc.action)
		})
	}
}

func TestRespond_ServiceErrorsMapToStatus(t *testing.T) {
	leader := testutil.LeaderActor(primitive.NewObjectID())
	pid := primitive.NewObjectID().Hex()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperr.NotFound("project not found"), http.StatusNotFound},
		{"forbidden", apperr.Forbidden("not your team"), http.StatusForbidden},
		{"wrong state", apperr.Policy("project is not pending"), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newRouter(&fakeLifecycle{err: tt.err}, &fakeTasks{}), &leader, http.MethodPut, "/"+pid+"/respond", map[string]any{"action": "accept"})
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestPermanentDelete(t *testing.T) {
	lc := &fakeLifecycle{}
	leader := testutil.LeaderActor(primitive.NewObjectID())
	pid := primitive.NewObjectID()

	rec := do(t, newRouter(lc, &fakeTasks{}), &leader, http.MethodDelete, "/"+pid.Hex()+"/permanent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pid, lc.deletedID)

	var body struct {
		Deleted      bool  `json:"deleted"`
		TasksDeleted int64 `json:"tasks_deleted"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.True(t, body.Deleted)
	assert.Equal(t, int64(4), body.TasksDeleted)
}

func TestUpdate_TeamAndFields(t *testing.T) {
	lc := &fakeLifecycle{}
	admin := testutil.AdminActor()
	team := primitive.NewObjectID()
	pid := primitive.NewObjectID().Hex()

	rec := do(t, newRouter(lc, &fakeTasks{}), &admin, http.MethodPatch, "/"+pid, map[string]any{"name": "Renamed", "team": team.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, lc.updateIn.Name)
	assert.Equal(t, "Renamed", *lc.updateIn.Name)
	assert.Nil(t, lc.updateIn.Description)
	require.NotNil(t, lc.updateIn.Team)
	assert.Equal(t, team, *lc.updateIn.Team)
}

func TestDelete(t *testing.T) {
	lc := &fakeLifecycle{}
	admin := testutil.AdminActor()
	pid := primitive.NewObjectID()

	rec := do(t, newRouter(lc, &fakeTasks{}), &admin, http.MethodDelete, "/"+pid.Hex(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, pid, lc.deletedID)
}

func TestCreateTask(t *testing.T) {
	tk := &fakeTasks{}
	leader := testutil.LeaderActor(primitive.NewObjectID())
	assignee := primitive.NewObjectID()
	pid := primitive.NewObjectID().Hex()

	rec := do(t, newRouter(&fakeLifecycle{}, tk), &leader, http.MethodPost, "/"+pid+"/tasks", map[string]any{
		"title":       "Write copy",
		"assigned_to": assignee.Hex(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Write copy", tk.createIn.Title)
	require.NotNil(t, tk.createIn.AssignedTo)
	assert.Equal(t, assignee, *tk.createIn.AssignedTo)
}

func TestGet_BadID(t *testing.T) {
	member := testutil.MemberActor(primitive.NewObjectID())
	rec := do(t, newRouter(&fakeLifecycle{}, &fakeTasks{}), &member, http.MethodGet, "/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type auditRecorder struct{ events []audit.Event }

func (a *auditRecorder) Log(_ context.Context, e audit.Event) error {
	a.events = append(a.events, e)
	return nil
}

func TestAssign_WritesAuditEvent(t *testing.T) {
	rec := &auditRecorder{}
	h := projects.NewHandler(&fakeLifecycle{}, &fakeTasks{}, zap.NewNop())
	h.AuditLog = auditlog.New(rec, zap.NewNop(), auditlog.Config{Admin: auditlog.ModeDB})
	router := projects.Routes(h, auth.NewMiddleware(nil, nil, nil, zap.NewNop()))

	admin := testutil.AdminActor()
	team := primitive.NewObjectID()
	pid := primitive.NewObjectID()
	resp := do(t, router, &admin, http.MethodPost, "/"+pid.Hex()+"/assign", map[string]any{"team_id": team.Hex()})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, audit.EventProjectAssigned, ev.EventType)
	assert.Equal(t, team, *ev.TeamID)
	assert.Equal(t, admin.ID, *ev.ActorID)
	assert.Equal(t, pid.Hex(), ev.Details["project_id"])
}

func TestAssign_FailureIsNotAudited(t *testing.T) {
	rec := &auditRecorder{}
	h := projects.NewHandler(&fakeLifecycle{err: apperr.NotFound("project not found")}, &fakeTasks{}, zap.NewNop())
	h.AuditLog = auditlog.New(rec, zap.NewNop(), auditlog.Config{Admin: auditlog.ModeDB})
	router := projects.Routes(h, auth.NewMiddleware(nil, nil, nil, zap.NewNop()))

	admin := testutil.AdminActor()
	resp := do(t, router, &admin, http.MethodPost, "/"+primitive.NewObjectID().Hex()+"/assign", map[string]any{"team_id": primitive.NewObjectID().Hex()})
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Empty(t, rec.events)
}
