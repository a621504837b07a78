package users_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/features/users"
	"github.com/dalemusser/projecthub/internal/app/policy/teampolicy"
	"github.com/dalemusser/projecthub/internal/app/policy/visibility"
	"github.com/dalemusser/projecthub/internal/app/services/servicetest"
	teamsvc "github.com/dalemusser/projecthub/internal/app/services/teams"
	userstore "github.com/dalemusser/projecthub/internal/app/store/users"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func setup(t *testing.T) (http.Handler, *servicetest.Users, authz.Actor, authz.Actor) {
	t.Helper()
	teams := servicetest.NewTeams()
	us := servicetest.NewUsers()

	admin := us.Put(models.User{FullName: "Admin", Email: "admin@example.com", Role: "admin", IsActive: true})
	leader := us.Put(models.User{FullName: "Leader", Email: "leader@example.com", Role: "team_leader", IsActive: true})
	mate := us.Put(models.User{FullName: "Mate", Email: "mate@example.com", Role: "member", IsActive: true})
	us.Put(models.User{FullName: "Stranger", Email: "stranger@example.com", Role: "member", IsActive: true})

	team := teams.Put(models.Team{Name: "Core", TeamLeader: leader.ID, Members: []primitive.ObjectID{mate.ID}, IsActive: true})
	ctx := context.Background()
	require.NoError(t, us.AddTeam(ctx, leader.ID, team.ID))
	require.NoError(t, us.AddTeam(ctx, mate.ID, team.ID))

	idx := teampolicy.NewIndex(teams)
	svc := teamsvc.New(teamsvc.Deps{Teams: teams, Users: us, Filter: visibility.New(idx), Index: idx, Logger: zap.NewNop()})
	router := users.Routes(users.NewHandler(svc, zap.NewNop()), auth.NewMiddleware(nil, nil, nil, zap.NewNop()))

	a := testutil.AdminActor()
	a.ID = admin.ID
	return router, us, a, testutil.LeaderActor(leader.ID)
}

func serve(t *testing.T, router http.Handler, a authz.Actor, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, testutil.WithActor(testutil.NewJSONRequest(t, method, target, body), a))
	return rec
}

func TestServeList_FilteredForLeader(t *testing.T) {
	router, _, admin, leader := setup(t)

	var body struct {
		Users []models.User `json:"users"`
	}
	rec := serve(t, router, admin, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.DecodeJSON(t, rec, &body)
	assert.Len(t, body.Users, 4)

	rec = serve(t, router, leader, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	testutil.DecodeJSON(t, rec, &body)
	names := []string{}
	for _, u := range body.Users {
		names = append(names, u.FullName)
	}
	assert.ElementsMatch(t, []string{"Leader", "Mate"}, names)
}

func TestServeList_BadQuery(t *testing.T) {
	router, _, admin, _ := setup(t)
	assert.Equal(t, http.StatusBadRequest, serve(t, router, admin, http.MethodGet, "/?team=xyz", nil).Code)
	assert.Equal(t, http.StatusBadRequest, serve(t, router, admin, http.MethodGet, "/?role=wizard", nil).Code)
}

func TestHandleCreate(t *testing.T) {
	router, us, admin, leader := setup(t)
	body := map[string]any{
		"full_name": "New Person",
		"email":     "new@example.com",
		"password":  "s3cret-enough",
		"role":      "member",
	}

	assert.Equal(t, http.StatusForbidden, serve(t, router, leader, http.MethodPost, "/", body).Code)

	rec := serve(t, router, admin, http.MethodPost, "/", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got map[string]any
	testutil.DecodeJSON(t, rec, &got)
	assert.Equal(t, "new@example.com", got["email"])
	assert.NotContains(t, got, "password_hash")

	all, err := us.List(context.Background(), userstore.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	assert.Equal(t, http.StatusConflict, serve(t, router, admin, http.MethodPost, "/", body).Code)
}
