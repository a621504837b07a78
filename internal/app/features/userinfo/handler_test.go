package userinfo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/features/userinfo"
	"github.com/dalemusser/projecthub/internal/app/services/servicetest"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"github.com/dalemusser/projecthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type unread struct {
	n   int64
	err error
}

func (u unread) UnreadCount(context.Context, primitive.ObjectID) (int64, error) { return u.n, u.err }

func TestServeMe(t *testing.T) {
	users := servicetest.NewUsers()
	u := users.Put(models.User{FullName: "Lee", Role: "team_leader", IsActive: true})
	h := userinfo.NewHandler(users, unread{n: 3}, zap.NewNop())

	req := testutil.WithActor(httptest.NewRequest(http.MethodGet, "/me", nil), testutil.LeaderActor(u.ID))
	rec := httptest.NewRecorder()
	h.ServeMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		User   models.User `json:"user"`
		Unread int64       `json:"unread_notifications"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, u.ID, body.User.ID)
	assert.Equal(t, int64(3), body.Unread)
}

func TestServeMe_UnreadFailureIsTolerated(t *testing.T) {
	users := servicetest.NewUsers()
	u := users.Put(models.User{FullName: "Lee", Role: "member", IsActive: true})
	h := userinfo.NewHandler(users, unread{err: errors.New("boom")}, zap.NewNop())

	req := testutil.WithActor(httptest.NewRequest(http.MethodGet, "/me", nil), testutil.MemberActor(u.ID))
	rec := httptest.NewRecorder()
	h.ServeMe(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServeMe_Anonymous(t *testing.T) {
	h := userinfo.NewHandler(servicetest.NewUsers(), unread{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.ServeMe(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
