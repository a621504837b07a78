package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testSecret = "test-jwt-secret-must-be-32-chars-long"

type fakeFetcher map[primitive.ObjectID]authz.Actor

func (f fakeFetcher) FetchActor(_ context.Context, id primitive.ObjectID) (authz.Actor, bool) {
	a, ok := f[id]
	return a, ok
}

func newTestSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-must-be-32-chars-long", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return sm
}

func newTestIssuer(t *testing.T) *auth.TokenIssuer {
	t.Helper()
	ti, err := auth.NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}
	return ti
}

// echoActor writes the resolved actor id, or "anonymous".
var echoActor = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if a, ok := authz.UserCtx(r); ok {
		w.Write([]byte(a.ID.Hex() + ":" + string(a.Role)))
		return
	}
	w.Write([]byte("anonymous"))
})

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := newTestIssuer(t)
	u := models.User{ID: primitive.NewObjectID(), Role: "admin"}

	tok, exp, err := ti.Issue(u)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}
	got, err := ti.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != u.ID {
		t.Errorf("Parse() = %s, want %s", got.Hex(), u.ID.Hex())
	}
}

func TestTokenIssuer_RejectsForeignSecret(t *testing.T) {
	other, _ := auth.NewTokenIssuer("another-secret-that-is-32-chars-long!", time.Hour)
	tok, _, err := other.Issue(models.User{ID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := newTestIssuer(t).Parse(tok); err == nil {
		t.Error("expected token signed with another secret to be rejected")
	}
	if _, err := newTestIssuer(t).Parse("not.a.token"); err == nil {
		t.Error("expected garbage to be rejected")
	}
}

func TestNewTokenIssuer_EmptySecret(t *testing.T) {
	if _, err := auth.NewTokenIssuer("", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestLoadActor_Bearer(t *testing.T) {
	ti := newTestIssuer(t)
	id := primitive.NewObjectID()
	mw := auth.NewMiddleware(ti, nil, fakeFetcher{id: {ID: id, Role: authz.RoleTeamLeader}}, zap.NewNop())

	tok, _, _ := ti.Issue(models.User{ID: id, Role: "admin"})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	mw.LoadActor(echoActor).ServeHTTP(rec, req)

	// The role comes from the fetcher, not the token.
	if want := id.Hex() + ":team_leader"; rec.Body.String() != want {
		t.Errorf("body = %q, want %q", rec.Body.String(), want)
	}
}

func TestLoadActor_DeactivatedUserIsAnonymous(t *testing.T) {
	ti := newTestIssuer(t)
	mw := auth.NewMiddleware(ti, nil, fakeFetcher{}, zap.NewNop())

	tok, _, _ := ti.Issue(models.User{ID: primitive.NewObjectID()})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	mw.LoadActor(echoActor).ServeHTTP(rec, req)

	if rec.Body.String() != "anonymous" {
		t.Errorf("body = %q, want anonymous", rec.Body.String())
	}
}

func TestLoadActor_SessionCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	id := primitive.NewObjectID()
	mw := auth.NewMiddleware(nil, sm, fakeFetcher{id: {ID: id, Role: authz.RoleMember}}, zap.NewNop())

	login := httptest.NewRecorder()
	if err := sm.SignIn(login, httptest.NewRequest(http.MethodPost, "/login", nil), id); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	cookies := login.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	mw.LoadActor(echoActor).ServeHTTP(rec, req)
	if !strings.HasPrefix(rec.Body.String(), id.Hex()) {
		t.Errorf("body = %q, want actor %s", rec.Body.String(), id.Hex())
	}

	logout := httptest.NewRecorder()
	if err := sm.SignOut(logout, req); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	for _, c := range logout.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("expected expired cookie after sign out, got MaxAge %d", c.MaxAge)
		}
	}
}

func TestRequireSignedIn_NoUser_Returns401JSON(t *testing.T) {
	mw := auth.NewMiddleware(nil, nil, fakeFetcher{}, zap.NewNop())
	rec := httptest.NewRecorder()
	mw.RequireSignedIn(echoActor).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequireRole(t *testing.T) {
	mw := auth.NewMiddleware(nil, nil, fakeFetcher{}, zap.NewNop())
	h := mw.RequireRole("admin", "manager")(echoActor)

	tests := []struct {
		name  string
		actor *authz.Actor
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"member", &authz.Actor{ID: primitive.NewObjectID(), Role: authz.RoleMember}, http.StatusForbidden},
		{"admin", &authz.Actor{ID: primitive.NewObjectID(), Role: authz.RoleAdmin}, http.StatusOK},
		{"leader via alias", &authz.Actor{ID: primitive.NewObjectID(), Role: authz.RoleTeamLeader}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/teams", nil)
			if tt.actor != nil {
				req = auth.WithActor(req, *tt.actor)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
