package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Calling it again on the same request appends to the existing params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AdminActor returns a fresh admin identity.
func AdminActor() authz.Actor {
	return authz.Actor{ID: primitive.NewObjectID(), Name: "Test Admin", Role: authz.RoleAdmin}
}

// LeaderActor returns a team leader identity for id.
func LeaderActor(id primitive.ObjectID) authz.Actor {
	return authz.Actor{ID: id, Name: "Test Leader", Role: authz.RoleTeamLeader}
}

// MemberActor returns a member identity for id.
func MemberActor(id primitive.ObjectID) authz.Actor {
	return authz.Actor{ID: id, Name: "Test Member", Role: authz.RoleMember}
}

// WithActor puts a resolved actor on the request, bypassing the identity
// middleware.
func WithActor(r *http.Request, a authz.Actor) *http.Request {
	return r.WithContext(authz.WithActor(r.Context(), a))
}

// NewJSONRequest builds a request whose body is the JSON encoding of body.
func NewJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DecodeJSON decodes the recorder's body into v.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response body %q: %v", rec.Body.String(), err)
	}
}
