// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the authenticated identity performing a request.
type Actor struct {
	ID   primitive.ObjectID
	Name string
	Role Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsTeamLeader reports whether the actor holds the team leader role.
func (a Actor) IsTeamLeader() bool { return a.Role == RoleTeamLeader }

type ctxKey string

const actorKey ctxKey = "actor"

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor stored in ctx. ok is false when no
// actor is present or the stored ID is the zero ObjectID, so callers can
// trust ok=true to mean an authenticated user.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	if !ok || a.ID.IsZero() {
		return Actor{}, false
	}
	return a, true
}

// UserCtx returns the actor resolved for r.
func UserCtx(r *http.Request) (Actor, bool) {
	return ActorFromContext(r.Context())
}

// HasAnyRole reports whether the current request's actor has one of roles.
// Returns false when nobody is signed in.
func HasAnyRole(r *http.Request, roles ...Role) bool {
	a, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if a.Role == want {
			return true
		}
	}
	return false
}
