// Package auth resolves the caller of each request into an authz.Actor.
//
// A bearer token wins over the session cookie. Either way only the user id
// is taken from the credential: role and active status are re-read through
// a UserFetcher, so demotions and deactivation apply on the next request.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserFetcher loads the current actor for a user id. ok is false when the
// user is missing, inactive or has no usable role.
type UserFetcher interface {
	FetchActor(ctx context.Context, userID primitive.ObjectID) (authz.Actor, bool)
}

type Middleware struct {
	tokens   *TokenIssuer
	sessions *SessionManager
	users    UserFetcher
	log      *zap.Logger
}

// NewMiddleware wires the resolvers. tokens or sessions may be nil to
// disable that credential kind.
func NewMiddleware(tokens *TokenIssuer, sessions *SessionManager, users UserFetcher, logger *zap.Logger) *Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{tokens: tokens, sessions: sessions, users: users, log: logger}
}

// LoadActor injects the actor into the request context when the request
// carries a valid credential for an active user.
func (m *Middleware) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := m.credential(r); ok {
			if a, ok := m.users.FetchActor(r.Context(), id); ok {
				r = WithActor(r, a)
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) credential(r *http.Request) (primitive.ObjectID, bool) {
	if raw, ok := bearer(r); ok {
		if m.tokens == nil {
			return primitive.NilObjectID, false
		}
		id, err := m.tokens.Parse(raw)
		if err != nil {
			m.log.Debug("rejected bearer token", zap.Error(err))
			return primitive.NilObjectID, false
		}
		return id, true
	}
	if m.sessions != nil {
		return m.sessions.UserID(r)
	}
	return primitive.NilObjectID, false
}

// RequireSignedIn answers 401 when LoadActor found nobody.
func (m *Middleware) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := authz.UserCtx(r); !ok {
			respond.Error(w, m.log, apperr.Unauthenticated("sign in required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without an actor and 403 when the actor holds
// none of roles. Role names are normalised, so legacy aliases match.
func (m *Middleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[authz.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[authz.NormalizeRole(r)] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := authz.UserCtx(r)
			if !ok {
				respond.Error(w, m.log, apperr.Unauthenticated("sign in required"))
				return
			}
			if _, ok := allowed[a.Role]; !ok {
				respond.Error(w, m.log, apperr.Forbidden("your role cannot do this"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithActor returns r carrying a. LoadActor uses it once the credential
// resolves, and handler tests call it directly.
func WithActor(r *http.Request, a authz.Actor) *http.Request {
	return r.WithContext(authz.WithActor(r.Context(), a))
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(h[len(prefix):]), true
}
