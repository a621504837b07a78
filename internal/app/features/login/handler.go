// internal/app/features/login/handler.go
package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/auditlog"
	"github.com/dalemusser/projecthub/internal/app/system/auth"
	"github.com/dalemusser/projecthub/internal/app/system/authutil"
	"github.com/dalemusser/projecthub/internal/app/system/normalize"
	"github.com/dalemusser/projecthub/internal/app/system/ratelimit"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserLookup interface {
	GetByEmail(ctx context.Context, email string) (models.User, error)
}

type Handler struct {
	Users    UserLookup
	Tokens   *auth.TokenIssuer
	Sessions *auth.SessionManager
	Limiter  *ratelimit.LoginLimiter
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users UserLookup, tokens *auth.TokenIssuer, sessions *auth.SessionManager, limiter *ratelimit.LoginLimiter, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Tokens:   tokens,
		Sessions: sessions,
		Limiter:  limiter,
		AuditLog: audit,
		Log:      logger,
	}
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      models.User `json:"user"`
}

var errBadCredentials = apperr.Unauthenticated("invalid email or password")

// HandleLogin handles POST /login. It answers with a bearer token and also
// sets the session cookie, so both API clients and browsers can sign in.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	email := normalize.Email(in.Email)

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, email); !ok {
			h.Log.Warn("login rate limited", zap.String("ip", ratelimit.ClientIP(r)))
			h.AuditLog.LoginFailedRateLimit(r.Context(), r, email)
			_ = respond.ErrorResponse(w, http.StatusTooManyRequests, "rate_limited", reason)
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "login")
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.AuditLog.LoginFailedUserNotFound(ctx, r, email)
		respond.Error(w, h.Log, errBadCredentials)
		return
	}
	if err != nil {
		respond.Error(w, h.Log, apperr.Downstream("load user", err))
		return
	}
	if !authutil.CheckPassword(in.Password, u.PasswordHash) {
		h.AuditLog.LoginFailedWrongPassword(ctx, r, u.ID, email)
		respond.Error(w, h.Log, errBadCredentials)
		return
	}
	if !u.IsActive {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, email)
		respond.Error(w, h.Log, errBadCredentials)
		return
	}

	token, exp, err := h.Tokens.Issue(u)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if h.Sessions != nil {
		if err := h.Sessions.SignIn(w, r, u.ID); err != nil {
			h.Log.Warn("login: save session", zap.Error(err))
		}
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, email)
	h.Log.Info("user signed in", zap.String("user_id", u.ID.Hex()))
	respond.JSON(w, h.Log, http.StatusOK, loginResponse{Token: token, ExpiresAt: exp, User: u})
}
