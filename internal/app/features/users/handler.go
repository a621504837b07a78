// internal/app/features/users/handler.go
package users

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	teamsvc "github.com/dalemusser/projecthub/internal/app/services/teams"
	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/auditlog"
	"github.com/dalemusser/projecthub/internal/app/system/authz"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"github.com/dalemusser/projecthub/internal/domain/models"
	"go.uber.org/zap"
)

// Accounts lists and creates users.
type Accounts interface {
	ListUsers(ctx context.Context, a authz.Actor, q teamsvc.UserQuery) ([]models.User, error)
	CreateUser(ctx context.Context, a authz.Actor, in teamsvc.CreateUserInput) (models.User, error)
}

type Handler struct {
	Users    Accounts
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(users Accounts, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Log: logger}
}

// ServeList handles GET /users?role=&team=. Team leaders see themselves
// and the people they share a team with.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	team, err := shared.OptionalObjectID(r.URL.Query().Get("team"), "team")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.list")
	defer cancel()

	out, err := h.Users.ListUsers(ctx, a, teamsvc.UserQuery{
		Role: strings.TrimSpace(r.URL.Query().Get("role")),
		Team: team,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, h.Log, http.StatusOK, map[string]any{"users": out})
}

type createInput struct {
	FullName string `json:"full_name" validate:"required,max=200" label:"Full name"`
	Email    string `json:"email" validate:"required,email" label:"Email"`
	Password string `json:"password" validate:"required" label:"Password"`
	Role     string `json:"role" validate:"required" label:"Role"`
}

// HandleCreate handles POST /users.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	var in createInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "users.create")
	defer cancel()

	u, err := h.Users.CreateUser(ctx, a, teamsvc.CreateUserInput{
		FullName: in.FullName,
		Email:    in.Email,
		Password: in.Password,
		Role:     in.Role,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventUserCreated, &u.ID, nil, map[string]string{"role": u.Role})
	respond.JSON(w, h.Log, http.StatusCreated, u)
}
