// internal/app/features/teams/manage.go
package teams

import (
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/features/shared"
	teamsvc "github.com/dalemusser/projecthub/internal/app/services/teams"
	"github.com/dalemusser/projecthub/internal/app/store/audit"
	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"github.com/dalemusser/projecthub/internal/app/system/respond"
	"github.com/dalemusser/projecthub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createInput struct {
	Name        string `json:"name" validate:"required,max=200" label:"Name"`
	Description string `json:"description" validate:"max=2000" label:"Description"`
	TeamLeader  string `json:"team_leader" validate:"required" label:"Team leader"`
}

// HandleCreate handles POST /teams.
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
	leader, err := primitive.ObjectIDFromHex(in.TeamLeader)
	if err != nil {
		respond.Error(w, h.Log, apperr.Validation("team_leader must be a valid id"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "teams.create")
	defer cancel()

	t, err := h.Teams.Create(ctx, a, teamsvc.CreateTeamInput{
		Name:        in.Name,
		Description: in.Description,
		Leader:      leader,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventTeamCreated, &leader, &t.ID, map[string]string{"name": t.Name})
	respond.JSON(w, h.Log, http.StatusCreated, t)
}

type memberInput struct {
	UserID string `json:"user_id" validate:"required" label:"User"`
}

// HandleAddMember handles POST /teams/{id}/members.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	teamID, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in memberInput
	if err := shared.Decode(w, r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := primitive.ObjectIDFromHex(in.UserID)
	if err != nil {
		respond.Error(w, h.Log, apperr.Validation("user_id must be a valid id"))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "teams.add_member")
	defer cancel()

	t, err := h.Teams.AddMember(ctx, a, teamID, userID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventTeamMemberAdded, &userID, &teamID, nil)
	respond.JSON(w, h.Log, http.StatusOK, t)
}

// HandleRemoveMember handles DELETE /teams/{id}/members/{userID}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	a, ok := shared.Actor(w, r, h.Log)
	if !ok {
		return
	}
	teamID, err := shared.ObjectID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := shared.ObjectID(r, "userID")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "teams.remove_member")
	defer cancel()

	t, err := h.Teams.RemoveMember(ctx, a, teamID, userID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	h.AuditLog.Admin(ctx, r, a, audit.EventTeamMemberRemoved, &userID, &teamID, nil)
	respond.JSON(w, h.Log, http.StatusOK, t)
}
